// Package lmm fits the linear mixed-effects model used by the habitat
// analysis:
//
//	allelic_richness ~ habitat + (1 | locus)
//
// and its null counterpart without the habitat term. Both are fitted by
// maximum likelihood (never REML) so their log-likelihoods can be compared
// in a likelihood-ratio test.
//
// ALGORITHM:
//
// The fixed effects β and residual variance σ² are profiled out, leaving a
// one-dimensional problem in the relative covariance factor θ = σ_b/σ. For
// a fixed γ = θ² the marginal covariance of the responses within locus g is
// σ²(I + γ11ᵀ), whose inverse and log-determinant have closed forms:
//
//	(I + γ11ᵀ)⁻¹ = I - w_g 11ᵀ,  w_g = γ / (1 + n_g γ)
//	log|I + γ11ᵀ| = log(1 + n_g γ)
//
// so the GLS normal equations and the profiled deviance
//
//	d(θ) = n log(2π σ̂²(θ)) + Σ_g log(1 + n_g γ) + n
//
// are evaluated from per-locus sums without forming the n×n covariance.
// θ is minimized with gonum's Nelder-Mead. The deviance at θ = 0 is then
// checked explicitly: when the boundary is at least as good the fit lands
// exactly on zero and is flagged singular.
//
// Fitted models are immutable values. Fitter is safe for concurrent use, and
// FitPair fits the full and null models in parallel over the same table.
package lmm
