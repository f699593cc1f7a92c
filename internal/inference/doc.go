// Package inference tests and summarizes fitted models: the
// likelihood-ratio test of the habitat term against the intercept-only
// model, and the marginal/conditional R² decomposition of the full model.
package inference
