package lmm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// profile holds the per-group sufficient statistics needed to evaluate the
// profiled deviance at any θ.
type profile struct {
	d *design

	counts  []float64       // n_g
	colSums []*mat.VecDense // Σ_{i∈g} x_i
	ySums   []float64       // Σ_{i∈g} y_i
	xtx     *mat.SymDense   // XᵀX
	xty     *mat.VecDense   // Xᵀy
}

func newProfile(d *design) *profile {
	n, p := d.n(), d.p()
	k := len(d.groups)

	pr := &profile{
		d:       d,
		counts:  make([]float64, k),
		colSums: make([]*mat.VecDense, k),
		ySums:   make([]float64, k),
		xtx:     mat.NewSymDense(p, nil),
		xty:     mat.NewVecDense(p, nil),
	}
	for g := range pr.colSums {
		pr.colSums[g] = mat.NewVecDense(p, nil)
	}

	for i := 0; i < n; i++ {
		g := d.group[i]
		row := mat.NewVecDense(p, d.x.RawRowView(i))
		pr.counts[g]++
		pr.colSums[g].AddVec(pr.colSums[g], row)
		pr.ySums[g] += d.y[i]
		pr.xtx.SymRankOne(pr.xtx, 1, row)
		pr.xty.AddScaledVec(pr.xty, d.y[i], row)
	}
	return pr
}

// solution is the profiled fit at one θ.
type solution struct {
	theta    float64
	gamma    float64
	beta     *mat.VecDense
	sigma2   float64
	deviance float64

	chol      mat.Cholesky
	weights   []float64 // w_g
	residSums []float64 // Σ_{i∈g} r_i
}

// solve computes β̂(θ), σ̂²(θ) and the profiled deviance. It returns a
// *DesignError when the GLS system is not positive definite or the
// residuals vanish.
func (pr *profile) solve(theta float64) (*solution, error) {
	d := pr.d
	n, p := d.n(), d.p()
	s := &solution{
		theta:     theta,
		gamma:     theta * theta,
		beta:      mat.NewVecDense(p, nil),
		weights:   make([]float64, len(pr.counts)),
		residSums: make([]float64, len(pr.counts)),
	}

	a := mat.NewSymDense(p, nil)
	a.CopySym(pr.xtx)
	c := mat.NewVecDense(p, nil)
	c.CopyVec(pr.xty)

	logDet := 0.0
	for g, ng := range pr.counts {
		w := s.gamma / (1 + ng*s.gamma)
		s.weights[g] = w
		logDet += math.Log1p(ng * s.gamma)
		if w == 0 {
			continue
		}
		a.SymRankOne(a, -w, pr.colSums[g])
		c.AddScaledVec(c, -w*pr.ySums[g], pr.colSums[g])
	}

	if ok := s.chol.Factorize(a); !ok {
		return nil, &DesignError{Formula: d.formula, Reason: "fixed-effect design is rank deficient"}
	}
	if err := s.chol.SolveVecTo(s.beta, c); err != nil {
		return nil, &DesignError{Formula: d.formula, Reason: "fixed-effect system is ill-conditioned: " + err.Error()}
	}

	var xb mat.VecDense
	xb.MulVec(d.x, s.beta)

	ss := 0.0
	for i := 0; i < n; i++ {
		r := d.y[i] - xb.AtVec(i)
		ss += r * r
		s.residSums[d.group[i]] += r
	}
	for g, w := range s.weights {
		ss -= w * s.residSums[g] * s.residSums[g]
	}
	if !(ss > 0) {
		return nil, &DesignError{Formula: d.formula, Reason: "response has no residual variation"}
	}

	nf := float64(n)
	s.sigma2 = ss / nf
	s.deviance = nf*math.Log(2*math.Pi*s.sigma2) + logDet + nf
	return s, nil
}

// deviance is the optimizer objective. Points where the system cannot be
// solved are infinitely bad.
func (pr *profile) deviance(x []float64) float64 {
	s, err := pr.solve(x[0])
	if err != nil {
		return math.Inf(1)
	}
	return s.deviance
}
