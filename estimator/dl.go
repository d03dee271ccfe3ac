package estimator

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/metareg/dataset"
	"github.com/arloliu/metareg/errs"
)

// DerSimonianLaird is the moment-based between-study variance estimator
// (DerSimonian & Laird, 1986).
//
// It derives tau^2 in closed form from the residual heterogeneity of a
// fixed-effect fit and then refits the coefficients by weighted least
// squares at the estimated tau^2. Deterministic, no iteration; the only
// failure mode is a singular design in the underlying WLS fits.
//
// The moment estimate is
//
//	tau2 = max(0, (Q - (K-P)) / (sum(w) - sum(w^2)/sum(w)))
//
// with w = 1/v and Q = sum w_i (y_i - x_i b)^2 (Cochran's Q). The clamp at
// zero is a domain rule: between-study variance cannot be negative.
type DerSimonianLaird struct{}

var _ Estimator = (*DerSimonianLaird)(nil)

// NewDerSimonianLaird creates a DerSimonian-Laird estimator.
func NewDerSimonianLaird() *DerSimonianLaird {
	return &DerSimonianLaird{}
}

// Method returns MethodDL.
func (e *DerSimonianLaird) Method() Method {
	return MethodDL
}

// Fit estimates tau^2 by the method of moments, then refits coefficients.
//
// Requires study variances; returns errs.ErrVariancesRequired otherwise.
func (e *DerSimonianLaird) Fit(d *dataset.Dataset) (Result, error) {
	if !d.HasVariances() {
		return nil, errs.ErrVariancesRequired
	}

	x := d.Design()
	y := d.Estimates()
	v := d.Variances()
	k, p := x.Dims()

	// Fixed-effect fit at tau2 = 0.
	w := make([]float64, k)
	for i := range v {
		w[i] = 1.0 / v[i]
	}
	betaFE, err := solveGLS(x, y, w)
	if err != nil {
		return nil, err
	}

	q := cochranQ(x, y, w, betaFE)

	sw := floats.Sum(w)
	sw2 := 0.0
	for _, wi := range w {
		sw2 += wi * wi
	}

	tau2 := 0.0
	if c := sw - sw2/sw; c > 0 {
		tau2 = (q - float64(k-p)) / c
		if tau2 < 0 {
			tau2 = 0
		}
	}

	// Random-effects refit at the estimated tau2.
	beta, err := solveGLS(x, y, effectiveWeights(d, tau2))
	if err != nil {
		return nil, err
	}

	return newResults(d, MethodDL, beta, tau2, true), nil
}

// cochranQ computes the weighted residual sum of squares
// Q = sum w_i (y_i - x_i b)^2.
func cochranQ(x *mat.Dense, y, w, beta []float64) float64 {
	k, p := x.Dims()
	q := 0.0
	for i := 0; i < k; i++ {
		pred := 0.0
		for j := 0; j < p; j++ {
			pred += x.At(i, j) * beta[j]
		}
		r := y[i] - pred
		q += w[i] * r * r
	}

	return q
}
