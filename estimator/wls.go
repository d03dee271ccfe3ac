package estimator

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/metareg/dataset"
	"github.com/arloliu/metareg/errs"
)

// WeightedLeastSquares is the closed-form generalized least-squares
// estimator at a fixed (possibly zero) between-study variance.
//
// With tau^2 = 0 this is the standard inverse-variance-weighted fixed-effect
// meta-regression. The estimator does not estimate tau^2: the configured
// value is passed through unchanged.
type WeightedLeastSquares struct {
	tau2 float64
}

var _ Estimator = (*WeightedLeastSquares)(nil)

// NewWeightedLeastSquares creates a WLS estimator with the given known
// tau^2 (0 for a pure fixed-effect fit).
//
// Returns errs.ErrNegativeHeterogeneity when tau2 < 0.
func NewWeightedLeastSquares(tau2 float64) (*WeightedLeastSquares, error) {
	if tau2 < 0 {
		return nil, errs.ErrNegativeHeterogeneity
	}

	return &WeightedLeastSquares{tau2: tau2}, nil
}

// Method returns MethodWLS.
func (e *WeightedLeastSquares) Method() Method {
	return MethodWLS
}

// Fit solves the weighted normal equations for the coefficients.
//
// Effective weights are 1/(v_i + tau^2) when variances are known, otherwise
// the dataset's resolved weights are used directly. The solve goes through a
// Cholesky factorization of X'WX; a factorization failure (collinear or
// rank-deficient design) surfaces as errs.ErrSingularDesign.
func (e *WeightedLeastSquares) Fit(d *dataset.Dataset) (Result, error) {
	w := effectiveWeights(d, e.tau2)
	beta, err := solveGLS(d.Design(), d.Estimates(), w)
	if err != nil {
		return nil, err
	}

	return newResults(d, MethodWLS, beta, e.tau2, false), nil
}

// effectiveWeights returns the weight vector for a fit at the given tau^2:
// 1/(v_i + tau^2) when variances are known, else the dataset weights.
func effectiveWeights(d *dataset.Dataset, tau2 float64) []float64 {
	if !d.HasVariances() {
		return d.Weights()
	}

	v := d.Variances()
	w := make([]float64, len(v))
	for i := range v {
		w[i] = 1.0 / (v[i] + tau2)
	}

	return w
}

// solveGLS solves (X'WX) b = X'Wy via Cholesky of the weighted design.
//
// The rows of X and entries of y are scaled by sqrt(w) so the normal
// equations are assembled from the scaled design, avoiding the explicit
// inverse. Returns errs.ErrSingularDesign when X'WX is not positive
// definite.
func solveGLS(x *mat.Dense, y, w []float64) ([]float64, error) {
	chol, xs, ys, err := weightedDesign(x, y, w)
	if err != nil {
		return nil, err
	}

	_, p := xs.Dims()

	var xty mat.VecDense
	xty.MulVec(xs.T(), ys)

	var sol mat.VecDense
	if err := chol.SolveVecTo(&sol, &xty); err != nil {
		return nil, errs.ErrSingularDesign
	}

	beta := make([]float64, p)
	for j := 0; j < p; j++ {
		beta[j] = sol.AtVec(j)
	}

	return beta, nil
}

// weightedDesign scales the design by sqrt(w) and factorizes X'WX.
//
// Returns the factorization along with the scaled design and outcome for
// reuse by the solver.
func weightedDesign(x *mat.Dense, y, w []float64) (*mat.Cholesky, *mat.Dense, *mat.VecDense, error) {
	k, p := x.Dims()

	xs := mat.NewDense(k, p, nil)
	ys := mat.NewVecDense(k, nil)
	for i := 0; i < k; i++ {
		s := math.Sqrt(w[i])
		for j := 0; j < p; j++ {
			xs.Set(i, j, s*x.At(i, j))
		}
		if y != nil {
			ys.SetVec(i, s*y[i])
		}
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, xs.T())

	var chol mat.Cholesky
	if !chol.Factorize(&xtx) {
		return nil, nil, nil, errs.ErrSingularDesign
	}

	return &chol, xs, ys, nil
}

// information factorizes the information matrix X'WX at the given weights.
func information(x *mat.Dense, w []float64) (*mat.Cholesky, error) {
	chol, _, _, err := weightedDesign(x, nil, w)
	if err != nil {
		return nil, err
	}

	return chol, nil
}
