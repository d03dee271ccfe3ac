package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/metareg/dataset"
	"github.com/arloliu/metareg/errs"
)

// Likelihood is the iterative (restricted) maximum-likelihood estimator.
//
// It alternates two closed steps until tau^2 stabilizes:
//
//  1. at fixed tau^2, coefficients come from the GLS closed form;
//  2. at fixed coefficients, tau^2 is updated by minimizing the negative
//     (restricted) log-likelihood along that one dimension with a bounded
//     golden-section search constrained to tau^2 >= 0.
//
// The zero bound is enforced inside the search (never by truncating an
// unconstrained result), and a candidate that is not strictly better than
// the boundary snaps to zero, keeping degenerate fits deterministic.
//
// Exhausting the iteration budget is non-fatal: the last iterate is
// returned with errs.ErrConvergence recorded as a warning on the result.
type Likelihood struct {
	method  Method // MethodML or MethodREML
	start   float64
	tol     float64
	maxIter int
}

var _ Estimator = (*Likelihood)(nil)

// NewLikelihood creates an ML or REML estimator.
//
// Parameters:
//   - method: MethodML or MethodREML
//   - opts: WithStartTau2, WithTolerance, WithMaxIterations
//
// Returns errs.ErrUnknownMethod when method is not a likelihood method.
func NewLikelihood(method Method, opts ...Option) (*Likelihood, error) {
	if method != MethodML && method != MethodREML {
		return nil, fmt.Errorf("%w: %s is not a likelihood method", errs.ErrUnknownMethod, method)
	}

	est, err := New(method.String(), opts...)
	if err != nil {
		return nil, err
	}

	return est.(*Likelihood), nil
}

// Method returns MethodML or MethodREML.
func (e *Likelihood) Method() Method {
	return e.method
}

// likelihoodState is the optimizer's explicit iteration state.
type likelihoodState struct {
	tau2      float64
	beta      []float64
	nll       float64
	iteration int
	lastDelta float64
	converged bool
}

// Fit jointly estimates (beta, tau^2) by coordinate optimization.
//
// Requires study variances. When K <= P there is no residual information
// for tau^2 (the REML objective is exactly flat); the fit short-circuits to
// tau^2 = 0 with a plain WLS coefficient solve.
func (e *Likelihood) Fit(d *dataset.Dataset) (Result, error) {
	if !d.HasVariances() {
		return nil, errs.ErrVariancesRequired
	}

	x := d.Design()
	y := d.Estimates()
	v := d.Variances()
	k, p := x.Dims()

	if k <= p {
		beta, err := solveGLS(x, y, effectiveWeights(d, 0))
		if err != nil {
			return nil, err
		}
		res := newResults(d, e.method, beta, 0, true)
		res.converged = true

		return res, nil
	}

	reml := e.method == MethodREML
	state := likelihoodState{tau2: e.start, nll: math.Inf(1)}

	for state.iteration < e.maxIter {
		state.iteration++

		beta, err := solveGLS(x, y, weightsAt(v, state.tau2))
		if err != nil {
			return nil, err
		}
		state.beta = beta

		resid := residuals(x, y, beta)
		objective := func(tau2 float64) float64 {
			return negLogLikelihood(tau2, resid, v, x, reml)
		}

		next := minimizeTau2(objective, state.tau2)
		nll := objective(next)

		state.lastDelta = math.Abs(next - state.tau2)
		nllDelta := math.Abs(nll - state.nll)
		state.tau2, state.nll = next, nll

		if state.lastDelta < e.tol || nllDelta < e.tol {
			state.converged = true
			break
		}
	}

	// Final coefficient solve at the terminal tau2.
	beta, err := solveGLS(x, y, weightsAt(v, state.tau2))
	if err != nil {
		return nil, err
	}
	state.beta = beta

	res := newResults(d, e.method, state.beta, state.tau2, true)
	res.converged = state.converged
	res.iterations = state.iteration
	res.lastDelta = state.lastDelta
	if !state.converged {
		res.warnings = append(res.warnings, fmt.Errorf(
			"%w: %s stopped after %d iterations (last tau2 delta %.3g)",
			errs.ErrConvergence, e.method, state.iteration, state.lastDelta))
	}

	return res, nil
}

// weightsAt returns 1/(v_i + tau2) for every study.
func weightsAt(v []float64, tau2 float64) []float64 {
	w := make([]float64, len(v))
	for i := range v {
		w[i] = 1.0 / (v[i] + tau2)
	}

	return w
}

// residuals computes r = y - X beta.
func residuals(x *mat.Dense, y, beta []float64) []float64 {
	k, p := x.Dims()
	r := make([]float64, k)
	for i := 0; i < k; i++ {
		pred := 0.0
		for j := 0; j < p; j++ {
			pred += x.At(i, j) * beta[j]
		}
		r[i] = y[i] - pred
	}

	return r
}

// negLogLikelihood evaluates the negative (restricted) log-likelihood at
// tau2 for fixed residuals, dropping constant terms.
//
// ML:   -0.5 * (sum log w - sum w r^2)        with w_i = 1/(v_i + tau2)
// REML: the ML value + 0.5 * log det(X'WX), the correction for the degrees
// of freedom consumed by estimating beta.
//
// Returns +Inf when the REML determinant term is unavailable (singular
// X'WX), so the search never steps there.
func negLogLikelihood(tau2 float64, resid, v []float64, x *mat.Dense, reml bool) float64 {
	sumLogW := 0.0
	quad := 0.0
	for i := range v {
		w := 1.0 / (v[i] + tau2)
		sumLogW += math.Log(w)
		quad += w * resid[i] * resid[i]
	}
	nll := -0.5 * (sumLogW - quad)

	if reml {
		chol, err := information(x, weightsAt(v, tau2))
		if err != nil {
			return math.Inf(1)
		}
		nll += 0.5 * chol.LogDet()
	}

	return nll
}

// Search constants for the bounded tau2 update.
const (
	bracketGrowth = 4.0   // upper-bracket expansion factor
	bracketMax    = 1e8   // absolute cap on the tau2 bracket
	goldenIters   = 120   // fixed golden-section iterations
	boundarySlack = 1e-12 // snap-to-zero comparison slack
)

// minimizeTau2 minimizes f over tau2 >= 0.
//
// The upper bracket starts just above the current iterate and expands while
// the objective keeps decreasing at its edge; the interior minimum is then
// located by golden-section. Both phases are bounded-iteration loops. If
// the zero boundary is not strictly worse than the interior candidate, the
// boundary wins: tau2 sits exactly at zero rather than at numerical noise
// above it.
func minimizeTau2(f func(float64) float64, current float64) float64 {
	hi := math.Max(1.0, 2.0*current)
	for hi < bracketMax && f(hi*bracketGrowth) < f(hi) {
		hi *= bracketGrowth
	}
	hi *= bracketGrowth

	candidate := goldenSection(f, 0, hi, goldenIters)
	if f(0) <= f(candidate)+boundarySlack {
		return 0
	}

	return candidate
}

// goldenSection runs a fixed number of golden-section steps on [lo, hi] and
// returns the midpoint of the final bracket.
func goldenSection(f func(float64) float64, lo, hi float64, iters int) float64 {
	const invPhi = 0.6180339887498949

	a, b := lo, hi
	c := b - (b-a)*invPhi
	d := a + (b-a)*invPhi
	fc, fd := f(c), f(d)

	for i := 0; i < iters && b-a > 1e-14*(1+b); i++ {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - (b-a)*invPhi
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + (b-a)*invPhi
			fd = f(d)
		}
	}

	return (a + b) / 2
}
