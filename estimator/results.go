package estimator

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arloliu/metareg/dataset"
	"github.com/arloliu/metareg/errs"
)

// Interval is a two-sided confidence interval.
type Interval struct {
	Lower float64
	Upper float64
}

// Results holds a frequentist fit: coefficients, the heterogeneity
// estimate, and, after an explicit ComputeStats call, standard errors and
// confidence intervals.
//
// Results references the dataset that produced it (read-only) so stats
// computation can recompute residuals and information matrices; it never
// copies or mutates it.
type Results struct {
	ds     *dataset.Dataset
	method Method
	names  []string
	beta   []float64

	tau2          float64
	tau2Estimated bool

	converged  bool
	iterations int
	lastDelta  float64
	warnings   []error

	// Populated by ComputeStats.
	statsDone      bool
	alpha          float64
	se             []float64
	intervals      []Interval
	tau2Interval   Interval
	tau2IntervalOK bool
}

var _ Result = (*Results)(nil)
var _ StatsComputer = (*Results)(nil)

// newResults builds a Results owning the coefficient vector produced by an
// estimator. Closed-form fits start converged.
func newResults(d *dataset.Dataset, method Method, beta []float64, tau2 float64, estimated bool) *Results {
	return &Results{
		ds:            d,
		method:        method,
		names:         d.Names(),
		beta:          beta,
		tau2:          tau2,
		tau2Estimated: estimated,
		converged:     true,
	}
}

// Method returns the estimation method that produced the result.
func (r *Results) Method() Method {
	return r.method
}

// Names returns the predictor labels, 1:1 with Coefficients.
func (r *Results) Names() []string {
	return append([]string(nil), r.names...)
}

// Coefficients returns the fitted coefficients, one per design column.
func (r *Results) Coefficients() []float64 {
	return append([]float64(nil), r.beta...)
}

// Coefficient returns the fitted coefficient for the named predictor.
func (r *Results) Coefficient(name string) (float64, bool) {
	for i, n := range r.names {
		if n == name {
			return r.beta[i], true
		}
	}

	return 0, false
}

// Tau2 returns the between-study variance. The boolean reports whether the
// value was estimated from the data; it is false for fixed-effect (WLS/FE)
// fits, where tau^2 is a pass-through constant.
func (r *Results) Tau2() (float64, bool) {
	return r.tau2, r.tau2Estimated
}

// Converged reports whether the fit met its convergence tolerance.
// Closed-form fits always converge.
func (r *Results) Converged() bool {
	return r.converged
}

// Iterations returns the optimizer's iteration count (0 for closed-form
// fits).
func (r *Results) Iterations() int {
	return r.iterations
}

// LastDelta returns the final tau^2 change of the likelihood optimizer.
func (r *Results) LastDelta() float64 {
	return r.lastDelta
}

// Warnings returns non-fatal issues recorded during fitting or stats
// computation, such as errs.ErrConvergence.
func (r *Results) Warnings() []error {
	return append([]error(nil), r.warnings...)
}

// StandardErrors returns the coefficient standard errors, or nil before
// ComputeStats has run.
func (r *Results) StandardErrors() []float64 {
	if !r.statsDone {
		return nil
	}

	return append([]float64(nil), r.se...)
}

// ConfidenceIntervals returns the coefficient confidence intervals at the
// coverage requested from ComputeStats, or nil before it has run.
func (r *Results) ConfidenceIntervals() []Interval {
	if !r.statsDone {
		return nil
	}

	return append([]Interval(nil), r.intervals...)
}

// Tau2Interval returns the Q-profile confidence interval for tau^2. The
// boolean is false before ComputeStats has run, for fixed-effect fits, and
// when the dataset carries no variances.
func (r *Results) Tau2Interval() (Interval, bool) {
	return r.tau2Interval, r.tau2IntervalOK
}

// Alpha returns the significance level used by the last ComputeStats call.
func (r *Results) Alpha() float64 {
	return r.alpha
}

// ComputeStats populates standard errors and confidence intervals.
//
// Standard errors come from the inverse of the information matrix X'WX at
// the fitted tau^2; coefficient intervals are Wald intervals at 1-alpha
// coverage. For estimated tau^2 the interval is the Q-profile interval:
// each bound is a bounded bisection root-find of the generalized Cochran Q
// against a chi-squared quantile cutoff. A bound that runs into the
// tau^2 >= 0 boundary (or exhausts its bracket) is clamped rather than
// failing the whole computation, with errs.ErrConvergence recorded as a
// warning.
//
// Parameters:
//   - ciMethod: confidence interval method; only "QP" (case-insensitive)
//   - alpha: significance level in (0, 1); intervals have 1-alpha coverage
//
// Returns errs.ErrUnknownMethod for an unrecognized ciMethod and
// errs.ErrInvalidAlpha for an out-of-range alpha.
func (r *Results) ComputeStats(ciMethod string, alpha float64) error {
	if strings.ToLower(ciMethod) != "qp" {
		return fmt.Errorf("%w: ci method %q (supported: QP)", errs.ErrUnknownMethod, ciMethod)
	}
	if alpha <= 0 || alpha >= 1 {
		return fmt.Errorf("%w: %g", errs.ErrInvalidAlpha, alpha)
	}

	x := r.ds.Design()
	w := effectiveWeights(r.ds, r.tau2)

	chol, err := information(x, w)
	if err != nil {
		return err
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return errs.ErrSingularDesign
	}

	p := len(r.beta)
	z := distuv.UnitNormal.Quantile(1 - alpha/2)
	se := make([]float64, p)
	intervals := make([]Interval, p)
	for j := 0; j < p; j++ {
		se[j] = math.Sqrt(inv.At(j, j))
		intervals[j] = Interval{
			Lower: r.beta[j] - z*se[j],
			Upper: r.beta[j] + z*se[j],
		}
	}

	r.se = se
	r.intervals = intervals
	r.alpha = alpha
	r.tau2IntervalOK = false

	if r.tau2Estimated && r.ds.HasVariances() {
		interval, warn := qProfileInterval(r.ds, alpha)
		r.tau2Interval = interval
		r.tau2IntervalOK = true
		if warn != nil {
			r.warnings = append(r.warnings, warn)
		}
	}

	r.statsDone = true

	return nil
}

// Root-finder bounds for the Q-profile interval.
const (
	qpBracketMax = 1e8
	qpBisectIter = 200
)

// qProfileInterval computes the Q-profile confidence interval for tau^2.
//
// The generalized Q statistic Q(t) = sum w_i(t) (y_i - x_i b(t))^2 with
// w_i(t) = 1/(v_i + t) and b(t) the GLS fit at t is strictly decreasing in
// t and distributed chi-squared with K-P degrees of freedom under the
// model. The interval is the set of t where Q(t) lies between the
// alpha/2 and 1-alpha/2 quantiles; each endpoint is a bisection root-find.
//
// Endpoints that hit the zero boundary are clamped to 0; an upper endpoint
// whose bracket cannot contain the root is clamped to the bracket cap with
// a non-fatal errs.ErrConvergence warning. With K-P < 1 there is no
// residual information and the interval is [0, +Inf).
func qProfileInterval(d *dataset.Dataset, alpha float64) (Interval, error) {
	x := d.Design()
	y := d.Estimates()
	v := d.Variances()
	k, p := x.Dims()

	df := k - p
	if df < 1 {
		return Interval{Lower: 0, Upper: math.Inf(1)}, nil
	}

	qgen := func(t float64) float64 {
		w := weightsAt(v, t)
		beta, err := solveGLS(x, y, w)
		if err != nil {
			return math.Inf(1)
		}

		return cochranQ(x, y, w, beta)
	}

	chi := distuv.ChiSquared{K: float64(df)}
	upperCut := chi.Quantile(1 - alpha/2) // crossed at the lower endpoint
	lowerCut := chi.Quantile(alpha / 2)   // crossed at the upper endpoint

	var warn error

	lower := 0.0
	if qgen(0) > upperCut {
		lower, warn = descendingRoot(qgen, upperCut)
	}

	upper := 0.0
	if qgen(0) > lowerCut {
		var werr error
		upper, werr = descendingRoot(qgen, lowerCut)
		if werr != nil {
			warn = werr
		}
	}

	return Interval{Lower: lower, Upper: upper}, warn
}

// descendingRoot solves f(t) = target for a strictly decreasing f on
// t >= 0 with f(0) > target, by bracket expansion and bounded bisection.
func descendingRoot(f func(float64) float64, target float64) (float64, error) {
	hi := 1.0
	for f(hi) > target {
		hi *= 2
		if hi > qpBracketMax {
			return qpBracketMax, fmt.Errorf(
				"%w: tau2 interval bound exceeded bracket %g", errs.ErrConvergence, qpBracketMax)
		}
	}

	lo := 0.0
	for i := 0; i < qpBisectIter && hi-lo > 1e-12*(1+hi); i++ {
		mid := (lo + hi) / 2
		if f(mid) > target {
			lo = mid
		} else {
			hi = mid
		}
	}

	return (lo + hi) / 2, nil
}
