package estimator

import (
	"fmt"

	"github.com/arloliu/metareg/dataset"
	"github.com/arloliu/metareg/errs"
)

// ModelSpec is the model handed to an external posterior sampler: the
// design matrix, outcome vector, and known sampling variances, plus
// passthrough sampling settings.
type ModelSpec struct {
	// Outcomes is the per-study effect estimate vector (length K).
	Outcomes []float64
	// Variances is the per-study known sampling variance vector (length K).
	Variances []float64
	// Design is the K x P design matrix, one row per study, intercept
	// column included when the dataset has one.
	Design [][]float64
	// Names labels the design columns, 1:1 with coefficient draws.
	Names []string

	// Sampling settings, passed through untouched.
	Iterations int
	Chains     int
	Seed       int64
}

// Posterior carries per-coefficient posterior summaries returned by a
// sampler, ordered like ModelSpec.Names.
type Posterior struct {
	// Mean is the posterior mean per coefficient.
	Mean []float64
	// SD is the posterior standard deviation per coefficient.
	SD []float64
	// Tau2Mean is the posterior mean of the between-study variance.
	Tau2Mean float64
	// Draws optionally carries raw draws, one row per draw, one column per
	// coefficient. May be nil when the sampler returns summaries only.
	Draws [][]float64
}

// Sampler is the external Bayesian collaborator. The core treats Sample as
// an opaque blocking call; any concurrency belongs to the implementation.
type Sampler interface {
	Sample(spec *ModelSpec) (*Posterior, error)
}

// Stan adapts a dataset to an external posterior sampler and wraps the
// returned summaries. No sampling algorithm lives in-core.
type Stan struct {
	sampler    Sampler
	iterations int
	chains     int
	seed       int64
}

var _ Estimator = (*Stan)(nil)

// Method returns MethodStan.
func (e *Stan) Method() Method {
	return MethodStan
}

// Fit translates the dataset into a ModelSpec, runs the sampler, and wraps
// the posterior into a BayesianResults.
//
// Requires study variances (the sampler needs known sigmas).
func (e *Stan) Fit(d *dataset.Dataset) (Result, error) {
	if !d.HasVariances() {
		return nil, errs.ErrVariancesRequired
	}

	x := d.Design()
	k, p := x.Dims()
	design := make([][]float64, k)
	for i := 0; i < k; i++ {
		row := make([]float64, p)
		for j := 0; j < p; j++ {
			row[j] = x.At(i, j)
		}
		design[i] = row
	}

	spec := &ModelSpec{
		Outcomes:   d.Estimates(),
		Variances:  d.Variances(),
		Design:     design,
		Names:      d.Names(),
		Iterations: e.iterations,
		Chains:     e.chains,
		Seed:       e.seed,
	}

	posterior, err := e.sampler.Sample(spec)
	if err != nil {
		return nil, fmt.Errorf("sampling failed: %w", err)
	}
	if len(posterior.Mean) != p {
		return nil, fmt.Errorf("%w: sampler returned %d coefficients for %d design columns",
			errs.ErrInvalidInput, len(posterior.Mean), p)
	}

	return &BayesianResults{
		names:     d.Names(),
		posterior: posterior,
	}, nil
}

// BayesianResults wraps posterior summaries in the common result shape.
//
// It deliberately does not implement StatsComputer: posterior draws have no
// closed-form SE/CI in the frequentist sense, so the dispatch layer skips
// the stats-computation step.
type BayesianResults struct {
	names     []string
	posterior *Posterior
}

var _ Result = (*BayesianResults)(nil)

// Method returns MethodStan.
func (r *BayesianResults) Method() Method {
	return MethodStan
}

// Names returns the predictor labels, 1:1 with Coefficients.
func (r *BayesianResults) Names() []string {
	return append([]string(nil), r.names...)
}

// Coefficients returns the posterior means, one per design column.
func (r *BayesianResults) Coefficients() []float64 {
	return append([]float64(nil), r.posterior.Mean...)
}

// Coefficient returns the posterior mean for the named predictor.
func (r *BayesianResults) Coefficient(name string) (float64, bool) {
	for i, n := range r.names {
		if n == name {
			return r.posterior.Mean[i], true
		}
	}

	return 0, false
}

// PosteriorSD returns the posterior standard deviations, one per design
// column.
func (r *BayesianResults) PosteriorSD() []float64 {
	return append([]float64(nil), r.posterior.SD...)
}

// Tau2 returns the posterior mean of the between-study variance.
func (r *BayesianResults) Tau2() (float64, bool) {
	return r.posterior.Tau2Mean, true
}

// Draws returns the raw posterior draws when the sampler supplied them,
// or nil.
func (r *BayesianResults) Draws() [][]float64 {
	return r.posterior.Draws
}
