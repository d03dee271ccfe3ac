package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/metareg/errs"
	"github.com/arloliu/metareg/internal/options"
)

// Dataset is the immutable container for study-level inputs.
//
// It holds K effect estimates, optional sampling variances, a K x P design
// matrix (with an optional prepended intercept column), predictor names, and
// a resolved per-study weight vector. All fields are fixed at construction;
// accessors return copies so estimators can derive temporary matrices
// without ever writing back.
type Dataset struct {
	estimates  []float64
	variances  []float64 // nil when not supplied
	predictors *mat.Dense
	names      []string
	weights    []float64
}

type config struct {
	variances  []float64
	predictors [][]float64
	names      []string
	policy     WeightPolicy
	explicit   []float64
	intercept  bool
}

func defaultConfig() *config {
	return &config{
		policy:    WeightInverseVariance,
		intercept: true,
	}
}

// Option configures Dataset construction.
type Option = options.Option[*config]

// WithVariances supplies the per-study sampling variances.
func WithVariances(variances []float64) Option {
	return options.NoError(func(cfg *config) {
		cfg.variances = variances
	})
}

// WithPredictors supplies the K x P study-level covariate matrix, one row
// per study.
func WithPredictors(predictors [][]float64) Option {
	return options.NoError(func(cfg *config) {
		cfg.predictors = predictors
	})
}

// WithNames supplies labels for the caller's predictor columns, 1:1 with the
// columns passed to WithPredictors. The intercept column is always named
// "intercept"; unnamed columns are auto-named x1..xP.
func WithNames(names []string) Option {
	return options.NoError(func(cfg *config) {
		cfg.names = names
	})
}

// WithWeightPolicy selects a derived weighting policy
// (WeightInverseVariance or WeightUniform).
func WithWeightPolicy(policy WeightPolicy) Option {
	return options.NoError(func(cfg *config) {
		cfg.policy = policy
	})
}

// WithWeights supplies explicit per-study weights, bypassing variance-based
// weighting entirely. Weights must be strictly positive.
func WithWeights(weights []float64) Option {
	return options.NoError(func(cfg *config) {
		cfg.policy = WeightExplicit
		cfg.explicit = weights
	})
}

// WithoutIntercept disables the automatically prepended intercept column.
// Requires predictors to be present.
func WithoutIntercept() Option {
	return options.NoError(func(cfg *config) {
		cfg.intercept = false
	})
}

// New validates and normalizes study-level inputs into a Dataset.
//
// Parameters:
//   - estimates: per-study effect estimates, length K >= 1 (required)
//   - opts: optional inputs and policies, see the With* options
//
// Returns:
//   - *Dataset: the immutable dataset
//   - error: an errs.ErrInvalidInput kind when the inputs are malformed or
//     contradictory (missing variances under inverse-variance weighting,
//     unknown weight policy, no predictors with the intercept disabled,
//     length mismatches, non-positive weights, negative variances)
//
// Example:
//
//	ds, err := dataset.New(estimates,
//	    dataset.WithVariances(variances),
//	    dataset.WithPredictors(covariates),
//	    dataset.WithNames([]string{"dose"}),
//	)
func New(estimates []float64, opts ...Option) (*Dataset, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	k := len(estimates)
	if k == 0 {
		return nil, errs.ErrNoEstimates
	}
	if cfg.predictors == nil && !cfg.intercept {
		return nil, errs.ErrEmptyDesign
	}
	if cfg.variances != nil && len(cfg.variances) != k {
		return nil, fmt.Errorf("%w: %d variances for %d studies", errs.ErrLengthMismatch, len(cfg.variances), k)
	}
	for i, v := range cfg.variances {
		if v < 0 {
			return nil, fmt.Errorf("%w: variance[%d] = %g", errs.ErrNegativeVariance, i, v)
		}
	}

	if cfg.policy == WeightInverseVariance {
		for i, v := range cfg.variances {
			if v == 0 {
				return nil, fmt.Errorf("%w: variance[%d] is zero under inverse-variance weighting", errs.ErrInvalidInput, i)
			}
		}
	}
	weights, err := resolveWeights(cfg.policy, cfg.variances, cfg.explicit, k)
	if err != nil {
		return nil, err
	}

	predictors, names, err := assembleDesign(cfg.predictors, cfg.names, cfg.intercept, k)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		estimates:  append([]float64(nil), estimates...),
		predictors: predictors,
		names:      names,
		weights:    weights,
	}
	if cfg.variances != nil {
		ds.variances = append([]float64(nil), cfg.variances...)
	}

	return ds, nil
}

// assembleDesign builds the K x P(+1) design matrix and its column names.
//
// An intercept column of ones is prepended before any caller-supplied
// predictor columns when requested; column names track the same order.
func assembleDesign(predictors [][]float64, names []string, intercept bool, k int) (*mat.Dense, []string, error) {
	cols := 0
	if predictors != nil {
		if len(predictors) != k {
			return nil, nil, fmt.Errorf("%w: %d predictor rows for %d studies", errs.ErrLengthMismatch, len(predictors), k)
		}
		cols = len(predictors[0])
		for i, row := range predictors {
			if len(row) != cols {
				return nil, nil, fmt.Errorf("%w: row %d has %d columns, expected %d", errs.ErrRaggedPredictors, i, len(row), cols)
			}
		}
	}
	if names != nil && len(names) != cols {
		return nil, nil, fmt.Errorf("%w: %d names for %d predictor columns", errs.ErrNameCountMismatch, len(names), cols)
	}

	width := cols
	offset := 0
	if intercept {
		width++
		offset = 1
	}
	if width == 0 {
		return nil, nil, errs.ErrEmptyDesign
	}

	design := mat.NewDense(k, width, nil)
	colNames := make([]string, width)
	if intercept {
		colNames[0] = "intercept"
		for i := 0; i < k; i++ {
			design.Set(i, 0, 1)
		}
	}
	for j := 0; j < cols; j++ {
		if names != nil {
			colNames[offset+j] = names[j]
		} else {
			colNames[offset+j] = fmt.Sprintf("x%d", j+1)
		}
		for i := 0; i < k; i++ {
			design.Set(i, offset+j, predictors[i][j])
		}
	}

	return design, colNames, nil
}

// Len returns K, the number of studies.
func (d *Dataset) Len() int {
	return len(d.estimates)
}

// Width returns the number of design-matrix columns, including the intercept
// when present.
func (d *Dataset) Width() int {
	_, p := d.predictors.Dims()
	return p
}

// Estimates returns a copy of the per-study effect estimates.
func (d *Dataset) Estimates() []float64 {
	return append([]float64(nil), d.estimates...)
}

// HasVariances reports whether sampling variances were supplied.
func (d *Dataset) HasVariances() bool {
	return d.variances != nil
}

// Variances returns a copy of the per-study sampling variances, or nil when
// they were not supplied.
func (d *Dataset) Variances() []float64 {
	if d.variances == nil {
		return nil
	}

	return append([]float64(nil), d.variances...)
}

// Weights returns a copy of the resolved per-study weight vector.
func (d *Dataset) Weights() []float64 {
	return append([]float64(nil), d.weights...)
}

// Names returns a copy of the design-matrix column names.
func (d *Dataset) Names() []string {
	return append([]string(nil), d.names...)
}

// Design returns a copy of the K x P(+1) design matrix.
func (d *Dataset) Design() *mat.Dense {
	return mat.DenseCopyOf(d.predictors)
}
