// Package dataset provides the immutable container for study-level
// meta-analysis inputs.
//
// A Dataset validates and normalizes per-study effect estimates, sampling
// variances, optional covariates, and a weighting policy into arrays ready
// for the estimators in the estimator package. It is constructed once and
// never mutated afterwards, so any number of concurrent fits may share a
// single Dataset.
//
// # Basic Usage
//
//	ds, err := dataset.New([]float64{0.1, 0.3, 0.2},
//	    dataset.WithVariances([]float64{0.01, 0.04, 0.02}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// By default an intercept column of ones is prepended to the design matrix
// and weights are derived as the elementwise reciprocal of the variances.
// Use WithoutIntercept, WithWeightPolicy, or WithWeights to change that.
//
// # Weighting
//
// Weights are specified as an explicit tagged policy rather than an untyped
// string-or-array argument:
//
//   - WeightInverseVariance (default): w_i = 1 / v_i, requires variances
//   - WeightUniform: w_i = 1 for every study
//   - WithWeights(w): caller-supplied positive weights, used verbatim
//
// ParseWeightPolicy converts the conventional policy names
// ("inverse-variance", "uniform") for callers holding a string.
package dataset
