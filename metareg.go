// Package metareg fits meta-regression models: per-study effect estimates,
// sampling variances, and optional study-level covariates in; a pooled
// effect (and covariate coefficients), a between-study heterogeneity
// variance, and calibrated confidence intervals out.
//
// # Basic Usage
//
// Fitting a random-effects meta-analysis with the DerSimonian-Laird
// estimator:
//
//	res, err := metareg.Fit([]float64{0.1, 0.3, 0.2},
//	    metareg.WithVariances([]float64{0.01, 0.04, 0.02}),
//	    metareg.WithMethod("DL"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pooled, _ := res.(*estimator.Results).Coefficient("intercept")
//
// Fit builds the dataset, routes the method name to a configured estimator,
// runs the fit, and computes standard errors and confidence intervals when
// the result supports it. Supported methods are "ML", "REML", "DL", "WLS",
// "FE" (alias for WLS at tau^2 = 0), and "Stan" (requires an injected
// sampler).
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the dataset
// and estimator packages, which remain available directly for fine-grained
// control. The snapshot package persists datasets and fit summaries in a
// compact binary format; SaveSnapshot and LoadSnapshot glue it to fitted
// results.
package metareg

import (
	"github.com/arloliu/metareg/dataset"
	"github.com/arloliu/metareg/errs"
	"github.com/arloliu/metareg/estimator"
	"github.com/arloliu/metareg/internal/options"
	"github.com/arloliu/metareg/snapshot"
)

type fitConfig struct {
	datasetOpts   []dataset.Option
	estimatorOpts []estimator.Option
	method        string
	ciMethod      string
	alpha         float64
}

func defaultFitConfig() *fitConfig {
	return &fitConfig{
		method:   "ML",
		ciMethod: "QP",
		alpha:    0.05,
	}
}

// FitOption configures a top-level Fit call.
type FitOption = options.Option[*fitConfig]

// WithVariances supplies the per-study sampling variances.
func WithVariances(variances []float64) FitOption {
	return options.NoError(func(cfg *fitConfig) {
		cfg.datasetOpts = append(cfg.datasetOpts, dataset.WithVariances(variances))
	})
}

// WithPredictors supplies the K x P study-level covariate matrix.
func WithPredictors(predictors [][]float64) FitOption {
	return options.NoError(func(cfg *fitConfig) {
		cfg.datasetOpts = append(cfg.datasetOpts, dataset.WithPredictors(predictors))
	})
}

// WithNames supplies labels for the caller's predictor columns.
func WithNames(names []string) FitOption {
	return options.NoError(func(cfg *fitConfig) {
		cfg.datasetOpts = append(cfg.datasetOpts, dataset.WithNames(names))
	})
}

// WithWeightPolicy selects a derived weighting policy by name
// ("inverse-variance" or "uniform", case-insensitive).
func WithWeightPolicy(name string) FitOption {
	return options.New(func(cfg *fitConfig) error {
		policy, err := dataset.ParseWeightPolicy(name)
		if err != nil {
			return err
		}
		cfg.datasetOpts = append(cfg.datasetOpts, dataset.WithWeightPolicy(policy))

		return nil
	})
}

// WithWeights supplies explicit per-study weights, bypassing variance-based
// weighting entirely.
func WithWeights(weights []float64) FitOption {
	return options.NoError(func(cfg *fitConfig) {
		cfg.datasetOpts = append(cfg.datasetOpts, dataset.WithWeights(weights))
	})
}

// WithoutIntercept disables the automatically prepended intercept column.
func WithoutIntercept() FitOption {
	return options.NoError(func(cfg *fitConfig) {
		cfg.datasetOpts = append(cfg.datasetOpts, dataset.WithoutIntercept())
	})
}

// WithMethod selects the estimation method (case-insensitive).
// Defaults to "ML".
func WithMethod(method string) FitOption {
	return options.NoError(func(cfg *fitConfig) {
		cfg.method = method
	})
}

// WithCIMethod selects the confidence interval method. Only "QP" is
// supported; ignored for "Stan". Defaults to "QP".
func WithCIMethod(ciMethod string) FitOption {
	return options.NoError(func(cfg *fitConfig) {
		cfg.ciMethod = ciMethod
	})
}

// WithAlpha sets the significance level; intervals have 1-alpha coverage.
// Must be in (0, 1); defaults to 0.05.
func WithAlpha(alpha float64) FitOption {
	return options.New(func(cfg *fitConfig) error {
		if alpha <= 0 || alpha >= 1 {
			return errs.ErrInvalidAlpha
		}
		cfg.alpha = alpha

		return nil
	})
}

// WithEstimatorOptions forwards options to the chosen estimator (start
// value, tolerance, iteration cap, sampler configuration, ...).
func WithEstimatorOptions(opts ...estimator.Option) FitOption {
	return options.NoError(func(cfg *fitConfig) {
		cfg.estimatorOpts = append(cfg.estimatorOpts, opts...)
	})
}

// Fit fits the standard meta-regression/meta-analysis model.
//
// The flow is dataset construction, method dispatch, fitting, then the
// stats-computation step at the requested coverage when the result supports
// it. Bayesian results skip stats computation.
//
// Parameters:
//   - estimates: per-study effect estimates, length K >= 1
//   - opts: inputs, method selection, and estimator passthrough options
//
// Returns:
//   - estimator.Result: *estimator.Results for ML/REML/DL/WLS/FE,
//     *estimator.BayesianResults for Stan
//   - error: fatal input, dispatch, or design failures; convergence issues
//     are never fatal and surface as warnings on the result instead
//
// Example:
//
//	res, err := metareg.Fit(estimates,
//	    metareg.WithVariances(variances),
//	    metareg.WithPredictors(doses),
//	    metareg.WithNames([]string{"dose"}),
//	    metareg.WithMethod("REML"),
//	    metareg.WithAlpha(0.01),
//	)
func Fit(estimates []float64, opts ...FitOption) (estimator.Result, error) {
	cfg := defaultFitConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	// Resolve the method before building anything, so unknown names fail
	// before any fitting work starts.
	if _, err := estimator.MethodFromString(cfg.method); err != nil {
		return nil, err
	}

	ds, err := dataset.New(estimates, cfg.datasetOpts...)
	if err != nil {
		return nil, err
	}

	est, err := estimator.New(cfg.method, cfg.estimatorOpts...)
	if err != nil {
		return nil, err
	}

	res, err := est.Fit(ds)
	if err != nil {
		return nil, err
	}

	if sc, ok := res.(estimator.StatsComputer); ok {
		if err := sc.ComputeStats(cfg.ciMethod, cfg.alpha); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// SaveSnapshot encodes a dataset and an optional fitted result into the
// snapshot binary format.
//
// Pass a nil result to persist the dataset alone.
func SaveSnapshot(ds *dataset.Dataset, res *estimator.Results, opts ...snapshot.Option) ([]byte, error) {
	if res != nil {
		tau2, hasTau2 := res.Tau2()
		opts = append(opts, snapshot.WithFit(snapshot.FitSummary{
			Method:       res.Method().String(),
			Coefficients: res.Coefficients(),
			Tau2:         tau2,
			HasTau2:      hasTau2,
			Converged:    res.Converged(),
		}))
	}

	return snapshot.Encode(ds, opts...)
}

// LoadSnapshot decodes a snapshot produced by SaveSnapshot (or
// snapshot.Encode directly).
func LoadSnapshot(data []byte) (*snapshot.Snapshot, error) {
	return snapshot.Decode(data)
}
