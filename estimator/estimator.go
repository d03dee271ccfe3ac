package estimator

import (
	"fmt"
	"strings"

	"github.com/arloliu/metareg/dataset"
	"github.com/arloliu/metareg/errs"
	"github.com/arloliu/metareg/internal/options"
)

// Method identifies an estimation method.
type Method uint8

const (
	// MethodWLS is the closed-form weighted least-squares (fixed-effect)
	// estimator. The name "FE" is accepted as an alias.
	MethodWLS Method = iota
	// MethodDL is the DerSimonian-Laird moment estimator.
	MethodDL
	// MethodML is the maximum-likelihood estimator.
	MethodML
	// MethodREML is the restricted maximum-likelihood estimator.
	MethodREML
	// MethodStan is the external Bayesian sampler adapter.
	MethodStan
)

// methodNames maps Method to their canonical string representations.
var methodNames = map[Method]string{
	MethodWLS:  "WLS",
	MethodDL:   "DL",
	MethodML:   "ML",
	MethodREML: "REML",
	MethodStan: "Stan",
}

// String returns the canonical name of the method.
func (m Method) String() string {
	if name, exists := methodNames[m]; exists {
		return name
	}

	return "unknown"
}

// methodFromString maps lower-cased method names to Method values.
var methodFromString = map[string]Method{
	"wls":  MethodWLS,
	"fe":   MethodWLS, // fixed-effect alias: WLS with tau2 = 0
	"dl":   MethodDL,
	"ml":   MethodML,
	"reml": MethodREML,
	"stan": MethodStan,
}

// MethodFromString resolves a method name (case-insensitive) to a Method.
//
// Returns errs.ErrUnknownMethod for unrecognized names, before any fitting
// work starts.
func MethodFromString(name string) (Method, error) {
	if method, exists := methodFromString[strings.ToLower(name)]; exists {
		return method, nil
	}

	return 0, fmt.Errorf("%w: %q (supported: DL, FE, ML, REML, Stan, WLS)", errs.ErrUnknownMethod, name)
}

// Estimator is the common contract of the estimation family.
//
// Fit never mutates the dataset; estimators derive temporary matrices from
// its accessors. Implementations are deterministic: refitting the same
// dataset with the same options yields bit-identical coefficients.
type Estimator interface {
	// Fit estimates the model from the given dataset.
	Fit(d *dataset.Dataset) (Result, error)
	// Method returns the estimation method implemented.
	Method() Method
}

// Result is the common surface of fitted results.
//
// Frequentist estimators return *Results; the Stan adapter returns
// *BayesianResults. Callers that want standard errors and confidence
// intervals check for the StatsComputer interface.
type Result interface {
	// Method returns the estimation method that produced the result.
	Method() Method
	// Names returns the predictor labels, 1:1 with Coefficients.
	Names() []string
	// Coefficients returns the fitted (or posterior-mean) coefficients.
	Coefficients() []float64
}

// StatsComputer is implemented by results that support the explicit
// stats-computation step. Bayesian results do not.
type StatsComputer interface {
	ComputeStats(ciMethod string, alpha float64) error
}

// New creates a configured estimator by method name.
//
// The name is resolved case-insensitively via MethodFromString; options not
// relevant to the chosen method are ignored.
//
// Parameters:
//   - name: estimation method ("WLS", "FE", "DL", "ML", "REML", "Stan")
//   - opts: estimator configuration, see the With* options
//
// Returns:
//   - Estimator: the configured estimator instance
//   - error: errs.ErrUnknownMethod for unrecognized names, or an
//     errs.ErrInvalidInput kind for invalid option values
//
// Example:
//
//	est, err := estimator.New("REML",
//	    estimator.WithTolerance(1e-10),
//	    estimator.WithMaxIterations(200),
//	)
func New(name string, opts ...Option) (Estimator, error) {
	method, err := MethodFromString(name)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	switch method {
	case MethodWLS:
		return &WeightedLeastSquares{tau2: cfg.tau2}, nil
	case MethodDL:
		return &DerSimonianLaird{}, nil
	case MethodML, MethodREML:
		return &Likelihood{
			method:  method,
			start:   cfg.startTau2,
			tol:     cfg.tol,
			maxIter: cfg.maxIter,
		}, nil
	case MethodStan:
		if cfg.sampler == nil {
			return nil, errs.ErrNoSampler
		}

		return &Stan{
			sampler:    cfg.sampler,
			iterations: cfg.sampleIterations,
			chains:     cfg.chains,
			seed:       cfg.seed,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownMethod, name)
	}
}
