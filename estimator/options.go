package estimator

import (
	"fmt"

	"github.com/arloliu/metareg/errs"
	"github.com/arloliu/metareg/internal/options"
)

// config holds every estimator setting as a named field, resolved once at
// construction. Settings not relevant to the chosen method are ignored.
type config struct {
	// WLS
	tau2 float64

	// Likelihood (ML/REML)
	startTau2 float64
	tol       float64
	maxIter   int

	// Stan
	sampler          Sampler
	sampleIterations int
	chains           int
	seed             int64
}

func defaultConfig() *config {
	return &config{
		tol:              1e-8,
		maxIter:          100,
		sampleIterations: 2000,
		chains:           4,
	}
}

// Option is a functional option for estimator configuration.
type Option = options.Option[*config]

// WithTau2 sets the assumed/known between-study variance for the WLS
// estimator. Must be >= 0; defaults to 0 (pure fixed-effect).
func WithTau2(tau2 float64) Option {
	return options.New(func(cfg *config) error {
		if tau2 < 0 {
			return fmt.Errorf("%w: tau2 = %g", errs.ErrNegativeHeterogeneity, tau2)
		}
		cfg.tau2 = tau2

		return nil
	})
}

// WithStartTau2 sets the starting tau^2 value for the likelihood optimizer.
// Must be >= 0; defaults to 0.
func WithStartTau2(tau2 float64) Option {
	return options.New(func(cfg *config) error {
		if tau2 < 0 {
			return fmt.Errorf("%w: start tau2 = %g", errs.ErrNegativeHeterogeneity, tau2)
		}
		cfg.startTau2 = tau2

		return nil
	})
}

// WithTolerance sets the convergence tolerance on successive tau^2 (and
// log-likelihood) changes in the likelihood optimizer. Must be > 0;
// defaults to 1e-8.
func WithTolerance(tol float64) Option {
	return options.New(func(cfg *config) error {
		if tol <= 0 {
			return fmt.Errorf("%w: tolerance = %g", errs.ErrInvalidInput, tol)
		}
		cfg.tol = tol

		return nil
	})
}

// WithMaxIterations caps the likelihood optimizer's outer iterations.
// Exhausting the cap does not abort the fit: the last iterate is returned
// with errs.ErrConvergence recorded as a warning. Must be >= 1; defaults
// to 100.
func WithMaxIterations(n int) Option {
	return options.New(func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("%w: max iterations = %d", errs.ErrInvalidInput, n)
		}
		cfg.maxIter = n

		return nil
	})
}

// WithSampler injects the external posterior sampler used by the Stan
// estimator. Required for method "Stan".
func WithSampler(sampler Sampler) Option {
	return options.NoError(func(cfg *config) {
		cfg.sampler = sampler
	})
}

// WithSampleIterations sets the per-chain iteration count passed through to
// the sampler. Defaults to 2000.
func WithSampleIterations(n int) Option {
	return options.New(func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("%w: sample iterations = %d", errs.ErrInvalidInput, n)
		}
		cfg.sampleIterations = n

		return nil
	})
}

// WithChains sets the chain count passed through to the sampler.
// Defaults to 4.
func WithChains(n int) Option {
	return options.New(func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("%w: chains = %d", errs.ErrInvalidInput, n)
		}
		cfg.chains = n

		return nil
	})
}

// WithSeed sets the random seed passed through to the sampler. The in-core
// estimators are deterministic and ignore it.
func WithSeed(seed int64) Option {
	return options.NoError(func(cfg *config) {
		cfg.seed = seed
	})
}
