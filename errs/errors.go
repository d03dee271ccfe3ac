// Package errs defines the sentinel errors shared across metareg packages.
//
// Errors fall into four base kinds. Specific sentinels wrap their base kind
// with %w, so callers can match either the precise condition or the kind:
//
//	if errors.Is(err, errs.ErrMissingVariances) { ... } // precise
//	if errors.Is(err, errs.ErrInvalidInput) { ... }     // kind
package errs

import (
	"errors"
	"fmt"
)

// Base error kinds. Every other sentinel in this package wraps one of these.
var (
	// ErrInvalidInput indicates malformed or contradictory construction
	// arguments. Always fatal, raised at dataset construction.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSingularDesign indicates a non-invertible weighted design matrix
	// (collinear or rank-deficient predictors). Fatal to the fit.
	ErrSingularDesign = errors.New("singular weighted design")

	// ErrConvergence indicates an optimizer or root-finder exhausted its
	// iteration budget. Non-fatal: attached as a warning on the result,
	// which still carries the best available iterate.
	ErrConvergence = errors.New("convergence not reached")

	// ErrUnknownMethod indicates an unrecognized method or CI method name.
	// Fatal, raised before any fitting work starts.
	ErrUnknownMethod = errors.New("unknown method")
)

// Dataset construction errors.
var (
	ErrNoEstimates           = fmt.Errorf("%w: at least one study estimate is required", ErrInvalidInput)
	ErrMissingVariances      = fmt.Errorf("%w: inverse-variance weighting requires variances", ErrInvalidInput)
	ErrUnknownWeightPolicy   = fmt.Errorf("%w: unrecognized weight policy", ErrInvalidInput)
	ErrEmptyDesign           = fmt.Errorf("%w: no predictors given and intercept disabled", ErrInvalidInput)
	ErrLengthMismatch        = fmt.Errorf("%w: input lengths disagree on study count", ErrInvalidInput)
	ErrNameCountMismatch     = fmt.Errorf("%w: name count disagrees with predictor columns", ErrInvalidInput)
	ErrNonPositiveWeight     = fmt.Errorf("%w: weights must be strictly positive", ErrInvalidInput)
	ErrNegativeVariance      = fmt.Errorf("%w: variances must be non-negative", ErrInvalidInput)
	ErrRaggedPredictors      = fmt.Errorf("%w: predictor rows have unequal lengths", ErrInvalidInput)
	ErrVariancesRequired     = fmt.Errorf("%w: estimator requires study variances", ErrInvalidInput)
	ErrInvalidAlpha          = fmt.Errorf("%w: alpha must be in (0, 1)", ErrInvalidInput)
	ErrNegativeHeterogeneity = fmt.Errorf("%w: tau2 must be non-negative", ErrInvalidInput)
	ErrNoSampler             = fmt.Errorf("%w: Stan estimation requires a configured sampler", ErrInvalidInput)
)

// Snapshot format errors.
var (
	ErrInvalidMagicNumber = errors.New("invalid snapshot magic number")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	ErrInvalidHeaderSize  = errors.New("invalid snapshot header size")
	ErrChecksumMismatch   = errors.New("snapshot checksum mismatch")
	ErrInvalidPayload     = errors.New("invalid snapshot payload")
	ErrInvalidCompression = errors.New("invalid snapshot compression type")
)
