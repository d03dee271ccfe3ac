package dataset

import (
	"fmt"
	"strings"

	"github.com/arloliu/metareg/errs"
)

// WeightPolicy selects how per-study weights are derived.
type WeightPolicy uint8

const (
	// WeightInverseVariance derives weights as the elementwise reciprocal of
	// the study variances. Requires variances to be present.
	WeightInverseVariance WeightPolicy = iota
	// WeightUniform assigns every study a weight of one.
	WeightUniform
	// WeightExplicit uses a caller-supplied weight vector verbatim. Set
	// implicitly by WithWeights.
	WeightExplicit
)

// weightPolicyNames maps WeightPolicy to their conventional string names.
var weightPolicyNames = map[WeightPolicy]string{
	WeightInverseVariance: "inverse-variance",
	WeightUniform:         "uniform",
	WeightExplicit:        "explicit",
}

// String returns the conventional name of the policy.
func (p WeightPolicy) String() string {
	if name, exists := weightPolicyNames[p]; exists {
		return name
	}

	return "unknown"
}

// ParseWeightPolicy converts a policy name into a WeightPolicy.
//
// Recognized names (case-insensitive) are "inverse-variance" and "uniform".
// "explicit" is deliberately not parseable: explicit weights are supplied as
// a vector through WithWeights, never as a name.
//
// Returns errs.ErrUnknownWeightPolicy for any other name.
func ParseWeightPolicy(name string) (WeightPolicy, error) {
	switch strings.ToLower(name) {
	case "inverse-variance":
		return WeightInverseVariance, nil
	case "uniform":
		return WeightUniform, nil
	default:
		return 0, fmt.Errorf("%w: %q", errs.ErrUnknownWeightPolicy, name)
	}
}

// resolveWeights materializes the weight vector for the given policy.
//
// The caller guarantees cfg has been validated for length consistency; this
// function enforces the policy-specific rules: inverse-variance needs
// variances, explicit weights must be strictly positive.
func resolveWeights(policy WeightPolicy, variances, explicit []float64, k int) ([]float64, error) {
	switch policy {
	case WeightInverseVariance:
		if variances == nil {
			return nil, errs.ErrMissingVariances
		}
		w := make([]float64, k)
		for i, v := range variances {
			w[i] = 1.0 / v
		}

		return w, nil

	case WeightUniform:
		w := make([]float64, k)
		for i := range w {
			w[i] = 1.0
		}

		return w, nil

	case WeightExplicit:
		if len(explicit) != k {
			return nil, fmt.Errorf("%w: %d weights for %d studies", errs.ErrLengthMismatch, len(explicit), k)
		}
		w := make([]float64, k)
		for i, v := range explicit {
			if v <= 0 {
				return nil, fmt.Errorf("%w: weight[%d] = %g", errs.ErrNonPositiveWeight, i, v)
			}
			w[i] = v
		}

		return w, nil

	default:
		return nil, fmt.Errorf("%w: policy %d", errs.ErrUnknownWeightPolicy, policy)
	}
}
