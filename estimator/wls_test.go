package estimator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/metareg/dataset"
	"github.com/arloliu/metareg/errs"
)

func TestWeightedLeastSquares(t *testing.T) {
	t.Run("EqualVariancesPoolToMean", func(t *testing.T) {
		ds, err := dataset.New([]float64{1, 2, 3},
			dataset.WithVariances([]float64{0.04, 0.04, 0.04}),
		)
		require.NoError(t, err)

		res, err := (&WeightedLeastSquares{}).Fit(ds)
		require.NoError(t, err)
		require.InDelta(t, 2.0, res.Coefficients()[0], 1e-12)

		tau2, estimated := res.(*Results).Tau2()
		require.Zero(t, tau2)
		require.False(t, estimated, "WLS passes tau2 through, it never estimates it")
		require.True(t, res.(*Results).Converged())
	})

	t.Run("InverseVarianceWeightedMean", func(t *testing.T) {
		// w = [1, 4], pooled = (0*1 + 1*4) / 5 = 0.8
		ds, err := dataset.New([]float64{0, 1},
			dataset.WithVariances([]float64{1, 0.25}),
		)
		require.NoError(t, err)

		res, err := (&WeightedLeastSquares{}).Fit(ds)
		require.NoError(t, err)
		require.InDelta(t, 0.8, res.Coefficients()[0], 1e-12)
	})

	t.Run("KnownTau2AddsToVariances", func(t *testing.T) {
		// With tau2 = 0.75 both studies weigh 1/(0.25+0.75) = 1,
		// so the pooled estimate is the plain mean.
		ds, err := dataset.New([]float64{0, 1},
			dataset.WithVariances([]float64{0.25, 0.25}),
		)
		require.NoError(t, err)

		est, err := NewWeightedLeastSquares(0.75)
		require.NoError(t, err)

		res, err := est.Fit(ds)
		require.NoError(t, err)
		require.InDelta(t, 0.5, res.Coefficients()[0], 1e-12)

		tau2, estimated := res.(*Results).Tau2()
		require.Equal(t, 0.75, tau2)
		require.False(t, estimated)
	})

	t.Run("ExplicitWeightsWithoutVariances", func(t *testing.T) {
		ds, err := dataset.New([]float64{0, 1},
			dataset.WithWeights([]float64{1, 3}),
		)
		require.NoError(t, err)

		res, err := (&WeightedLeastSquares{}).Fit(ds)
		require.NoError(t, err)
		require.InDelta(t, 0.75, res.Coefficients()[0], 1e-12)
	})

	t.Run("MetaRegressionSlope", func(t *testing.T) {
		// Exact linear relation y = 0.5 + 0.25*x with uniform weights:
		// the fit recovers the coefficients exactly.
		ds, err := dataset.New([]float64{0.75, 1.0, 1.25, 1.5},
			dataset.WithVariances([]float64{0.1, 0.1, 0.1, 0.1}),
			dataset.WithPredictors([][]float64{{1}, {2}, {3}, {4}}),
			dataset.WithNames([]string{"dose"}),
		)
		require.NoError(t, err)

		res, err := (&WeightedLeastSquares{}).Fit(ds)
		require.NoError(t, err)

		intercept, ok := res.(*Results).Coefficient("intercept")
		require.True(t, ok)
		slope, ok := res.(*Results).Coefficient("dose")
		require.True(t, ok)
		require.InDelta(t, 0.5, intercept, 1e-10)
		require.InDelta(t, 0.25, slope, 1e-10)

		_, ok = res.(*Results).Coefficient("missing")
		require.False(t, ok)
	})

	t.Run("SingularDesign", func(t *testing.T) {
		// The predictor duplicates the intercept column.
		ds, err := dataset.New([]float64{0.1, 0.3, 0.2},
			dataset.WithVariances([]float64{0.01, 0.04, 0.02}),
			dataset.WithPredictors([][]float64{{1}, {1}, {1}}),
		)
		require.NoError(t, err)

		_, err = (&WeightedLeastSquares{}).Fit(ds)
		require.ErrorIs(t, err, errs.ErrSingularDesign)
	})

	t.Run("NegativeTau2Rejected", func(t *testing.T) {
		_, err := NewWeightedLeastSquares(-0.1)
		require.ErrorIs(t, err, errs.ErrNegativeHeterogeneity)
	})
}

func TestFitDeterminism(t *testing.T) {
	ds, err := dataset.New([]float64{0.1, 0.3, 0.2, 0.5},
		dataset.WithVariances([]float64{0.01, 0.04, 0.02, 0.03}),
		dataset.WithPredictors([][]float64{{1}, {2}, {3}, {4}}),
	)
	require.NoError(t, err)

	for _, name := range []string{"WLS", "DL", "ML", "REML"} {
		t.Run(name, func(t *testing.T) {
			est, err := New(name)
			require.NoError(t, err)

			first, err := est.Fit(ds)
			require.NoError(t, err)
			second, err := est.Fit(ds)
			require.NoError(t, err)

			// Bit-identical, not merely close.
			require.Equal(t, first.Coefficients(), second.Coefficients())

			tau2First, _ := first.(*Results).Tau2()
			tau2Second, _ := second.(*Results).Tau2()
			require.Equal(t, tau2First, tau2Second)
		})
	}
}
