package metareg_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/metareg"
	"github.com/arloliu/metareg/dataset"
	"github.com/arloliu/metareg/errs"
	"github.com/arloliu/metareg/estimator"
	"github.com/arloliu/metareg/snapshot"
)

func TestFit(t *testing.T) {
	estimates := []float64{0.1, 0.3, 0.2}
	variances := []float64{0.01, 0.04, 0.02}

	t.Run("DefaultsToML", func(t *testing.T) {
		res, err := metareg.Fit(estimates, metareg.WithVariances(variances))
		require.NoError(t, err)
		require.Equal(t, estimator.MethodML, res.Method())

		r, ok := res.(*estimator.Results)
		require.True(t, ok)

		// Stats are computed as part of the orchestration.
		require.NotNil(t, r.StandardErrors())
		require.NotNil(t, r.ConfidenceIntervals())
		require.Equal(t, 0.05, r.Alpha())
	})

	t.Run("DLEndToEnd", func(t *testing.T) {
		res, err := metareg.Fit(estimates,
			metareg.WithVariances(variances),
			metareg.WithMethod("DL"),
		)
		require.NoError(t, err)

		r := res.(*estimator.Results)
		pooled, ok := r.Coefficient("intercept")
		require.True(t, ok)
		require.InDelta(t, 27.5/175.0, pooled, 1e-12)

		tau2, estimated := r.Tau2()
		require.Zero(t, tau2)
		require.True(t, estimated)

		interval := r.ConfidenceIntervals()[0]
		require.Less(t, interval.Lower, pooled)
		require.Greater(t, interval.Upper, pooled)
	})

	t.Run("MetaRegression", func(t *testing.T) {
		res, err := metareg.Fit([]float64{0.75, 1.0, 1.25, 1.5},
			metareg.WithVariances([]float64{0.1, 0.1, 0.1, 0.1}),
			metareg.WithPredictors([][]float64{{1}, {2}, {3}, {4}}),
			metareg.WithNames([]string{"dose"}),
			metareg.WithMethod("REML"),
		)
		require.NoError(t, err)

		r := res.(*estimator.Results)
		require.Equal(t, []string{"intercept", "dose"}, r.Names())

		slope, ok := r.Coefficient("dose")
		require.True(t, ok)
		require.InDelta(t, 0.25, slope, 1e-8)
	})

	t.Run("CaseInsensitiveMethod", func(t *testing.T) {
		res, err := metareg.Fit(estimates,
			metareg.WithVariances(variances),
			metareg.WithMethod("reml"),
		)
		require.NoError(t, err)
		require.Equal(t, estimator.MethodREML, res.Method())
	})

	t.Run("UnknownMethodFailsFirst", func(t *testing.T) {
		// A bogus method fails even when the inputs are also bad, since
		// dispatch is validated before dataset construction.
		_, err := metareg.Fit(nil, metareg.WithMethod("bogus"))
		require.ErrorIs(t, err, errs.ErrUnknownMethod)
	})

	t.Run("InvalidInputPropagates", func(t *testing.T) {
		_, err := metareg.Fit(estimates) // inverse-variance without variances
		require.ErrorIs(t, err, errs.ErrMissingVariances)

		_, err = metareg.Fit(nil, metareg.WithVariances(variances))
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	})

	t.Run("InvalidAlpha", func(t *testing.T) {
		_, err := metareg.Fit(estimates,
			metareg.WithVariances(variances),
			metareg.WithAlpha(1.5),
		)
		require.ErrorIs(t, err, errs.ErrInvalidAlpha)
	})

	t.Run("UnknownCIMethod", func(t *testing.T) {
		_, err := metareg.Fit(estimates,
			metareg.WithVariances(variances),
			metareg.WithCIMethod("bootstrap"),
		)
		require.ErrorIs(t, err, errs.ErrUnknownMethod)
	})

	t.Run("UniformWeightPolicy", func(t *testing.T) {
		res, err := metareg.Fit([]float64{1, 2, 3},
			metareg.WithWeightPolicy("uniform"),
			metareg.WithMethod("WLS"),
		)
		require.NoError(t, err)
		require.InDelta(t, 2.0, res.Coefficients()[0], 1e-12)
	})

	t.Run("UnknownWeightPolicy", func(t *testing.T) {
		_, err := metareg.Fit(estimates, metareg.WithWeightPolicy("bogus"))
		require.ErrorIs(t, err, errs.ErrUnknownWeightPolicy)
	})

	t.Run("EstimatorPassthroughOptions", func(t *testing.T) {
		res, err := metareg.Fit([]float64{0, 1, 2},
			metareg.WithVariances([]float64{0.04, 0.04, 0.04}),
			metareg.WithMethod("ML"),
			metareg.WithEstimatorOptions(
				estimator.WithMaxIterations(1),
				estimator.WithTolerance(1e-15),
			),
		)
		require.NoError(t, err)

		r := res.(*estimator.Results)
		require.False(t, r.Converged())
		require.NotEmpty(t, r.Warnings())
	})
}

// constSampler returns fixed posterior summaries regardless of the model.
type constSampler struct{}

func (constSampler) Sample(spec *estimator.ModelSpec) (*estimator.Posterior, error) {
	mean := make([]float64, len(spec.Names))
	sd := make([]float64, len(spec.Names))
	for i := range mean {
		mean[i] = 0.2
		sd[i] = 0.05
	}

	return &estimator.Posterior{Mean: mean, SD: sd, Tau2Mean: 0.1}, nil
}

func TestFitStan(t *testing.T) {
	res, err := metareg.Fit([]float64{0.1, 0.3, 0.2},
		metareg.WithVariances([]float64{0.01, 0.04, 0.02}),
		metareg.WithMethod("Stan"),
		metareg.WithEstimatorOptions(estimator.WithSampler(constSampler{})),
	)
	require.NoError(t, err)

	r, ok := res.(*estimator.BayesianResults)
	require.True(t, ok)
	require.Equal(t, []float64{0.2}, r.Coefficients())

	tau2, estimated := r.Tau2()
	require.Equal(t, 0.1, tau2)
	require.True(t, estimated)
}

func TestSnapshotGlue(t *testing.T) {
	ds, err := dataset.New([]float64{0, 1, 2},
		dataset.WithVariances([]float64{0.04, 0.04, 0.04}),
	)
	require.NoError(t, err)

	est, err := estimator.New("DL")
	require.NoError(t, err)
	fitted, err := est.Fit(ds)
	require.NoError(t, err)

	t.Run("RoundTripWithFit", func(t *testing.T) {
		data, err := metareg.SaveSnapshot(ds, fitted.(*estimator.Results))
		require.NoError(t, err)

		snap, err := metareg.LoadSnapshot(data)
		require.NoError(t, err)
		require.NotNil(t, snap.Fit)
		require.Equal(t, "DL", snap.Fit.Method)
		require.True(t, snap.Fit.HasTau2)
		require.InDelta(t, 0.96, snap.Fit.Tau2, 1e-12)
		require.True(t, snap.Fit.Converged)

		// The reconstructed dataset refits to the identical estimate.
		refit, err := est.Fit(snap.Dataset)
		require.NoError(t, err)
		require.Equal(t, fitted.Coefficients(), refit.Coefficients())
	})

	t.Run("DatasetOnly", func(t *testing.T) {
		data, err := metareg.SaveSnapshot(ds, nil)
		require.NoError(t, err)

		snap, err := metareg.LoadSnapshot(data)
		require.NoError(t, err)
		require.Nil(t, snap.Fit)
		require.Equal(t, ds.Estimates(), snap.Dataset.Estimates())
	})

	t.Run("ForwardsEncodingOptions", func(t *testing.T) {
		data, err := metareg.SaveSnapshot(ds, nil, snapshot.WithFit(snapshot.FitSummary{
			Method:       "WLS",
			Coefficients: []float64{1},
		}))
		require.NoError(t, err)

		snap, err := metareg.LoadSnapshot(data)
		require.NoError(t, err)
		require.NotNil(t, snap.Fit)
		require.Equal(t, "WLS", snap.Fit.Method)
	})
}

func TestFitTau2Interval(t *testing.T) {
	res, err := metareg.Fit([]float64{0, 1, 2},
		metareg.WithVariances([]float64{0.04, 0.04, 0.04}),
		metareg.WithMethod("DL"),
	)
	require.NoError(t, err)

	r := res.(*estimator.Results)
	interval, ok := r.Tau2Interval()
	require.True(t, ok)
	require.GreaterOrEqual(t, interval.Lower, 0.0)
	require.False(t, math.IsInf(interval.Upper, 1))

	tau2, _ := r.Tau2()
	require.GreaterOrEqual(t, tau2, interval.Lower)
	require.LessOrEqual(t, tau2, interval.Upper)
}
