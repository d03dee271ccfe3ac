package estimator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/metareg/errs"
)

func TestMethodFromString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Method
		wantErr bool
	}{
		{name: "WLS", input: "WLS", want: MethodWLS},
		{name: "LowerCase", input: "wls", want: MethodWLS},
		{name: "FEAlias", input: "FE", want: MethodWLS},
		{name: "FEAliasLower", input: "fe", want: MethodWLS},
		{name: "DL", input: "DL", want: MethodDL},
		{name: "ML", input: "ml", want: MethodML},
		{name: "REML", input: "ReMl", want: MethodREML},
		{name: "Stan", input: "stan", want: MethodStan},
		{name: "Unknown", input: "bogus", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MethodFromString(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, errs.ErrUnknownMethod)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestMethodString(t *testing.T) {
	require.Equal(t, "WLS", MethodWLS.String())
	require.Equal(t, "DL", MethodDL.String())
	require.Equal(t, "ML", MethodML.String())
	require.Equal(t, "REML", MethodREML.String())
	require.Equal(t, "Stan", MethodStan.String())
	require.Equal(t, "unknown", Method(99).String())
}

func TestNew(t *testing.T) {
	t.Run("DispatchByName", func(t *testing.T) {
		for _, name := range []string{"WLS", "DL", "ML", "REML"} {
			est, err := New(name)
			require.NoError(t, err)
			require.Equal(t, name, est.Method().String())
		}
	})

	t.Run("FEAliasMapsToWLS", func(t *testing.T) {
		est, err := New("FE")
		require.NoError(t, err)
		require.Equal(t, MethodWLS, est.Method())
	})

	t.Run("UnknownMethodFailsBeforeFitting", func(t *testing.T) {
		_, err := New("bogus")
		require.ErrorIs(t, err, errs.ErrUnknownMethod)
	})

	t.Run("StanRequiresSampler", func(t *testing.T) {
		_, err := New("Stan")
		require.ErrorIs(t, err, errs.ErrNoSampler)
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	})

	t.Run("StanWithSampler", func(t *testing.T) {
		est, err := New("Stan", WithSampler(&fakeSampler{}))
		require.NoError(t, err)
		require.Equal(t, MethodStan, est.Method())
	})
}

func TestOptionValidation(t *testing.T) {
	t.Run("NegativeTau2", func(t *testing.T) {
		_, err := New("WLS", WithTau2(-0.1))
		require.ErrorIs(t, err, errs.ErrNegativeHeterogeneity)
	})

	t.Run("NegativeStartTau2", func(t *testing.T) {
		_, err := New("ML", WithStartTau2(-1))
		require.ErrorIs(t, err, errs.ErrNegativeHeterogeneity)
	})

	t.Run("NonPositiveTolerance", func(t *testing.T) {
		_, err := New("REML", WithTolerance(0))
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	})

	t.Run("ZeroMaxIterations", func(t *testing.T) {
		_, err := New("ML", WithMaxIterations(0))
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	})

	t.Run("InvalidSamplingSettings", func(t *testing.T) {
		_, err := New("Stan", WithSampler(&fakeSampler{}), WithSampleIterations(0))
		require.ErrorIs(t, err, errs.ErrInvalidInput)

		_, err = New("Stan", WithSampler(&fakeSampler{}), WithChains(0))
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	})
}
