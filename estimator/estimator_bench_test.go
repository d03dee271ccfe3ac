package estimator

import (
	"math"
	"testing"

	"github.com/arloliu/metareg/dataset"
)

// benchDataset builds a synthetic K-study dataset with a dose covariate and
// heterogeneity well above the sampling variances.
func benchDataset(b *testing.B, k int) *dataset.Dataset {
	b.Helper()

	estimates := make([]float64, k)
	variances := make([]float64, k)
	predictors := make([][]float64, k)
	for i := 0; i < k; i++ {
		x := float64(i) / float64(k)
		estimates[i] = 0.2 + 0.5*x + 0.3*math.Sin(float64(i))
		variances[i] = 0.01 + 0.001*float64(i%7)
		predictors[i] = []float64{x}
	}

	ds, err := dataset.New(estimates,
		dataset.WithVariances(variances),
		dataset.WithPredictors(predictors),
		dataset.WithNames([]string{"dose"}),
	)
	if err != nil {
		b.Fatalf("failed to build dataset: %v", err)
	}

	return ds
}

func BenchmarkFit(b *testing.B) {
	ds := benchDataset(b, 50)

	for _, name := range []string{"WLS", "DL", "ML", "REML"} {
		b.Run(name, func(b *testing.B) {
			est, err := New(name)
			if err != nil {
				b.Fatalf("failed to create estimator: %v", err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := est.Fit(ds); err != nil {
					b.Fatalf("fit failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkComputeStats(b *testing.B) {
	ds := benchDataset(b, 50)

	est, err := New("DL")
	if err != nil {
		b.Fatalf("failed to create estimator: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := est.Fit(ds)
		if err != nil {
			b.Fatalf("fit failed: %v", err)
		}
		if err := res.(*Results).ComputeStats("QP", 0.05); err != nil {
			b.Fatalf("stats computation failed: %v", err)
		}
	}
}
