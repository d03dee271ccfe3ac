package snapshot

import (
	"fmt"

	"github.com/arloliu/metareg/compress"
	"github.com/arloliu/metareg/dataset"
	"github.com/arloliu/metareg/internal/options"
)

const (
	// magicNumber identifies a metareg snapshot ("MRSN", little-endian).
	magicNumber uint32 = 0x4E53524D
	// formatVersion is the current snapshot layout version.
	formatVersion uint8 = 1

	headerSize   = 16
	checksumSize = 8

	// maxNameLength bounds column names to fit the uint8 length prefix.
	maxNameLength = 255
)

// Header flag bits. The low nibble carries the compression type.
const (
	flagCompressionMask uint8 = 0x0F
	flagHasVariances    uint8 = 0x10
	flagHasFit          uint8 = 0x20
)

// FitSummary is the persisted view of a fitted model: enough to reuse a
// fit without refitting, decoupled from the estimator package's live
// result types.
type FitSummary struct {
	// Method is the canonical estimation method name ("DL", "REML", ...).
	Method string
	// Coefficients are the fitted coefficients, 1:1 with the dataset's
	// design columns.
	Coefficients []float64
	// Tau2 is the between-study variance estimate; meaningful only when
	// HasTau2 is true.
	Tau2 float64
	// HasTau2 reports whether Tau2 was estimated (false for fixed-effect
	// fits).
	HasTau2 bool
	// Converged reports the fit's convergence flag.
	Converged bool
}

// Snapshot is a decoded snapshot: the reconstructed dataset and, when one
// was persisted, the fit summary.
type Snapshot struct {
	Dataset *dataset.Dataset
	Fit     *FitSummary
}

type config struct {
	compression compress.Type
	fit         *FitSummary
}

func defaultConfig() *config {
	return &config{compression: compress.TypeNone}
}

// Option configures snapshot encoding.
type Option = options.Option[*config]

// WithCompression selects the payload codec. Defaults to compress.TypeNone.
func WithCompression(t compress.Type) Option {
	return options.New(func(cfg *config) error {
		if !t.Valid() {
			return fmt.Errorf("unknown compression type: %d", t)
		}
		cfg.compression = t

		return nil
	})
}

// WithFit attaches a fit summary to the snapshot.
func WithFit(fit FitSummary) Option {
	return options.NoError(func(cfg *config) {
		cfg.fit = &fit
	})
}
