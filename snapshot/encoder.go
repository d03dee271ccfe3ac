package snapshot

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/arloliu/metareg/compress"
	"github.com/arloliu/metareg/dataset"
	"github.com/arloliu/metareg/errs"
	"github.com/arloliu/metareg/internal/options"
)

// Encode serializes a dataset (and an optional fit summary) into the
// snapshot binary format.
//
// Parameters:
//   - ds: the dataset to persist
//   - opts: WithCompression, WithFit
//
// Returns:
//   - []byte: the encoded snapshot
//   - error: an errs.ErrInvalidInput kind when a column name exceeds 255
//     bytes or an attached fit summary disagrees with the dataset's design
//     width, or a codec error
//
// Example:
//
//	data, err := snapshot.Encode(ds, snapshot.WithCompression(compress.TypeZstd))
func Encode(ds *dataset.Dataset, opts ...Option) ([]byte, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	k := ds.Len()
	p := ds.Width()
	if cfg.fit != nil && len(cfg.fit.Coefficients) != p {
		return nil, fmt.Errorf("%w: fit has %d coefficients for %d design columns",
			errs.ErrInvalidInput, len(cfg.fit.Coefficients), p)
	}

	payload, err := encodePayload(ds, cfg.fit)
	if err != nil {
		return nil, err
	}

	codec, err := compress.NewCodec(cfg.compression)
	if err != nil {
		return nil, err
	}
	compressed, err := codec.Compress(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}

	flags := uint8(cfg.compression) & flagCompressionMask
	if ds.HasVariances() {
		flags |= flagHasVariances
	}
	if cfg.fit != nil {
		flags |= flagHasFit
	}

	buf := make([]byte, headerSize, headerSize+len(compressed)+checksumSize)
	binary.LittleEndian.PutUint32(buf[0:4], magicNumber)
	buf[4] = formatVersion
	buf[5] = flags
	// buf[6:8] reserved
	binary.LittleEndian.PutUint32(buf[8:12], uint32(k))  //nolint:gosec
	binary.LittleEndian.PutUint16(buf[12:14], uint16(p)) //nolint:gosec
	// buf[14:16] reserved

	buf = append(buf, compressed...)
	buf = binary.LittleEndian.AppendUint64(buf, xxhash.Sum64(buf))

	return buf, nil
}

// encodePayload lays out the uncompressed payload: study arrays, design
// matrix, column names, optional fit section.
func encodePayload(ds *dataset.Dataset, fit *FitSummary) ([]byte, error) {
	k := ds.Len()
	p := ds.Width()

	size := 8 * k // estimates
	if ds.HasVariances() {
		size += 8 * k
	}
	size += 8 * k     // weights
	size += 8 * k * p // design
	buf := make([]byte, 0, size)

	buf = appendFloats(buf, ds.Estimates())
	if ds.HasVariances() {
		buf = appendFloats(buf, ds.Variances())
	}
	buf = appendFloats(buf, ds.Weights())

	design := ds.Design()
	for i := 0; i < k; i++ {
		for j := 0; j < p; j++ {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(design.At(i, j)))
		}
	}

	for _, name := range ds.Names() {
		var err error
		buf, err = appendName(buf, name)
		if err != nil {
			return nil, err
		}
	}

	if fit != nil {
		var err error
		buf, err = appendName(buf, fit.Method)
		if err != nil {
			return nil, err
		}
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(fit.Tau2))
		buf = append(buf, boolByte(fit.HasTau2), boolByte(fit.Converged))
		buf = appendFloats(buf, fit.Coefficients)
	}

	return buf, nil
}

func appendFloats(buf []byte, values []float64) []byte {
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}

	return buf
}

// appendName writes a uint8-length-prefixed string.
func appendName(buf []byte, name string) ([]byte, error) {
	if len(name) > maxNameLength {
		return nil, fmt.Errorf("%w: name length %d exceeds maximum %d",
			errs.ErrInvalidInput, len(name), maxNameLength)
	}
	buf = append(buf, uint8(len(name))) //nolint:gosec
	buf = append(buf, name...)

	return buf, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}

	return 0
}
