package snapshot

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/arloliu/metareg/compress"
	"github.com/arloliu/metareg/dataset"
	"github.com/arloliu/metareg/errs"
)

// Decode parses a snapshot and reconstructs its dataset and optional fit
// summary.
//
// The header is validated (magic number, version, compression type), the
// trailing xxHash64 checksum is verified before any payload work, and the
// payload is re-validated structurally while parsing. Corrupted, truncated,
// or foreign input fails with the snapshot sentinels in the errs package.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < headerSize+checksumSize {
		return nil, errs.ErrInvalidHeaderSize
	}
	if binary.LittleEndian.Uint32(data[0:4]) != magicNumber {
		return nil, errs.ErrInvalidMagicNumber
	}
	if data[4] != formatVersion {
		return nil, fmt.Errorf("%w: version %d", errs.ErrUnsupportedVersion, data[4])
	}

	flags := data[5]
	compression := compress.Type(flags & flagCompressionMask)
	if !compression.Valid() {
		return nil, errs.ErrInvalidCompression
	}
	hasVariances := flags&flagHasVariances != 0
	hasFit := flags&flagHasFit != 0

	k := int(binary.LittleEndian.Uint32(data[8:12]))
	p := int(binary.LittleEndian.Uint16(data[12:14]))
	if k < 1 || p < 1 {
		return nil, errs.ErrInvalidPayload
	}

	body := data[:len(data)-checksumSize]
	stored := binary.LittleEndian.Uint64(data[len(data)-checksumSize:])
	if xxhash.Sum64(body) != stored {
		return nil, errs.ErrChecksumMismatch
	}

	codec, err := compress.NewCodec(compression)
	if err != nil {
		return nil, errs.ErrInvalidCompression
	}
	payload, err := codec.Decompress(body[headerSize:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidPayload, err)
	}

	return decodePayload(payload, k, p, hasVariances, hasFit)
}

// payloadReader is a bounds-checked cursor over the decompressed payload.
type payloadReader struct {
	buf []byte
	pos int
}

func (r *payloadReader) floats(n int) ([]float64, error) {
	if r.pos+8*n > len(r.buf) {
		return nil, errs.ErrInvalidPayload
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(r.buf[r.pos:]))
		r.pos += 8
	}

	return out, nil
}

func (r *payloadReader) name() (string, error) {
	if r.pos >= len(r.buf) {
		return "", errs.ErrInvalidPayload
	}
	n := int(r.buf[r.pos])
	r.pos++
	if r.pos+n > len(r.buf) {
		return "", errs.ErrInvalidPayload
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n

	return s, nil
}

func (r *payloadReader) byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errs.ErrInvalidPayload
	}
	b := r.buf[r.pos]
	r.pos++

	return b, nil
}

// decodePayload parses the payload arrays and rebuilds the dataset through
// the regular validating constructor, so a decoded snapshot obeys the same
// invariants as a fresh one.
func decodePayload(payload []byte, k, p int, hasVariances, hasFit bool) (*Snapshot, error) {
	r := &payloadReader{buf: payload}

	estimates, err := r.floats(k)
	if err != nil {
		return nil, err
	}

	var variances []float64
	if hasVariances {
		if variances, err = r.floats(k); err != nil {
			return nil, err
		}
	}

	weights, err := r.floats(k)
	if err != nil {
		return nil, err
	}

	rows := make([][]float64, k)
	for i := range rows {
		if rows[i], err = r.floats(p); err != nil {
			return nil, err
		}
	}

	names := make([]string, p)
	for j := range names {
		if names[j], err = r.name(); err != nil {
			return nil, err
		}
	}

	opts := []dataset.Option{
		dataset.WithPredictors(rows),
		dataset.WithNames(names),
		dataset.WithoutIntercept(),
		dataset.WithWeights(weights),
	}
	if hasVariances {
		opts = append(opts, dataset.WithVariances(variances))
	}
	ds, err := dataset.New(estimates, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidPayload, err)
	}

	snap := &Snapshot{Dataset: ds}
	if hasFit {
		fit, err := decodeFit(r, p)
		if err != nil {
			return nil, err
		}
		snap.Fit = fit
	}
	if r.pos != len(r.buf) {
		return nil, errs.ErrInvalidPayload
	}

	return snap, nil
}

func decodeFit(r *payloadReader, p int) (*FitSummary, error) {
	method, err := r.name()
	if err != nil {
		return nil, err
	}
	tau2Raw, err := r.floats(1)
	if err != nil {
		return nil, err
	}
	hasTau2, err := r.byte()
	if err != nil {
		return nil, err
	}
	converged, err := r.byte()
	if err != nil {
		return nil, err
	}
	coeffs, err := r.floats(p)
	if err != nil {
		return nil, err
	}

	return &FitSummary{
		Method:       method,
		Coefficients: coeffs,
		Tau2:         tau2Raw[0],
		HasTau2:      hasTau2 != 0,
		Converged:    converged != 0,
	}, nil
}
