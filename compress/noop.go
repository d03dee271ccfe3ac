package compress

// NoOpCodec bypasses compression entirely, passing payloads through
// untouched. Useful for debugging snapshot layouts and for datasets small
// enough that a compression header would be pure overhead.
type NoOpCodec struct{}

var _ Codec = (*NoOpCodec)(nil)

// NewNoOpCodec creates a pass-through codec.
func NewNoOpCodec() NoOpCodec {
	return NoOpCodec{}
}

// Compress returns the input slice as-is, without copying.
//
// The returned slice shares the input's memory; callers must not mutate
// the input afterwards.
func (c NoOpCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns the input slice as-is, without copying.
func (c NoOpCodec) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
