package compress

// ZstdCodec compresses snapshot payloads with Zstandard, trading some speed
// for the best compression ratio in the family. Preferred for archived
// snapshot collections.
//
// The implementation is selected at build time: cgo builds use the
// libzstd-backed valyala/gozstd, pure-Go builds use klauspost/compress.
// Both produce interchangeable frames.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a Zstd codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}
