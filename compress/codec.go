// Package compress provides the payload codecs used by the snapshot binary
// format.
//
// A snapshot payload is a single contiguous buffer of float64 arrays and
// length-prefixed names, typically a few hundred bytes to a few kilobytes.
// The codec family mirrors the usual trade-offs: Zstd for the best ratio,
// S2 and LZ4 for speed, None for debugging and tiny datasets where the
// compression header would cost more than it saves.
package compress

import (
	"fmt"
)

// Type identifies a payload compression algorithm.
type Type uint8

const (
	// TypeNone stores the payload uncompressed.
	TypeNone Type = 0x1
	// TypeZstd compresses with Zstandard.
	TypeZstd Type = 0x2
	// TypeS2 compresses with S2 (Snappy-compatible).
	TypeS2 Type = 0x3
	// TypeLZ4 compresses with LZ4 block format.
	TypeLZ4 Type = 0x4
)

// String returns the name of the compression type.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "None"
	case TypeZstd:
		return "Zstd"
	case TypeS2:
		return "S2"
	case TypeLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is a known compression type.
func (t Type) Valid() bool {
	switch t {
	case TypeNone, TypeZstd, TypeS2, TypeLZ4:
		return true
	default:
		return false
	}
}

// Compressor compresses a snapshot payload.
//
// Returned slices are newly allocated and owned by the caller (except for
// the no-op codec, which passes the input through); input slices are never
// modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a snapshot payload.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

// NewCodec returns the codec for the given compression type.
func NewCodec(t Type) (Codec, error) {
	switch t {
	case TypeNone:
		return NewNoOpCodec(), nil
	case TypeZstd:
		return NewZstdCodec(), nil
	case TypeS2:
		return NewS2Codec(), nil
	case TypeLZ4:
		return NewLZ4Codec(), nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", t)
	}
}
