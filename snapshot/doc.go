// Package snapshot provides a compact binary format for persisting a
// meta-analysis dataset together with an optional fit summary.
//
// Snapshots give batch pipelines a cache and interchange format: a dataset
// (and the result of fitting it) can be written once, shipped or stored,
// and decoded back into the exact arrays the estimators consume.
//
// # Layout
//
// A snapshot is a fixed 16-byte little-endian header, a payload compressed
// with the configured codec, and a trailing xxHash64 checksum over
// everything before it:
//
//	[header 16B][compressed payload][checksum 8B]
//
// The payload carries the study arrays (estimates, optional variances,
// resolved weights, row-major design matrix), uint8-length-prefixed column
// names, and the optional fit section (method, tau^2, coefficients,
// convergence flag).
//
// # Usage
//
//	data, err := snapshot.Encode(ds,
//	    snapshot.WithCompression(compress.TypeZstd),
//	    snapshot.WithFit(summary),
//	)
//	...
//	snap, err := snapshot.Decode(data)
//
// Corrupted or truncated input fails with the snapshot sentinels in the
// errs package; Decode never panics on garbage.
package snapshot
