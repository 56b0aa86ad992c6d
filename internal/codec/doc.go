// Package codec is the wire encoding for cross-tab sync frames.
//
// Messages are CBOR (RFC 8949) using core deterministic encoding, so the
// same event always produces the same bytes. Decoding into any-typed
// targets yields map[string]any rather than CBOR's default
// map[interface{}]interface{}.
//
// On a stream, each message travels as a frame:
//
//	+----------------+--------+-----------------------+
//	| length (u32be) | flags  | body (CBOR, maybe zstd) |
//	+----------------+--------+-----------------------+
//
// The length covers flags and body. Bodies at or above CompressThreshold
// are zstd-compressed and flagged with FlagZstd; image payloads encoded as
// data URIs compress well and dominate frame size.
package codec
