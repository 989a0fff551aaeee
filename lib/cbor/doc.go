// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cbor implements encoding and decoding of Concise Binary
// Object Representation (RFC 8949), including the deterministic
// encoding profile, extended semantic tags, and value sharing.
//
// The package decodes a byte stream into a tree of typed values and
// encodes such a tree back into bytes. It does not map CBOR onto Go
// structs via reflection; callers that want schema-shaped decoding
// should layer that on top of the value tree.
//
// # Modes
//
// Encoding and decoding behavior is configured through immutable mode
// objects built from option structs:
//
//	dm, err := cbor.DecOptions{RequireMinimalLength: true}.DecMode()
//	value, err := dm.Decode(data)
//
//	em, err := cbor.DeterministicEncOptions().EncMode()
//	data, err := em.Marshal(value)
//
// A mode validates its options once, at construction, and is safe for
// concurrent use by multiple goroutines. The package-level [Decode],
// [Marshal], and [Diagnose] functions use default modes.
//
// # Value model
//
// Decoded values are represented with a closed set of Go types:
//
//   - nil, bool, int64, uint64 (only for magnitudes above
//     math.MaxInt64), *big.Int, float64, []byte, string
//   - [*List], [*Map], [*Set], [*Tag] for aggregates and unknown tags
//   - [SimpleValue] and [Undefined] for major type 7 scalars
//   - time.Time, *big.Rat, *[Decimal], *[BigFloat], *[BigNum],
//     uuid.UUID, netip.Addr, netip.Prefix, *regexp2.Regexp, and typed
//     numeric array slices for the supported semantic tags
//
// Lists and maps are pointer types so that value sharing (tags 28 and
// 29) can reconstruct structures where the same container appears in
// several places, including cyclic structures. [Map] preserves key
// insertion order; whether a map re-encodes in that order or in a
// canonical sort order is an encoder property.
//
// # Error taxonomy
//
// Decoding errors fall into two families distinguished per RFC 8949:
// ill-formed data breaks the format grammar itself (matched by
// [ErrIllFormed]), while invalid data is grammatically well-formed but
// violates a semantic rule such as a duplicate map key or a malformed
// tag payload (matched by [ErrInvalid]). Errors from encoding a value
// the encoder cannot represent match [ErrEncode]. All three families
// are surfaced as typed errors carrying the offending detail.
//
// # Streaming
//
// [DecMode.NewStream] exposes a pull-based event decoder for bounded-
// memory consumption of large documents: a flat sequence of events
// (scalars, aggregate boundaries, tag numbers) instead of a realized
// value tree. The diagnostic notation printer ([Diagnose]) is built on
// it.
package cbor
