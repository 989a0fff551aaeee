// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cbor

import (
	"math/big"
	"reflect"
)

// Undefined is the CBOR "undefined" simple value (major type 7,
// value 23). It is a zero-sized marker type: distinct from nil, equal
// to every other Undefined.
type Undefined struct{}

// SimpleValue is any major type 7 simple value other than the four
// assigned ones (false, true, null, undefined) and the floats.
type SimpleValue uint8

// List is a decoded CBOR array. It is a pointer type in the value
// model so that shared values (tags 28/29) can make the same list
// appear in several places, including inside itself.
type List struct {
	Items []any
}

// NewList returns a list holding the given items.
func NewList(items ...any) *List {
	return &List{Items: items}
}

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   any
	Value any
}

// Map is a decoded CBOR map. Entries preserve insertion order, which
// Go's built-in maps cannot, and keys may be aggregates, which Go's
// built-in maps cannot express either. Whether entries re-encode in
// insertion order or a canonical sort order is controlled by
// EncOptions.Sort — except when Ordered is set.
type Map struct {
	// Ordered marks a map decoded from (or destined for) tag 272:
	// the entry order is semantically significant, so the encoder
	// emits it through tag 272 in insertion order even under a
	// canonical sort policy.
	Ordered bool

	Entries []MapEntry
}

// NewMap returns an empty map.
func NewMap() *Map { return &Map{} }

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.Entries) }

// Get returns the value stored under key, comparing keys structurally.
// Lookup is linear; Map is an ordered container, not a hash table.
func (m *Map) Get(key any) (any, bool) {
	for _, entry := range m.Entries {
		if reflect.DeepEqual(entry.Key, key) {
			return entry.Value, true
		}
	}
	return nil, false
}

// Set stores value under key, replacing an existing structurally equal
// key or appending a new entry.
func (m *Map) Set(key, value any) {
	for i, entry := range m.Entries {
		if reflect.DeepEqual(entry.Key, key) {
			m.Entries[i].Value = value
			return
		}
	}
	m.Entries = append(m.Entries, MapEntry{Key: key, Value: value})
}

// Set is a decoded tag 258 set. Elements preserve decoding order; the
// encoder re-emits through tag 258, ordering elements per the active
// sort policy.
type Set struct {
	Elements []any
}

// NewSet returns a set holding the given elements.
func NewSet(elements ...any) *Set {
	return &Set{Elements: elements}
}

// Tag is a semantic tag the decoder has no specific handler for: the
// tag number plus its decoded content, preserved for round-tripping.
type Tag struct {
	Number  uint64
	Content any
}

// BigNum is a tag 2/3 big integer retained as an explicit wrapper
// rather than collapsed into the native integer types. It only appears
// when decoding with BigNumStyle == BigNumRetain; a retained BigNum is
// never equal to a plain integer of the same value, which keeps the
// two distinct for duplicate-map-key purposes.
type BigNum struct {
	Value *big.Int
}

// Decimal is a tag 4 decimal fraction: Mantissa * 10**Exponent.
type Decimal struct {
	Exponent int64
	Mantissa *big.Int
}

// BigFloat is a tag 5 bigfloat: Mantissa * 2**Exponent.
type BigFloat struct {
	Exponent int64
	Mantissa *big.Int
}

// Uint8Array is a tag 64 unsigned 8-bit typed array. A named type so
// the encoder can tell it apart from a plain byte string.
type Uint8Array []byte

// Indefinite-length wrapper types. Encoding one of these emits the
// indefinite-length form (chunked strings, break-terminated
// aggregates) unless EncOptions.RealizeIndefinite flattens them to the
// definite-length encoding. Decoding never produces them: the decoder
// realizes indefinite-length items eagerly.
type (
	// IndefiniteByteString encodes as an indefinite-length byte
	// string with one definite-length chunk per element.
	IndefiniteByteString [][]byte

	// IndefiniteTextString encodes as an indefinite-length text
	// string with one definite-length chunk per element.
	IndefiniteTextString []string

	// IndefiniteList encodes as a break-terminated array.
	IndefiniteList []any

	// IndefiniteMap encodes as a break-terminated map in entry
	// order; the sort policy never applies to it.
	IndefiniteMap []MapEntry
)

// RawMessage is a pre-encoded CBOR item. It is appended to the output
// verbatim, which lets callers splice in bytes produced elsewhere
// without a decode/re-encode round trip.
type RawMessage []byte

// Marshaler is the extension point for user-defined types. A value
// implementing Marshaler encodes as the returned bytes, which must be
// exactly one well-formed CBOR item. The encoder resolves extension
// types with this single interface check; there is no registration by
// concrete type and no ancestor scanning.
type Marshaler interface {
	MarshalCBOR() ([]byte, error)
}
