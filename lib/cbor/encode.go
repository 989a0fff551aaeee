// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cbor

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/netip"
	"sort"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
	"github.com/x448/float16"
)

// SortMode selects the ordering of map keys and set members in the
// output. Sorting compares the encoded bytes of each key, not the
// source values; that comparison is the format's definition of
// canonical order.
type SortMode uint8

const (
	// SortNone emits map entries in insertion order.
	SortNone SortMode = iota

	// SortBytewise orders keys by bytewise lexicographic comparison
	// of their encodings (RFC 8949 deterministic order).
	SortBytewise

	// SortLengthFirst orders keys by encoded length, then bytewise
	// (the older "canonical CBOR" order from RFC 7049).
	SortLengthFirst
)

// FloatStyle selects the width policy for floating-point output.
type FloatStyle uint8

const (
	// FloatShortest (the default) encodes each float at the
	// narrowest of 16/32/64 bits that round-trips its value
	// exactly, with NaN always the canonical half-float 0x7e00.
	FloatShortest FloatStyle = iota

	// Float64 encodes every float at 64 bits.
	Float64
)

// TimeStyle selects the tag and representation for time.Time values.
type TimeStyle uint8

const (
	// TimeEpoch encodes through tag 1 as seconds since the epoch:
	// an integer when whole, a float otherwise.
	TimeEpoch TimeStyle = iota

	// TimeRFC3339 encodes through tag 0 as RFC 3339 text in UTC
	// with a "Z" suffix.
	TimeRFC3339

	// TimeRFC3339Offset encodes through tag 0 as RFC 3339 text
	// keeping the value's own UTC offset.
	TimeRFC3339Offset
)

// ShareMode is a bitmask of container kinds that encode through the
// shared-value tags 28/29. A shared kind is wrapped in tag 28 on first
// encounter and referenced by tag 29 on every later encounter of the
// same object (identity, not equality). Sharing is what makes cyclic
// structures encodable.
type ShareMode uint8

const (
	ShareLists ShareMode = 1 << iota
	ShareMaps
	ShareTags
)

// EncOptions configures an EncMode. The zero value emits insertion
// order maps, shortest-form floats, epoch times, and no sharing.
type EncOptions struct {
	Sort       SortMode
	FloatStyle FloatStyle
	TimeStyle  TimeStyle
	Share      ShareMode

	// RealizeIndefinite flattens the Indefinite* wrapper types to
	// their definite-length encodings.
	RealizeIndefinite bool

	// Deterministic requests the deterministic encoding profile:
	// sorted maps and sets (SortBytewise unless Sort selects
	// otherwise), shortest-form floats, and no indefinite-length
	// output. It is a convenience that implies the other options.
	Deterministic bool
}

// DeterministicEncOptions returns options producing the RFC 8949
// deterministic encoding profile.
func DeterministicEncOptions() EncOptions {
	return EncOptions{
		Sort:              SortBytewise,
		RealizeIndefinite: true,
		Deterministic:     true,
	}
}

// EncMode validates the options and returns an immutable encoding
// mode.
func (opts EncOptions) EncMode() (EncMode, error) {
	if opts.Sort > SortLengthFirst {
		return EncMode{}, fmt.Errorf("cbor: unknown SortMode %d", opts.Sort)
	}
	if opts.FloatStyle > Float64 {
		return EncMode{}, fmt.Errorf("cbor: unknown FloatStyle %d", opts.FloatStyle)
	}
	if opts.TimeStyle > TimeRFC3339Offset {
		return EncMode{}, fmt.Errorf("cbor: unknown TimeStyle %d", opts.TimeStyle)
	}
	if opts.Share != 0 && opts.Sort != SortNone {
		// Shared IDs are allocated in output order; reordering keys
		// after allocation would leave references pointing at the
		// wrong slots.
		return EncMode{}, fmt.Errorf("cbor: Share cannot be combined with a sort order")
	}
	if opts.Deterministic {
		if opts.Share != 0 {
			return EncMode{}, fmt.Errorf("cbor: Deterministic cannot be combined with Share")
		}
		if opts.FloatStyle == Float64 {
			return EncMode{}, fmt.Errorf("cbor: Deterministic requires FloatShortest")
		}
		if opts.Sort == SortNone {
			opts.Sort = SortBytewise
		}
		opts.RealizeIndefinite = true
	}
	return EncMode{opts: opts}, nil
}

// EncMode is an immutable encoding configuration, safe for concurrent
// use by multiple goroutines. Build one from EncOptions.EncMode.
type EncMode struct {
	opts EncOptions
}

var defaultEncMode = func() EncMode {
	em, err := EncOptions{}.EncMode()
	if err != nil {
		panic("cbor: default encode mode: " + err.Error())
	}
	return em
}()

// Marshal encodes value with the default mode.
func Marshal(value any) ([]byte, error) {
	return defaultEncMode.Marshal(value)
}

// Marshal encodes value as one CBOR data item.
func (em EncMode) Marshal(value any) ([]byte, error) {
	e := &encodeState{opts: &em.opts}
	return e.encodeValue(nil, value)
}

// Encoder writes encoded items to an io.Writer, one per Encode call,
// forming a CBOR sequence. It is not safe for concurrent use.
type Encoder struct {
	w    io.Writer
	mode EncMode
}

// NewEncoder returns an Encoder writing to w.
func (em EncMode) NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, mode: em}
}

// NewEncoder returns an Encoder writing to w with the default mode.
func NewEncoder(w io.Writer) *Encoder {
	return defaultEncMode.NewEncoder(w)
}

// Encode appends one encoded item to the stream.
func (enc *Encoder) Encode(value any) error {
	data, err := enc.mode.Marshal(value)
	if err != nil {
		return err
	}
	_, err = enc.w.Write(data)
	return err
}

// encodeState is the per-call state of one Marshal: the shared ID
// table and the in-progress set used for cycle detection. Created per
// call; EncMode itself carries no mutable state.
type encodeState struct {
	opts *EncOptions

	// sharedIDs maps container identity (pointer) to its allocated
	// shared ID, in output order.
	sharedIDs map[any]uint64

	// inProgress holds containers currently being encoded. Meeting
	// one again before it completes means the structure contains
	// itself; without sharing enabled for its kind that is an
	// encoding error rather than infinite recursion.
	inProgress map[any]struct{}
}

func (e *encodeState) encodeValue(buf []byte, value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return append(buf, majorSimple<<5|simpleNull), nil
	case bool:
		if v {
			return append(buf, majorSimple<<5|simpleTrue), nil
		}
		return append(buf, majorSimple<<5|simpleFalse), nil
	case Undefined:
		return append(buf, majorSimple<<5|simpleUndef), nil
	case SimpleValue:
		return e.encodeSimpleValue(buf, uint8(v))

	case int:
		return appendInt(buf, int64(v)), nil
	case int8:
		return appendInt(buf, int64(v)), nil
	case int16:
		return appendInt(buf, int64(v)), nil
	case int32:
		return appendInt(buf, int64(v)), nil
	case int64:
		return appendInt(buf, v), nil
	case uint:
		return appendHead(buf, majorUnsigned, uint64(v)), nil
	case uint8:
		return appendHead(buf, majorUnsigned, uint64(v)), nil
	case uint16:
		return appendHead(buf, majorUnsigned, uint64(v)), nil
	case uint32:
		return appendHead(buf, majorUnsigned, uint64(v)), nil
	case uint64:
		return appendHead(buf, majorUnsigned, v), nil

	case float32:
		return e.encodeFloat(buf, float64(v)), nil
	case float64:
		return e.encodeFloat(buf, v), nil

	case []byte:
		return appendBytes(buf, v), nil
	case string:
		return appendText(buf, v), nil

	case *List:
		return e.encodeList(buf, v)
	case *Map:
		return e.encodeMap(buf, v)
	case *Set:
		return e.encodeSet(buf, v)
	case *Tag:
		return e.encodeTag(buf, v)

	case []any:
		return e.encodeSlice(buf, v)
	case map[any]any:
		return e.encodeGoMap(buf, v)
	case map[string]any:
		entries := make([]MapEntry, 0, len(v))
		for key, val := range v {
			entries = append(entries, MapEntry{Key: key, Value: val})
		}
		return e.encodeEntries(buf, entries, e.opts.Sort)

	case *big.Int:
		return e.encodeBigInt(buf, v)
	case *BigNum:
		return e.encodeBigNumTag(buf, v.Value)
	case *Decimal:
		return e.encodeExponentPair(buf, tagDecimal, v.Exponent, v.Mantissa)
	case *BigFloat:
		return e.encodeExponentPair(buf, tagBigFloat, v.Exponent, v.Mantissa)
	case *big.Rat:
		return e.encodeRational(buf, v)

	case time.Time:
		return e.encodeTime(buf, v)
	case uuid.UUID:
		buf = appendHead(buf, majorTag, tagUUID)
		return appendBytes(buf, v[:]), nil
	case *regexp2.Regexp:
		buf = appendHead(buf, majorTag, tagRegexp)
		return appendText(buf, v.String()), nil
	case netip.Addr:
		buf = appendHead(buf, majorTag, tagIPAddr)
		return appendBytes(buf, v.AsSlice()), nil
	case netip.Prefix:
		return e.encodePrefix(buf, v)

	case Uint8Array:
		buf = appendHead(buf, majorTag, 64)
		return appendBytes(buf, v), nil
	case []uint16:
		return e.encodeTypedArray(buf, 65, 2, len(v), func(out []byte, i int) []byte {
			return append(out, byte(v[i]>>8), byte(v[i]))
		})
	case []uint32:
		return e.encodeTypedArray(buf, 66, 4, len(v), func(out []byte, i int) []byte {
			return append(out, byte(v[i]>>24), byte(v[i]>>16), byte(v[i]>>8), byte(v[i]))
		})
	case []uint64:
		return e.encodeTypedArray(buf, 67, 8, len(v), func(out []byte, i int) []byte {
			return appendBigEndian64(out, v[i])
		})
	case []int8:
		buf = appendHead(buf, majorTag, 72)
		buf = appendHead(buf, majorBytes, uint64(len(v)))
		for _, elem := range v {
			buf = append(buf, byte(elem))
		}
		return buf, nil
	case []int16:
		return e.encodeTypedArray(buf, 73, 2, len(v), func(out []byte, i int) []byte {
			return append(out, byte(uint16(v[i])>>8), byte(v[i]))
		})
	case []int32:
		return e.encodeTypedArray(buf, 74, 4, len(v), func(out []byte, i int) []byte {
			u := uint32(v[i])
			return append(out, byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
		})
	case []int64:
		return e.encodeTypedArray(buf, 75, 8, len(v), func(out []byte, i int) []byte {
			return appendBigEndian64(out, uint64(v[i]))
		})
	case []float32:
		return e.encodeTypedArray(buf, 81, 4, len(v), func(out []byte, i int) []byte {
			u := math.Float32bits(v[i])
			return append(out, byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
		})
	case []float64:
		return e.encodeTypedArray(buf, 82, 8, len(v), func(out []byte, i int) []byte {
			return appendBigEndian64(out, math.Float64bits(v[i]))
		})

	case IndefiniteByteString:
		return e.encodeIndefiniteBytes(buf, v)
	case IndefiniteTextString:
		return e.encodeIndefiniteText(buf, v)
	case IndefiniteList:
		return e.encodeIndefiniteList(buf, v)
	case IndefiniteMap:
		return e.encodeIndefiniteMap(buf, v)

	case RawMessage:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty raw message", ErrEncode)
		}
		return append(buf, v...), nil
	}

	if m, ok := value.(Marshaler); ok {
		data, err := m.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		return append(buf, data...), nil
	}
	return nil, &UnsupportedTypeError{Type: fmt.Sprintf("%T", value)}
}

func appendInt(buf []byte, v int64) []byte {
	if v >= 0 {
		return appendHead(buf, majorUnsigned, uint64(v))
	}
	return appendHead(buf, majorNegative, uint64(-(v + 1)))
}

func appendBytes(buf, v []byte) []byte {
	buf = appendHead(buf, majorBytes, uint64(len(v)))
	return append(buf, v...)
}

func appendText(buf []byte, v string) []byte {
	buf = appendHead(buf, majorText, uint64(len(v)))
	return append(buf, v...)
}

func appendBigEndian64(buf []byte, u uint64) []byte {
	return append(buf, byte(u>>56), byte(u>>48), byte(u>>40), byte(u>>32),
		byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
}

func (e *encodeState) encodeSimpleValue(buf []byte, v uint8) ([]byte, error) {
	switch {
	case v <= 23:
		return append(buf, majorSimple<<5|v), nil
	case v < minExtraSimple:
		// 24-31 collide with the argument-width and float initial
		// bytes and have no encoding.
		return nil, fmt.Errorf("%w: simple value %d is reserved", ErrEncode, v)
	default:
		return append(buf, majorSimple<<5|simpleExtra, v), nil
	}
}

// encodeFloat emits v at the width selected by the float style. In
// shortest form, NaN always becomes the canonical half-float and every
// other value takes the narrowest width that round-trips exactly.
func (e *encodeState) encodeFloat(buf []byte, v float64) []byte {
	if e.opts.FloatStyle == Float64 {
		buf = append(buf, majorSimple<<5|simpleFloat64)
		return appendBigEndian64(buf, math.Float64bits(v))
	}
	if math.IsNaN(v) {
		return append(buf, majorSimple<<5|simpleFloat16, 0x7e, 0x00)
	}
	if narrow := float32(v); float64(narrow) == v {
		if half := float16.Fromfloat32(narrow); half.Float32() == narrow {
			bits := uint16(half)
			return append(buf, majorSimple<<5|simpleFloat16, byte(bits>>8), byte(bits))
		}
		bits := math.Float32bits(narrow)
		return append(buf, majorSimple<<5|simpleFloat32,
			byte(bits>>24), byte(bits>>16), byte(bits>>8), byte(bits))
	}
	buf = append(buf, majorSimple<<5|simpleFloat64)
	return appendBigEndian64(buf, math.Float64bits(v))
}

// enterContainer records a container as being encoded, or routes it
// through the shared-value tags. The returned doneFn must run after
// the container's content is written; emitted reports that the
// container was fully emitted as a tag 29 reference and needs no
// content.
func (e *encodeState) enterContainer(buf []byte, container any, kind ShareMode) (out []byte, emitted bool, done func(), err error) {
	if e.opts.Share&kind != 0 {
		if id, ok := e.sharedIDs[container]; ok {
			buf = appendHead(buf, majorTag, tagSharedRef)
			return appendHead(buf, majorUnsigned, id), true, nil, nil
		}
		if e.sharedIDs == nil {
			e.sharedIDs = make(map[any]uint64)
		}
		id := uint64(len(e.sharedIDs))
		e.sharedIDs[container] = id
		buf = appendHead(buf, majorTag, tagShareable)
		return buf, false, func() {}, nil
	}
	if _, cycling := e.inProgress[container]; cycling {
		return nil, false, nil, &SelfReferentialError{}
	}
	if e.inProgress == nil {
		e.inProgress = make(map[any]struct{})
	}
	e.inProgress[container] = struct{}{}
	return buf, false, func() { delete(e.inProgress, container) }, nil
}

func (e *encodeState) encodeList(buf []byte, list *List) ([]byte, error) {
	buf, emitted, done, err := e.enterContainer(buf, list, ShareLists)
	if err != nil || emitted {
		return buf, err
	}
	defer done()
	return e.encodeSlice(buf, list.Items)
}

func (e *encodeState) encodeSlice(buf []byte, items []any) ([]byte, error) {
	buf = appendHead(buf, majorArray, uint64(len(items)))
	var err error
	for _, item := range items {
		if buf, err = e.encodeValue(buf, item); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (e *encodeState) encodeMap(buf []byte, m *Map) ([]byte, error) {
	buf, emitted, done, err := e.enterContainer(buf, m, ShareMaps)
	if err != nil || emitted {
		return buf, err
	}
	defer done()

	if m.Ordered {
		// Tag 272 marks entry order as significant; the sort
		// policy stops at its boundary.
		buf = appendHead(buf, majorTag, tagOrderedMap)
		return e.encodeEntries(buf, m.Entries, SortNone)
	}
	return e.encodeEntries(buf, m.Entries, e.opts.Sort)
}

func (e *encodeState) encodeGoMap(buf []byte, v map[any]any) ([]byte, error) {
	entries := make([]MapEntry, 0, len(v))
	for key, val := range v {
		entries = append(entries, MapEntry{Key: key, Value: val})
	}
	return e.encodeEntries(buf, entries, e.opts.Sort)
}

// encodeEntries emits a definite-length map. Under a sort order, keys
// and values are serialized first and the entries ordered by comparing
// the encoded key bytes.
func (e *encodeState) encodeEntries(buf []byte, entries []MapEntry, order SortMode) ([]byte, error) {
	buf = appendHead(buf, majorMap, uint64(len(entries)))
	var err error
	if order == SortNone {
		for _, entry := range entries {
			if buf, err = e.encodeValue(buf, entry.Key); err != nil {
				return nil, err
			}
			if buf, err = e.encodeValue(buf, entry.Value); err != nil {
				return nil, err
			}
		}
		return buf, nil
	}

	type encodedEntry struct {
		key, value []byte
	}
	encoded := make([]encodedEntry, len(entries))
	for i, entry := range entries {
		if encoded[i].key, err = e.encodeValue(nil, entry.Key); err != nil {
			return nil, err
		}
		if encoded[i].value, err = e.encodeValue(nil, entry.Value); err != nil {
			return nil, err
		}
	}
	sortEncoded(encoded, order, func(entry encodedEntry) []byte { return entry.key })
	for _, entry := range encoded {
		buf = append(buf, entry.key...)
		buf = append(buf, entry.value...)
	}
	return buf, nil
}

// sortEncoded orders items by their encoded key bytes: bytewise
// lexicographic, or length-first for the older canonical order.
func sortEncoded[T any](items []T, order SortMode, keyOf func(T) []byte) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := keyOf(items[i]), keyOf(items[j])
		if order == SortLengthFirst && len(a) != len(b) {
			return len(a) < len(b)
		}
		return bytes.Compare(a, b) < 0
	})
}

func (e *encodeState) encodeSet(buf []byte, set *Set) ([]byte, error) {
	if _, cycling := e.inProgress[set]; cycling {
		return nil, &SelfReferentialError{}
	}
	if e.inProgress == nil {
		e.inProgress = make(map[any]struct{})
	}
	e.inProgress[set] = struct{}{}
	defer delete(e.inProgress, set)

	buf = appendHead(buf, majorTag, tagSet)
	buf = appendHead(buf, majorArray, uint64(len(set.Elements)))
	var err error
	if e.opts.Sort == SortNone {
		for _, element := range set.Elements {
			if buf, err = e.encodeValue(buf, element); err != nil {
				return nil, err
			}
		}
		return buf, nil
	}
	encoded := make([][]byte, len(set.Elements))
	for i, element := range set.Elements {
		if encoded[i], err = e.encodeValue(nil, element); err != nil {
			return nil, err
		}
	}
	sortEncoded(encoded, e.opts.Sort, func(member []byte) []byte { return member })
	for _, member := range encoded {
		buf = append(buf, member...)
	}
	return buf, nil
}

func (e *encodeState) encodeTag(buf []byte, tag *Tag) ([]byte, error) {
	buf, emitted, done, err := e.enterContainer(buf, tag, ShareTags)
	if err != nil || emitted {
		return buf, err
	}
	defer done()
	buf = appendHead(buf, majorTag, tag.Number)
	return e.encodeValue(buf, tag.Content)
}

func (e *encodeState) encodeBigInt(buf []byte, v *big.Int) ([]byte, error) {
	if v.IsInt64() {
		return appendInt(buf, v.Int64()), nil
	}
	if v.IsUint64() {
		return appendHead(buf, majorUnsigned, v.Uint64()), nil
	}
	return e.encodeBigNumTag(buf, v)
}

// encodeBigNumTag emits v through tag 2 or 3 regardless of whether it
// would fit a plain integer. This is the path for retained BigNum
// values and for integers beyond 64 bits.
func (e *encodeState) encodeBigNumTag(buf []byte, v *big.Int) ([]byte, error) {
	if v.Sign() >= 0 {
		buf = appendHead(buf, majorTag, tagPosBigNum)
		return appendBytes(buf, v.Bytes()), nil
	}
	magnitude := new(big.Int).Neg(v)
	magnitude.Sub(magnitude, bigOne)
	buf = appendHead(buf, majorTag, tagNegBigNum)
	return appendBytes(buf, magnitude.Bytes()), nil
}

func (e *encodeState) encodeExponentPair(buf []byte, number uint64, exponent int64, mantissa *big.Int) ([]byte, error) {
	buf = appendHead(buf, majorTag, number)
	buf = appendHead(buf, majorArray, 2)
	buf = appendInt(buf, exponent)
	return e.encodeBigInt(buf, mantissa)
}

func (e *encodeState) encodeRational(buf []byte, v *big.Rat) ([]byte, error) {
	buf = appendHead(buf, majorTag, tagRational)
	buf = appendHead(buf, majorArray, 2)
	buf, err := e.encodeBigInt(buf, v.Num())
	if err != nil {
		return nil, err
	}
	// big.Rat keeps the denominator positive in lowest terms, which
	// is exactly what the tag requires.
	return e.encodeBigInt(buf, v.Denom())
}

func (e *encodeState) encodeTime(buf []byte, v time.Time) ([]byte, error) {
	switch e.opts.TimeStyle {
	case TimeRFC3339:
		buf = appendHead(buf, majorTag, tagDateTimeText)
		return appendText(buf, v.UTC().Format(time.RFC3339Nano)), nil
	case TimeRFC3339Offset:
		buf = appendHead(buf, majorTag, tagDateTimeText)
		return appendText(buf, v.Format(time.RFC3339Nano)), nil
	default:
		buf = appendHead(buf, majorTag, tagEpochTime)
		if ns := v.Nanosecond(); ns != 0 {
			seconds := float64(v.Unix()) + float64(ns)/1e9
			return e.encodeFloat(buf, seconds), nil
		}
		return appendInt(buf, v.Unix()), nil
	}
}

func (e *encodeState) encodePrefix(buf []byte, v netip.Prefix) ([]byte, error) {
	buf = appendHead(buf, majorTag, tagIPNetwork)
	buf = appendHead(buf, majorMap, 1)
	buf = appendBytes(buf, v.Addr().AsSlice())
	return appendHead(buf, majorUnsigned, uint64(v.Bits())), nil
}

func (e *encodeState) encodeTypedArray(buf []byte, number uint64, elemSize, n int, put func([]byte, int) []byte) ([]byte, error) {
	buf = appendHead(buf, majorTag, number)
	buf = appendHead(buf, majorBytes, uint64(elemSize*n))
	for i := 0; i < n; i++ {
		buf = put(buf, i)
	}
	return buf, nil
}

func (e *encodeState) encodeIndefiniteBytes(buf []byte, chunks IndefiniteByteString) ([]byte, error) {
	if e.opts.RealizeIndefinite {
		total := 0
		for _, chunk := range chunks {
			total += len(chunk)
		}
		buf = appendHead(buf, majorBytes, uint64(total))
		for _, chunk := range chunks {
			buf = append(buf, chunk...)
		}
		return buf, nil
	}
	buf = append(buf, majorBytes<<5|argIndefinite)
	for _, chunk := range chunks {
		buf = appendBytes(buf, chunk)
	}
	return append(buf, breakByte), nil
}

func (e *encodeState) encodeIndefiniteText(buf []byte, chunks IndefiniteTextString) ([]byte, error) {
	if e.opts.RealizeIndefinite {
		total := 0
		for _, chunk := range chunks {
			total += len(chunk)
		}
		buf = appendHead(buf, majorText, uint64(total))
		for _, chunk := range chunks {
			buf = append(buf, chunk...)
		}
		return buf, nil
	}
	buf = append(buf, majorText<<5|argIndefinite)
	for _, chunk := range chunks {
		buf = appendText(buf, chunk)
	}
	return append(buf, breakByte), nil
}

func (e *encodeState) encodeIndefiniteList(buf []byte, items IndefiniteList) ([]byte, error) {
	if e.opts.RealizeIndefinite {
		return e.encodeSlice(buf, items)
	}
	buf = append(buf, majorArray<<5|argIndefinite)
	var err error
	for _, item := range items {
		if buf, err = e.encodeValue(buf, item); err != nil {
			return nil, err
		}
	}
	return append(buf, breakByte), nil
}

func (e *encodeState) encodeIndefiniteMap(buf []byte, entries IndefiniteMap) ([]byte, error) {
	if e.opts.RealizeIndefinite {
		// The wrapper's entry order is explicit, so realization
		// keeps it even under a sort policy.
		return e.encodeEntries(buf, entries, SortNone)
	}
	buf = append(buf, majorMap<<5|argIndefinite)
	var err error
	for _, entry := range entries {
		if buf, err = e.encodeValue(buf, entry.Key); err != nil {
			return nil, err
		}
		if buf, err = e.encodeValue(buf, entry.Value); err != nil {
			return nil, err
		}
	}
	return append(buf, breakByte), nil
}
