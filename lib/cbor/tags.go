// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cbor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"net/netip"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
)

// Tag numbers with built-in handlers. RFC 8949 registers 0-5 and
// 30/35/37; 28/29 are the shared-value pair, 64-87 the RFC 8746 typed
// arrays, 258 the set tag, 260/261 the address tags, 272 the
// order-preserving map tag.
const (
	tagDateTimeText uint64 = 0
	tagEpochTime    uint64 = 1
	tagPosBigNum    uint64 = 2
	tagNegBigNum    uint64 = 3
	tagDecimal      uint64 = 4
	tagBigFloat     uint64 = 5
	tagShareable    uint64 = 28
	tagSharedRef    uint64 = 29
	tagRational     uint64 = 30
	tagRegexp       uint64 = 35
	tagUUID         uint64 = 37
	tagSet          uint64 = 258
	tagIPAddr       uint64 = 260
	tagIPNetwork    uint64 = 261
	tagOrderedMap   uint64 = 272
)

// decodeTagged dispatches a tagged item whose tag number has been
// read. Per-mode custom handlers take precedence over the built-in
// table; unknown tags realize as generic *Tag, never an error.
func (d *decodeState) decodeTagged(number uint64) (any, error) {
	if fn, ok := d.opts.TagDecoders[number]; ok {
		return fn(d, number)
	}

	switch number {
	case tagDateTimeText:
		return d.decodeDateTimeText()
	case tagEpochTime:
		return d.decodeEpochTime()
	case tagPosBigNum:
		return d.decodeBigNum(false)
	case tagNegBigNum:
		return d.decodeBigNum(true)
	case tagDecimal, tagBigFloat:
		return d.decodeExponentPair(number)
	case tagShareable:
		return d.decodeShareable()
	case tagSharedRef:
		return d.decodeSharedRef()
	case tagRational:
		return d.decodeRational()
	case tagRegexp:
		return d.decodeRegexp()
	case tagUUID:
		return d.decodeUUID()
	case tagSet:
		return d.decodeSet()
	case tagIPAddr:
		return d.decodeIPAddr()
	case tagIPNetwork:
		return d.decodeIPNetwork()
	case tagOrderedMap:
		return d.decodeOrderedMap()
	}

	if spec, ok := typedArraySpecs[number]; ok {
		return d.decodeTypedArray(number, spec)
	}

	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	return &Tag{Number: number, Content: content}, nil
}

func (d *decodeState) decodeDateTimeText() (any, error) {
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	text, ok := content.(string)
	if !ok {
		return nil, &TagContentError{Number: tagDateTimeText, Reason: "date/time must be a text string"}
	}
	when, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return nil, &TagContentError{Number: tagDateTimeText, Reason: fmt.Sprintf("invalid date/time text %q", text)}
	}
	return when, nil
}

func (d *decodeState) decodeEpochTime() (any, error) {
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	switch seconds := content.(type) {
	case int64:
		return time.Unix(seconds, 0).UTC(), nil
	case float64:
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return nil, &TagContentError{Number: tagEpochTime, Reason: "timestamp must be finite"}
		}
		whole, frac := math.Modf(seconds)
		return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC(), nil
	default:
		// uint64 and big integers land here: a timestamp beyond
		// int64 seconds is outside the representable time range.
		return nil, &TagContentError{Number: tagEpochTime, Reason: fmt.Sprintf("timestamp must be an integer or float, not %T", content)}
	}
}

func (d *decodeState) decodeBigNum(negative bool) (any, error) {
	number := tagPosBigNum
	if negative {
		number = tagNegBigNum
	}
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	payload, ok := content.([]byte)
	if !ok {
		return nil, &TagContentError{Number: number, Reason: fmt.Sprintf("payload must be a byte string, not %T", content)}
	}
	value := new(big.Int).SetBytes(payload)
	if negative {
		value.Add(value, bigOne)
		value.Neg(value)
	}
	if d.opts.BigNums == BigNumRetain {
		return &BigNum{Value: value}, nil
	}
	return collapseBigInt(value), nil
}

// collapseBigInt narrows a big integer to int64 or uint64 when it
// fits. Collapsed values compare equal to plain integers, so a map
// keyed by both 2 and 2(h'02') has a duplicate key.
func collapseBigInt(value *big.Int) any {
	if value.IsInt64() {
		return value.Int64()
	}
	if value.IsUint64() {
		return value.Uint64()
	}
	return value
}

// decodeExponentPair handles tags 4 (decimal fraction) and 5
// (bigfloat): a two-element array of exponent and mantissa. The
// mantissa may be a big integer, retained or not; the exponent must
// fit 64 bits.
func (d *decodeState) decodeExponentPair(number uint64) (any, error) {
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	list, ok := content.(*List)
	if !ok || len(list.Items) != 2 {
		return nil, &TagContentError{Number: number, Reason: "content must be an array of exponent and mantissa"}
	}
	exponent, ok := asInt64(list.Items[0])
	if !ok {
		return nil, &TagContentError{Number: number, Reason: fmt.Sprintf("exponent must be a 64-bit integer, not %v", list.Items[0])}
	}
	mantissa, ok := asBigInt(list.Items[1])
	if !ok {
		return nil, &TagContentError{Number: number, Reason: fmt.Sprintf("mantissa must be an integer, not %v", list.Items[1])}
	}
	if number == tagDecimal {
		return &Decimal{Exponent: exponent, Mantissa: mantissa}, nil
	}
	return &BigFloat{Exponent: exponent, Mantissa: mantissa}, nil
}

// asInt64 narrows any decoded integer representation to int64.
func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

// asBigInt widens any decoded integer representation to *big.Int.
func asBigInt(value any) (*big.Int, bool) {
	switch v := value.(type) {
	case int64:
		return big.NewInt(v), true
	case uint64:
		return new(big.Int).SetUint64(v), true
	case *big.Int:
		return v, true
	case *BigNum:
		return v.Value, true
	default:
		return nil, false
	}
}

// decodeShareable handles tag 28: allocate the next shared ID, and for
// mutable aggregates register the empty container before decoding its
// contents, so that a tag 29 reference inside the content resolves to
// the enclosing container. That pre-registration is what makes cyclic
// structures decodable.
func (d *decodeState) decodeShareable() (any, error) {
	id := len(d.shared)
	d.shared = append(d.shared, sharedSlot{})

	h, err := d.src.readHead(d.opts.RequireMinimalLength)
	if err != nil {
		return nil, err
	}
	if h.kind == headBreak {
		return nil, &MisplacedBreakError{}
	}

	if d.depth >= d.opts.MaxNestingDepth {
		return nil, &DepthError{Limit: d.opts.MaxNestingDepth}
	}
	d.depth++
	defer func() { d.depth-- }()

	switch h.major {
	case majorArray:
		list := &List{}
		d.shared[id] = sharedSlot{value: list, ready: true}
		if err := d.decodeArrayInto(list, h); err != nil {
			return nil, err
		}
		return list, nil
	case majorMap:
		m := &Map{}
		d.shared[id] = sharedSlot{value: m, ready: true}
		if err := d.decodeMapInto(m, h); err != nil {
			return nil, err
		}
		return m, nil
	default:
		// Immutable content cannot contain a reference to itself,
		// so registration after the fact is fine.
		value, err := d.decodeItemWithHead(h)
		if err != nil {
			return nil, err
		}
		d.shared[id] = sharedSlot{value: value, ready: true}
		return value, nil
	}
}

func (d *decodeState) decodeSharedRef() (any, error) {
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	var id uint64
	switch v := content.(type) {
	case int64:
		if v < 0 {
			return nil, &TagContentError{Number: tagSharedRef, Reason: fmt.Sprintf("reference must be non-negative, not %d", v)}
		}
		id = uint64(v)
	case uint64:
		id = v
	default:
		return nil, &TagContentError{Number: tagSharedRef, Reason: fmt.Sprintf("reference must be an integer, not %T", content)}
	}
	if id >= uint64(len(d.shared)) || !d.shared[id].ready {
		return nil, &UnknownSharedRefError{ID: id}
	}
	return d.shared[id].value, nil
}

func (d *decodeState) decodeRational() (any, error) {
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	list, ok := content.(*List)
	if !ok || len(list.Items) != 2 {
		return nil, &TagContentError{Number: tagRational, Reason: "content must be an array of numerator and denominator"}
	}
	numerator, ok := asBigInt(list.Items[0])
	if !ok {
		return nil, &TagContentError{Number: tagRational, Reason: fmt.Sprintf("numerator must be an integer, not %v", list.Items[0])}
	}
	denominator, ok := asBigInt(list.Items[1])
	if !ok {
		return nil, &TagContentError{Number: tagRational, Reason: fmt.Sprintf("denominator must be an integer, not %v", list.Items[1])}
	}
	if denominator.Sign() <= 0 {
		return nil, &TagContentError{Number: tagRational, Reason: fmt.Sprintf("denominator must be positive, not %v", denominator)}
	}
	return new(big.Rat).SetFrac(numerator, denominator), nil
}

func (d *decodeState) decodeRegexp() (any, error) {
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	pattern, ok := content.(string)
	if !ok {
		return nil, &TagContentError{Number: tagRegexp, Reason: "pattern must be a text string"}
	}
	// A compile failure is the pattern engine's error, reported
	// as-is rather than wrapped in the codec's taxonomy.
	return regexp2.Compile(pattern, regexp2.None)
}

func (d *decodeState) decodeUUID() (any, error) {
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	payload, ok := content.([]byte)
	if !ok {
		return nil, &TagContentError{Number: tagUUID, Reason: "content must be a byte string"}
	}
	id, err := uuid.FromBytes(payload)
	if err != nil {
		return nil, &TagContentError{Number: tagUUID, Reason: fmt.Sprintf("content must be 16 bytes, got %d", len(payload))}
	}
	return id, nil
}

func (d *decodeState) decodeSet() (any, error) {
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	list, ok := content.(*List)
	if !ok {
		return nil, &TagContentError{Number: tagSet, Reason: fmt.Sprintf("content must be an array, not %T", content)}
	}
	seen := make(map[string]struct{}, len(list.Items))
	var duplicates []any
	for _, element := range list.Items {
		identity, err := keyIdentity(element)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[identity]; dup {
			duplicates = append(duplicates, element)
		} else {
			seen[identity] = struct{}{}
		}
	}
	if len(duplicates) > 0 {
		return nil, &DuplicateKeyError{Keys: duplicates}
	}
	return &Set{Elements: list.Items}, nil
}

func (d *decodeState) decodeIPAddr() (any, error) {
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	payload, ok := content.([]byte)
	if !ok {
		return nil, &TagContentError{Number: tagIPAddr, Reason: "content must be a byte string"}
	}
	addr, ok := netip.AddrFromSlice(payload)
	if !ok {
		return nil, &TagContentError{Number: tagIPAddr, Reason: fmt.Sprintf("address must be 4 or 16 bytes, got %d", len(payload))}
	}
	return addr, nil
}

func (d *decodeState) decodeIPNetwork() (any, error) {
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	m, ok := content.(*Map)
	if !ok {
		return nil, &TagContentError{Number: tagIPNetwork, Reason: "content must be a map"}
	}
	if len(m.Entries) != 1 {
		return nil, &TagContentError{Number: tagIPNetwork, Reason: fmt.Sprintf("content must have exactly one entry, got %d", len(m.Entries))}
	}
	entry := m.Entries[0]
	payload, ok := entry.Key.([]byte)
	if !ok {
		return nil, &TagContentError{Number: tagIPNetwork, Reason: "network address must be a byte string"}
	}
	addr, ok := netip.AddrFromSlice(payload)
	if !ok {
		return nil, &TagContentError{Number: tagIPNetwork, Reason: fmt.Sprintf("network address must be 4 or 16 bytes, got %d", len(payload))}
	}
	bits, ok := asInt64(entry.Value)
	if !ok || bits < 0 || bits > int64(addr.BitLen()) {
		return nil, &TagContentError{Number: tagIPNetwork, Reason: fmt.Sprintf("prefix length %v out of range for %d-byte address", entry.Value, len(payload))}
	}
	return netip.PrefixFrom(addr, int(bits)), nil
}

func (d *decodeState) decodeOrderedMap() (any, error) {
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	m, ok := content.(*Map)
	if !ok {
		return nil, &TagContentError{Number: tagOrderedMap, Reason: fmt.Sprintf("content must be a map, not %T", content)}
	}
	m.Ordered = true
	return m, nil
}

// typedArraySpec describes one RFC 8746 typed array tag: the element
// width in bytes and a builder that converts a validated payload into
// the corresponding Go slice.
type typedArraySpec struct {
	elemSize int
	build    func(data []byte) any
}

// typedArraySpecs covers the widths the codec supports: integers of
// 8/16/32/64 bits in both byte orders, floats of 32/64 bits in both
// byte orders. The float16, float128, and clamped tags (80, 83, 84,
// 87, 68) and the reserved tag 76 fall through to generic *Tag.
var typedArraySpecs = map[uint64]typedArraySpec{
	64: {1, func(data []byte) any { return Uint8Array(bytes.Clone(data)) }},
	65: {2, buildUint16(binary.BigEndian)},
	66: {4, buildUint32(binary.BigEndian)},
	67: {8, buildUint64(binary.BigEndian)},
	69: {2, buildUint16(binary.LittleEndian)},
	70: {4, buildUint32(binary.LittleEndian)},
	71: {8, buildUint64(binary.LittleEndian)},
	72: {1, buildInt8},
	73: {2, buildInt16(binary.BigEndian)},
	74: {4, buildInt32(binary.BigEndian)},
	75: {8, buildInt64(binary.BigEndian)},
	77: {2, buildInt16(binary.LittleEndian)},
	78: {4, buildInt32(binary.LittleEndian)},
	79: {8, buildInt64(binary.LittleEndian)},
	81: {4, buildFloat32(binary.BigEndian)},
	82: {8, buildFloat64(binary.BigEndian)},
	85: {4, buildFloat32(binary.LittleEndian)},
	86: {8, buildFloat64(binary.LittleEndian)},
}

func (d *decodeState) decodeTypedArray(number uint64, spec typedArraySpec) (any, error) {
	content, err := d.decodeItem()
	if err != nil {
		return nil, err
	}
	payload, ok := content.([]byte)
	if !ok {
		return nil, &TagContentError{Number: number, Reason: fmt.Sprintf("content must be a byte string, not %T", content)}
	}
	if len(payload)%spec.elemSize != 0 {
		return nil, &TagContentError{
			Number: number,
			Reason: fmt.Sprintf("payload of %d bytes is not a multiple of the element size %d", len(payload), spec.elemSize),
		}
	}
	return spec.build(payload), nil
}

func buildInt8(data []byte) any {
	out := make([]int8, len(data))
	for i, b := range data {
		out[i] = int8(b)
	}
	return out
}

func buildUint16(order binary.ByteOrder) func([]byte) any {
	return func(data []byte) any {
		out := make([]uint16, len(data)/2)
		for i := range out {
			out[i] = order.Uint16(data[i*2:])
		}
		return out
	}
}

func buildUint32(order binary.ByteOrder) func([]byte) any {
	return func(data []byte) any {
		out := make([]uint32, len(data)/4)
		for i := range out {
			out[i] = order.Uint32(data[i*4:])
		}
		return out
	}
}

func buildUint64(order binary.ByteOrder) func([]byte) any {
	return func(data []byte) any {
		out := make([]uint64, len(data)/8)
		for i := range out {
			out[i] = order.Uint64(data[i*8:])
		}
		return out
	}
}

func buildInt16(order binary.ByteOrder) func([]byte) any {
	return func(data []byte) any {
		out := make([]int16, len(data)/2)
		for i := range out {
			out[i] = int16(order.Uint16(data[i*2:]))
		}
		return out
	}
}

func buildInt32(order binary.ByteOrder) func([]byte) any {
	return func(data []byte) any {
		out := make([]int32, len(data)/4)
		for i := range out {
			out[i] = int32(order.Uint32(data[i*4:]))
		}
		return out
	}
}

func buildInt64(order binary.ByteOrder) func([]byte) any {
	return func(data []byte) any {
		out := make([]int64, len(data)/8)
		for i := range out {
			out[i] = int64(order.Uint64(data[i*8:]))
		}
		return out
	}
}

func buildFloat32(order binary.ByteOrder) func([]byte) any {
	return func(data []byte) any {
		out := make([]float32, len(data)/4)
		for i := range out {
			out[i] = math.Float32frombits(order.Uint32(data[i*4:]))
		}
		return out
	}
}

func buildFloat64(order binary.ByteOrder) func([]byte) any {
	return func(data []byte) any {
		out := make([]float64, len(data)/8)
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(data[i*8:]))
		}
		return out
	}
}
