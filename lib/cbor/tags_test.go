// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cbor

import (
	"errors"
	"math/big"
	"net/netip"
	"reflect"
	"testing"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
)

func TestDecodeDateTimeText(t *testing.T) {
	got, ok := decodeHex(t, "c074323031332d30332d32315432303a30343a30305a").(time.Time)
	if !ok {
		t.Fatalf("not a time.Time")
	}
	want := time.Date(2013, 3, 21, 20, 4, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	for _, s := range []string{"c001", "c06161"} {
		_, err := Decode(mustHex(t, s))
		var content *TagContentError
		if !errors.As(err, &content) || content.Number != 0 {
			t.Errorf("Decode(%s): got %v, want TagContentError for tag 0", s, err)
		}
	}
}

func TestDecodeEpochTime(t *testing.T) {
	tests := []struct {
		hex  string
		want time.Time
	}{
		{"c11a514b67b0", time.Unix(1363896240, 0)},
		{"c1fb41d452d9ec200000", time.Unix(1363896240, 500000000)},
		{"c120", time.Unix(-1, 0)},
	}
	for _, tt := range tests {
		got, ok := decodeHex(t, tt.hex).(time.Time)
		if !ok {
			t.Errorf("Decode(%s): not a time.Time", tt.hex)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Decode(%s) = %v, want %v", tt.hex, got, tt.want)
		}
	}

	// Non-finite floats, timestamps beyond int64 seconds, and
	// non-numeric content are rejected.
	for _, s := range []string{"c1fb7ff0000000000000", "c1fb7ff8000000000000", "c11bffffffffffffffff", "c16161"} {
		_, err := Decode(mustHex(t, s))
		var content *TagContentError
		if !errors.As(err, &content) || content.Number != 1 {
			t.Errorf("Decode(%s): got %v, want TagContentError for tag 1", s, err)
		}
	}
}

func TestDecodeBigNumCollapse(t *testing.T) {
	tests := []struct {
		hex  string
		want any
	}{
		{"c24101", int64(1)},
		{"c34108", int64(-9)},
		{"c248ffffffffffffffff", uint64(1<<64 - 1)},
		{"c249010000000000000000", new(big.Int).Lsh(bigOne, 64)},
		{"c349010000000000000000", new(big.Int).Neg(new(big.Int).Add(new(big.Int).Lsh(bigOne, 64), bigOne))},
	}
	for _, tt := range tests {
		got := decodeHex(t, tt.hex)
		if want, ok := tt.want.(*big.Int); ok {
			b, isBig := got.(*big.Int)
			if !isBig || b.Cmp(want) != 0 {
				t.Errorf("Decode(%s) = %v (%T), want %v", tt.hex, got, got, want)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("Decode(%s) = %v (%T), want %v (%T)", tt.hex, got, got, tt.want, tt.want)
		}
	}
}

func TestDecodeBigNumRetain(t *testing.T) {
	dm, err := DecOptions{BigNums: BigNumRetain}.DecMode()
	if err != nil {
		t.Fatalf("DecMode: %v", err)
	}
	got, err := dm.Decode(mustHex(t, "c24101"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	retained, ok := got.(*BigNum)
	if !ok || retained.Value.Int64() != 1 {
		t.Fatalf("got %v (%T), want *BigNum{1}", got, got)
	}

	// A retained bignum key never collides with the plain integer of
	// the same value.
	if _, err := dm.Decode(mustHex(t, "a2016161c241016162")); err != nil {
		t.Fatalf("map {1: ..., 2(h'01'): ...} under retain: %v", err)
	}
}

func TestDecodeBigNumDuplicateKeyUnderCollapse(t *testing.T) {
	// With collapse (the default), 2(h'01') and 1 are the same key.
	_, err := Decode(mustHex(t, "a2016161c241016162"))
	var dup *DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("got %v, want DuplicateKeyError", err)
	}
}

func TestDecodeDecimalAndBigFloat(t *testing.T) {
	got, ok := decodeHex(t, "c48221196ab3").(*Decimal)
	if !ok {
		t.Fatalf("not a *Decimal")
	}
	if got.Exponent != -2 || got.Mantissa.Int64() != 27315 {
		t.Fatalf("decimal = %+v, want {-2 27315}", got)
	}

	bf, ok := decodeHex(t, "c5822003").(*BigFloat)
	if !ok {
		t.Fatalf("not a *BigFloat")
	}
	if bf.Exponent != -1 || bf.Mantissa.Int64() != 3 {
		t.Fatalf("bigfloat = %+v, want {-1 3}", bf)
	}

	// Wrong arity, and an exponent that does not fit int64.
	for _, s := range []string{"c48101", "c4821bffffffffffffffff01", "c401"} {
		_, err := Decode(mustHex(t, s))
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("Decode(%s): got %v, want ErrInvalid", s, err)
		}
	}
}

func TestDecodeRational(t *testing.T) {
	got, ok := decodeHex(t, "d81e820103").(*big.Rat)
	if !ok {
		t.Fatalf("not a *big.Rat")
	}
	if got.Cmp(big.NewRat(1, 3)) != 0 {
		t.Fatalf("got %v, want 1/3", got)
	}

	// SetFrac normalizes: 2/4 decodes as 1/2.
	if got := decodeHex(t, "d81e820204").(*big.Rat); got.Cmp(big.NewRat(1, 2)) != 0 {
		t.Fatalf("got %v, want 1/2", got)
	}

	// Zero and negative denominators are invalid, as is a non-pair.
	for _, s := range []string{"d81e820100", "d81e820120", "d81e01"} {
		_, err := Decode(mustHex(t, s))
		var content *TagContentError
		if !errors.As(err, &content) || content.Number != 30 {
			t.Errorf("Decode(%s): got %v, want TagContentError for tag 30", s, err)
		}
	}
}

func TestDecodeRegexp(t *testing.T) {
	re, ok := decodeHex(t, "d82363612e62").(*regexp2.Regexp)
	if !ok {
		t.Fatalf("not a compiled pattern")
	}
	if re.String() != "a.b" {
		t.Fatalf("pattern = %q, want a.b", re.String())
	}
	if match, err := re.MatchString("axb"); err != nil || !match {
		t.Fatalf("MatchString(axb) = %v, %v", match, err)
	}

	// An unbalanced group is the engine's error, surfaced unwrapped.
	if _, err := Decode(mustHex(t, "d8236128")); err == nil {
		t.Fatalf("expected a compile error")
	}

	_, err := Decode(mustHex(t, "d82301"))
	var content *TagContentError
	if !errors.As(err, &content) || content.Number != 35 {
		t.Fatalf("non-text pattern: got %v, want TagContentError for tag 35", err)
	}
}

func TestDecodeUUID(t *testing.T) {
	got, ok := decodeHex(t, "d82550000102030405060708090a0b0c0d0e0f").(uuid.UUID)
	if !ok {
		t.Fatalf("not a uuid.UUID")
	}
	if got != uuid.MustParse("00010203-0405-0607-0809-0a0b0c0d0e0f") {
		t.Fatalf("got %v", got)
	}

	_, err := Decode(mustHex(t, "d8254101"))
	var content *TagContentError
	if !errors.As(err, &content) || content.Number != 37 {
		t.Fatalf("got %v, want TagContentError for tag 37", err)
	}
}

func TestDecodeTypedArrays(t *testing.T) {
	tests := []struct {
		hex  string
		want any
	}{
		{"d84043010203", Uint8Array{1, 2, 3}},
		{"d8414400010002", []uint16{1, 2}},
		{"d8454401000200", []uint16{1, 2}},
		{"d8424800000001000000ff", []uint32{1, 255}},
		{"d843480000000000000100", []uint64{256}},
		{"d84842ff01", []int8{-1, 1}},
		{"d84944fffe0001", []int16{-2, 1}},
		{"d851443fc00000", []float32{1.5}},
		{"d85648000000000000f83f", []float64{1.5}},
	}
	for _, tt := range tests {
		got := decodeHex(t, tt.hex)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Decode(%s) = %#v, want %#v", tt.hex, got, tt.want)
		}
	}

	// Payload not a multiple of the element width, and non-bytes
	// content.
	for _, s := range []string{"d8414100", "d84101"} {
		_, err := Decode(mustHex(t, s))
		var content *TagContentError
		if !errors.As(err, &content) || content.Number != 65 {
			t.Errorf("Decode(%s): got %v, want TagContentError for tag 65", s, err)
		}
	}
}

func TestDecodeUnhandledTypedArrayTags(t *testing.T) {
	// Half-float and clamped typed arrays fall through to generic Tag.
	got, ok := decodeHex(t, "d850423c00").(*Tag)
	if !ok || got.Number != 80 {
		t.Fatalf("got %#v, want *Tag{80, ...}", got)
	}
	if !reflect.DeepEqual(got.Content, []byte{0x3c, 0x00}) {
		t.Fatalf("content = %#v", got.Content)
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	got, ok := decodeHex(t, "d9270f6161").(*Tag)
	if !ok {
		t.Fatalf("not a *Tag")
	}
	if got.Number != 9999 || got.Content != "a" {
		t.Fatalf("got %#v", got)
	}
}

func TestDecodeSet(t *testing.T) {
	got, ok := decodeHex(t, "d9010283010203").(*Set)
	if !ok {
		t.Fatalf("not a *Set")
	}
	if !reflect.DeepEqual(got.Elements, []any{int64(1), int64(2), int64(3)}) {
		t.Fatalf("elements = %#v", got.Elements)
	}

	_, err := Decode(mustHex(t, "d9010283010201"))
	var dup *DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("duplicate member: got %v, want DuplicateKeyError", err)
	}

	_, err = Decode(mustHex(t, "d9010201"))
	var content *TagContentError
	if !errors.As(err, &content) || content.Number != 258 {
		t.Fatalf("non-array content: got %v, want TagContentError for tag 258", err)
	}
}

func TestDecodeIPAddr(t *testing.T) {
	if got := decodeHex(t, "d9010444c0a80001"); got != netip.MustParseAddr("192.168.0.1") {
		t.Fatalf("got %v", got)
	}
	v6 := "d9010450" + "20010db8000000000000000000000001"
	if got := decodeHex(t, v6); got != netip.MustParseAddr("2001:db8::1") {
		t.Fatalf("got %v", got)
	}

	_, err := Decode(mustHex(t, "d90104420102"))
	var content *TagContentError
	if !errors.As(err, &content) || content.Number != 260 {
		t.Fatalf("got %v, want TagContentError for tag 260", err)
	}
}

func TestDecodeIPPrefix(t *testing.T) {
	got := decodeHex(t, "d90105a144c0a800001818")
	if got != netip.MustParsePrefix("192.168.0.0/24") {
		t.Fatalf("got %v", got)
	}

	// Prefix length past the address width, and non-map content.
	for _, s := range []string{"d90105a144c0a800001821", "d9010501"} {
		_, err := Decode(mustHex(t, s))
		var content *TagContentError
		if !errors.As(err, &content) || content.Number != 261 {
			t.Errorf("Decode(%s): got %v, want TagContentError for tag 261", s, err)
		}
	}
}

func TestDecodeOrderedMap(t *testing.T) {
	got, ok := decodeHex(t, "d90110a203040102").(*Map)
	if !ok {
		t.Fatalf("not a *Map")
	}
	if !got.Ordered {
		t.Fatalf("Ordered not set")
	}
	if got.Entries[0].Key != int64(3) || got.Entries[1].Key != int64(1) {
		t.Fatalf("entries out of order: %#v", got.Entries)
	}
}

func TestDecodeSharedValues(t *testing.T) {
	// [28([1, 29(0)])]: the inner array contains itself.
	cycle, ok := decodeHex(t, "d81c8201d81d00").(*List)
	if !ok {
		t.Fatalf("not a *List")
	}
	if len(cycle.Items) != 2 || cycle.Items[0] != int64(1) {
		t.Fatalf("items = %#v", cycle.Items)
	}
	if cycle.Items[1] != any(cycle) {
		t.Fatalf("self reference did not resolve to the enclosing list")
	}

	// [28({1: "a"}), 29(0)]: both elements are the same map.
	pair := decodeHex(t, "82d81ca1016161d81d00").(*List)
	first, second := pair.Items[0].(*Map), pair.Items[1].(*Map)
	if first != second {
		t.Fatalf("reference produced a distinct map")
	}

	// Scalar sharing registers after decode.
	shared := decodeHex(t, "82d81c6161d81d00").(*List)
	if shared.Items[0] != "a" || shared.Items[1] != "a" {
		t.Fatalf("items = %#v", shared.Items)
	}
}

func TestDecodeSharedRefUnknown(t *testing.T) {
	for _, s := range []string{"d81d00", "d81cd81d00", "82d81c01d81d01"} {
		_, err := Decode(mustHex(t, s))
		var unknown *UnknownSharedRefError
		if !errors.As(err, &unknown) {
			t.Errorf("Decode(%s): got %v, want UnknownSharedRefError", s, err)
		}
	}
}

func TestDecodeCustomTagDecoder(t *testing.T) {
	type temperature struct{ celsius int64 }
	dm, err := DecOptions{
		TagDecoders: map[uint64]TagDecoderFunc{
			// Override a built-in.
			2: func(content ContentReader, number uint64) (any, error) {
				return content.ReadItem()
			},
			// Handle a private tag.
			4000: func(content ContentReader, number uint64) (any, error) {
				value, err := content.ReadItem()
				if err != nil {
					return nil, err
				}
				n, ok := value.(int64)
				if !ok {
					return nil, &TagContentError{Number: number, Reason: "expected an integer"}
				}
				return temperature{celsius: n}, nil
			},
		},
	}.DecMode()
	if err != nil {
		t.Fatalf("DecMode: %v", err)
	}

	got, err := dm.Decode(mustHex(t, "c24101"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, []byte{1}) {
		t.Fatalf("override produced %#v, want raw payload", got)
	}

	got, err = dm.Decode(mustHex(t, "d90fa015"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != (temperature{celsius: 21}) {
		t.Fatalf("got %#v", got)
	}
}
