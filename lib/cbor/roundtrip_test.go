// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cbor

import (
	"encoding/hex"
	"testing"
)

// Decoding arbitrary well-formed input and re-encoding under the
// deterministic profile must normalize it: minimal widths, shortest
// floats, sorted keys, definite lengths.
func TestDeterministicNormalization(t *testing.T) {
	em, err := DeterministicEncOptions().EncMode()
	if err != nil {
		t.Fatalf("EncMode: %v", err)
	}
	tests := []struct {
		in   string
		want string
	}{
		// Over-wide integer headers shrink.
		{"1900ff", "18ff"},
		{"1b0000000000000001", "01"},
		{"3900e7", "38e7"},
		// Over-wide floats narrow.
		{"fb3ff8000000000000", "f93e00"},
		{"fa3fc00000", "f93e00"},
		{"fb40f86a0000000000", "fa47c35000"},
		// Non-canonical NaN collapses.
		{"fb7ff8000000000001", "f97e00"},
		// Indefinite lengths realize.
		{"9f0102ff", "820102"},
		{"5f4201024103ff", "43010203"},
		{"7f61616162ff", "626162"},
		{"bf03040102ff", "a201020304"},
		// Map keys sort bytewise.
		{"a2036161016162", "a2016162036161"},
		// Set members sort.
		{"d9010283030102", "d9010283010203"},
		// Nested structure normalizes throughout.
		{"a19f1b0000000000000002fffb4000000000000000", "a18102f94000"},
	}
	for _, tt := range tests {
		value, err := Decode(mustHex(t, tt.in))
		if err != nil {
			t.Errorf("Decode(%s): %v", tt.in, err)
			continue
		}
		data, err := em.Marshal(value)
		if err != nil {
			t.Errorf("Marshal(%s): %v", tt.in, err)
			continue
		}
		if got := hex.EncodeToString(data); got != tt.want {
			t.Errorf("normalize(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

// The deterministic profile is a fixpoint: its own output passes the
// strict decoding policies and re-encodes to itself.
func TestDeterministicFixpoint(t *testing.T) {
	em, err := DeterministicEncOptions().EncMode()
	if err != nil {
		t.Fatalf("EncMode: %v", err)
	}
	dm, err := DeterministicDecOptions().DecMode()
	if err != nil {
		t.Fatalf("DecMode: %v", err)
	}

	values := []any{
		int64(1000),
		"hello",
		1.5,
		NewList(int64(1), "a", NewList()),
		NewSet(int64(3), int64(1), int64(2)),
	}
	m := NewMap()
	m.Set("b", int64(2))
	m.Set("a", NewList(int64(1)))
	values = append(values, m)

	for _, value := range values {
		data, err := em.Marshal(value)
		if err != nil {
			t.Errorf("Marshal(%v): %v", value, err)
			continue
		}
		decoded, err := dm.Decode(data)
		if err != nil {
			t.Errorf("strict Decode(%x): %v", data, err)
			continue
		}
		again, err := em.Marshal(decoded)
		if err != nil {
			t.Errorf("re-Marshal(%x): %v", data, err)
			continue
		}
		if hex.EncodeToString(again) != hex.EncodeToString(data) {
			t.Errorf("fixpoint broken: %x then %x", data, again)
		}
	}
}
