// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cbor

import (
	"bytes"
	"testing"

	fxcbor "github.com/fxamacker/cbor/v2"
)

// The deterministic profile must agree byte for byte with an
// independent implementation of RFC 8949 core deterministic encoding.
func TestInteropDeterministicAgreement(t *testing.T) {
	ref, err := fxcbor.CoreDetEncOptions().EncMode()
	if err != nil {
		t.Fatalf("reference mode: %v", err)
	}
	em, err := DeterministicEncOptions().EncMode()
	if err != nil {
		t.Fatalf("EncMode: %v", err)
	}

	values := []any{
		int64(0),
		int64(23),
		int64(24),
		int64(-1000),
		uint64(1<<64 - 1),
		"IETF",
		"",
		[]byte{1, 2, 3},
		true,
		false,
		nil,
		0.0,
		1.5,
		1.1,
		100000.0,
		[]any{int64(1), []any{int64(2), int64(3)}},
		map[string]any{"a": int64(1), "zz": false, "b": "x"},
	}
	for _, value := range values {
		mine, err := em.Marshal(value)
		if err != nil {
			t.Errorf("Marshal(%v): %v", value, err)
			continue
		}
		want, err := ref.Marshal(value)
		if err != nil {
			t.Errorf("reference Marshal(%v): %v", value, err)
			continue
		}
		if !bytes.Equal(mine, want) {
			t.Errorf("Marshal(%v) = %x, reference = %x", value, mine, want)
		}
	}
}

// Output of the reference encoder decodes cleanly, and re-encoding
// deterministically reproduces it.
func TestInteropDecodeReferenceOutput(t *testing.T) {
	ref, err := fxcbor.CoreDetEncOptions().EncMode()
	if err != nil {
		t.Fatalf("reference mode: %v", err)
	}
	data, err := ref.Marshal(map[string]any{
		"name":  "cborx",
		"count": int64(3),
		"tags":  []any{"a", "b"},
	})
	if err != nil {
		t.Fatalf("reference Marshal: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m, ok := decoded.(*Map)
	if !ok {
		t.Fatalf("decoded %T, want *Map", decoded)
	}
	if name, _ := m.Get("name"); name != "cborx" {
		t.Fatalf("name = %v", name)
	}
	if count, _ := m.Get("count"); count != int64(3) {
		t.Fatalf("count = %v", count)
	}

	em, err := DeterministicEncOptions().EncMode()
	if err != nil {
		t.Fatalf("EncMode: %v", err)
	}
	again, err := em.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Fatalf("re-encode = %x, reference = %x", again, data)
	}
}
