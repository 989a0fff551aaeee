// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/bureau-foundation/cborx/lib/cbor"
)

func fromHex(t *testing.T, s string) []byte {
	t.Helper()
	data, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return data
}

func decodeCompact(t *testing.T, hexInput string) string {
	t.Helper()
	var out bytes.Buffer
	if err := decodeToJSON(fromHex(t, hexInput), &out, true, false); err != nil {
		t.Fatalf("decodeToJSON(%s): %v", hexInput, err)
	}
	return strings.TrimRight(out.String(), "\n")
}

func TestDecodeToJSON(t *testing.T) {
	tests := []struct {
		hex  string
		want string
	}{
		{"00", "0"},
		{"20", "-1"},
		{"6161", `"a"`},
		{"f5", "true"},
		{"f6", "null"},
		{"83010203", "[1,2,3]"},
		{"a26161016162820203", `{"a":1,"b":[2,3]}`},
		// Non-string keys render through diagnostic notation.
		{"a201020304", `{"1":2,"3":4}`},
		{"a18201026161", `{"[1, 2]":"a"}`},
		// Undefined has no JSON counterpart.
		{"f7", "null"},
		// Non-finite floats use the notation names.
		{"f97e00", `"NaN"`},
		{"f97c00", `"Infinity"`},
		{"f9fc00", `"-Infinity"`},
		{"f93e00", "1.5"},
		// Byte strings take encoding/json's base64 form.
		{"4401020304", `"AQIDBA=="`},
		// Unknown tags wrap as tag/value objects.
		{"d9270f6161", `{"tag":9999,"value":"a"}`},
		// Sets flatten to arrays.
		{"d9010283010203", "[1,2,3]"},
	}
	for _, tt := range tests {
		if got := decodeCompact(t, tt.hex); got != tt.want {
			t.Errorf("decode %s = %s, want %s", tt.hex, got, tt.want)
		}
	}
}

func TestDecodeToJSONCycle(t *testing.T) {
	// A self-referential shared list terminates with an ellipsis.
	if got := decodeCompact(t, "d81c8201d81d00"); got != `[1,"..."]` {
		t.Fatalf("got %s", got)
	}
}

func TestDecodeToJSONSlurp(t *testing.T) {
	var out bytes.Buffer
	if err := decodeToJSON(fromHex(t, "016161f5"), &out, true, true); err != nil {
		t.Fatalf("decodeToJSON: %v", err)
	}
	if got := strings.TrimRight(out.String(), "\n"); got != `[1,"a",true]` {
		t.Fatalf("got %s", got)
	}
}

func TestDecodeToJSONPretty(t *testing.T) {
	var out bytes.Buffer
	if err := decodeToJSON(fromHex(t, "a1616101"), &out, false, false); err != nil {
		t.Fatalf("decodeToJSON: %v", err)
	}
	want := "{\n  \"a\": 1\n}\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestDecodeToJSONErrors(t *testing.T) {
	var out bytes.Buffer
	if err := decodeToJSON(nil, &out, true, false); err == nil {
		t.Fatalf("empty input accepted")
	}
	if err := decodeToJSON(fromHex(t, "8301"), &out, true, false); err == nil {
		t.Fatalf("truncated input accepted")
	}
	if err := decodeToJSON(fromHex(t, "0102"), &out, true, false); err == nil {
		t.Fatalf("trailing data accepted without -s")
	}
}

func TestJSONKey(t *testing.T) {
	tests := []struct {
		key  any
		want string
	}{
		{"plain", "plain"},
		{int64(1), "1"},
		{int64(-7), "-7"},
		{true, "true"},
		{cbor.NewList(int64(1), int64(2)), "[1, 2]"},
	}
	for _, tt := range tests {
		if got := jsonKey(tt.key); got != tt.want {
			t.Errorf("jsonKey(%v) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
