// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func encodeHexOut(t *testing.T, jsonInput string) string {
	t.Helper()
	var out bytes.Buffer
	if err := encodeFromJSON([]byte(jsonInput), &out, true); err != nil {
		t.Fatalf("encodeFromJSON(%s): %v", jsonInput, err)
	}
	return strings.TrimRight(out.String(), "\n")
}

func TestEncodeFromJSON(t *testing.T) {
	tests := []struct {
		json string
		want string
	}{
		{"0", "00"},
		{"23", "17"},
		{"24", "1818"},
		{"-1", "20"},
		{"1.5", "f93e00"},
		{"1.1", "fb3ff199999999999a"},
		{"true", "f5"},
		{"false", "f4"},
		{"null", "f6"},
		{`"IETF"`, "6449455446"},
		{"[1,[2,3]]", "8301820203"},
		{"[]", "80"},
		{"{}", "a0"},
		// Deterministic output: keys sort regardless of JSON order.
		{`{"b":2,"a":1}`, "a2616101616202"},
		{`{"zz":1,"a":{"y":2,"x":3}}`, "a26161a2617803617902627a7a01"},
	}
	for _, tt := range tests {
		if got := encodeHexOut(t, tt.json); got != tt.want {
			t.Errorf("encode %s = %s, want %s", tt.json, got, tt.want)
		}
	}
}

func TestEncodeFromJSONSequence(t *testing.T) {
	// A stream of JSON values becomes a CBOR sequence.
	if got := encodeHexOut(t, "1 \"a\" [2]"); got != "0161618102" {
		t.Fatalf("got %s", got)
	}
}

func TestEncodeFromJSONBinaryOutput(t *testing.T) {
	var out bytes.Buffer
	if err := encodeFromJSON([]byte("[1,2,3]"), &out, false); err != nil {
		t.Fatalf("encodeFromJSON: %v", err)
	}
	if hex.EncodeToString(out.Bytes()) != "83010203" {
		t.Fatalf("got %x", out.Bytes())
	}
}

func TestEncodeFromJSONErrors(t *testing.T) {
	var out bytes.Buffer
	if err := encodeFromJSON(nil, &out, true); err == nil {
		t.Fatalf("empty input accepted")
	}
	if err := encodeFromJSON([]byte("{"), &out, true); err == nil {
		t.Fatalf("malformed JSON accepted")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	// JSON -> CBOR -> JSON is stable for JSON-native values.
	source := `{"b":[1,2.5,"x"],"a":null}`
	var encoded bytes.Buffer
	if err := encodeFromJSON([]byte(source), &encoded, false); err != nil {
		t.Fatalf("encodeFromJSON: %v", err)
	}
	var decoded bytes.Buffer
	if err := decodeToJSON(encoded.Bytes(), &decoded, true, false); err != nil {
		t.Fatalf("decodeToJSON: %v", err)
	}
	if got := strings.TrimRight(decoded.String(), "\n"); got != `{"a":null,"b":[1,2.5,"x"]}` {
		t.Fatalf("got %s", got)
	}
}
