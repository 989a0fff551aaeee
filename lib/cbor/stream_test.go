// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cbor

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"
)

// collectEvents drains a stream until io.EOF, failing the test on any
// other error.
func collectEvents(t *testing.T, s *Stream) []Event {
	t.Helper()
	var events []Event
	for {
		event, err := s.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, event)
	}
}

func newTestStream(t *testing.T, hexInput string) *Stream {
	t.Helper()
	return NewStream(bytes.NewReader(mustHex(t, hexInput)))
}

func TestStreamNestedArrays(t *testing.T) {
	got := collectEvents(t, newTestStream(t, "8301820203820405"))
	want := []Event{
		{Kind: EventBeginArray, Length: 3},
		{Kind: EventScalar, Value: int64(1)},
		{Kind: EventBeginArray, Length: 2},
		{Kind: EventScalar, Value: int64(2)},
		{Kind: EventScalar, Value: int64(3)},
		{Kind: EventEnd},
		{Kind: EventBeginArray, Length: 2},
		{Kind: EventScalar, Value: int64(4)},
		{Kind: EventScalar, Value: int64(5)},
		{Kind: EventEnd},
		{Kind: EventEnd},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %#v, want %#v", got, want)
	}
}

func TestStreamMaps(t *testing.T) {
	got := collectEvents(t, newTestStream(t, "a201020304"))
	want := []Event{
		{Kind: EventBeginMap, Length: 2},
		{Kind: EventScalar, Value: int64(1)},
		{Kind: EventScalar, Value: int64(2)},
		{Kind: EventScalar, Value: int64(3)},
		{Kind: EventScalar, Value: int64(4)},
		{Kind: EventEnd},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %#v, want %#v", got, want)
	}

	got = collectEvents(t, newTestStream(t, "bf0102ff"))
	want = []Event{
		{Kind: EventBeginMap, Length: -1},
		{Kind: EventScalar, Value: int64(1)},
		{Kind: EventScalar, Value: int64(2)},
		{Kind: EventEnd},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("indefinite events = %#v, want %#v", got, want)
	}
	if !want[0].Indefinite() {
		t.Fatalf("Indefinite() = false for length -1")
	}
}

func TestStreamIndefiniteStrings(t *testing.T) {
	got := collectEvents(t, newTestStream(t, "7f61616162ff"))
	want := []Event{
		{Kind: EventBeginText},
		{Kind: EventScalar, Value: "a"},
		{Kind: EventScalar, Value: "b"},
		{Kind: EventEnd},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %#v, want %#v", got, want)
	}

	got = collectEvents(t, newTestStream(t, "5f4201024103ff"))
	if len(got) != 4 || got[0].Kind != EventBeginBytes {
		t.Fatalf("events = %#v", got)
	}
	if !bytes.Equal(got[1].Value.([]byte), []byte{1, 2}) {
		t.Fatalf("first chunk = %#v", got[1].Value)
	}
}

func TestStreamTags(t *testing.T) {
	// Tags are reported structurally, never interpreted.
	got := collectEvents(t, newTestStream(t, "c11a514b67b0"))
	want := []Event{
		{Kind: EventTag, Number: 1},
		{Kind: EventScalar, Value: int64(1363896240)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %#v, want %#v", got, want)
	}

	// A tagged item inside an array counts as one element.
	got = collectEvents(t, newTestStream(t, "82c00102"))
	want = []Event{
		{Kind: EventBeginArray, Length: 2},
		{Kind: EventTag, Number: 0},
		{Kind: EventScalar, Value: int64(1)},
		{Kind: EventScalar, Value: int64(2)},
		{Kind: EventEnd},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %#v, want %#v", got, want)
	}

	// Nested tags close together with their content.
	got = collectEvents(t, newTestStream(t, "d9d9f7c24101"))
	want = []Event{
		{Kind: EventTag, Number: 55799},
		{Kind: EventTag, Number: 2},
		{Kind: EventScalar, Value: []byte{1}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %#v, want %#v", got, want)
	}
}

func TestStreamSequence(t *testing.T) {
	s := newTestStream(t, "01616180")
	got := collectEvents(t, s)
	want := []Event{
		{Kind: EventScalar, Value: int64(1)},
		{Kind: EventScalar, Value: "a"},
		{Kind: EventBeginArray, Length: 0},
		{Kind: EventEnd},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %#v, want %#v", got, want)
	}
	if s.InputOffset() != 4 {
		t.Fatalf("InputOffset = %d, want 4", s.InputOffset())
	}
}

func TestStreamBreakInValuePosition(t *testing.T) {
	s := newTestStream(t, "bf01ff")
	if _, err := s.Next(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := s.Next(); err != nil {
		t.Fatalf("key: %v", err)
	}
	_, err := s.Next()
	var misplaced *MisplacedBreakError
	if !errors.As(err, &misplaced) {
		t.Fatalf("got %v, want MisplacedBreakError", err)
	}
}

func TestStreamMisplacedBreakTopLevel(t *testing.T) {
	_, err := newTestStream(t, "ff").Next()
	var misplaced *MisplacedBreakError
	if !errors.As(err, &misplaced) {
		t.Fatalf("got %v, want MisplacedBreakError", err)
	}
}

func TestStreamBadChunk(t *testing.T) {
	s := newTestStream(t, "7f4161ff")
	if _, err := s.Next(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, err := s.Next()
	var bad *BadInitialByteError
	if !errors.As(err, &bad) {
		t.Fatalf("got %v, want BadInitialByteError", err)
	}
	if bad.Context != "indefinite-length text string" {
		t.Fatalf("context = %q", bad.Context)
	}
}

func TestStreamErrorIsSticky(t *testing.T) {
	s := newTestStream(t, "ff00")
	_, first := s.Next()
	if first == nil {
		t.Fatalf("expected an error")
	}
	_, second := s.Next()
	if second != first {
		t.Fatalf("error not sticky: %v then %v", first, second)
	}
}

func TestStreamTruncation(t *testing.T) {
	s := newTestStream(t, "8301")
	if _, err := s.Next(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := s.Next(); err != nil {
		t.Fatalf("element: %v", err)
	}
	_, err := s.Next()
	if err == io.EOF || !errors.Is(err, ErrIllFormed) {
		t.Fatalf("got %v, want ErrIllFormed", err)
	}
}

func TestStreamDepthLimit(t *testing.T) {
	dm, err := DecOptions{MaxNestingDepth: 2}.DecMode()
	if err != nil {
		t.Fatalf("DecMode: %v", err)
	}
	s := dm.NewStream(bytes.NewReader(mustHex(t, "81818100")))
	if _, err := s.Next(); err != nil {
		t.Fatalf("depth 1: %v", err)
	}
	if _, err := s.Next(); err != nil {
		t.Fatalf("depth 2: %v", err)
	}
	_, err = s.Next()
	var depth *DepthError
	if !errors.As(err, &depth) || depth.Limit != 2 {
		t.Fatalf("got %v, want DepthError{2}", err)
	}
}

func TestStreamDepth(t *testing.T) {
	s := newTestStream(t, "81a16161820102")
	depths := []int{1, 2, 2, 3}
	for i, want := range depths {
		if _, err := s.Next(); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if got := s.Depth(); got != want {
			t.Fatalf("after event %d: Depth = %d, want %d", i, got, want)
		}
	}
}

func TestStreamRejectIndefiniteLength(t *testing.T) {
	dm, err := DecOptions{RejectIndefiniteLength: true}.DecMode()
	if err != nil {
		t.Fatalf("DecMode: %v", err)
	}
	for _, s := range []string{"9f", "bf", "5f", "7f"} {
		_, err := dm.NewStream(bytes.NewReader(mustHex(t, s))).Next()
		var indefinite *IndefiniteLengthError
		if !errors.As(err, &indefinite) {
			t.Errorf("Next(%s): got %v, want IndefiniteLengthError", s, err)
		}
	}
}
