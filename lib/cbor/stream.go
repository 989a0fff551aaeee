// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cbor

import (
	"bytes"
	"io"
	"unicode/utf8"
)

// EventKind identifies one kind of structural event produced by a
// Stream.
type EventKind uint8

const (
	// EventScalar carries one complete non-aggregate value: an
	// integer, float, bool, nil, Undefined, SimpleValue, or a
	// definite-length string. Inside an indefinite-length string it
	// carries one chunk.
	EventScalar EventKind = iota

	// EventBeginArray opens an array; elements follow, then
	// EventEnd.
	EventBeginArray

	// EventBeginMap opens a map; keys and values alternate, then
	// EventEnd.
	EventBeginMap

	// EventBeginBytes opens an indefinite-length byte string; its
	// chunks follow as EventScalar []byte, then EventEnd.
	EventBeginBytes

	// EventBeginText opens an indefinite-length text string; its
	// chunks follow as EventScalar string, then EventEnd.
	EventBeginText

	// EventTag announces a tag number; exactly one data item
	// follows as the content. No closing event is emitted.
	EventTag

	// EventEnd closes the innermost open array, map, or
	// indefinite-length string.
	EventEnd
)

// Event is one structural step of a CBOR item.
type Event struct {
	Kind EventKind

	// Value holds the scalar for EventScalar.
	Value any

	// Number holds the tag number for EventTag.
	Number uint64

	// Length holds the declared element count for EventBeginArray
	// and entry count for EventBeginMap; -1 when indefinite.
	Length int64
}

// Indefinite reports whether the event opens an indefinite-length
// item.
func (ev Event) Indefinite() bool {
	switch ev.Kind {
	case EventBeginBytes, EventBeginText:
		return true
	case EventBeginArray, EventBeginMap:
		return ev.Length < 0
	}
	return false
}

// Stream is a pull-based decoder producing one structural event per
// Next call instead of a realized value tree. It enforces the same
// well-formedness rules and decoding policies as the tree decoder but
// holds no more memory than one scalar at a time, so it suits inputs
// too large or too deep to realize. Tags are reported, never
// interpreted.
//
// A Stream reads a CBOR sequence: after the events of one top-level
// item, the events of the next follow; a clean end of input at a
// top-level boundary is io.EOF. Any error is sticky.
type Stream struct {
	src    *source
	opts   *DecOptions
	frames []streamFrame
	err    error
}

// streamFrame is one open aggregate. For definite maps, remaining
// counts entries and half marks a pending value; counting entries
// rather than items sidesteps doubling a declared count that might not
// fit.
type streamFrame struct {
	major      byte
	indefinite bool
	remaining  uint64
	half       bool
}

// NewStream returns a Stream reading from r.
func (dm DecMode) NewStream(r io.Reader) *Stream {
	opts := dm.opts
	return &Stream{src: newReaderSource(r), opts: &opts}
}

// NewStream returns a Stream reading from r with the default mode.
func NewStream(r io.Reader) *Stream {
	return defaultDecMode.NewStream(r)
}

func newBytesStream(data []byte, opts *DecOptions) *Stream {
	return &Stream{src: newBytesSource(data), opts: opts}
}

// InputOffset returns the number of input bytes consumed so far. At an
// EventEnd of a top-level item it is the exact boundary of that item.
func (s *Stream) InputOffset() int64 { return s.src.off }

// Depth returns the number of currently open aggregates.
func (s *Stream) Depth() int { return len(s.frames) }

// Next returns the next structural event. io.EOF reports a clean end
// of input between top-level items; truncation inside an item is an
// UnexpectedEOFError.
func (s *Stream) Next() (Event, error) {
	if s.err != nil {
		return Event{}, s.err
	}
	event, err := s.next()
	if err != nil {
		s.err = err
		return Event{}, err
	}
	return event, nil
}

func (s *Stream) next() (Event, error) {
	// Close any definite-length frames whose declared count has
	// been consumed. Tag frames close silently; aggregates emit
	// EventEnd, one per call.
	for len(s.frames) > 0 {
		top := &s.frames[len(s.frames)-1]
		if top.indefinite || top.remaining > 0 {
			break
		}
		wasTag := top.major == majorTag
		s.frames = s.frames[:len(s.frames)-1]
		s.itemDone()
		if !wasTag {
			return Event{Kind: EventEnd}, nil
		}
	}

	var h head
	if len(s.frames) == 0 {
		// Top level: distinguish a clean end of the sequence from
		// truncation inside an item.
		initial, err := s.src.readByte()
		if err != nil {
			return Event{}, io.EOF
		}
		h, err = s.src.readHeadAfter(initial, s.opts.RequireMinimalLength)
		if err != nil {
			return Event{}, err
		}
	} else {
		var err error
		h, err = s.src.readHead(s.opts.RequireMinimalLength)
		if err != nil {
			return Event{}, err
		}
	}

	if h.kind == headBreak {
		if len(s.frames) == 0 || !s.frames[len(s.frames)-1].indefinite {
			return Event{}, &MisplacedBreakError{}
		}
		if top := s.frames[len(s.frames)-1]; top.major == majorMap && top.half {
			// Break in value position: the map promised a value
			// for the preceding key.
			return Event{}, &MisplacedBreakError{}
		}
		s.frames = s.frames[:len(s.frames)-1]
		s.itemDone()
		return Event{Kind: EventEnd}, nil
	}

	// Inside an indefinite-length string only matching
	// definite-length chunks (or the break above) may appear.
	if len(s.frames) > 0 {
		top := s.frames[len(s.frames)-1]
		if top.indefinite && (top.major == majorBytes || top.major == majorText) {
			context := "indefinite-length byte string"
			if top.major == majorText {
				context = "indefinite-length text string"
			}
			if h.major != top.major || h.kind != headDefinite {
				return Event{}, &BadInitialByteError{Byte: h.initial, Context: context}
			}
			value, err := s.readString(h)
			if err != nil {
				return Event{}, err
			}
			// Chunks do not count toward any enclosing frame.
			return Event{Kind: EventScalar, Value: value}, nil
		}
	}

	return s.beginItem(h)
}

func (s *Stream) beginItem(h head) (Event, error) {
	switch h.major {
	case majorUnsigned, majorNegative, majorSimple:
		state := decodeState{src: s.src, opts: s.opts, depth: len(s.frames)}
		value, err := state.decodeItemWithHead(h)
		if err != nil {
			return Event{}, err
		}
		s.itemDone()
		return Event{Kind: EventScalar, Value: value}, nil

	case majorBytes, majorText:
		if h.kind == headIndefinite {
			if s.opts.RejectIndefiniteLength {
				return Event{}, &IndefiniteLengthError{What: stringWhat(h.major)}
			}
			if err := s.push(streamFrame{major: h.major, indefinite: true}); err != nil {
				return Event{}, err
			}
			if h.major == majorBytes {
				return Event{Kind: EventBeginBytes}, nil
			}
			return Event{Kind: EventBeginText}, nil
		}
		value, err := s.readString(h)
		if err != nil {
			return Event{}, err
		}
		s.itemDone()
		return Event{Kind: EventScalar, Value: value}, nil

	case majorArray:
		event := Event{Kind: EventBeginArray, Length: -1}
		frame := streamFrame{major: majorArray, indefinite: true}
		if h.kind == headDefinite {
			event.Length = int64(h.arg)
			frame = streamFrame{major: majorArray, remaining: h.arg}
		} else if s.opts.RejectIndefiniteLength {
			return Event{}, &IndefiniteLengthError{What: "array"}
		}
		if err := s.push(frame); err != nil {
			return Event{}, err
		}
		return event, nil

	case majorMap:
		event := Event{Kind: EventBeginMap, Length: -1}
		frame := streamFrame{major: majorMap, indefinite: true}
		if h.kind == headDefinite {
			event.Length = int64(h.arg)
			frame = streamFrame{major: majorMap, remaining: h.arg}
		} else if s.opts.RejectIndefiniteLength {
			return Event{}, &IndefiniteLengthError{What: "map"}
		}
		if err := s.push(frame); err != nil {
			return Event{}, err
		}
		return event, nil

	default: // majorTag
		if err := s.push(streamFrame{major: majorTag, remaining: 1}); err != nil {
			return Event{}, err
		}
		return Event{Kind: EventTag, Number: h.arg}, nil
	}
}

// itemDone credits one completed item to the innermost open frame.
func (s *Stream) itemDone() {
	if len(s.frames) == 0 {
		return
	}
	top := &s.frames[len(s.frames)-1]
	if top.major == majorMap {
		if !top.half {
			top.half = true
			return
		}
		top.half = false
	}
	if !top.indefinite {
		top.remaining--
	}
}

func (s *Stream) push(frame streamFrame) error {
	if len(s.frames) >= s.opts.MaxNestingDepth {
		return &DepthError{Limit: s.opts.MaxNestingDepth}
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *Stream) readString(h head) (any, error) {
	chunk, err := s.src.read(h.arg)
	if err != nil {
		return nil, err
	}
	if h.major == majorText {
		if !utf8.Valid(chunk) {
			return nil, &StringEncodingError{Bytes: bytes.Clone(chunk)}
		}
		return string(chunk), nil
	}
	return bytes.Clone(chunk), nil
}

func stringWhat(major byte) string {
	if major == majorText {
		return "text string"
	}
	return "byte string"
}
