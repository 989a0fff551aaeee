// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cbor

import (
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Diagnose renders data, which must hold exactly one data item, in the
// extended diagnostic notation of RFC 8949 §8.
func Diagnose(data []byte) (string, error) {
	return defaultDecMode.Diagnose(data)
}

// DiagnoseFirst renders the first data item in data and returns the
// remaining bytes.
func DiagnoseFirst(data []byte) (string, []byte, error) {
	return defaultDecMode.DiagnoseFirst(data)
}

// Diagnose renders data, which must hold exactly one data item, in
// extended diagnostic notation. Indefinite-length structure is shown
// with the "_" forms rather than realized away, so the notation
// describes the encoding, not just the value.
func (dm DecMode) Diagnose(data []byte) (string, error) {
	notation, rest, err := dm.DiagnoseFirst(data)
	if err != nil {
		return "", err
	}
	if len(rest) > 0 {
		return "", &UnconsumedDataError{Remaining: len(rest)}
	}
	return notation, nil
}

// DiagnoseFirst renders the first data item in data in extended
// diagnostic notation and returns the remaining bytes of the sequence.
func (dm DecMode) DiagnoseFirst(data []byte) (string, []byte, error) {
	opts := dm.opts
	stream := newBytesStream(data, &opts)
	printer := diagPrinter{}
	for {
		event, err := stream.Next()
		if err == io.EOF {
			return "", nil, &UnexpectedEOFError{Requested: 1, Available: 0}
		}
		if err != nil {
			return "", nil, err
		}
		if printer.event(event) {
			return printer.out.String(), data[stream.InputOffset():], nil
		}
	}
}

// diagFrame is one open bracket group in the printer: an aggregate, an
// indefinite-length string, or a pending tag.
type diagFrame struct {
	kind  EventKind
	count int // items written inside the group
}

// diagPrinter turns the event stream back into notation. It keeps its
// own frame stack because tag content has no closing event; a tag
// closes when the one item after it completes.
type diagPrinter struct {
	out    strings.Builder
	frames []diagFrame
}

// event writes one event and reports whether a complete top-level item
// has been rendered.
func (p *diagPrinter) event(ev Event) bool {
	switch ev.Kind {
	case EventScalar:
		p.separator()
		p.out.WriteString(scalarNotation(ev.Value))
		return p.itemDone()

	case EventTag:
		p.separator()
		p.out.WriteString(strconv.FormatUint(ev.Number, 10))
		p.out.WriteByte('(')
		p.frames = append(p.frames, diagFrame{kind: EventTag})
		return false

	case EventBeginArray:
		p.open(ev, "[", "[_ ")
		return false
	case EventBeginMap:
		p.open(ev, "{", "{_ ")
		return false
	case EventBeginBytes, EventBeginText:
		p.separator()
		p.out.WriteString("(_ ")
		p.frames = append(p.frames, diagFrame{kind: ev.Kind})
		return false

	default: // EventEnd
		top := p.frames[len(p.frames)-1]
		p.frames = p.frames[:len(p.frames)-1]
		switch top.kind {
		case EventBeginArray:
			p.out.WriteByte(']')
		case EventBeginMap:
			p.out.WriteByte('}')
		default:
			p.out.WriteByte(')')
		}
		return p.itemDone()
	}
}

func (p *diagPrinter) open(ev Event, definite, indefinite string) {
	p.separator()
	if ev.Indefinite() {
		p.out.WriteString(indefinite)
	} else {
		p.out.WriteString(definite)
	}
	p.frames = append(p.frames, diagFrame{kind: ev.Kind})
}

// separator writes the punctuation due before the next element of the
// enclosing group: ", " between siblings, ": " between a map key and
// its value.
func (p *diagPrinter) separator() {
	if len(p.frames) == 0 {
		return
	}
	top := p.frames[len(p.frames)-1]
	switch {
	case top.kind == EventBeginMap && top.count%2 == 1:
		p.out.WriteString(": ")
	case top.kind != EventTag && top.count > 0:
		p.out.WriteString(", ")
	}
}

// itemDone closes any tags waiting on the just-finished item and
// credits it to the enclosing group. True means the frame stack is
// empty: a whole top-level item has been rendered.
func (p *diagPrinter) itemDone() bool {
	for len(p.frames) > 0 && p.frames[len(p.frames)-1].kind == EventTag {
		p.frames = p.frames[:len(p.frames)-1]
		p.out.WriteByte(')')
	}
	if len(p.frames) == 0 {
		return true
	}
	p.frames[len(p.frames)-1].count++
	return false
}

func scalarNotation(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case Undefined:
		return "undefined"
	case SimpleValue:
		return "simple(" + strconv.FormatUint(uint64(v), 10) + ")"
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case *big.Int:
		return v.String()
	case float64:
		return floatNotation(v)
	case []byte:
		return "h'" + hex.EncodeToString(v) + "'"
	case string:
		return strconv.Quote(v)
	default:
		// Reachable only through a custom SimpleValueFunc that
		// substituted its own type.
		return fmt.Sprintf("%v", v)
	}
}

// floatNotation prints a float in its shortest decimal form, keeping a
// trailing ".0" on whole numbers so the notation stays visibly a
// float.
func floatNotation(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
