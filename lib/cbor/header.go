// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cbor

import (
	"encoding/binary"
	"io"
	"strconv"
)

// CBOR major types (top 3 bits of the initial byte).
const (
	majorUnsigned byte = 0 // unsigned integer
	majorNegative byte = 1 // negative integer
	majorBytes    byte = 2 // byte string
	majorText     byte = 3 // text string (UTF-8)
	majorArray    byte = 4 // array
	majorMap      byte = 5 // map
	majorTag      byte = 6 // semantic tag
	majorSimple   byte = 7 // simple values, floats, break
)

// Argument values (bottom 5 bits of the initial byte). 0-23 carry the
// argument inline; 24-27 select a 1/2/4/8 byte big-endian argument;
// 28-30 are reserved; 31 marks indefinite length (or break).
const (
	argMaxInline   = 23
	argUint8       = 24
	argUint16      = 25
	argUint32      = 26
	argUint64      = 27
	argIndefinite  = 31
	breakByte      = 0xff
	simpleFalse    = 20
	simpleTrue     = 21
	simpleNull     = 22
	simpleUndef    = 23
	simpleExtra    = 24 // simple value in the following byte
	simpleFloat16  = 25
	simpleFloat32  = 26
	simpleFloat64  = 27
	minExtraSimple = 32 // smallest simple value legal in two-byte form
)

// headKind distinguishes the three outcomes of reading an item header.
// Break surfaces as an explicit kind rather than an error or sentinel
// so that indefinite-length loops stay on the non-error path.
type headKind uint8

const (
	headDefinite headKind = iota
	headIndefinite
	headBreak
)

// head is one decoded item header. For major type 7 with argument
// widths 25-27, arg carries the raw float bits, not a length. The
// initial byte is retained for error reporting and so that major type
// 7 handlers can recover the argument width.
type head struct {
	initial byte
	major   byte
	arg     uint64
	kind    headKind
}

// source reads exactly-sized chunks from an underlying byte stream and
// reports truncation with both the requested and available counts. It
// tracks the number of bytes consumed so that sequence-oriented
// callers can resume after one item.
type source struct {
	data []byte // buffered input; nil when reading from r
	pos  int
	r    io.Reader
	off  int64 // total bytes consumed, both modes
}

func newBytesSource(data []byte) *source  { return &source{data: data} }
func newReaderSource(r io.Reader) *source { return &source{r: r} }

// readByte returns the next input byte. At a clean end of input it
// returns io.EOF so that sequence decoders can distinguish normal
// termination from truncation; every other read path converts EOF to
// UnexpectedEOFError.
func (s *source) readByte() (byte, error) {
	if s.r == nil {
		if s.pos >= len(s.data) {
			return 0, io.EOF
		}
		b := s.data[s.pos]
		s.pos++
		s.off++
		return b, nil
	}
	var one [1]byte
	n, err := io.ReadFull(s.r, one[:])
	if err != nil {
		return 0, io.EOF
	}
	s.off += int64(n)
	return one[0], nil
}

// read returns exactly n bytes, or an UnexpectedEOFError naming the
// shortfall. The returned slice aliases the input buffer in buffered
// mode; callers that retain it must copy.
func (s *source) read(n uint64) ([]byte, error) {
	if s.r == nil {
		available := len(s.data) - s.pos
		if uint64(available) < n {
			return nil, &UnexpectedEOFError{Requested: int(n), Available: available}
		}
		chunk := s.data[s.pos : s.pos+int(n)]
		s.pos += int(n)
		s.off += int64(n)
		return chunk, nil
	}
	return s.readStream(n)
}

// readStream reads n bytes from the underlying reader in bounded
// chunks, so that a hostile length announcement cannot force one giant
// allocation before any payload bytes have been seen.
func (s *source) readStream(n uint64) ([]byte, error) {
	const chunkSize = 64 * 1024
	buf := make([]byte, 0, min(n, chunkSize))
	remaining := n
	for remaining > 0 {
		step := min(remaining, chunkSize)
		start := len(buf)
		buf = append(buf, make([]byte, step)...)
		read, err := io.ReadFull(s.r, buf[start:])
		s.off += int64(read)
		if err != nil {
			return nil, &UnexpectedEOFError{
				Requested: int(n),
				Available: int(n - remaining + uint64(read)),
			}
		}
		remaining -= step
	}
	return buf, nil
}

// readHead reads one item header. requireMinimal applies the
// minimal-length policy check to the argument; callers pass false for
// major type 7, whose argument bytes are float bits or a simple value
// rather than an integer argument.
func (s *source) readHead(requireMinimal bool) (head, error) {
	initial, err := s.readByte()
	if err != nil {
		if err == io.EOF {
			return head{}, &UnexpectedEOFError{Requested: 1, Available: 0}
		}
		return head{}, err
	}
	return s.readHeadAfter(initial, requireMinimal)
}

// readHeadAfter completes header decoding once the initial byte is in
// hand. Split out so that sequence decoders can probe for EOF on the
// initial byte themselves.
func (s *source) readHeadAfter(initial byte, requireMinimal bool) (head, error) {
	major := initial >> 5
	minor := initial & 0x1f

	if minor <= argMaxInline {
		return head{initial: initial, major: major, arg: uint64(minor), kind: headDefinite}, nil
	}

	switch minor {
	case argUint8, argUint16, argUint32, argUint64:
		width := uint64(1) << (minor - argUint8)
		raw, err := s.read(width)
		if err != nil {
			return head{}, err
		}
		var arg uint64
		switch width {
		case 1:
			arg = uint64(raw[0])
		case 2:
			arg = uint64(binary.BigEndian.Uint16(raw))
		case 4:
			arg = uint64(binary.BigEndian.Uint32(raw))
		case 8:
			arg = binary.BigEndian.Uint64(raw)
		}
		if requireMinimal && major != majorSimple && !minimalWidth(arg, minor) {
			return head{}, &NonMinimalError{What: nonMinimalWhat(major, arg)}
		}
		return head{initial: initial, major: major, arg: arg, kind: headDefinite}, nil

	case argIndefinite:
		switch major {
		case majorBytes, majorText, majorArray, majorMap:
			return head{initial: initial, major: major, kind: headIndefinite}, nil
		case majorSimple:
			return head{initial: initial, major: major, kind: headBreak}, nil
		default:
			// Indefinite-length markers do not exist for integers
			// or tags.
			return head{}, &BadInitialByteError{Byte: initial}
		}

	default: // 28, 29, 30 reserved
		return head{}, &BadInitialByteError{Byte: initial}
	}
}

// minimalWidth reports whether arg actually needs the argument width
// selected by minor.
func minimalWidth(arg uint64, minor byte) bool {
	switch minor {
	case argUint8:
		return arg > argMaxInline
	case argUint16:
		return arg > 0xff
	case argUint32:
		return arg > 0xffff
	default: // argUint64
		return arg > 0xffffffff
	}
}

// nonMinimalWhat describes a non-minimal header argument for error
// reporting: integer values for major types 0/1, lengths otherwise.
func nonMinimalWhat(major byte, arg uint64) string {
	switch major {
	case majorUnsigned:
		return "value " + formatUint(arg)
	case majorNegative:
		return "value -" + formatUint(arg+1)
	default:
		return "length " + formatUint(arg)
	}
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

// appendHead appends the shortest header encoding the given major type
// and argument. This is the single place that chooses argument widths,
// so minimal-length encoding holds everywhere by construction.
func appendHead(buf []byte, major byte, arg uint64) []byte {
	mt := major << 5
	switch {
	case arg <= argMaxInline:
		return append(buf, mt|byte(arg))
	case arg <= 0xff:
		return append(buf, mt|argUint8, byte(arg))
	case arg <= 0xffff:
		return binary.BigEndian.AppendUint16(append(buf, mt|argUint16), uint16(arg))
	case arg <= 0xffffffff:
		return binary.BigEndian.AppendUint32(append(buf, mt|argUint32), uint32(arg))
	default:
		return binary.BigEndian.AppendUint64(append(buf, mt|argUint64), arg)
	}
}
