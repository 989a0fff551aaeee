// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cbor

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"math"
	"math/big"
	"strconv"
	"unicode/utf8"

	"github.com/x448/float16"
)

// BigNumStyle selects how tag 2/3 big integers surface in the value
// tree.
type BigNumStyle uint8

const (
	// BigNumCollapse (the default) collapses big integers into the
	// native integer types: int64 or uint64 when the value fits,
	// *big.Int otherwise. A collapsed big integer is equal to a
	// plain integer of the same value, so the two collide as
	// duplicate map keys.
	BigNumCollapse BigNumStyle = iota

	// BigNumRetain surfaces tag 2/3 content as *BigNum, always
	// distinct from plain integers — including for duplicate-key
	// detection.
	BigNumRetain
)

// TagDecoderFunc decodes the content of one tagged item. It is called
// with the decoder positioned immediately after the tag header;
// implementations read the content through the ContentReader and
// return the value the tag should produce. A TagDecoderFunc registered
// in DecOptions.TagDecoders fully overrides the built-in handler for
// that tag number.
type TagDecoderFunc func(content ContentReader, number uint64) (any, error)

// ContentReader reads data items from the decode position. The engine
// passes one to tag decoder functions for recursive decoding.
type ContentReader interface {
	// ReadItem decodes and returns the next data item.
	ReadItem() (any, error)
}

// DecOptions configures a DecMode. The zero value accepts any
// well-formed, valid CBOR with the default representation choices.
type DecOptions struct {
	// RequireMinimalLength rejects (as invalid) any header whose
	// argument is encoded wider than necessary.
	RequireMinimalLength bool

	// RequireMinimalFloat rejects (as invalid) any float encoded
	// wider than needed to represent its value exactly, and any NaN
	// other than the canonical half-float 0x7e00.
	RequireMinimalFloat bool

	// RejectIndefiniteLength rejects (as invalid) all
	// indefinite-length strings, arrays, and maps, regardless of
	// their well-formedness.
	RejectIndefiniteLength bool

	// BigNums selects collapsing or retaining tag 2/3 content.
	BigNums BigNumStyle

	// MaxNestingDepth bounds the structural nesting of the input,
	// and with it the decoder's recursion. 0 means the default of
	// 256. Exceeding the limit is an ill-formedness error: the
	// input is hostile or broken, not merely non-conforming.
	MaxNestingDepth int

	// TagDecoders overrides or extends the built-in tag handlers,
	// keyed by tag number.
	TagDecoders map[uint64]TagDecoderFunc

	// SimpleValueFunc converts unassigned simple values (0-19 and
	// 32-255). The default wraps them in SimpleValue.
	SimpleValueFunc func(value uint8) (any, error)
}

// DeterministicDecOptions returns options that reject any input not in
// the deterministic encoding profile: minimal header arguments,
// minimal floats with canonical NaN, and no indefinite-length items.
// Sort order is an encoder property and is deliberately not checked.
func DeterministicDecOptions() DecOptions {
	return DecOptions{
		RequireMinimalLength:   true,
		RequireMinimalFloat:    true,
		RejectIndefiniteLength: true,
	}
}

const (
	defaultMaxNestingDepth = 256
	maxMaxNestingDepth     = 65536

	// preallocLimit caps slice capacity hints taken from header
	// arguments, so a declared length cannot force a huge
	// allocation before any elements have been decoded.
	preallocLimit = 4096
)

// DecMode is an immutable decoding configuration, safe for concurrent
// use by multiple goroutines. Build one from DecOptions.DecMode.
type DecMode struct {
	opts DecOptions
}

// DecMode validates the options and returns an immutable decoding
// mode.
func (opts DecOptions) DecMode() (DecMode, error) {
	if opts.MaxNestingDepth < 0 {
		return DecMode{}, fmt.Errorf("cbor: MaxNestingDepth %d is negative", opts.MaxNestingDepth)
	}
	if opts.MaxNestingDepth > maxMaxNestingDepth {
		return DecMode{}, fmt.Errorf("cbor: MaxNestingDepth %d exceeds %d", opts.MaxNestingDepth, maxMaxNestingDepth)
	}
	if opts.MaxNestingDepth == 0 {
		opts.MaxNestingDepth = defaultMaxNestingDepth
	}
	if opts.SimpleValueFunc == nil {
		opts.SimpleValueFunc = func(value uint8) (any, error) { return SimpleValue(value), nil }
	}
	opts.TagDecoders = maps.Clone(opts.TagDecoders)
	return DecMode{opts: opts}, nil
}

var defaultDecMode = func() DecMode {
	dm, err := DecOptions{}.DecMode()
	if err != nil {
		panic("cbor: default decode mode: " + err.Error())
	}
	return dm
}()

// Decode decodes data, which must hold exactly one data item, using
// the default mode.
func Decode(data []byte) (any, error) {
	return defaultDecMode.Decode(data)
}

// Decode decodes data, which must hold exactly one data item. Trailing
// bytes after the item are an ill-formedness error; use DecodeFirst or
// NewDecoder for CBOR sequences.
func (dm DecMode) Decode(data []byte) (any, error) {
	src := newBytesSource(data)
	state := &decodeState{src: src, opts: &dm.opts}
	value, err := state.decodeItem()
	if err != nil {
		return nil, err
	}
	if remaining := len(data) - src.pos; remaining > 0 {
		return nil, &UnconsumedDataError{Remaining: remaining}
	}
	return value, nil
}

// DecodeFirst decodes the first data item in data and returns it along
// with the remaining bytes.
func (dm DecMode) DecodeFirst(data []byte) (any, []byte, error) {
	src := newBytesSource(data)
	state := &decodeState{src: src, opts: &dm.opts}
	value, err := state.decodeItem()
	if err != nil {
		return nil, nil, err
	}
	return value, data[src.pos:], nil
}

// Decoder reads a CBOR sequence from an io.Reader, one top-level item
// per Decode call. It is not safe for concurrent use.
type Decoder struct {
	src  *source
	opts *DecOptions
}

// NewDecoder returns a Decoder reading from r.
func (dm DecMode) NewDecoder(r io.Reader) *Decoder {
	opts := dm.opts
	return &Decoder{src: newReaderSource(r), opts: &opts}
}

// NewDecoder returns a Decoder reading from r with the default mode.
func NewDecoder(r io.Reader) *Decoder {
	return defaultDecMode.NewDecoder(r)
}

// Decode returns the next top-level item of the sequence. A clean end
// of input at an item boundary returns io.EOF; input that ends inside
// an item returns an UnexpectedEOFError.
func (d *Decoder) Decode() (any, error) {
	initial, err := d.src.readByte()
	if err != nil {
		return nil, io.EOF
	}
	state := &decodeState{src: d.src, opts: d.opts}
	h, err := d.src.readHeadAfter(initial, d.opts.RequireMinimalLength)
	if err != nil {
		return nil, err
	}
	if h.kind == headBreak {
		return nil, &MisplacedBreakError{}
	}
	return state.decodeItemWithHead(h)
}

// InputOffset returns the number of input bytes consumed so far.
func (d *Decoder) InputOffset() int64 { return d.src.off }

// decodeState is the per-call state of one top-level decode: the
// recursion depth and the shared value table. It is created per call
// and never shared; concurrency safety lives in DecMode, not here.
type decodeState struct {
	src   *source
	opts  *DecOptions
	depth int

	// shared is the arena of shared value slots, indexed by the IDs
	// that tag 28 allocates in encounter order. A slot holds the
	// (possibly still filling) container as soon as it is
	// registered, so content can reference its own enclosure.
	shared []sharedSlot
}

// sharedSlot is one arena slot for a tag 28 shared value. ready
// distinguishes "not yet registered" from a registered nil, which is a
// legal shared value.
type sharedSlot struct {
	value any
	ready bool
}

// ReadItem implements ContentReader for tag decoder functions.
func (d *decodeState) ReadItem() (any, error) { return d.decodeItem() }

func (d *decodeState) decodeItem() (any, error) {
	h, err := d.src.readHead(d.opts.RequireMinimalLength)
	if err != nil {
		return nil, err
	}
	if h.kind == headBreak {
		return nil, &MisplacedBreakError{}
	}
	return d.decodeItemWithHead(h)
}

func (d *decodeState) decodeItemWithHead(h head) (any, error) {
	if d.depth >= d.opts.MaxNestingDepth {
		return nil, &DepthError{Limit: d.opts.MaxNestingDepth}
	}
	d.depth++
	defer func() { d.depth-- }()

	switch h.major {
	case majorUnsigned:
		if h.arg > math.MaxInt64 {
			return h.arg, nil
		}
		return int64(h.arg), nil

	case majorNegative:
		if h.arg > math.MaxInt64 {
			// -1 - arg does not fit int64; promote.
			value := new(big.Int).SetUint64(h.arg)
			value.Add(value, bigOne)
			return value.Neg(value), nil
		}
		return -1 - int64(h.arg), nil

	case majorBytes:
		return d.decodeByteString(h)

	case majorText:
		return d.decodeTextString(h)

	case majorArray:
		list := &List{}
		if err := d.decodeArrayInto(list, h); err != nil {
			return nil, err
		}
		return list, nil

	case majorMap:
		m := &Map{}
		if err := d.decodeMapInto(m, h); err != nil {
			return nil, err
		}
		return m, nil

	case majorTag:
		return d.decodeTagged(h.arg)

	default: // majorSimple
		return d.decodeSimple(h)
	}
}

func (d *decodeState) decodeByteString(h head) ([]byte, error) {
	if h.kind == headDefinite {
		chunk, err := d.src.read(h.arg)
		if err != nil {
			return nil, err
		}
		return bytes.Clone(chunk), nil
	}

	if d.opts.RejectIndefiniteLength {
		return nil, &IndefiniteLengthError{What: "byte string"}
	}
	result := []byte{}
	for {
		ch, err := d.src.readHead(d.opts.RequireMinimalLength)
		if err != nil {
			return nil, err
		}
		if ch.kind == headBreak {
			return result, nil
		}
		if ch.major != majorBytes || ch.kind != headDefinite {
			return nil, &BadInitialByteError{Byte: ch.initial, Context: "indefinite-length byte string"}
		}
		chunk, err := d.src.read(ch.arg)
		if err != nil {
			return nil, err
		}
		result = append(result, chunk...)
	}
}

func (d *decodeState) decodeTextString(h head) (string, error) {
	if h.kind == headDefinite {
		chunk, err := d.src.read(h.arg)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(chunk) {
			return "", &StringEncodingError{Bytes: bytes.Clone(chunk)}
		}
		return string(chunk), nil
	}

	if d.opts.RejectIndefiniteLength {
		return "", &IndefiniteLengthError{What: "text string"}
	}
	var builder bytes.Buffer
	for {
		ch, err := d.src.readHead(d.opts.RequireMinimalLength)
		if err != nil {
			return "", err
		}
		if ch.kind == headBreak {
			return builder.String(), nil
		}
		if ch.major != majorText || ch.kind != headDefinite {
			return "", &BadInitialByteError{Byte: ch.initial, Context: "indefinite-length text string"}
		}
		chunk, err := d.src.read(ch.arg)
		if err != nil {
			return "", err
		}
		// Each chunk must be valid UTF-8 on its own; a multi-byte
		// rune may not straddle a chunk boundary.
		if !utf8.Valid(chunk) {
			return "", &StringEncodingError{Bytes: bytes.Clone(chunk)}
		}
		builder.Write(chunk)
	}
}

// decodeArrayInto fills list from an array whose header has already
// been read. Taking the destination as a parameter lets the shared
// value handler register the list before its contents exist.
func (d *decodeState) decodeArrayInto(list *List, h head) error {
	if h.kind == headIndefinite {
		if d.opts.RejectIndefiniteLength {
			return &IndefiniteLengthError{What: "array"}
		}
		for {
			ih, err := d.src.readHead(d.opts.RequireMinimalLength)
			if err != nil {
				return err
			}
			if ih.kind == headBreak {
				return nil
			}
			item, err := d.decodeItemWithHead(ih)
			if err != nil {
				return err
			}
			list.Items = append(list.Items, item)
		}
	}

	if h.arg <= preallocLimit {
		list.Items = make([]any, 0, h.arg)
	}
	for i := uint64(0); i < h.arg; i++ {
		item, err := d.decodeItem()
		if err != nil {
			return err
		}
		list.Items = append(list.Items, item)
	}
	return nil
}

// decodeMapInto fills m from a map whose header has already been read,
// detecting duplicate keys by the deterministic encoding of each key.
// All duplicates are collected before the error is reported so callers
// see the full set at once.
func (d *decodeState) decodeMapInto(m *Map, h head) error {
	seen := make(map[string]struct{})
	var duplicates []any

	decodeEntry := func(kh head) error {
		key, err := d.decodeItemWithHead(kh)
		if err != nil {
			return err
		}
		identity, err := keyIdentity(key)
		if err != nil {
			return err
		}
		value, err := d.decodeItem()
		if err != nil {
			return err
		}
		if _, dup := seen[identity]; dup {
			duplicates = append(duplicates, key)
		} else {
			seen[identity] = struct{}{}
			m.Entries = append(m.Entries, MapEntry{Key: key, Value: value})
		}
		return nil
	}

	if h.kind == headIndefinite {
		if d.opts.RejectIndefiniteLength {
			return &IndefiniteLengthError{What: "map"}
		}
		for {
			kh, err := d.src.readHead(d.opts.RequireMinimalLength)
			if err != nil {
				return err
			}
			if kh.kind == headBreak {
				break
			}
			if err := decodeEntry(kh); err != nil {
				return err
			}
		}
	} else {
		if h.arg <= preallocLimit {
			m.Entries = make([]MapEntry, 0, h.arg)
		}
		for i := uint64(0); i < h.arg; i++ {
			kh, err := d.src.readHead(d.opts.RequireMinimalLength)
			if err != nil {
				return err
			}
			if kh.kind == headBreak {
				return &MisplacedBreakError{}
			}
			if err := decodeEntry(kh); err != nil {
				return err
			}
		}
	}

	if len(duplicates) > 0 {
		return &DuplicateKeyError{Keys: duplicates}
	}
	return nil
}

// keyIdentity returns the deterministic encoding of a decoded map key,
// which serves as its structural identity for duplicate detection.
// This is the same byte sequence the canonical sort order compares, so
// "duplicate" and "sorts equal" coincide by construction.
func keyIdentity(key any) (string, error) {
	data, err := keyIdentityMode.Marshal(key)
	if err != nil {
		return "", fmt.Errorf("%w: map key has no canonical encoding: %v", ErrInvalid, err)
	}
	return string(data), nil
}

var keyIdentityMode = func() EncMode {
	em, err := EncOptions{Sort: SortBytewise, FloatStyle: FloatShortest}.EncMode()
	if err != nil {
		panic("cbor: key identity mode: " + err.Error())
	}
	return em
}()

func (d *decodeState) decodeSimple(h head) (any, error) {
	return decodeSimpleHead(h, d.opts)
}

// decodeSimpleHead converts a major type 7 header into its value.
// Shared between the tree decoder and the event stream.
func decodeSimpleHead(h head, opts *DecOptions) (any, error) {
	minor := h.initial & 0x1f
	switch {
	case minor < simpleFalse:
		return opts.SimpleValueFunc(minor)

	case minor == simpleFalse:
		return false, nil
	case minor == simpleTrue:
		return true, nil
	case minor == simpleNull:
		return nil, nil
	case minor == simpleUndef:
		return Undefined{}, nil

	case minor == simpleExtra:
		if h.arg < minExtraSimple {
			return nil, &BadSimpleError{Value: byte(h.arg)}
		}
		return opts.SimpleValueFunc(uint8(h.arg))

	case minor == simpleFloat16:
		value := float64(float16.Frombits(uint16(h.arg)).Float32())
		if opts.RequireMinimalFloat && math.IsNaN(value) && uint16(h.arg) != canonicalNaN16 {
			return nil, &NonMinimalError{What: "float NaN"}
		}
		return value, nil

	case minor == simpleFloat32:
		value := float64(math.Float32frombits(uint32(h.arg)))
		if opts.RequireMinimalFloat {
			if err := checkMinimalFloat(value, 32); err != nil {
				return nil, err
			}
		}
		return value, nil

	case minor == simpleFloat64:
		value := math.Float64frombits(h.arg)
		if opts.RequireMinimalFloat {
			if err := checkMinimalFloat(value, 64); err != nil {
				return nil, err
			}
		}
		return value, nil

	default:
		// 28-30 were rejected by readHead; 31 arrives only as
		// headBreak, which callers intercept.
		return nil, &BadInitialByteError{Byte: h.initial}
	}
}

const canonicalNaN16 = 0x7e00

// checkMinimalFloat reports a minimal-float policy violation for a
// float decoded at the given width. NaN must always be the canonical
// half-float; every other value must be at the narrowest width that
// represents it exactly.
func checkMinimalFloat(value float64, width int) error {
	switch {
	case math.IsNaN(value):
		return &NonMinimalError{What: "float NaN"}
	case math.IsInf(value, 1):
		return &NonMinimalError{What: "float Inf"}
	case math.IsInf(value, -1):
		return &NonMinimalError{What: "float -Inf"}
	}
	if width == 64 && float64(float32(value)) != value {
		return nil
	}
	// Value fits 32 bits; 64 was too wide, and 32 is too wide if it
	// also fits 16 bits.
	narrow := float16.Fromfloat32(float32(value))
	if width == 64 || narrow.Float32() == float32(value) {
		return &NonMinimalError{What: "float " + formatFloat(value)}
	}
	return nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}

var bigOne = big.NewInt(1)
