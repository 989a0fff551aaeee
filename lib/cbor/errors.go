// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cbor

import (
	"errors"
	"fmt"
)

// The three error families. Every concrete decoding or encoding error
// matches exactly one of these under errors.Is.
var (
	// ErrIllFormed matches errors where the byte stream violates the
	// CBOR grammar itself: reserved initial bytes, misplaced break
	// markers, malformed simple values, truncation, trailing garbage.
	ErrIllFormed = errors.New("cbor: ill-formed data")

	// ErrInvalid matches errors where the byte stream is well-formed
	// but violates a validity rule layered on the grammar: duplicate
	// map keys, invalid UTF-8, malformed tag content, or a violation
	// of an active deterministic decoding policy.
	ErrInvalid = errors.New("cbor: invalid data")

	// ErrEncode matches errors where the caller supplied a value the
	// encoder cannot represent under the active options.
	ErrEncode = errors.New("cbor: unencodable value")
)

// UnexpectedEOFError reports input that ended in the middle of a data
// item. Requested is the number of bytes the decoder needed; Available
// is how many remained.
type UnexpectedEOFError struct {
	Requested int
	Available int
}

func (e *UnexpectedEOFError) Error() string {
	return fmt.Sprintf("cbor: need %d bytes but only %d available", e.Requested, e.Available)
}

func (e *UnexpectedEOFError) Is(target error) bool { return target == ErrIllFormed }

// BadInitialByteError reports an initial byte that cannot begin a data
// item in its context: the reserved argument values 28-30, an
// indefinite-length marker on a major type that has no indefinite
// form, or a chunk of the wrong type inside an indefinite-length
// string.
type BadInitialByteError struct {
	Byte    byte
	Context string // empty outside indefinite-length strings
}

func (e *BadInitialByteError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("cbor: bad initial byte 0x%02x in %s", e.Byte, e.Context)
	}
	return fmt.Sprintf("cbor: bad initial byte 0x%02x", e.Byte)
}

func (e *BadInitialByteError) Is(target error) bool { return target == ErrIllFormed }

// MisplacedBreakError reports a break marker (0xff) outside an
// indefinite-length aggregate.
type MisplacedBreakError struct{}

func (e *MisplacedBreakError) Error() string {
	return "cbor: break code outside indefinite-length item"
}

func (e *MisplacedBreakError) Is(target error) bool { return target == ErrIllFormed }

// BadSimpleError reports a simple value below 32 encoded in the
// two-byte form, which RFC 8949 reserves.
type BadSimpleError struct {
	Value byte
}

func (e *BadSimpleError) Error() string {
	return fmt.Sprintf("cbor: simple value %d encoded with extra byte", e.Value)
}

func (e *BadSimpleError) Is(target error) bool { return target == ErrIllFormed }

// UnconsumedDataError reports bytes remaining after a complete
// top-level data item in a context that requires the input to contain
// exactly one item.
type UnconsumedDataError struct {
	Remaining int
}

func (e *UnconsumedDataError) Error() string {
	return fmt.Sprintf("cbor: %d unconsumed bytes after data item", e.Remaining)
}

func (e *UnconsumedDataError) Is(target error) bool { return target == ErrIllFormed }

// DepthError reports input nested more deeply than the configured
// limit. The limit exists to bound stack usage against adversarial
// input; see DecOptions.MaxNestingDepth.
type DepthError struct {
	Limit int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("cbor: nesting depth exceeds %d levels", e.Limit)
}

func (e *DepthError) Is(target error) bool { return target == ErrIllFormed }

// NonMinimalError reports a violation of an active minimal-encoding
// policy: a header argument or a float that could have been encoded in
// fewer bytes, or a non-canonical NaN bit pattern.
type NonMinimalError struct {
	What string // e.g. "length 23", "value -24", "float Inf"
}

func (e *NonMinimalError) Error() string {
	return fmt.Sprintf("cbor: %s is not minimally encoded", e.What)
}

func (e *NonMinimalError) Is(target error) bool { return target == ErrInvalid }

// IndefiniteLengthError reports an indefinite-length item rejected by
// an active policy. The item itself is well-formed; the policy forbids
// the form.
type IndefiniteLengthError struct {
	What string // "byte string", "text string", "array", "map"
}

func (e *IndefiniteLengthError) Error() string {
	return fmt.Sprintf("cbor: indefinite-length %s forbidden by policy", e.What)
}

func (e *IndefiniteLengthError) Is(target error) bool { return target == ErrInvalid }

// StringEncodingError reports a text string whose payload is not valid
// UTF-8. Bytes carries the offending payload.
type StringEncodingError struct {
	Bytes []byte
}

func (e *StringEncodingError) Error() string {
	return fmt.Sprintf("cbor: text string is not valid UTF-8: %q", e.Bytes)
}

func (e *StringEncodingError) Is(target error) bool { return target == ErrInvalid }

// DuplicateKeyError reports duplicate keys in one map (or duplicate
// elements in one set). Keys holds every duplicated key found, not
// just the first, so callers can report the full damage in one pass.
type DuplicateKeyError struct {
	Keys []any
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("cbor: %d duplicate keys: %v", len(e.Keys), e.Keys)
}

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrInvalid }

// TagContentError reports tag content that does not satisfy the
// payload shape required by the tag number: a rational with a zero
// denominator, a UUID that is not 16 bytes, a typed array whose length
// is not a multiple of the element width, and so on.
type TagContentError struct {
	Number uint64
	Reason string
}

func (e *TagContentError) Error() string {
	return fmt.Sprintf("cbor: tag %d: %s", e.Number, e.Reason)
}

func (e *TagContentError) Is(target error) bool { return target == ErrInvalid }

// UnknownSharedRefError reports a shared reference (tag 29) naming an
// ID that no preceding shared value (tag 28) registered.
type UnknownSharedRefError struct {
	ID uint64
}

func (e *UnknownSharedRefError) Error() string {
	return fmt.Sprintf("cbor: reference to unknown shared value %d", e.ID)
}

func (e *UnknownSharedRefError) Is(target error) bool { return target == ErrInvalid }

// UnsupportedTypeError reports a Go value of a type the encoder does
// not know how to represent.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("cbor: cannot encode value of type %s", e.Type)
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrEncode }

// SelfReferentialError reports a container that contains itself,
// directly or transitively, without its kind being declared shared in
// EncOptions.Share. Without sharing the encoding would not terminate,
// so it is rejected up front rather than by exhausting the stack.
type SelfReferentialError struct{}

func (e *SelfReferentialError) Error() string {
	return "cbor: self-referential value requires sharing to be enabled for its type"
}

func (e *SelfReferentialError) Is(target error) bool { return target == ErrEncode }
