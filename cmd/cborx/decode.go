// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dlclark/regexp2"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cborx/cmd/cborx/cli"
	"github.com/bureau-foundation/cborx/lib/cbor"
)

func decodeCommand() *cli.Command {
	var (
		compact  bool
		slurp    bool
		hexInput bool
	)

	return &cli.Command{
		Name:    "decode",
		Summary: "Convert CBOR to JSON",
		Description: `Read CBOR data and write the equivalent JSON to stdout.

By default, output is pretty-printed with 2-space indentation. Use -c
for compact single-line output.

JSON requires string map keys, so non-string CBOR keys are rendered
through diagnostic notation (e.g., integer key 1 becomes "1"). Tagged
values without a richer mapping appear as {"tag": n, "value": ...}.
Use "cborx diag" for a representation that preserves CBOR types
exactly.

With -s, reads a CBOR sequence (multiple consecutive items) and
outputs them as a JSON array.`,
		Usage: "cborx decode [-c] [-s] [-x] [file]",
		Examples: []cli.Example{
			{
				Description: "Decode a CBOR file to pretty JSON",
				Command:     "cborx decode < message.cbor",
			},
			{
				Description: "Decode a CBOR sequence to a JSON array",
				Command:     "cborx decode -s < sequence.cbor",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("decode", pflag.ContinueOnError)
			flags.BoolVarP(&compact, "compact", "c", false, "compact output (no indentation)")
			flags.BoolVarP(&slurp, "slurp", "s", false, "read CBOR sequence as JSON array")
			flags.BoolVarP(&hexInput, "hex", "x", false, "treat input as hex-encoded CBOR")
			return flags
		},
		Run: func(args []string) error {
			data, remaining, err := readInput(args, hexInput)
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				return fmt.Errorf("decode takes no positional arguments besides an optional file path, got %q", remaining[0])
			}
			return decodeToJSON(data, os.Stdout, compact, slurp)
		},
	}
}

// decodeToJSON decodes CBOR from data and writes JSON to w.
func decodeToJSON(data []byte, w io.Writer, compact bool, slurp bool) error {
	if len(data) == 0 {
		return fmt.Errorf("empty input: expected CBOR data")
	}

	if slurp {
		decoder := cbor.NewDecoder(bytes.NewReader(data))
		var items []any
		for {
			value, err := decoder.Decode()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return fmt.Errorf("decode CBOR sequence item %d: %w", len(items), err)
			}
			items = append(items, jsonValue(value, nil))
		}
		return writeJSON(w, items, compact)
	}

	value, err := cbor.Decode(data)
	if err != nil {
		return fmt.Errorf("decode CBOR: %w", err)
	}
	return writeJSON(w, jsonValue(value, nil), compact)
}

// jsonValue converts a decoded CBOR value tree into types that
// encoding/json renders sensibly. visiting tracks container identity
// so shared cyclic structures terminate.
func jsonValue(v any, visiting map[any]bool) any {
	switch value := v.(type) {
	case *cbor.List:
		if visiting[value] {
			return "..."
		}
		visiting = markVisiting(visiting, value)
		defer delete(visiting, value)
		out := make([]any, len(value.Items))
		for i, item := range value.Items {
			out[i] = jsonValue(item, visiting)
		}
		return out

	case *cbor.Map:
		if visiting[value] {
			return "..."
		}
		visiting = markVisiting(visiting, value)
		defer delete(visiting, value)
		out := make(map[string]any, len(value.Entries))
		for _, entry := range value.Entries {
			out[jsonKey(entry.Key)] = jsonValue(entry.Value, visiting)
		}
		return out

	case *cbor.Set:
		out := make([]any, len(value.Elements))
		for i, element := range value.Elements {
			out[i] = jsonValue(element, visiting)
		}
		return out

	case *cbor.Tag:
		if visiting[value] {
			return "..."
		}
		visiting = markVisiting(visiting, value)
		defer delete(visiting, value)
		return map[string]any{
			"tag":   value.Number,
			"value": jsonValue(value.Content, visiting),
		}

	case cbor.Undefined:
		return nil
	case float64:
		// JSON has no NaN or infinity; fall back to the diagnostic
		// notation names.
		if math.IsNaN(value) {
			return "NaN"
		}
		if math.IsInf(value, 1) {
			return "Infinity"
		}
		if math.IsInf(value, -1) {
			return "-Infinity"
		}
		return value
	case *regexp2.Regexp:
		return value.String()
	case *cbor.BigNum:
		return value.Value
	case *cbor.Decimal:
		return map[string]any{"exponent": value.Exponent, "mantissa": value.Mantissa}
	case *cbor.BigFloat:
		return map[string]any{"exponent": value.Exponent, "mantissa": value.Mantissa, "base": 2}

	default:
		return v
	}
}

func markVisiting(visiting map[any]bool, container any) map[any]bool {
	if visiting == nil {
		visiting = make(map[any]bool)
	}
	visiting[container] = true
	return visiting
}

// jsonKey renders a CBOR map key as a JSON object key. String keys
// pass through; everything else goes through diagnostic notation so
// the key stays readable and unambiguous.
func jsonKey(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	encoded, err := cbor.Marshal(key)
	if err == nil {
		if notation, err := cbor.Diagnose(encoded); err == nil {
			return notation
		}
	}
	return fmt.Sprint(key)
}

// writeJSON encodes value as JSON and writes it to w with a trailing
// newline. When compact is false, output is pretty-printed with
// 2-space indentation.
func writeJSON(w io.Writer, value any, compact bool) error {
	var output []byte
	var err error
	if compact {
		output, err = json.Marshal(value)
	} else {
		output, err = json.MarshalIndent(value, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	_, err = fmt.Fprintln(w, string(output))
	return err
}
