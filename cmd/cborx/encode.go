// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cborx/cmd/cborx/cli"
	"github.com/bureau-foundation/cborx/lib/cbor"
)

func encodeCommand() *cli.Command {
	var hexOutput bool

	return &cli.Command{
		Name:    "encode",
		Summary: "Convert JSON to deterministic CBOR",
		Description: `Read JSON from stdin (or a file) and write the equivalent CBOR to
stdout, using the deterministic encoding profile: sorted map keys,
minimal integer and float widths, definite lengths.

JSON numbers without a fractional part or exponent encode as CBOR
integers; everything else encodes as the shortest float that preserves
the value. Multiple whitespace-separated JSON values encode to a CBOR
sequence.`,
		Usage: "cborx encode [--hex-out] [file]",
		Examples: []cli.Example{
			{
				Description: "Encode a JSON object",
				Command:     "echo '{\"count\":42}' | cborx encode > message.cbor",
			},
			{
				Description: "Show the encoding as hex",
				Command:     "echo '[1, 2, 3]' | cborx encode --hex-out",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("encode", pflag.ContinueOnError)
			flags.BoolVar(&hexOutput, "hex-out", false, "write hex instead of raw binary")
			return flags
		},
		Run: func(args []string) error {
			data, remaining, err := readInput(args, false)
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				return fmt.Errorf("encode takes no positional arguments besides an optional file path, got %q", remaining[0])
			}
			return encodeFromJSON(data, os.Stdout, hexOutput)
		},
	}
}

var deterministicEncMode = func() cbor.EncMode {
	em, err := cbor.DeterministicEncOptions().EncMode()
	if err != nil {
		panic("cborx: deterministic encode mode: " + err.Error())
	}
	return em
}()

// encodeFromJSON reads one or more JSON values from data and writes
// their deterministic CBOR encoding to w.
func encodeFromJSON(data []byte, w io.Writer, hexOutput bool) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var out bytes.Buffer
	count := 0
	for {
		var value any
		if err := decoder.Decode(&value); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("parse JSON: %w", err)
		}
		encoded, err := deterministicEncMode.Marshal(fromJSON(value))
		if err != nil {
			return fmt.Errorf("encode CBOR: %w", err)
		}
		out.Write(encoded)
		count++
	}
	if count == 0 {
		return fmt.Errorf("empty input: expected JSON data")
	}

	if hexOutput {
		_, err := fmt.Fprintln(w, hex.EncodeToString(out.Bytes()))
		return err
	}
	_, err := w.Write(out.Bytes())
	return err
}

// fromJSON converts a decoded JSON value into the encoder's value
// model: json.Number narrows to int64 when it is a whole number that
// fits, and objects stay as map[string]any for the sort policy to
// order.
func fromJSON(v any) any {
	switch value := v.(type) {
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return i
		}
		if f, err := value.Float64(); err == nil {
			return f
		}
		return value.String()
	case []any:
		for i, element := range value {
			value[i] = fromJSON(element)
		}
		return value
	case map[string]any:
		for key, element := range value {
			value[key] = fromJSON(element)
		}
		return value
	default:
		return v
	}
}
