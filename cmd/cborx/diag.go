// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cborx/cmd/cborx/cli"
	"github.com/bureau-foundation/cborx/lib/cbor"
)

func diagCommand() *cli.Command {
	var hexInput bool

	return &cli.Command{
		Name:    "diag",
		Summary: "Convert CBOR to diagnostic notation",
		Description: `Read CBOR and write RFC 8949 Extended Diagnostic Notation (EDN) to
stdout.

Unlike JSON output, diagnostic notation preserves CBOR type
information: integer vs float, byte strings vs text strings, non-string
map keys, tagged values, and indefinite-length structure.

Examples of diagnostic notation:

  {"action": "status", "count": 42}       text keys, integer value
  {1: "subject", 2: "machine"}            integer keys
  h'a201020304'                           byte string in hex
  1(1700000000)                           tagged value
  (_ h'0011', h'2233')                    indefinite-length byte string

A CBOR sequence renders one line per item.`,
		Usage: "cborx diag [-x] [file]",
		Examples: []cli.Example{
			{
				Description: "Show diagnostic notation for a CBOR file",
				Command:     "cborx diag < message.cbor",
			},
			{
				Description: "Encode JSON and inspect the CBOR structure",
				Command:     "echo '{\"count\":42}' | cborx encode | cborx diag",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("diag", pflag.ContinueOnError)
			flags.BoolVarP(&hexInput, "hex", "x", false, "treat input as hex-encoded CBOR")
			return flags
		},
		Run: func(args []string) error {
			data, remaining, err := readInput(args, hexInput)
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				return fmt.Errorf("diag takes no positional arguments besides an optional file path, got %q", remaining[0])
			}
			return diagnose(data, os.Stdout)
		},
	}
}

// diagnose renders each item of a CBOR sequence in diagnostic
// notation, one per line.
func diagnose(data []byte, w io.Writer) error {
	if len(data) == 0 {
		return fmt.Errorf("empty input: expected CBOR data")
	}
	count := 0
	for len(data) > 0 {
		notation, rest, err := cbor.DiagnoseFirst(data)
		if err != nil {
			return fmt.Errorf("diagnose CBOR item %d: %w", count, err)
		}
		if _, err := fmt.Fprintln(w, notation); err != nil {
			return err
		}
		data = rest
		count++
	}
	return nil
}
