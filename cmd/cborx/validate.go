// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cborx/cmd/cborx/cli"
	"github.com/bureau-foundation/cborx/lib/cbor"
)

func validateCommand() *cli.Command {
	var (
		slurp    bool
		hexInput bool
	)

	return &cli.Command{
		Name:    "validate",
		Summary: "Check whether CBOR uses the deterministic encoding profile",
		Description: `Read CBOR data and verify it matches the deterministic encoding
profile (RFC 8949 §4.2). Exits 0 with "valid" if the input conforms,
exits 1 with a diagnostic message if not.

The check decodes under the strict policy: minimal integer and float
widths, canonical NaN, no indefinite-length items, no duplicate map
keys. Map key order is an encoder property and is not checked here.

With -s, validates each item in a CBOR sequence independently.`,
		Usage: "cborx validate [-s] [-x] [file]",
		Examples: []cli.Example{
			{
				Description: "Validate CBOR from a pipeline",
				Command:     "echo '{\"count\":42}' | cborx encode | cborx validate",
			},
			{
				Description: "Validate hex-encoded CBOR",
				Command:     "echo 'a201020304' | cborx validate --hex",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("validate", pflag.ContinueOnError)
			flags.BoolVarP(&slurp, "slurp", "s", false, "validate each item in a CBOR sequence independently")
			flags.BoolVarP(&hexInput, "hex", "x", false, "treat input as hex-encoded CBOR")
			return flags
		},
		Run: func(args []string) error {
			data, remaining, err := readInput(args, hexInput)
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				return fmt.Errorf("validate takes no positional arguments besides an optional file path, got %q", remaining[0])
			}
			return validate(data, os.Stdout, slurp)
		},
	}
}

var strictDecMode = func() cbor.DecMode {
	dm, err := cbor.DeterministicDecOptions().DecMode()
	if err != nil {
		panic("cborx: strict decode mode: " + err.Error())
	}
	return dm
}()

// validate checks data against the deterministic decoding policy.
func validate(data []byte, w io.Writer, slurp bool) error {
	if len(data) == 0 {
		return fmt.Errorf("empty input: expected CBOR data")
	}

	if slurp {
		remaining := data
		count := 0
		for len(remaining) > 0 {
			var err error
			if _, remaining, err = strictDecMode.DecodeFirst(remaining); err != nil {
				return fmt.Errorf("sequence item %d: %w", count, err)
			}
			count++
		}
		fmt.Fprintln(w, "valid")
		return nil
	}

	if _, err := strictDecMode.Decode(data); err != nil {
		var trailing *cbor.UnconsumedDataError
		if errors.As(err, &trailing) {
			return fmt.Errorf("%w (use -s for CBOR sequences)", err)
		}
		return err
	}
	fmt.Fprintln(w, "valid")
	return nil
}
