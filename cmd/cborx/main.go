// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command cborx inspects, produces, and validates CBOR data.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cborx/cmd/cborx/cli"
)

func main() {
	root := rootCommand()
	if err := root.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "cborx: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cli.Command {
	var hexInput bool
	var compact bool

	return &cli.Command{
		Name:    "cborx",
		Summary: "Inspect, produce, and validate CBOR data",
		Description: `Tools for working with CBOR data from the command line.

With no arguments, decodes CBOR on stdin to pretty-printed JSON on
stdout (equivalent to "cborx decode").

All subcommands accept an optional trailing file path argument. When
provided, input is read from the file instead of stdin.

With --hex, input is treated as hex-encoded CBOR rather than raw
binary. Whitespace in the hex input is ignored.`,
		Usage: "cborx [command] [flags] [file]",
		Subcommands: []*cli.Command{
			decodeCommand(),
			encodeCommand(),
			diagCommand(),
			validateCommand(),
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("cborx", pflag.ContinueOnError)
			flags.BoolVarP(&hexInput, "hex", "x", false, "treat input as hex-encoded CBOR")
			flags.BoolVarP(&compact, "compact", "c", false, "compact output (no indentation)")
			return flags
		},
		Run: func(args []string) error {
			data, remaining, err := readInput(args, hexInput)
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				return fmt.Errorf("unknown command %q\n\nRun 'cborx --help' for usage.", remaining[0])
			}
			return decodeToJSON(data, os.Stdout, compact, false)
		},
		Examples: []cli.Example{
			{
				Description: "Decode CBOR to pretty JSON",
				Command:     "cborx < message.cbor",
			},
			{
				Description: "Decode a CBOR file to JSON",
				Command:     "cborx decode message.cbor",
			},
			{
				Description: "Decode hex-encoded CBOR",
				Command:     "echo 'a201020304' | cborx --hex",
			},
			{
				Description: "Encode JSON to deterministic CBOR",
				Command:     "echo '{\"count\":42}' | cborx encode > message.cbor",
			},
			{
				Description: "Inspect CBOR structure with diagnostic notation",
				Command:     "cborx diag message.cbor",
			},
			{
				Description: "Check that a file uses deterministic encoding",
				Command:     "cborx validate message.cbor",
			},
		},
	}
}
