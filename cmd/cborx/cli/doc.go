// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command dispatch framework for the cborx
// tool: a tree of Command values with pflag-based flag parsing,
// structured help output, and typo suggestions for unknown commands
// and flags.
package cli
