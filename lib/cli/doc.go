// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the small command tree behind the zoner
// binary: named subcommands with pflag flag sets, structured help
// output, and did-you-mean suggestions for mistyped command names.
package cli
