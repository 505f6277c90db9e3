// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/zoner-project/zoner/cmd/zoner/commands"
	"github.com/zoner-project/zoner/lib/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", term.Err("error:"), err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
