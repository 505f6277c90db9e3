// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the zoner command tree.
package commands

import (
	"fmt"
	"os"

	"github.com/zoner-project/zoner/lib/cli"
	"github.com/zoner-project/zoner/lib/config"
	"github.com/zoner-project/zoner/lib/paths"
	"github.com/zoner-project/zoner/lib/term"
	"github.com/zoner-project/zoner/lib/version"
)

// Root returns the top-level zoner command.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "zoner",
		Summary: "sandboxed zones for a project directory",
		Description: "Zoner gives a project directory multiple independent views\n" +
			"(zones), each stacking its own writable layer over a snapshot\n" +
			"of the project. Work in a zone never touches the real tree\n" +
			"until it is merged back.",
		Subcommands: []*cli.Command{
			daemonCommand(),
			shellCommand(),
			snapCommand(),
			mergeCommand(),
			listCommand(),
			versionCommand(),
			internalDaemonCommand(),
			internalAnchorCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "print version information",
		Run: func(args []string) error {
			fmt.Println(version.Full())
			return nil
		},
	}
}

// findRoot resolves the metadata root, and with createIfMissing makes
// one for the current directory when discovery fails.
func findRoot(createIfMissing bool) (paths.Root, error) {
	root, err := paths.FindFromEnv()
	if err == nil {
		return root, nil
	}
	if !createIfMissing {
		return "", err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	// Prefer anchoring at the enclosing git repository over the bare
	// cwd so zones cover the whole project.
	dir := paths.FindGitTopLevel(cwd)
	if dir == "" {
		dir = cwd
	}
	root, err = paths.Create(dir)
	if err != nil {
		return "", err
	}
	fmt.Printf("Created zoner root at %s\n", term.Dir(root.String()))
	return root, nil
}

// loadConfig reads the root's config file, or the defaults when none
// exists.
func loadConfig(root paths.Root) (*config.Config, error) {
	return config.Load(root.ConfigFile())
}
