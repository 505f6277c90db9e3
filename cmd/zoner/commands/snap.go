// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/zoner-project/zoner/lib/cli"
	"github.com/zoner-project/zoner/lib/gitname"
	"github.com/zoner-project/zoner/lib/paths"
	"github.com/zoner-project/zoner/lib/snapshot"
	"github.com/zoner-project/zoner/lib/term"
)

func snapCommand() *cli.Command {
	return &cli.Command{
		Name:    "snap",
		Summary: "take a snapshot of the project directory",
		Description: "Copies the project directory into a named snapshot. On\n" +
			"copy-on-write filesystems the copy shares storage with the\n" +
			"original. Without a name, the current git branch (or commit)\n" +
			"names the snapshot.",
		Usage: "zoner snap [NAME]",
		Examples: []cli.Example{
			{Description: "snapshot named after the current git branch", Command: "zoner snap"},
			{Command: "zoner snap before-refactor"},
		},
		Run: runSnap,
	}
}

func runSnap(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: zoner snap [NAME]")
	}
	root, err := findRoot(true)
	if err != nil {
		return err
	}

	var name paths.SnapName
	if len(args) == 1 {
		name, err = paths.NewSnapName(args[0])
	} else {
		name, err = gitname.NewRepository(root.WorkDir()).SnapName(context.Background())
		if err != nil {
			return fmt.Errorf("no name given and no git ref to derive one from: %w", err)
		}
		fmt.Printf("Using snapshot name from git: %s\n", name)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Taking snapshot %s of %s\n", name, term.Dir(root.WorkDir()))
	if err := snapshot.Create(context.Background(), root, name); err != nil {
		return err
	}
	fmt.Printf("%s snapshot %s taken\n", term.Success("Success:"), name)
	return nil
}
