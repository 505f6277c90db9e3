// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/zoner-project/zoner/lib/cli"
	"github.com/zoner-project/zoner/lib/merge"
	"github.com/zoner-project/zoner/lib/paths"
	"github.com/zoner-project/zoner/lib/term"
	"github.com/zoner-project/zoner/lib/zone"
)

func mergeCommand() *cli.Command {
	var (
		applyConflicts bool
		dryRun         bool
	)
	return &cli.Command{
		Name:    "merge",
		Summary: "merge a zone's changes back into the project directory",
		Description: "Compares the zone's changes against the project directory.\n" +
			"Files only changed in the zone are copied over; files that\n" +
			"also changed in the project are conflicts, applied only with\n" +
			"--apply-conflicts (the zone's version wins).",
		Usage: "zoner merge ZONE [--apply-conflicts] [--dry-run]",
		Examples: []cli.Example{
			{Command: "zoner merge fix-parser"},
			{Description: "report what would be merged without copying", Command: "zoner merge experiment --dry-run"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("merge", pflag.ContinueOnError)
			flags.BoolVar(&applyConflicts, "apply-conflicts", false,
				"also apply conflicting files, overwriting the project's versions")
			flags.BoolVar(&dryRun, "dry-run", false,
				"report the plan without copying anything")
			return flags
		},
		Run: func(args []string) error {
			return runMerge(args, applyConflicts, dryRun)
		},
	}
}

func runMerge(args []string, applyConflicts, dryRun bool) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: zoner merge ZONE [--apply-conflicts] [--dry-run]")
	}
	zoneName, err := paths.NewZoneName(args[0])
	if err != nil {
		return err
	}
	root, err := findRoot(false)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if cfg.Merge.AutoApplyConflicts {
		applyConflicts = true
	}

	z, err := zone.Load(root, zoneName)
	if err != nil {
		return err
	}
	plan := merge.PlanChanges(z, root.WorkDir())

	for _, skip := range plan.Skips {
		fmt.Printf("%s cannot examine %s: %v\n", term.Warn("skip:"), skip.Source, skip.Reason)
	}
	for _, update := range plan.Updates {
		fmt.Printf("update %s\n", update.RelPath)
	}
	for _, conflict := range plan.Conflicts {
		fmt.Printf("%s %s (%s)\n", term.Warn("conflict:"), conflict.RelPath, conflict.Reason)
	}
	if plan.Empty() {
		fmt.Printf("%s no changes to merge\n", term.Success("Success:"))
		return nil
	}
	if dryRun {
		return nil
	}

	ctx := context.Background()
	if err := plan.ApplyUpdates(ctx, z, root.WorkDir()); err != nil {
		return err
	}
	applied := len(plan.Updates)
	if len(plan.Conflicts) > 0 {
		if applyConflicts {
			if err := plan.ApplyConflicts(ctx, z, root.WorkDir()); err != nil {
				return err
			}
			applied += len(plan.Conflicts)
		} else {
			fmt.Printf("%s %d conflicting file(s) left untouched (use --apply-conflicts to overwrite)\n",
				term.Warn("Warning:"), len(plan.Conflicts))
		}
	}
	fmt.Printf("%s merged %d file(s)\n", term.Success("Success:"), applied)
	return nil
}
