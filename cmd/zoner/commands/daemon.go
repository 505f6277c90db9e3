// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/zoner-project/zoner/lib/cli"
	"github.com/zoner-project/zoner/lib/daemon"
	"github.com/zoner-project/zoner/lib/paths"
	"github.com/zoner-project/zoner/lib/term"
)

func daemonCommand() *cli.Command {
	return &cli.Command{
		Name:    "daemon",
		Summary: "start the background daemon",
		Description: "Starts the daemon that owns zone namespaces and mounts.\n" +
			"It detaches immediately; output goes to daemon/log under the\n" +
			"zoner root. At most one daemon runs per root.",
		Usage: "zoner daemon",
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("daemon takes no arguments")
			}
			root, err := findRoot(true)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			pid, err := daemon.Start(root, cfg)
			if err != nil {
				return err
			}
			fmt.Printf("%s daemon running with pid %d, log at %s\n",
				term.Success("Started:"), pid, term.Dir(root.DaemonLogFile()))
			return nil
		},
	}
}

// internalDaemonCommand is the hidden re-exec target that becomes the
// daemon process. It is dispatched only by daemon.Start, which has
// already placed it in its namespaces.
func internalDaemonCommand() *cli.Command {
	var (
		rootFlag string
		uidFlag  int
		gidFlag  int
	)
	return &cli.Command{
		Name:   daemon.DaemonCommand,
		Hidden: true,
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet(daemon.DaemonCommand, pflag.ContinueOnError)
			flags.StringVar(&rootFlag, "root", "", "zoner metadata root")
			flags.IntVar(&uidFlag, "uid", -1, "invoking user's uid")
			flags.IntVar(&gidFlag, "gid", -1, "invoking user's gid")
			return flags
		},
		Run: func(args []string) error {
			root := paths.Root(rootFlag)
			if err := root.Validate(); err != nil {
				return err
			}
			if uidFlag < 0 || gidFlag < 0 {
				return fmt.Errorf("missing --uid/--gid")
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			return daemon.RunDaemon(root, cfg, uidFlag, gidFlag)
		},
	}
}

// internalAnchorCommand is the hidden re-exec target for per-zone
// anchor processes, dispatched only by the daemon.
func internalAnchorCommand() *cli.Command {
	var (
		rootFlag string
		zoneFlag string
	)
	return &cli.Command{
		Name:   daemon.AnchorCommand,
		Hidden: true,
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet(daemon.AnchorCommand, pflag.ContinueOnError)
			flags.StringVar(&rootFlag, "root", "", "zoner metadata root")
			flags.StringVar(&zoneFlag, "zone", "", "zone to anchor")
			return flags
		},
		Run: func(args []string) error {
			root := paths.Root(rootFlag)
			if err := root.Validate(); err != nil {
				return err
			}
			name, err := paths.NewZoneName(zoneFlag)
			if err != nil {
				return err
			}
			return daemon.RunAnchor(root, name)
		},
	}
}
