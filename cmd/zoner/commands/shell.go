// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/zoner-project/zoner/lib/cli"
	"github.com/zoner-project/zoner/lib/daemon"
	"github.com/zoner-project/zoner/lib/gitname"
	"github.com/zoner-project/zoner/lib/namespace"
	"github.com/zoner-project/zoner/lib/paths"
	"github.com/zoner-project/zoner/lib/snapshot"
	"github.com/zoner-project/zoner/lib/term"
	"github.com/zoner-project/zoner/lib/zone"
)

func shellCommand() *cli.Command {
	return &cli.Command{
		Name:    "shell",
		Summary: "enter a zone in a new shell",
		Description: "Starts a shell whose view of the project directory is the\n" +
			"zone's overlay. The zone (and, if needed, its snapshot) is\n" +
			"created on first use. Requires a running daemon.",
		Usage: "zoner shell ZONE [SNAPSHOT]",
		Examples: []cli.Example{
			{Description: "enter the fix-parser zone, creating it if new", Command: "zoner shell fix-parser"},
			{Description: "create a zone on the existing main snapshot", Command: "zoner shell experiment main"},
		},
		Run: runShell,
	}
}

func runShell(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: zoner shell ZONE [SNAPSHOT]")
	}
	zoneName, err := paths.NewZoneName(args[0])
	if err != nil {
		return err
	}
	root, err := findRoot(true)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	var snapArg string
	if len(args) == 2 {
		snapArg = args[1]
	}
	if err := ensureZone(root, zoneName, snapArg); err != nil {
		return err
	}

	pid, err := daemon.ZoneProcessPID(root, zoneName, cfg.Daemon.RequestTimeout)
	if err != nil {
		return err
	}

	// The shell must start inside the anchor's namespaces and inside
	// the work directory as the overlay projects it, so the directory
	// is entered after the join. Environment carries the root so
	// nested zoner invocations skip discovery.
	env := append(os.Environ(), fmt.Sprintf("%s=%s", paths.EnvRoot, root.String()))
	return namespace.ExecJoined(pid, root.WorkDir(), []string{cfg.Shell}, env)
}

// ensureZone creates the zone on first use. For an existing zone an
// explicit snapshot argument must match the snapshot the zone was
// stacked on; it cannot be changed after the fact.
func ensureZone(root paths.Root, zoneName paths.ZoneName, snapArg string) error {
	z, err := zone.LoadIfExists(root, zoneName)
	if err != nil {
		return err
	}
	if z != nil {
		if snapArg != "" && snapArg != string(z.Info.Snapshot) {
			return fmt.Errorf("zone %s already exists on snapshot %s, not %s (delete the zone to restack it)",
				zoneName, z.Info.Snapshot, snapArg)
		}
		return nil
	}
	snapName, err := ensureSnapshot(root, snapArg)
	if err != nil {
		return err
	}
	fmt.Printf("Creating zone %s on snapshot %s\n", zoneName, snapName)
	_, err = zone.Create(root, zoneName, snapName)
	return err
}

// ensureSnapshot resolves the snapshot to stack a new zone on: the
// explicit name if given, otherwise a name derived from the git HEAD.
// A snapshot that does not exist yet is taken now.
func ensureSnapshot(root paths.Root, explicit string) (paths.SnapName, error) {
	var name paths.SnapName
	var err error
	if explicit != "" {
		name, err = paths.NewSnapName(explicit)
		if err != nil {
			return "", err
		}
	} else {
		name, err = gitname.NewRepository(root.WorkDir()).SnapName(context.Background())
		if err != nil {
			return "", fmt.Errorf("no snapshot named and no git ref to derive one from: %w", err)
		}
		fmt.Printf("Using snapshot name from git: %s\n", name)
	}

	exists, err := snapshot.Exists(root, name)
	if err != nil {
		return "", err
	}
	if !exists {
		fmt.Printf("Taking snapshot %s of %s\n", name, term.Dir(root.WorkDir()))
		if err := snapshot.Create(context.Background(), root, name); err != nil {
			return "", err
		}
	}
	return name, nil
}
