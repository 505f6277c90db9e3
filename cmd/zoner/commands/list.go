// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/zoner-project/zoner/lib/cli"
	"github.com/zoner-project/zoner/lib/snapshot"
	"github.com/zoner-project/zoner/lib/zone"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Summary: "list zones and snapshots",
		Usage:   "zoner list",
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("list takes no arguments")
			}
			root, err := findRoot(false)
			if err != nil {
				return err
			}

			zones, err := zone.List(root)
			if err != nil {
				return err
			}
			if len(zones) == 0 {
				fmt.Println("No zones.")
			} else {
				tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
				fmt.Fprintln(tw, "ZONE\tSNAPSHOT\tCREATED")
				for _, name := range zones {
					z, err := zone.Load(root, name)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", name, z.Info.Snapshot,
						z.Info.CreationTime.Local().Format("2006-01-02 15:04"))
				}
				tw.Flush()
			}

			snaps, err := snapshot.List(root)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Println("No snapshots.")
				return nil
			}
			fmt.Println("\nSnapshots:")
			for _, name := range snaps {
				fmt.Printf("  %s\n", name)
			}
			return nil
		},
	}
}
