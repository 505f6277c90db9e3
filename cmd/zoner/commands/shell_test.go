// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zoner-project/zoner/lib/paths"
	"github.com/zoner-project/zoner/lib/snapshot"
	"github.com/zoner-project/zoner/lib/zone"
)

func newShellRoot(t *testing.T) paths.Root {
	t.Helper()
	parent := t.TempDir()
	root, err := paths.Create(parent)
	if err != nil {
		t.Fatalf("creating root: %v", err)
	}
	if err := os.WriteFile(filepath.Join(parent, "file.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatalf("seeding work dir: %v", err)
	}
	snap, err := paths.NewSnapName("base")
	if err != nil {
		t.Fatal(err)
	}
	if err := snapshot.Create(context.Background(), root, snap); err != nil {
		t.Fatalf("creating snapshot: %v", err)
	}
	return root
}

func TestEnsureZoneCreatesOnFirstUse(t *testing.T) {
	t.Parallel()
	root := newShellRoot(t)
	name, err := paths.NewZoneName("work")
	if err != nil {
		t.Fatal(err)
	}

	if err := ensureZone(root, name, "base"); err != nil {
		t.Fatalf("ensureZone: %v", err)
	}
	z, err := zone.Load(root, name)
	if err != nil {
		t.Fatalf("loading created zone: %v", err)
	}
	if string(z.Info.Snapshot) != "base" {
		t.Errorf("zone snapshot = %s, want base", z.Info.Snapshot)
	}
}

func TestEnsureZoneRejectsSnapshotMismatch(t *testing.T) {
	t.Parallel()
	root := newShellRoot(t)
	name, err := paths.NewZoneName("work")
	if err != nil {
		t.Fatal(err)
	}
	if err := ensureZone(root, name, "base"); err != nil {
		t.Fatalf("ensureZone: %v", err)
	}

	// Re-entering with the same snapshot (or none) is fine; naming a
	// different one must not be silently ignored.
	if err := ensureZone(root, name, "base"); err != nil {
		t.Errorf("matching snapshot rejected: %v", err)
	}
	if err := ensureZone(root, name, ""); err != nil {
		t.Errorf("omitted snapshot rejected: %v", err)
	}
	err = ensureZone(root, name, "other")
	if err == nil {
		t.Fatal("mismatched snapshot accepted")
	}
	if !strings.Contains(err.Error(), "already exists on snapshot base") {
		t.Errorf("error = %v, want the mismatch explanation", err)
	}
}
