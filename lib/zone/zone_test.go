// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package zone

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zoner-project/zoner/lib/paths"
	"github.com/zoner-project/zoner/lib/snapshot"
)

// newRootWithSnap creates a zoner root whose working tree holds one
// file, snapshotted under the given name.
func newRootWithSnap(t *testing.T, snapName string) (paths.Root, paths.SnapName) {
	t.Helper()
	parent := t.TempDir()
	root, err := paths.Create(parent)
	if err != nil {
		t.Fatalf("creating root: %v", err)
	}
	if err := os.WriteFile(filepath.Join(parent, "file.txt"), []byte("content\n"), 0o644); err != nil {
		t.Fatalf("seeding work dir: %v", err)
	}
	snap, err := paths.NewSnapName(snapName)
	if err != nil {
		t.Fatalf("NewSnapName: %v", err)
	}
	if err := snapshot.Create(context.Background(), root, snap); err != nil {
		t.Fatalf("creating snapshot: %v", err)
	}
	return root, snap
}

func mustZoneName(t *testing.T, raw string) paths.ZoneName {
	t.Helper()
	name, err := paths.NewZoneName(raw)
	if err != nil {
		t.Fatalf("NewZoneName(%q): %v", raw, err)
	}
	return name
}

func TestCreateAndLoad(t *testing.T) {
	t.Parallel()
	root, snap := newRootWithSnap(t, "base")
	name := mustZoneName(t, "work")

	created, err := Create(root, name, snap)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Info.Snapshot != snap {
		t.Errorf("created snapshot = %s, want %s", created.Info.Snapshot, snap)
	}
	for _, dir := range []string{created.ChangesDir(), created.MountDir(), root.ZoneOvfsWorkDir(name)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("missing zone directory %s (err=%v)", dir, err)
		}
	}

	loaded, err := Load(root, name)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Info.Snapshot != snap {
		t.Errorf("loaded snapshot = %s, want %s", loaded.Info.Snapshot, snap)
	}
	if loaded.Info.CreationTime.IsZero() {
		t.Error("creation time not persisted")
	}
}

func TestCreateDuplicate(t *testing.T) {
	t.Parallel()
	root, snap := newRootWithSnap(t, "base")
	name := mustZoneName(t, "dup")

	if _, err := Create(root, name, snap); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := Create(root, name, snap)
	if !errors.Is(err, ErrExists) {
		t.Errorf("second Create error = %v, want ErrExists", err)
	}
}

func TestCreateMissingSnapshot(t *testing.T) {
	t.Parallel()
	root, _ := newRootWithSnap(t, "base")
	missing, err := paths.NewSnapName("missing")
	if err != nil {
		t.Fatal(err)
	}

	_, err = Create(root, mustZoneName(t, "orphan"), missing)
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Create error = %v, want missing-snapshot error", err)
	}
	// The failed creation must not leave a zone directory behind.
	if Exists(root, mustZoneName(t, "orphan")) {
		t.Error("failed Create left a zone directory")
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()
	root, _ := newRootWithSnap(t, "base")

	_, err := Load(root, mustZoneName(t, "nope"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load error = %v, want ErrNotFound", err)
	}
	z, err := LoadIfExists(root, mustZoneName(t, "nope"))
	if err != nil || z != nil {
		t.Errorf("LoadIfExists = %v, %v; want nil, nil", z, err)
	}
}

func TestListAndDelete(t *testing.T) {
	t.Parallel()
	root, snap := newRootWithSnap(t, "base")

	names, err := List(root)
	if err != nil || len(names) != 0 {
		t.Fatalf("List before create = %v, %v", names, err)
	}
	a := mustZoneName(t, "alpha")
	b := mustZoneName(t, "beta")
	for _, name := range []paths.ZoneName{a, b} {
		if _, err := Create(root, name, snap); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	names, err = List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("List = %v, want two zones", names)
	}

	if err := Delete(root, a); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if Exists(root, a) {
		t.Error("zone still exists after Delete")
	}
	if !Exists(root, b) {
		t.Error("Delete removed the wrong zone")
	}
	if err := Delete(root, a); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestValidateOverlayPath(t *testing.T) {
	t.Parallel()
	if err := validateOverlayPath("/tmp/plain/path"); err != nil {
		t.Errorf("plain path rejected: %v", err)
	}
	for _, bad := range []string{"/tmp/a,upperdir=/etc", "/tmp/a\nb", "/tmp/a\x00b"} {
		if err := validateOverlayPath(bad); err == nil {
			t.Errorf("path %q accepted, want error", bad)
		}
	}
}
