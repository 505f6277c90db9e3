// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zoner-project/zoner/lib/paths"
)

// newRoot creates a zoner root with a small working tree beside it.
func newRoot(t *testing.T) paths.Root {
	t.Helper()
	parent := t.TempDir()
	root, err := paths.Create(parent)
	if err != nil {
		t.Fatalf("creating root: %v", err)
	}
	if err := os.WriteFile(filepath.Join(parent, "file.txt"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("seeding work dir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(parent, "sub"), 0o755); err != nil {
		t.Fatalf("seeding work dir: %v", err)
	}
	if err := os.Symlink("file.txt", filepath.Join(parent, "sub", "link")); err != nil {
		t.Fatalf("seeding work dir: %v", err)
	}
	return root
}

func mustSnapName(t *testing.T, raw string) paths.SnapName {
	t.Helper()
	name, err := paths.NewSnapName(raw)
	if err != nil {
		t.Fatalf("NewSnapName(%q): %v", raw, err)
	}
	return name
}

func TestCreateCopiesWorkingTree(t *testing.T) {
	t.Parallel()
	root := newRoot(t)
	name := mustSnapName(t, "first")

	if err := Create(context.Background(), root, name); err != nil {
		t.Fatalf("Create: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root.SnapDir(name), "file.txt"))
	if err != nil {
		t.Fatalf("reading copied file: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("copied contents = %q", data)
	}

	// Symlinks are preserved, not followed.
	target, err := os.Readlink(filepath.Join(root.SnapDir(name), "sub", "link"))
	if err != nil {
		t.Fatalf("reading symlink: %v", err)
	}
	if target != "file.txt" {
		t.Errorf("symlink target = %q, want file.txt", target)
	}
}

func TestCreateExcludesRootDirectory(t *testing.T) {
	t.Parallel()
	root := newRoot(t)
	name := mustSnapName(t, "noroot")

	if err := Create(context.Background(), root, name); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(root.SnapDir(name), paths.RootSuffix)); !os.IsNotExist(err) {
		t.Errorf("snapshot contains the zoner root directory (err=%v)", err)
	}
}

func TestCreateDuplicate(t *testing.T) {
	t.Parallel()
	root := newRoot(t)
	name := mustSnapName(t, "dup")

	if err := Create(context.Background(), root, name); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	err := Create(context.Background(), root, name)
	if !errors.Is(err, ErrExists) {
		t.Errorf("second Create error = %v, want ErrExists", err)
	}
}

func TestExistsAndList(t *testing.T) {
	t.Parallel()
	root := newRoot(t)
	name := mustSnapName(t, "listed")

	exists, err := Exists(root, name)
	if err != nil || exists {
		t.Fatalf("Exists before create = %v, %v", exists, err)
	}
	if err := Create(context.Background(), root, name); err != nil {
		t.Fatalf("Create: %v", err)
	}
	exists, err = Exists(root, name)
	if err != nil || !exists {
		t.Fatalf("Exists after create = %v, %v", exists, err)
	}

	names, err := List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 1 || names[0] != name {
		t.Errorf("List = %v, want [%s]", names, name)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	root := newRoot(t)
	name := mustSnapName(t, "gone")

	if err := Delete(root, name); err == nil {
		t.Error("deleting a missing snapshot should fail")
	}
	if err := Create(context.Background(), root, name); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := Delete(root, name); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	exists, err := Exists(root, name)
	if err != nil || exists {
		t.Errorf("Exists after delete = %v, %v", exists, err)
	}
}
