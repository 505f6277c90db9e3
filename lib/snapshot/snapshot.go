// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot manages immutable copies of the working directory.
// A snapshot is a plain directory tree under <root>/snaps/<name>,
// created with cp --reflink=auto so that on copy-on-write filesystems
// (btrfs, xfs, bcachefs) the snapshot shares data blocks with the
// original and costs only metadata. Once created, a snapshot is never
// modified; zones stack writable overlay layers on top of it.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/zoner-project/zoner/lib/paths"
)

// ErrExists is wrapped into Create's error when a snapshot with the
// requested name is already present.
var ErrExists = errors.New("snapshot already exists")

// Exists reports whether a snapshot with the given name exists under
// the root.
func Exists(root paths.Root, name paths.SnapName) (bool, error) {
	info, err := os.Lstat(root.SnapDir(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking snapshot %s: %w", name, err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("snapshot path %s exists but is not a directory", root.SnapDir(name))
	}
	return true, nil
}

// List returns the names of all snapshots under the root, in directory
// order. Entries that are not valid snapshot names are skipped; they
// can only appear if something other than zoner wrote into the snaps
// directory.
func List(root paths.Root) ([]paths.SnapName, error) {
	entries, err := os.ReadDir(root.SnapParentDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	var names []paths.SnapName
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name, err := paths.NewSnapName(entry.Name())
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Create copies the working directory into a new snapshot. The copy
// preserves ownership, permissions, timestamps, and symlinks
// (--archive), refuses to overwrite anything (--no-clobber), and
// reflinks when the filesystem supports it. Returns an error wrapping
// ErrExists if the name is taken.
func Create(ctx context.Context, root paths.Root, name paths.SnapName) error {
	exists, err := Exists(root, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("creating snapshot %s: %w", name, ErrExists)
	}
	if err := os.MkdirAll(root.SnapParentDir(), 0o755); err != nil {
		return fmt.Errorf("creating snapshots directory: %w", err)
	}

	dest := root.SnapDir(name)
	command := exec.CommandContext(ctx, "cp",
		"--archive",
		"--reflink=auto",
		"--no-clobber",
		"--no-target-directory",
		root.WorkDir(), dest)
	var stderr bytes.Buffer
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		// A partial copy is worse than no snapshot: it would look
		// valid to Exists and to zone creation.
		os.RemoveAll(dest)
		return fmt.Errorf("copying %s to snapshot %s: %w (stderr: %s)",
			root.WorkDir(), name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Delete removes a snapshot. The caller is responsible for ensuring no
// zone still references it; a zone mounted on a deleted snapshot sees
// an empty lower layer on next mount.
func Delete(root paths.Root, name paths.SnapName) error {
	exists, err := Exists(root, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("snapshot %s does not exist", name)
	}
	if err := os.RemoveAll(root.SnapDir(name)); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", name, err)
	}
	return nil
}
