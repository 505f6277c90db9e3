// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

// Package merge plans and applies the transfer of a zone's changes
// back into a target directory, usually the project working tree.
//
// The plan is a three-way comparison. For every file in the zone's
// change layer, the corresponding snapshot file tells us what the
// target looked like when the zone was created: if the target still
// matches the snapshot, carrying the zone's version over is a plain
// update; if the target has diverged (or the file never existed in the
// snapshot but now exists in both places), it is a conflict that needs
// an explicit decision. Comparison uses file metadata only (size,
// modification time, permissions, file type), which relies on snapshot
// creation preserving timestamps.
package merge

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/zoner-project/zoner/lib/zone"
)

// ConflictReason says why a changed file cannot be applied as a plain
// update.
type ConflictReason int

const (
	// NotInSnapshot: the file is absent from the snapshot but present
	// in both the change layer and the target, so both sides created
	// it independently.
	NotInSnapshot ConflictReason = iota
	// ModifiedInTarget: the target's copy no longer matches the
	// snapshot, so the target changed since the zone was created.
	ModifiedInTarget
)

func (r ConflictReason) String() string {
	switch r {
	case NotInSnapshot:
		return "created on both sides"
	case ModifiedInTarget:
		return "modified in target"
	default:
		return fmt.Sprintf("ConflictReason(%d)", int(r))
	}
}

// Update is a changed file whose target is unchanged since the
// snapshot (or absent), safe to apply without losing anything.
type Update struct {
	RelPath    string
	SourceInfo fs.FileInfo
	// TargetInfo is nil when the target file does not exist.
	TargetInfo fs.FileInfo
}

// Conflict is a changed file whose target has independently diverged.
type Conflict struct {
	RelPath    string
	Reason     ConflictReason
	SourceInfo fs.FileInfo
	TargetInfo fs.FileInfo
}

// Skip is a path the plan could not examine.
type Skip struct {
	Source string
	Reason error
}

// Plan is the classified set of changes a merge would carry over.
type Plan struct {
	Updates   []Update
	Conflicts []Conflict
	Skips     []Skip
}

// Empty reports whether the plan has nothing to apply.
func (p *Plan) Empty() bool {
	return len(p.Updates) == 0 && len(p.Conflicts) == 0
}

// PlanChanges walks the zone's change layer and classifies every file
// against targetDir. Directories themselves are not planned (matching
// git's behavior of tracking files only); they are created as needed
// when a contained file is applied. The walk does not cross filesystem
// boundaries: the change layer is a plain directory tree, and a mount
// appearing inside it is not part of the zone's changes.
func PlanChanges(z *zone.Zone, targetDir string) *Plan {
	plan := &Plan{}
	changesDir := z.ChangesDir()

	rootDev, err := deviceOf(changesDir)
	if err != nil {
		plan.Skips = append(plan.Skips, Skip{Source: changesDir, Reason: err})
		return plan
	}

	filepath.WalkDir(changesDir, func(source string, entry fs.DirEntry, err error) error {
		if err != nil {
			plan.Skips = append(plan.Skips, Skip{Source: source, Reason: err})
			return nil
		}
		if entry.IsDir() {
			dev, err := deviceOf(source)
			if err != nil {
				plan.Skips = append(plan.Skips, Skip{Source: source, Reason: err})
				return fs.SkipDir
			}
			if dev != rootDev {
				return fs.SkipDir
			}
			return nil
		}

		if err := planFile(z, plan, changesDir, targetDir, source, entry); err != nil {
			plan.Skips = append(plan.Skips, Skip{Source: source, Reason: err})
		}
		return nil
	})
	return plan
}

func planFile(z *zone.Zone, plan *Plan, changesDir, targetDir, source string, entry fs.DirEntry) error {
	sourceInfo, err := entry.Info()
	if err != nil {
		return err
	}
	relPath, err := filepath.Rel(changesDir, source)
	if err != nil {
		return err
	}

	targetInfo, err := lstatIfExists(filepath.Join(targetDir, relPath))
	if err != nil {
		return err
	}
	if targetInfo == nil {
		plan.Updates = append(plan.Updates, Update{RelPath: relPath, SourceInfo: sourceInfo})
		return nil
	}

	snapInfo, err := lstatIfExists(filepath.Join(z.SnapDir(), relPath))
	if err != nil {
		return err
	}
	switch {
	case snapInfo == nil:
		plan.Conflicts = append(plan.Conflicts, Conflict{
			RelPath: relPath, Reason: NotInSnapshot,
			SourceInfo: sourceInfo, TargetInfo: targetInfo,
		})
	case metadataMatches(targetInfo, snapInfo):
		plan.Updates = append(plan.Updates, Update{
			RelPath: relPath, SourceInfo: sourceInfo, TargetInfo: targetInfo,
		})
	default:
		plan.Conflicts = append(plan.Conflicts, Conflict{
			RelPath: relPath, Reason: ModifiedInTarget,
			SourceInfo: sourceInfo, TargetInfo: targetInfo,
		})
	}
	return nil
}

// ApplyUpdates copies every planned update from the change layer into
// targetDir.
func (p *Plan) ApplyUpdates(ctx context.Context, z *zone.Zone, targetDir string) error {
	for _, update := range p.Updates {
		if err := copyFromChanges(ctx, z, targetDir, update.RelPath); err != nil {
			return err
		}
	}
	return nil
}

// ApplyConflicts copies every planned conflict from the change layer
// into targetDir, overwriting the target's diverged copies. The caller
// decides whether that is acceptable.
func (p *Plan) ApplyConflicts(ctx context.Context, z *zone.Zone, targetDir string) error {
	for _, conflict := range p.Conflicts {
		if err := copyFromChanges(ctx, z, targetDir, conflict.RelPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFromChanges(ctx context.Context, z *zone.Zone, targetDir, relPath string) error {
	source := filepath.Join(z.ChangesDir(), relPath)
	target := filepath.Join(targetDir, relPath)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", target, err)
	}
	return copyFile(ctx, source, target)
}

// copyFile copies one file with cp, preserving properties and
// symlinks and reflinking where the filesystem supports it.
func copyFile(ctx context.Context, source, target string) error {
	command := exec.CommandContext(ctx, "cp",
		"--archive",
		"--reflink=auto",
		"--no-dereference",
		source, target)
	var stderr bytes.Buffer
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return fmt.Errorf("copying %s to %s: %w (stderr: %s)",
			source, target, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// lstatIfExists returns the metadata of path without following
// symlinks, or nil when the path does not exist. Relative symlink
// targets would not resolve across the layer directories anyway, so
// symlinks are always compared as themselves.
func lstatIfExists(path string) (fs.FileInfo, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return info, nil
}

// metadataMatches reports whether two files look unchanged: same size,
// modification time, permission bits, and type class. Checked in order
// of how likely a difference is.
func metadataMatches(x, y fs.FileInfo) bool {
	if x.Size() != y.Size() {
		return false
	}
	if !x.ModTime().Equal(y.ModTime()) {
		return false
	}
	if x.Mode().Perm() != y.Mode().Perm() {
		return false
	}
	return x.Mode().Type() == y.Mode().Type()
}

func deviceOf(path string) (uint64, error) {
	var stat syscall.Stat_t
	if err := syscall.Lstat(path, &stat); err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return uint64(stat.Dev), nil
}
