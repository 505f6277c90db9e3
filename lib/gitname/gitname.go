// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitname derives default snapshot names from the state of a
// git repository. When the user does not name a snapshot explicitly,
// the current branch name is used; on a detached HEAD the abbreviated
// commit hash stands in. All commands target a specific directory via
// the -C flag so the caller never depends on the process working
// directory.
package gitname

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/zoner-project/zoner/lib/paths"
)

// Repository represents a git working tree at a specific directory.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout with surrounding whitespace trimmed. Stderr is captured
// separately and included in error messages on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Head returns the symbolic name of HEAD: the short branch name when a
// branch is checked out, or the abbreviated commit hash on a detached
// HEAD.
func (r *Repository) Head(ctx context.Context) (string, error) {
	branch, err := r.Run(ctx, "symbolic-ref", "--short", "HEAD")
	if err == nil {
		return branch, nil
	}
	hash, hashErr := r.Run(ctx, "rev-parse", "--short", "HEAD")
	if hashErr != nil {
		return "", fmt.Errorf("resolving HEAD in %s: %w", r.dir, hashErr)
	}
	return hash, nil
}

// SnapName returns the HEAD name converted to a valid snapshot name.
// Branch names may contain path separators (feature/thing); those are
// replaced with hyphens since snapshot names map to directory entries.
func (r *Repository) SnapName(ctx context.Context) (paths.SnapName, error) {
	head, err := r.Head(ctx)
	if err != nil {
		return "", err
	}
	return paths.NewSnapName(strings.ReplaceAll(head, "/", "-"))
}
