// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrRootNotFound is returned by Find when no metadata root exists
// beside any ancestor of the starting directory.
var ErrRootNotFound = errors.New("no zoner metadata root found")

// EnvRoot overrides root discovery when set. The shell exports it so
// that zoner invocations inside a zone resolve the same project even
// though the overlay hides the metadata root's sibling relationship.
const EnvRoot = "ZONER_DIR"

// Find walks up from startDir looking for a directory that has a
// ".zoner" sibling. It returns the metadata root of the first match,
// or ErrRootNotFound.
func Find(startDir string) (Root, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", startDir, err)
	}
	for {
		candidate := RootFor(dir)
		if info, err := os.Stat(string(candidate)); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

// FindFromEnv resolves the metadata root from the ZONER_DIR
// environment variable when set, and from Find(cwd) otherwise.
func FindFromEnv() (Root, error) {
	if dir := os.Getenv(EnvRoot); dir != "" {
		root := Root(dir)
		if err := root.Validate(); err != nil {
			return "", fmt.Errorf("%s: %w", EnvRoot, err)
		}
		return root, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory (does it still exist?): %w", err)
	}
	return Find(cwd)
}

// Create initializes the metadata root directory for the given project
// work directory.
func Create(workDir string) (Root, error) {
	root := RootFor(workDir)
	if err := os.MkdirAll(string(root), 0o755); err != nil {
		return "", fmt.Errorf("creating metadata root %s: %w", root, err)
	}
	return root, nil
}

// FindGitTopLevel walks up from startDir looking for a ".git" entry
// and returns the containing directory. Files count as well as
// directories: git worktrees use a ".git" file. Returns "" when no
// repository encloses startDir.
func FindGitTopLevel(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Lstat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
