// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package gitname

import (
	"context"
	"os/exec"
	"testing"
)

// initRepo creates a git repository with one commit in a temp
// directory. Tests that need git skip when the binary is unavailable.
func initRepo(t *testing.T) *Repository {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	repo := NewRepository(dir)
	ctx := context.Background()

	run := func(args ...string) {
		t.Helper()
		if _, err := repo.Run(ctx, args...); err != nil {
			t.Fatalf("git %v: %v", args, err)
		}
	}
	run("init", "--initial-branch=main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test")
	run("commit", "--allow-empty", "--message", "initial")
	return repo
}

func TestHeadOnBranch(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)

	head, err := repo.Head(context.Background())
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != "main" {
		t.Errorf("head = %q, want main", head)
	}
}

func TestHeadDetached(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	ctx := context.Background()

	hash, err := repo.Run(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		t.Fatalf("rev-parse: %v", err)
	}
	if _, err := repo.Run(ctx, "checkout", "--detach", "HEAD"); err != nil {
		t.Fatalf("detach: %v", err)
	}

	head, err := repo.Head(ctx)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != hash {
		t.Errorf("head = %q, want commit hash %q", head, hash)
	}
}

func TestSnapNameSanitizesSlashes(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	ctx := context.Background()

	if _, err := repo.Run(ctx, "checkout", "-b", "feature/colors"); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	name, err := repo.SnapName(ctx)
	if err != nil {
		t.Fatalf("SnapName: %v", err)
	}
	if string(name) != "feature-colors" {
		t.Errorf("snap name = %q, want feature-colors", name)
	}
}

func TestRunOutsideRepository(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	repo := NewRepository(t.TempDir())
	if _, err := repo.Head(context.Background()); err == nil {
		t.Error("expected error outside a repository")
	}
}
