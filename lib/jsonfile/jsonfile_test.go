// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package jsonfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type record struct {
	Snapshot string    `json:"snapshot"`
	Created  time.Time `json:"creation_time"`
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "info.json")
	want := record{Snapshot: "main", Created: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read[record](path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Contents != want {
		t.Errorf("contents = %+v, want %+v", got.Contents, want)
	}
	if got.Writer.Program != "zoner" {
		t.Errorf("writer program = %q, want zoner", got.Writer.Program)
	}
	if got.Writer.UpdateTime.IsZero() {
		t.Error("writer update time not recorded")
	}
}

func TestReadMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "info.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := Read[record](path); err == nil {
		t.Error("expected decode error")
	}
}

func TestReadMissing(t *testing.T) {
	t.Parallel()

	if _, err := Read[record](filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "info.json")
	if err := Write(path, record{Snapshot: "s"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "info.json" {
		t.Errorf("directory entries = %v, want only info.json", entries)
	}
}
