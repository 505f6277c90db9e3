// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

// Package jsonfile reads and writes zoner's persisted JSON records.
// Every record is wrapped with writer provenance (program name,
// version, write time) so that a record written by a future zoner can
// be diagnosed by an older one and vice versa. Unknown fields are
// ignored on read for the same reason.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zoner-project/zoner/lib/version"
)

// File wraps persisted contents with provenance metadata.
type File[T any] struct {
	Contents T          `json:"contents"`
	Writer   WriterInfo `json:"writer"`
}

// WriterInfo records which program wrote a file, and when.
type WriterInfo struct {
	Program    string    `json:"program"`
	Version    string    `json:"version"`
	UpdateTime time.Time `json:"update_time"`
}

// Write marshals value wrapped with current provenance and writes it
// atomically: the record lands under a temporary name in the target
// directory and is renamed into place, so readers never observe a
// partially written file.
func Write[T any](path string, value T) error {
	wrapped := File[T]{
		Contents: value,
		Writer: WriterInfo{
			Program:    "zoner",
			Version:    version.Short(),
			UpdateTime: time.Now().UTC(),
		},
	}
	data, err := json.MarshalIndent(&wrapped, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}
	return nil
}

// Read unmarshals the record at path.
func Read[T any](path string) (*File[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var wrapped File[T]
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &wrapped, nil
}
