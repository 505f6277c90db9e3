// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"fmt"
	"strings"
	"unicode"
)

// ZoneName identifies a zone. It is used both as a registry key and as
// a path segment under the metadata root, so it is validated on
// construction and never trusted from the wire without re-validation.
type ZoneName string

// SnapName identifies a snapshot, with the same validation rules as
// ZoneName.
type SnapName string

// maxNameLength matches the common filesystem limit for a single path
// component.
const maxNameLength = 255

// NewZoneName validates raw and returns it as a ZoneName.
func NewZoneName(raw string) (ZoneName, error) {
	if err := validateName(raw); err != nil {
		return "", fmt.Errorf("invalid zone name %q: %w", raw, err)
	}
	return ZoneName(raw), nil
}

// NewSnapName validates raw and returns it as a SnapName.
func NewSnapName(raw string) (SnapName, error) {
	if err := validateName(raw); err != nil {
		return "", fmt.Errorf("invalid snapshot name %q: %w", raw, err)
	}
	return SnapName(raw), nil
}

func (n ZoneName) String() string { return string(n) }

func (n SnapName) String() string { return string(n) }

// validateName enforces the rules for names used as path segments:
// non-empty, at most 255 bytes, printable, and free of path
// metacharacters. "/" would escape the zone/ or snap/ directory; "."
// and ".." are directory references, not names.
func validateName(raw string) error {
	switch raw {
	case "":
		return fmt.Errorf("name is empty")
	case ".", "..":
		return fmt.Errorf("name is a directory reference")
	}
	if len(raw) > maxNameLength {
		return fmt.Errorf("name is %d bytes, limit is %d", len(raw), maxNameLength)
	}
	if strings.ContainsRune(raw, '/') {
		return fmt.Errorf("name contains %q", "/")
	}
	for _, r := range raw {
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
			return fmt.Errorf("name contains non-printable character %q", r)
		}
	}
	return nil
}
