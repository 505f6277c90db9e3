// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

// Package zone manages zones: independent writable views of a
// snapshot. A zone stacks a private change layer over its snapshot
// with overlayfs; everything written inside the zone lands in the
// change layer, and the snapshot stays untouched.
package zone

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zoner-project/zoner/lib/jsonfile"
	"github.com/zoner-project/zoner/lib/paths"
	"github.com/zoner-project/zoner/lib/snapshot"
)

// ErrExists is wrapped into Create's error when a zone with the
// requested name is already present.
var ErrExists = errors.New("zone already exists")

// ErrNotFound is wrapped into Load's error when the zone directory
// does not exist.
var ErrNotFound = errors.New("zone does not exist")

// Info is the persisted record of a zone, stored as info.json in the
// zone directory.
type Info struct {
	Snapshot     paths.SnapName `json:"snapshot"`
	CreationTime time.Time      `json:"creation_time"`
}

// Zone is a loaded zone with all its directory paths resolved.
type Zone struct {
	Name paths.ZoneName
	Root paths.Root
	Info Info
}

// SnapDir returns the zone's snapshot directory, the overlay lower
// layer.
func (z *Zone) SnapDir() string { return z.Root.SnapDir(z.Info.Snapshot) }

// ChangesDir returns the zone's writable change layer, the overlay
// upper directory.
func (z *Zone) ChangesDir() string { return z.Root.ZoneChangesDir(z.Name) }

// MountDir returns the target of the zone's overlay mount.
func (z *Zone) MountDir() string { return z.Root.ZoneMountDir(z.Name) }

// Exists reports whether a zone directory with the given name exists.
func Exists(root paths.Root, name paths.ZoneName) bool {
	info, err := os.Stat(root.ZoneDir(name))
	return err == nil && info.IsDir()
}

// List returns the names of all zones under the root.
func List(root paths.Root) ([]paths.ZoneName, error) {
	entries, err := os.ReadDir(root.ZoneParentDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing zones: %w", err)
	}
	var names []paths.ZoneName
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name, err := paths.NewZoneName(entry.Name())
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Create makes a new zone on top of an existing snapshot: the zone
// directory, the change layer, the overlay work and mount directories,
// and the info record. A failed creation removes the partial zone
// directory so a retry is not blocked by debris.
func Create(root paths.Root, name paths.ZoneName, snap paths.SnapName) (*Zone, error) {
	snapExists, err := snapshot.Exists(root, snap)
	if err != nil {
		return nil, err
	}
	if !snapExists {
		return nil, fmt.Errorf("creating zone %s: snapshot %s does not exist", name, snap)
	}
	if err := os.MkdirAll(root.ZoneParentDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating zone parent directory: %w", err)
	}
	// Mkdir without MkdirAll: its failure on an existing directory is
	// the duplicate-zone check.
	if err := os.Mkdir(root.ZoneDir(name), 0o755); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("creating zone %s: %w", name, ErrExists)
		}
		return nil, fmt.Errorf("creating zone directory %s: %w", root.ZoneDir(name), err)
	}

	zone, err := populate(root, name, snap)
	if err != nil {
		os.RemoveAll(root.ZoneDir(name))
		return nil, err
	}
	return zone, nil
}

func populate(root paths.Root, name paths.ZoneName, snap paths.SnapName) (*Zone, error) {
	for _, dir := range []string{
		root.ZoneChangesDir(name),
		root.ZoneOvfsWorkDir(name),
		root.ZoneMountDir(name),
	} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating zone directory %s: %w", dir, err)
		}
	}
	info := Info{Snapshot: snap, CreationTime: time.Now().UTC()}
	if err := jsonfile.Write(root.ZoneInfoFile(name), info); err != nil {
		return nil, err
	}
	return &Zone{Name: name, Root: root, Info: info}, nil
}

// Load reads an existing zone's info record.
func Load(root paths.Root, name paths.ZoneName) (*Zone, error) {
	if !Exists(root, name) {
		return nil, fmt.Errorf("loading zone %s: %w", name, ErrNotFound)
	}
	file, err := jsonfile.Read[Info](root.ZoneInfoFile(name))
	if err != nil {
		return nil, err
	}
	return &Zone{Name: name, Root: root, Info: file.Contents}, nil
}

// LoadIfExists returns the zone when present and nil when not,
// reserving errors for actual failures.
func LoadIfExists(root paths.Root, name paths.ZoneName) (*Zone, error) {
	if !Exists(root, name) {
		return nil, nil
	}
	return Load(root, name)
}

// Delete removes a zone directory including its change layer. The
// snapshot it was stacked on is left alone.
func Delete(root paths.Root, name paths.ZoneName) error {
	if !Exists(root, name) {
		return fmt.Errorf("deleting zone %s: %w", name, ErrNotFound)
	}
	if err := os.RemoveAll(root.ZoneDir(name)); err != nil {
		return fmt.Errorf("deleting zone %s: %w", name, err)
	}
	return nil
}

// Mount stacks the zone's overlay: snapshot as the read-only lower
// layer, change layer as upper, mounted at the zone's mount directory.
// The caller must hold CAP_SYS_ADMIN in the user namespace owning the
// current mount namespace.
func (z *Zone) Mount() error {
	options := fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s",
		z.SnapDir(), z.ChangesDir(), z.Root.ZoneOvfsWorkDir(z.Name))
	for _, dir := range []string{z.SnapDir(), z.ChangesDir(), z.Root.ZoneOvfsWorkDir(z.Name)} {
		if err := validateOverlayPath(dir); err != nil {
			return err
		}
	}
	if err := unix.Mount("overlay", z.MountDir(), "overlay", 0, options); err != nil {
		return fmt.Errorf("mounting overlay for zone %s at %s: %w", z.Name, z.MountDir(), err)
	}
	return nil
}

// BindTo bind mounts the zone's overlay onto the project work
// directory, recursively so submounts under it stay visible.
func (z *Zone) BindTo(workDir string) error {
	if err := unix.Mount(z.MountDir(), workDir, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("bind mounting zone %s onto %s: %w", z.Name, workDir, err)
	}
	return nil
}

// validateOverlayPath checks that a path is safe for use in overlayfs
// mount options. The kernel parses options with commas as separators,
// so a path containing a comma could inject additional options (e.g.
// "lowerdir=/tmp,upperdir=/etc" would set upperdir to /etc instead of
// the real upper directory).
func validateOverlayPath(path string) error {
	if strings.Contains(path, ",") {
		return fmt.Errorf("overlay path %q contains a comma, which overlayfs uses as its option separator", path)
	}
	if strings.ContainsAny(path, "\x00\n\r") {
		return fmt.Errorf("overlay path %q contains invalid characters (null or newline)", path)
	}
	return nil
}
