// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// RootSuffix is appended to a project directory's path to form its
// metadata root.
const RootSuffix = ".zoner"

// Root is the absolute path of a project's zoner metadata root
// (".../PROJECT.zoner"). All layout methods derive paths from it; no
// other package hardcodes the directory structure.
type Root string

// RootFor returns the metadata root for the given project work
// directory.
func RootFor(workDir string) Root {
	return Root(workDir + RootSuffix)
}

func (r Root) String() string { return string(r) }

// WorkDir returns the project work directory this root belongs to.
// The overlay projection mount targets this path.
func (r Root) WorkDir() string {
	s := string(r)
	return s[:len(s)-len(RootSuffix)]
}

// ZoneParentDir returns the directory holding all zone directories.
func (r Root) ZoneParentDir() string { return filepath.Join(string(r), "zone") }

// ZoneDir returns the directory for a single zone.
func (r Root) ZoneDir(name ZoneName) string {
	return filepath.Join(r.ZoneParentDir(), string(name))
}

// ZoneInfoFile returns the path of a zone's persisted info record.
func (r Root) ZoneInfoFile(name ZoneName) string {
	return filepath.Join(r.ZoneDir(name), "info.json")
}

// ZoneChangesDir returns a zone's writable change layer, the overlay
// upper directory.
func (r Root) ZoneChangesDir(name ZoneName) string {
	return filepath.Join(r.ZoneDir(name), "changes")
}

// ZoneOvfsWorkDir returns a zone's overlay work directory. It must be
// on the same filesystem as the change layer; overlayfs uses it to
// prepare files before moving them into the upper directory.
func (r Root) ZoneOvfsWorkDir(name ZoneName) string {
	return filepath.Join(r.ZoneDir(name), "ovfs-work")
}

// ZoneMountDir returns the target of a zone's overlay mount.
func (r Root) ZoneMountDir(name ZoneName) string {
	return filepath.Join(r.ZoneDir(name), "mount")
}

// SnapParentDir returns the directory holding all snapshots.
func (r Root) SnapParentDir() string { return filepath.Join(string(r), "snap") }

// SnapDir returns the directory of a single snapshot.
func (r Root) SnapDir(name SnapName) string {
	return filepath.Join(r.SnapParentDir(), string(name))
}

// DaemonDir returns the daemon control directory.
func (r Root) DaemonDir() string { return filepath.Join(string(r), "daemon") }

// DaemonPidFile returns the daemon pid file path. The file doubles as
// the daemon's single-instance flock target.
func (r Root) DaemonPidFile() string {
	return filepath.Join(r.DaemonDir(), "process.pid")
}

// DaemonLogFile returns the daemon log file path.
func (r Root) DaemonLogFile() string { return filepath.Join(r.DaemonDir(), "log") }

// DaemonSocket returns the daemon's unix socket path.
func (r Root) DaemonSocket() string { return filepath.Join(r.DaemonDir(), "socket") }

// ConfigFile returns the optional configuration file path.
func (r Root) ConfigFile() string { return filepath.Join(string(r), "config.yaml") }

func procDir(pid int) string {
	return filepath.Join("/proc", strconv.Itoa(pid))
}

// ProcMountNamespace returns the mount namespace file of a process.
func ProcMountNamespace(pid int) string {
	return filepath.Join(procDir(pid), "ns", "mnt")
}

// ProcUserNamespace returns the user namespace file of a process.
func ProcUserNamespace(pid int) string {
	return filepath.Join(procDir(pid), "ns", "user")
}

// Validate checks that the root path is absolute and carries the
// expected suffix.
func (r Root) Validate() error {
	if !filepath.IsAbs(string(r)) {
		return fmt.Errorf("metadata root %q is not absolute", string(r))
	}
	if filepath.Base(string(r)) == RootSuffix || len(string(r)) <= len(RootSuffix) ||
		string(r)[len(string(r))-len(RootSuffix):] != RootSuffix {
		return fmt.Errorf("metadata root %q does not end in %q", string(r), RootSuffix)
	}
	return nil
}
