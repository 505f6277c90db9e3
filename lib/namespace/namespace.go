// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

// Package namespace creates and joins Linux user and mount namespaces
// for rootless operation. The daemon and its per-zone anchor processes
// live in a private user namespace where the invoking user is mapped
// to root, which grants them CAP_SYS_ADMIN over mount namespaces they
// own without any real privilege on the host.
//
// New namespaces are always established at process start: children are
// re-executions of /proc/self/exe with hidden subcommands, configured
// via SysProcAttr so the kernel creates the namespaces at clone time.
// The Go runtime writes the child's uid_map, gid_map and setgroups
// files from the parent and holds the child on an internal pipe until
// the mappings are in place, so the child never observes itself
// unmapped.
//
// Joining existing namespaces is asymmetric. A mount namespace can be
// entered in-process on a locked OS thread. A user namespace cannot:
// setns(CLONE_NEWUSER) fails with EINVAL for any multithreaded
// process, and the Go runtime is always multithreaded. ExecJoined
// therefore replaces the whole process via nsenter(1).
package namespace

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// MapUserToRoot returns uid and gid mappings that make the given host
// identity appear as root inside the new user namespace. The daemon
// runs under this mapping so it can mount overlay filesystems.
func MapUserToRoot(uid, gid int) (uids, gids []syscall.SysProcIDMap) {
	uids = []syscall.SysProcIDMap{{ContainerID: 0, HostID: uid, Size: 1}}
	gids = []syscall.SysProcIDMap{{ContainerID: 0, HostID: gid, Size: 1}}
	return uids, gids
}

// MapRootToUser returns uid and gid mappings for a namespace created
// by a process that is root in its own user namespace (the daemon):
// that root maps back to the original user's ids. Work handed to the
// user runs under this mapping so files it creates carry the expected
// ownership, not root's.
func MapRootToUser(uid, gid int) (uids, gids []syscall.SysProcIDMap) {
	uids = []syscall.SysProcIDMap{{ContainerID: uid, HostID: 0, Size: 1}}
	gids = []syscall.SysProcIDMap{{ContainerID: gid, HostID: 0, Size: 1}}
	return uids, gids
}

// UserMountAttr returns the SysProcAttr for a child started in fresh
// user and mount namespaces with the given identity mappings. The
// child's setgroups file is set to "deny", which the kernel requires
// before an unprivileged process may write gid_map.
//
// When the mappings give the child a non-root uid inside the
// namespace, execve strips the capabilities gained from namespace
// ownership. keepCaps raises CAP_SYS_ADMIN as an ambient capability
// so such a child can still mount.
func UserMountAttr(uids, gids []syscall.SysProcIDMap, keepCaps bool) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{
		Cloneflags:                 syscall.CLONE_NEWUSER | syscall.CLONE_NEWNS,
		UidMappings:                uids,
		GidMappings:                gids,
		GidMappingsEnableSetgroups: false,
	}
	if keepCaps {
		attr.AmbientCaps = []uintptr{unix.CAP_SYS_ADMIN}
	}
	return attr
}

// MountAttr returns the SysProcAttr for a child started in a fresh
// mount namespace only. The caller must already be root in a user
// namespace that owns its mount namespace, or really privileged.
func MountAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Cloneflags: syscall.CLONE_NEWNS}
}

// UnsharePrivateMount detaches mount propagation for the calling
// process's mount namespace. Most distributions mount / as shared, in
// which case mounts made here would propagate back to the host
// namespace; remounting recursively as slave keeps host mount events
// visible while containing ours.
func UnsharePrivateMount() error {
	return unix.Mount("", "/", "", unix.MS_REC|unix.MS_SLAVE, "")
}
