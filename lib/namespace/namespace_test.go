// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package namespace

import (
	"os"
	"os/exec"
	"syscall"
	"testing"

	"golang.org/x/sys/unix"
)

func TestMapUserToRoot(t *testing.T) {
	t.Parallel()
	uids, gids := MapUserToRoot(1000, 1001)
	if len(uids) != 1 || uids[0].ContainerID != 0 || uids[0].HostID != 1000 || uids[0].Size != 1 {
		t.Errorf("uid map = %+v", uids)
	}
	if len(gids) != 1 || gids[0].ContainerID != 0 || gids[0].HostID != 1001 || gids[0].Size != 1 {
		t.Errorf("gid map = %+v", gids)
	}
}

func TestMapRootToUser(t *testing.T) {
	t.Parallel()
	uids, gids := MapRootToUser(1000, 1001)
	if uids[0].ContainerID != 1000 || uids[0].HostID != 0 {
		t.Errorf("uid map = %+v", uids)
	}
	if gids[0].ContainerID != 1001 || gids[0].HostID != 0 {
		t.Errorf("gid map = %+v", gids)
	}
}

func TestUserMountAttr(t *testing.T) {
	t.Parallel()
	uids, gids := MapUserToRoot(os.Getuid(), os.Getgid())
	attr := UserMountAttr(uids, gids, false)

	wantFlags := uintptr(syscall.CLONE_NEWUSER | syscall.CLONE_NEWNS)
	if attr.Cloneflags != wantFlags {
		t.Errorf("clone flags = %#x, want %#x", attr.Cloneflags, wantFlags)
	}
	if attr.GidMappingsEnableSetgroups {
		t.Error("setgroups must be denied so gid_map can be written unprivileged")
	}
	if len(attr.AmbientCaps) != 0 {
		t.Errorf("ambient caps = %v, want none", attr.AmbientCaps)
	}

	attr = UserMountAttr(uids, gids, true)
	if len(attr.AmbientCaps) != 1 || attr.AmbientCaps[0] != unix.CAP_SYS_ADMIN {
		t.Errorf("ambient caps = %v, want [CAP_SYS_ADMIN]", attr.AmbientCaps)
	}
}

// TestCloneIntoUserNamespace starts a child in fresh user and mount
// namespaces and checks that it sees itself as root. Skips where user
// namespaces are unavailable (some kernels and container runtimes
// disable unprivileged user namespaces).
func TestCloneIntoUserNamespace(t *testing.T) {
	t.Parallel()
	uids, gids := MapUserToRoot(os.Getuid(), os.Getgid())

	command := exec.Command("id", "-u")
	command.SysProcAttr = UserMountAttr(uids, gids, false)
	out, err := command.Output()
	if err != nil {
		t.Skipf("cannot create user namespace here: %v", err)
	}
	if got := string(out); got != "0\n" {
		t.Errorf("uid inside namespace = %q, want 0", got)
	}
}

func TestExecJoinedEmptyCommand(t *testing.T) {
	t.Parallel()
	if err := ExecJoined(os.Getpid(), "", nil, nil); err == nil {
		t.Error("expected error for empty argv")
	}
}

func TestSameUserNamespaceSelf(t *testing.T) {
	t.Parallel()
	same, err := SameUserNamespace(os.Getpid())
	if err != nil {
		t.Fatalf("SameUserNamespace: %v", err)
	}
	if !same {
		t.Error("a process must share its own user namespace")
	}
}
