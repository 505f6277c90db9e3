// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package namespace

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/zoner-project/zoner/lib/paths"
)

// EnterMount moves the calling goroutine's OS thread into the mount
// namespace of pid. The goroutine is locked to its thread and must
// stay locked for as long as it relies on being in the namespace;
// EnterMount never unlocks it. Unsharing CLONE_FS first detaches the
// thread's root and cwd attributes from the rest of the runtime's
// threads, which setns requires.
func EnterMount(pid int) error {
	runtime.LockOSThread()
	if err := unix.Unshare(unix.CLONE_FS); err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("unsharing filesystem attributes: %w", err)
	}
	file, err := os.Open(paths.ProcMountNamespace(pid))
	if err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("opening mount namespace of pid %d: %w", pid, err)
	}
	defer file.Close()
	if err := unix.Setns(int(file.Fd()), unix.CLONE_NEWNS); err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("joining mount namespace of pid %d: %w", pid, err)
	}
	return nil
}

// SameUserNamespace reports whether pid shares the calling process's
// user namespace.
func SameUserNamespace(pid int) (bool, error) {
	ours, err := os.Readlink(paths.ProcUserNamespace(os.Getpid()))
	if err != nil {
		return false, fmt.Errorf("reading own user namespace: %w", err)
	}
	theirs, err := os.Readlink(paths.ProcUserNamespace(pid))
	if err != nil {
		return false, fmt.Errorf("reading user namespace of pid %d: %w", pid, err)
	}
	return ours == theirs, nil
}

// ExecJoined replaces the current process with argv running inside the
// user and mount namespaces of pid, with dir as its working directory.
// Since an in-process user namespace join is impossible for a Go
// program, this execs nsenter(1), which joins the user namespace first
// (gaining capabilities in it) and the mount namespace second, then
// executes argv without dropping to a different identity
// (--preserve-credentials keeps the uid the mapping gives us).
//
// The working directory must be entered after the namespace switch: a
// cwd acquired beforehand would still reference the old namespace's
// mount of that path. nsenter's --wd does this; the in-process
// fallback chdirs after setns.
//
// When pid already shares our user namespace only the mount namespace
// needs joining, which works in-process; that path does not require
// nsenter to be installed. On success ExecJoined does not return.
func ExecJoined(pid int, dir string, argv []string, env []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("joining namespaces of pid %d: empty command", pid)
	}

	same, err := SameUserNamespace(pid)
	if err != nil {
		return err
	}
	if same {
		if err := EnterMount(pid); err != nil {
			return err
		}
		if dir != "" {
			if err := os.Chdir(dir); err != nil {
				return fmt.Errorf("changing into %s: %w", dir, err)
			}
		}
		path, err := exec.LookPath(argv[0])
		if err != nil {
			return fmt.Errorf("resolving %s: %w", argv[0], err)
		}
		return syscall.Exec(path, argv, env)
	}

	nsenter, err := exec.LookPath("nsenter")
	if err != nil {
		return fmt.Errorf("joining the user namespace of pid %d needs nsenter(1) from util-linux: %w", pid, err)
	}
	args := []string{
		"nsenter",
		"--target", fmt.Sprint(pid),
		"--user", "--mount",
		"--preserve-credentials",
	}
	if dir != "" {
		args = append(args, "--wd="+dir)
	}
	args = append(args, "--")
	args = append(args, argv...)
	return syscall.Exec(nsenter, args, env)
}
