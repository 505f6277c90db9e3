// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zoner-project/zoner/lib/namespace"
	"github.com/zoner-project/zoner/lib/paths"
	"github.com/zoner-project/zoner/lib/zone"
)

// AnchorCommand is the hidden subcommand the daemon re-executes to run
// an anchor. The fd number is fixed by ExtraFiles: the first entry
// lands after stderr.
const (
	AnchorCommand = "internal-anchor"
	anchorReadyFD = 3
)

// readyByte is the single-byte frame the anchor sends once the
// projection mount is in place.
const readyByte = 'R'

// spawnAnchor re-executes this binary as an anchor for the zone, in
// fresh user and mount namespaces. The anchor's identity maps back to
// the invoking user's uid and gid so processes joining it create files
// with the right ownership; ambient CAP_SYS_ADMIN lets it mount
// despite the non-root inner uid. The anchor dies with the daemon via
// the parent-death signal.
//
// Readiness is a one-byte frame over a socketpair. The daemon's end
// stays open in the returned handle for the anchor's lifetime; the
// anchor blocks reading its end after the handshake, which is what
// keeps it (and the namespaces it holds) alive.
func spawnAnchor(root paths.Root, name paths.ZoneName, uid, gid int, readyTimeout time.Duration, log *slog.Logger) (*anchorHandle, error) {
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("creating anchor socketpair: %w", err)
	}
	daemonEnd := os.NewFile(uintptr(pair[0]), "anchor-life")
	anchorEnd := os.NewFile(uintptr(pair[1]), "anchor-ready")
	defer anchorEnd.Close()

	exe, err := os.Executable()
	if err != nil {
		daemonEnd.Close()
		return nil, fmt.Errorf("resolving own executable: %w", err)
	}
	command := exec.Command(exe, AnchorCommand,
		"--root", root.String(),
		"--zone", string(name))
	uids, gids := namespace.MapRootToUser(uid, gid)
	attr := namespace.UserMountAttr(uids, gids, true)
	attr.Pdeathsig = syscall.SIGKILL
	command.SysProcAttr = attr
	command.ExtraFiles = []*os.File{anchorEnd}
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr

	if err := command.Start(); err != nil {
		daemonEnd.Close()
		return nil, fmt.Errorf("starting anchor: %w", err)
	}
	// Reap the anchor whenever it dies so its pid does not linger as
	// a zombie and liveness checks see the death.
	go command.Wait()

	conn, err := net.FileConn(daemonEnd)
	daemonEnd.Close()
	if err != nil {
		command.Process.Kill()
		return nil, fmt.Errorf("wrapping anchor socketpair: %w", err)
	}
	conn.SetReadDeadline(time.Now().Add(readyTimeout))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err != nil || buf[0] != readyByte {
		conn.Close()
		command.Process.Kill()
		if err != nil {
			return nil, fmt.Errorf("waiting for anchor readiness: %w", err)
		}
		return nil, fmt.Errorf("anchor sent unexpected readiness byte %#x", buf[0])
	}
	log.Debug("anchor handshake complete", "zone", name, "pid", command.Process.Pid)
	return &anchorHandle{pid: command.Process.Pid, life: conn}, nil
}

// RunAnchor is the anchor process body. It runs in namespaces the
// daemon created: a mount namespace copied from the daemon's (where
// the zone overlay is already mounted) and a user namespace mapping
// back to the invoking user. It bind mounts the overlay onto the
// project working directory, reports readiness on the inherited
// socketpair fd, and blocks until the daemon goes away.
func RunAnchor(root paths.Root, name paths.ZoneName) error {
	z, err := zone.Load(root, name)
	if err != nil {
		return err
	}
	// Mounts must not leak back into the daemon's namespace.
	if err := namespace.UnsharePrivateMount(); err != nil {
		return fmt.Errorf("making mounts private: %w", err)
	}
	if err := z.BindTo(root.WorkDir()); err != nil {
		return err
	}

	ready := os.NewFile(uintptr(anchorReadyFD), "ready")
	if ready == nil {
		return fmt.Errorf("readiness fd %d not inherited", anchorReadyFD)
	}
	if _, err := ready.Write([]byte{readyByte}); err != nil {
		return fmt.Errorf("reporting readiness: %w", err)
	}

	// The read only returns when the daemon's end closes.
	buf := make([]byte, 1)
	for {
		if _, err := ready.Read(buf); err != nil {
			return nil
		}
	}
}
