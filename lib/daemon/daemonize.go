// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zoner-project/zoner/lib/config"
	"github.com/zoner-project/zoner/lib/namespace"
	"github.com/zoner-project/zoner/lib/paths"
	"github.com/zoner-project/zoner/lib/term"
)

// DaemonCommand is the hidden subcommand the foreground `zoner daemon`
// re-executes to become the background daemon. The re-execution is
// what creates the daemon's namespaces: they must exist from process
// start so every runtime thread lives inside them.
const DaemonCommand = "internal-daemon"

const daemonReadyFD = 3

// Start launches the background daemon for the given root and waits
// until it is ready to serve. The foreground process returns once the
// daemon's socket is listening; daemon output goes to the log file.
func Start(root paths.Root, cfg *config.Config) (pid int, err error) {
	if err := os.MkdirAll(root.DaemonDir(), 0o755); err != nil {
		return 0, fmt.Errorf("creating daemon directory: %w", err)
	}
	logFile, err := os.OpenFile(root.DaemonLogFile(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening daemon log: %w", err)
	}
	defer logFile.Close()

	readEnd, writeEnd, err := os.Pipe()
	if err != nil {
		return 0, fmt.Errorf("creating readiness pipe: %w", err)
	}
	defer readEnd.Close()

	exe, err := os.Executable()
	if err != nil {
		writeEnd.Close()
		return 0, fmt.Errorf("resolving own executable: %w", err)
	}
	command := exec.Command(exe, DaemonCommand,
		"--root", root.String(),
		"--uid", strconv.Itoa(os.Getuid()),
		"--gid", strconv.Itoa(os.Getgid()))
	uids, gids := namespace.MapUserToRoot(os.Getuid(), os.Getgid())
	attr := namespace.UserMountAttr(uids, gids, false)
	attr.Setsid = true
	command.SysProcAttr = attr
	command.Stdout = logFile
	command.Stderr = logFile
	command.ExtraFiles = []*os.File{writeEnd}

	if err := command.Start(); err != nil {
		writeEnd.Close()
		return 0, fmt.Errorf("starting daemon (are unprivileged user namespaces enabled?): %w", err)
	}
	writeEnd.Close()
	pid = command.Process.Pid
	// The daemon outlives us; never wait for it.
	command.Process.Release()

	readEnd.SetReadDeadline(time.Now().Add(cfg.Daemon.ReadyTimeout))
	buf := make([]byte, 1)
	if _, err := readEnd.Read(buf); err != nil || buf[0] != readyByte {
		if err == nil {
			err = fmt.Errorf("unexpected readiness byte %#x", buf[0])
		} else if err == io.EOF {
			err = fmt.Errorf("daemon exited during startup")
		}
		return 0, fmt.Errorf("daemon did not become ready (see %s): %w",
			term.Dir(root.DaemonLogFile()), err)
	}
	return pid, nil
}

// RunDaemon is the daemon process body, entered via the hidden
// subcommand after the namespaces exist. uid and gid are the invoking
// user's initial-namespace ids, forwarded by Start.
func RunDaemon(root paths.Root, cfg *config.Config, uid, gid int) error {
	// Output goes to the log file; ANSI escapes are noise there.
	term.Disable()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Daemon.SlogLevel(),
	}))

	if err := namespace.UnsharePrivateMount(); err != nil {
		return fmt.Errorf("making mounts private: %w", err)
	}
	if err := os.MkdirAll(root.DaemonDir(), 0o755); err != nil {
		return fmt.Errorf("creating daemon directory: %w", err)
	}
	pidFile, err := lockPidFile(root.DaemonPidFile())
	if err != nil {
		return err
	}
	// The flock lives on the open fd. If the file became unreachable
	// the finalizer would close it at the next GC and silently release
	// the lock, so hold it here until the serve loop returns.
	defer pidFile.Close()

	// A previous daemon's socket may linger; the flock above
	// guarantees it is not in use.
	if err := os.Remove(root.DaemonSocket()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}
	listener, err := net.Listen("unix", root.DaemonSocket())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", root.DaemonSocket(), err)
	}
	defer listener.Close()

	ready := os.NewFile(daemonReadyFD, "ready")
	if ready == nil {
		return fmt.Errorf("readiness fd %d not inherited", daemonReadyFD)
	}
	if _, err := ready.Write([]byte{readyByte}); err != nil {
		return fmt.Errorf("reporting readiness: %w", err)
	}
	ready.Close()

	log.Info("daemon ready", "root", root.String(), "socket", root.DaemonSocket(), "pid", os.Getpid())
	return NewServer(root, cfg, log, uid, gid).Serve(listener)
}

// lockPidFile takes an exclusive flock on the pid file and records our
// pid in it. It returns the open file, whose fd carries the lock: the
// caller must keep it reachable for the life of the process, making it
// the single-instance guard. A second daemon on the same root fails
// here instead of stealing the socket.
func lockPidFile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening pid file: %w", err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("another daemon already runs on this root (pid file %s is locked)", path)
		}
		return nil, fmt.Errorf("locking pid file: %w", err)
	}
	if err := file.Truncate(0); err != nil {
		file.Close()
		return nil, fmt.Errorf("truncating pid file: %w", err)
	}
	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		file.Close()
		return nil, fmt.Errorf("writing pid file: %w", err)
	}
	return file, nil
}
