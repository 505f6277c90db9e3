// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

// Package daemon implements the background process that owns zone
// namespaces, and the client side that talks to it.
//
// The daemon runs as root of a private user namespace with its own
// mount namespace. For each zone in use it keeps one anchor process
// alive; the anchor holds a further pair of namespaces in which the
// zone's overlay is projected onto the project working directory.
// Clients ask the daemon for a zone's anchor pid over a unix socket
// and then join the anchor's namespaces themselves.
package daemon

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/zoner-project/zoner/lib/config"
	"github.com/zoner-project/zoner/lib/paths"
	"github.com/zoner-project/zoner/lib/zone"
)

// anchorHandle is the daemon's record of a live anchor process.
type anchorHandle struct {
	pid int
	// life is the daemon's end of the socketpair shared with the
	// anchor. The anchor blocks reading the other end, so closing
	// this (or the daemon dying) releases it.
	life io.Closer
}

func (h *anchorHandle) Close() error {
	if h.life == nil {
		return nil
	}
	return h.life.Close()
}

// Server answers zone-process requests over a unix socket. Connections
// are handled one at a time; the registry is only ever touched from
// Serve's goroutine and needs no lock.
type Server struct {
	root     paths.Root
	config   *config.Config
	log      *slog.Logger
	registry map[paths.ZoneName]*anchorHandle

	// spawnAnchor starts an anchor for the zone and returns its
	// handle once the anchor reports the projection mounted. Tests
	// substitute this; production wiring is in anchor.go.
	spawnAnchor func(z *zone.Zone) (*anchorHandle, error)

	// alive reports whether a previously spawned anchor still runs.
	alive func(pid int) bool
}

// NewServer returns a Server for the given root. uid and gid are the
// invoking user's ids in the initial namespace; anchors map their
// inner identity back to them.
func NewServer(root paths.Root, cfg *config.Config, log *slog.Logger, uid, gid int) *Server {
	s := &Server{
		root:     root,
		config:   cfg,
		log:      log,
		registry: make(map[paths.ZoneName]*anchorHandle),
		alive: func(pid int) bool {
			return syscall.Kill(pid, 0) == nil
		},
	}
	s.spawnAnchor = func(z *zone.Zone) (*anchorHandle, error) {
		// The overlay is mounted in the daemon's namespace; the
		// anchor's mount namespace starts as a copy of it, so the
		// anchor sees the overlay and only adds its own projection
		// bind mount.
		if err := z.Mount(); err != nil {
			return nil, err
		}
		log.Info("mounted overlay", "zone", z.Name, "mount", z.MountDir())
		return spawnAnchor(s.root, z.Name, uid, gid, cfg.Daemon.ReadyTimeout, log)
	}
	return s
}

// Serve accepts and handles connections until the listener is closed.
// A failed connection terminates that connection only.
func (s *Server) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(s.config.Daemon.RequestTimeout))

	reader := NewReader(conn)
	var req Request
	if err := ReadMessage(reader, &req); err != nil {
		if err != io.EOF {
			s.log.Warn("dropping connection", "error", err)
		}
		return
	}

	resp := s.handleRequest(&req)
	if err := WriteMessage(conn, resp); err != nil {
		s.log.Warn("writing response", "error", err)
	}
}

func (s *Server) handleRequest(req *Request) *Response {
	switch req.Action {
	case ActionZoneProcess:
		return s.zoneProcess(req.Zone)
	default:
		return &Response{Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
}

// zoneProcess returns the pid of the zone's anchor, starting one if
// none is running. At most one anchor exists per zone: a registry hit
// with a live pid answers without mounting or forking anything.
func (s *Server) zoneProcess(rawName string) *Response {
	name, err := paths.NewZoneName(rawName)
	if err != nil {
		return &Response{Error: fmt.Sprintf("invalid zone name: %v", err)}
	}

	if handle, ok := s.registry[name]; ok {
		if s.alive(handle.pid) {
			return &Response{OK: true, PID: handle.pid}
		}
		s.log.Info("anchor died, restarting", "zone", name, "pid", handle.pid)
		handle.Close()
		delete(s.registry, name)
	}

	z, err := zone.Load(s.root, name)
	if err != nil {
		return &Response{Error: err.Error()}
	}
	handle, err := s.spawnAnchor(z)
	if err != nil {
		return &Response{Error: fmt.Sprintf("starting anchor for zone %s: %v", name, err)}
	}
	s.registry[name] = handle
	s.log.Info("anchor ready", "zone", name, "pid", handle.pid)
	return &Response{OK: true, PID: handle.pid}
}
