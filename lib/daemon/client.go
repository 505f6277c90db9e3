// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"fmt"
	"net"
	"time"

	"github.com/zoner-project/zoner/lib/paths"
	"github.com/zoner-project/zoner/lib/term"
)

// ZoneProcessPID asks the running daemon for the pid of the anchor
// holding the named zone. The error for an unreachable socket suggests
// starting the daemon, since that is almost always the cause.
func ZoneProcessPID(root paths.Root, name paths.ZoneName, timeout time.Duration) (int, error) {
	conn, err := net.DialTimeout("unix", root.DaemonSocket(), timeout)
	if err != nil {
		return 0, fmt.Errorf("connecting to the daemon (is %s running?): %w",
			term.Cmd("zoner daemon"), err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	req := Request{Action: ActionZoneProcess, Zone: string(name)}
	if err := WriteMessage(conn, req); err != nil {
		return 0, err
	}
	var resp Response
	if err := ReadMessage(NewReader(conn), &resp); err != nil {
		return 0, err
	}
	if !resp.OK {
		return 0, fmt.Errorf("daemon refused zone-process request: %s", resp.Error)
	}
	if resp.PID <= 0 {
		return 0, fmt.Errorf("daemon returned invalid pid %d", resp.PID)
	}
	return resp.PID, nil
}
