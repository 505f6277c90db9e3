// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// ActionZoneProcess asks the daemon for the pid of the anchor process
// holding the named zone's namespaces.
const ActionZoneProcess = "zone-process"

// maxMessageBytes bounds a single protocol line. Requests carry a zone
// name and responses a pid, so anything near this limit is garbage.
const maxMessageBytes = 64 * 1024

// Request is one client message: an action and its parameters, as a
// single JSON line.
type Request struct {
	Action string `json:"action"`
	Zone   string `json:"zone,omitempty"`
}

// Response is the daemon's reply to a Request.
type Response struct {
	OK    bool   `json:"ok"`
	PID   int    `json:"pid,omitempty"`
	Error string `json:"error,omitempty"`
}

// WriteMessage marshals v and writes it as one newline-terminated
// line.
func WriteMessage(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

// NewReader returns the buffered reader ReadMessage expects. Its
// buffer size is the message size limit: ReadMessage never reads a
// line past it.
func NewReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, maxMessageBytes)
}

// ReadMessage reads one newline-terminated line and unmarshals it into
// v. A line that overflows the reader's buffer is rejected rather than
// accumulated, bounding what a peer can make us hold.
func ReadMessage(r *bufio.Reader, v any) error {
	line, err := r.ReadSlice('\n')
	if err != nil {
		if err == bufio.ErrBufferFull {
			return fmt.Errorf("message exceeds the %d byte limit", maxMessageBytes)
		}
		if err == io.EOF && len(line) == 0 {
			return io.EOF
		}
		return fmt.Errorf("reading message: %w", err)
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("decoding message: %w", err)
	}
	return nil
}
