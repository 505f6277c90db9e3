// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

// Package term centralizes the CLI's colored output. Each helper
// paints one semantic category; callers never pick colors directly,
// so output stays consistent across subcommands. Color is
// automatically suppressed on non-TTY output, and [Disable] turns it
// off unconditionally for processes whose output goes to a log file.
package term

import "github.com/fatih/color"

var (
	dirPainter     = color.New(color.FgCyan)
	cmdPainter     = color.New(color.FgBlue, color.Bold)
	errPainter     = color.New(color.FgRed, color.Bold)
	successPainter = color.New(color.FgGreen, color.Bold)
	warnPainter    = color.New(color.FgYellow)
)

// Dir paints a filesystem path.
func Dir(path string) string { return dirPainter.Sprint(path) }

// Cmd paints a command line the user may want to run.
func Cmd(command string) string { return cmdPainter.Sprint(command) }

// Err paints an error label.
func Err(label string) string { return errPainter.Sprint(label) }

// Success paints a success label.
func Success(label string) string { return successPainter.Sprint(label) }

// Warn paints a warning label.
func Warn(label string) string { return warnPainter.Sprint(label) }

// Disable turns off all coloring for the life of the process. The
// daemon calls this before redirecting output to its log file; ANSI
// escapes are noise in a log.
func Disable() { color.NoColor = true }
