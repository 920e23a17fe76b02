// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rootshell

import (
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/util"
)

const (
	// StderrPrefix tags every error-stream line in Result.Text.
	StderrPrefix = "ERROR: "

	// NoOutputText is returned by Text when the command printed nothing.
	NoOutputText = "Command executed successfully (no output)."

	// FailurePrefix starts the text of a result whose helper could not run.
	FailurePrefix = "Execution failed: "

	// exitNotFound and exitNotExecutable are the shell's codes for a
	// missing or non-executable command.
	exitNotExecutable = 126
	exitNotFound      = 127
)

// Status classifies a Result.
type Status int

const (
	// StatusSuccess means the helper exited 0.
	StatusSuccess Status = iota

	// StatusFailure means the helper could not be spawned, timed out, or
	// exited non-zero for a reason other than a missing command.
	StatusFailure

	// StatusNotFound means the shell could not find or execute the command
	// (exit 126/127), e.g. oculuspreferences missing on this firmware.
	StatusNotFound
)

// String returns "success", "failure", "not_found", or "unknown".
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Result is the outcome of one privileged command.
//
// The zero value is not meaningful; results come from Runner.Run.
type Result struct {
	// ID correlates log lines and spans for this invocation.
	ID string

	// Command is the text written to the helper.
	Command string

	// Stdout holds every stdout line in arrival order.
	Stdout []string

	// Stderr holds every stderr line in arrival order.
	Stderr []string

	// ExitCode is the helper's exit code, or -1 when it never exited
	// normally (spawn failure, killed by timeout).
	ExitCode int

	// Status is derived from Err and ExitCode.
	Status Status

	// Err is set when the helper could not be spawned, its streams could
	// not be read, or the context ended first.
	Err error

	// Duration is the wall time from spawn to exit.
	Duration time.Duration

	// ShowExitCode appends an "exit code: N" line to Text.
	ShowExitCode bool
}

// OK reports whether the command succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Text renders the combined output the way the control panel shows it:
// stdout lines, then "ERROR: "-prefixed stderr lines, then the optional
// exit-code marker.
func (r Result) Text() string {
	if r.Err != nil {
		return FailurePrefix + r.Err.Error()
	}

	var b strings.Builder
	for _, line := range r.Stdout {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, line := range r.Stderr {
		b.WriteString(StderrPrefix)
		b.WriteString(line)
		b.WriteByte('\n')
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		text = NoOutputText + "\n"
	}
	if r.ShowExitCode {
		text += fmt.Sprintf("exit code: %d\n", r.ExitCode)
	}
	return text
}

// Trimmed returns stdout joined with newlines and trimmed. Use it for
// commands whose answer is a value (cat, getprop, pgrep, echo $!).
func (r Result) Trimmed() string {
	return strings.TrimSpace(strings.Join(r.Stdout, "\n"))
}

// Contains reports whether the rendered text contains s.
func (r Result) Contains(s string) bool {
	return strings.Contains(r.Text(), s)
}

// Reason explains a non-successful result in one line.
func (r Result) Reason() string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case len(r.Stderr) > 0:
		return strings.TrimSpace(strings.Join(r.Stderr, "; "))
	case r.Status == StatusSuccess:
		return ""
	default:
		return fmt.Sprintf("exit code %d", r.ExitCode)
	}
}

// AsError converts a non-successful result into a *util.CommandError.
// Returns nil when the result is OK.
func (r Result) AsError() error {
	if r.OK() {
		return nil
	}
	return util.NewCommandError(r.Command, r.ExitCode, strings.Join(r.Stderr, "\n"), r.Err)
}

func deriveStatus(err error, exitCode int) Status {
	switch {
	case err != nil:
		return StatusFailure
	case exitCode == 0:
		return StatusSuccess
	case exitCode == exitNotFound || exitCode == exitNotExecutable:
		return StatusNotFound
	default:
		return StatusFailure
	}
}

// splitLines splits captured stream text into lines, dropping the final
// newline terminator. Empty input yields nil.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
