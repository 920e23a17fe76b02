// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package util

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Command Error Type
// =============================================================================

// CommandError wraps a failed privileged command with its output context.
//
// # Description
//
// The root shell reports failures as text. Layers that need a Go error
// (script supervisor, installer, tweak catalogue) convert a failed result
// into a CommandError so callers can use errors.As instead of matching on
// the text shape.
//
// # Example
//
//	err := NewCommandError("pm install -r /cache/Shizuku.apk", 1, "INSTALL_FAILED_INVALID_APK", nil)
//	fmt.Println(err) // pm install -r /cache/Shizuku.apk (exit 1): INSTALL_FAILED_INVALID_APK
//
// # Thread Safety
//
// CommandError is immutable after creation.
type CommandError struct {
	// Command is the shell text that was executed.
	Command string

	// ExitCode is the helper's exit code (-1 if unknown).
	ExitCode int

	// Stderr holds the trimmed error stream.
	Stderr string

	// Wrapped is the underlying error (may be nil).
	Wrapped error
}

// Error returns "<command> (exit N): <stderr or wrapped>".
//
// Multi-line commands are shortened to their first line followed by "..."
// so scripts do not flood status output.
func (e *CommandError) Error() string {
	cmd := firstLine(e.Command)
	if e.Stderr != "" {
		return fmt.Sprintf("%s (exit %d): %s", cmd, e.ExitCode, e.Stderr)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s (exit %d): %v", cmd, e.ExitCode, e.Wrapped)
	}
	return fmt.Sprintf("%s (exit %d)", cmd, e.ExitCode)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Wrapped
}

// HasStderr reports whether error-stream output was captured.
func (e *CommandError) HasStderr() bool {
	return e.Stderr != ""
}

var _ error = (*CommandError)(nil)

// =============================================================================
// Constructors
// =============================================================================

// NewCommandError creates a CommandError. Stderr is trimmed.
func NewCommandError(cmd string, exitCode int, stderr string, wrapped error) *CommandError {
	return &CommandError{
		Command:  cmd,
		ExitCode: exitCode,
		Stderr:   strings.TrimSpace(stderr),
		Wrapped:  wrapped,
	}
}

// WrapCommandError wraps err into a CommandError unless it already is one.
// Returns nil for a nil err.
func WrapCommandError(err error, cmd string, exitCode int, stderr string) *CommandError {
	if err == nil {
		return nil
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr
	}
	return NewCommandError(cmd, exitCode, stderr, err)
}

// ExtractStderr returns the first non-empty Stderr found in err's chain.
func ExtractStderr(err error) string {
	for err != nil {
		if cmdErr, ok := err.(*CommandError); ok && cmdErr.HasStderr() {
			return cmdErr.Stderr
		}
		err = errors.Unwrap(err)
	}
	return ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
