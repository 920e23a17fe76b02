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
	"context"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockRunner is a test double for Runner.
//
// Configure the mock by setting RunFunc before use. If RunFunc is nil and
// Run is called, it panics. IsRootAvailable falls back to running "id"
// through RunFunc when IsRootAvailableFunc is nil.
//
// # Examples
//
//	mock := &rootshell.MockRunner{
//	    RunFunc: func(ctx context.Context, command string) rootshell.Result {
//	        if command == "getprop ro.build.type" {
//	            return rootshell.Success(command, "userdebug")
//	        }
//	        return rootshell.Success(command)
//	    },
//	}
type MockRunner struct {
	// RunFunc is called when Run is invoked.
	RunFunc func(ctx context.Context, command string) Result

	// IsRootAvailableFunc is called when IsRootAvailable is invoked.
	IsRootAvailableFunc func(ctx context.Context) bool

	// Calls records every command passed to Run, in order.
	Calls []string

	mu sync.Mutex
}

// Run records the command and delegates to RunFunc. Options are applied so
// WithExitCode is reflected in the returned Result.
func (m *MockRunner) Run(ctx context.Context, command string, opts ...Option) Result {
	m.mu.Lock()
	m.Calls = append(m.Calls, command)
	fn := m.RunFunc
	m.mu.Unlock()

	if fn == nil {
		panic("MockRunner.RunFunc not set")
	}
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	res := fn(ctx, command)
	res.ShowExitCode = o.showExitCode
	return res
}

// IsRootAvailable delegates to IsRootAvailableFunc, or runs "id".
func (m *MockRunner) IsRootAvailable(ctx context.Context) bool {
	m.mu.Lock()
	fn := m.IsRootAvailableFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return m.Run(ctx, "id").Contains("uid=0")
}

// GetCalls returns a copy of the recorded commands.
func (m *MockRunner) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	copy(out, m.Calls)
	return out
}

// CallsContaining returns the recorded commands that contain substr.
func (m *MockRunner) CallsContaining(substr string) []string {
	var out []string
	for _, c := range m.GetCalls() {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears all recorded calls.
func (m *MockRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// Success builds a successful Result with the given stdout lines.
func Success(command string, stdout ...string) Result {
	return Result{Command: command, Stdout: stdout, ExitCode: 0, Status: StatusSuccess}
}

// Failure builds a failed Result with the given exit code and stderr lines.
func Failure(command string, exitCode int, stderr ...string) Result {
	return Result{
		Command:  command,
		Stderr:   stderr,
		ExitCode: exitCode,
		Status:   deriveStatus(nil, exitCode),
	}
}

var _ Runner = (*MockRunner)(nil)
