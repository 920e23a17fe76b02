// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scripts

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/rootshell"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/util"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// ProcessTable is the operating-system boundary for managed scripts.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ProcessTable interface {
	// Launch starts the script at path detached from the caller and
	// returns its pid. Output is discarded.
	Launch(ctx context.Context, path string) (int, error)

	// Alive reports whether pid exists and its command line contains
	// pattern. A recycled pid running something else reports false.
	Alive(ctx context.Context, pid int, pattern string) (bool, error)

	// Kill terminates pid and its process group. Killing a pid that no
	// longer exists is not an error.
	Kill(ctx context.Context, pid int) error

	// KillMatching terminates every process whose command line contains
	// pattern. No match is not an error.
	KillMatching(ctx context.Context, pattern string) error

	// Find returns the pids of processes whose command line contains
	// pattern, in ascending order.
	Find(ctx context.Context, pattern string) ([]int, error)
}

// -----------------------------------------------------------------------------
// ShellTable
// -----------------------------------------------------------------------------

// ShellTable implements ProcessTable with shell commands run as root.
//
// Scripts are launched with setsid so each one leads its own process
// group; Kill signals the whole group, which also reaps pipeline members
// such as the interceptor's logcat reader.
type ShellTable struct {
	runner rootshell.Runner
}

// NewShellTable creates a ShellTable over runner.
func NewShellTable(runner rootshell.Runner) *ShellTable {
	return &ShellTable{runner: runner}
}

// Launch runs "setsid nohup PATH" in the background and reads "$!".
func (t *ShellTable) Launch(ctx context.Context, path string) (int, error) {
	cmd := util.JoinCommands(
		fmt.Sprintf("setsid nohup %s > /dev/null 2>&1 < /dev/null &", util.ShellQuote(path)),
		"echo $!",
	)
	res := t.runner.Run(ctx, cmd)
	if !res.OK() {
		return 0, fmt.Errorf("launch %s: %w", path, res.AsError())
	}
	pid, err := lastPID(res.Stdout)
	if err != nil {
		return 0, fmt.Errorf("launch %s: %w", path, err)
	}
	return pid, nil
}

// Alive checks "kill -0" and then the pid's /proc cmdline.
func (t *ShellTable) Alive(ctx context.Context, pid int, pattern string) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	cmd := fmt.Sprintf("kill -0 %d 2>/dev/null && tr '\\0' ' ' < /proc/%d/cmdline", pid, pid)
	res := t.runner.Run(ctx, cmd)
	if res.Err != nil {
		return false, fmt.Errorf("probe pid %d: %w", pid, res.Err)
	}
	if !res.OK() {
		return false, nil
	}
	return strings.Contains(res.Trimmed(), pattern), nil
}

// Kill sends SIGTERM to the process group led by pid, falling back to
// the single pid.
func (t *ShellTable) Kill(ctx context.Context, pid int) error {
	if pid <= 0 {
		return nil
	}
	cmd := fmt.Sprintf("kill -s TERM -- -%d 2>/dev/null || kill -s TERM %d 2>/dev/null; true", pid, pid)
	res := t.runner.Run(ctx, cmd)
	if res.Err != nil {
		return fmt.Errorf("kill pid %d: %w", pid, res.Err)
	}
	return nil
}

// KillMatching runs "pkill -f PATTERN". pkill exits 1 when nothing matched.
func (t *ShellTable) KillMatching(ctx context.Context, pattern string) error {
	res := t.runner.Run(ctx, "pkill -f "+util.ShellQuote(pattern))
	if res.OK() || (res.Err == nil && res.ExitCode == 1) {
		return nil
	}
	return fmt.Errorf("pkill %s: %w", pattern, res.AsError())
}

// Find runs "pgrep -f PATTERN". pgrep exits 1 when nothing matched.
func (t *ShellTable) Find(ctx context.Context, pattern string) ([]int, error) {
	res := t.runner.Run(ctx, "pgrep -f "+util.ShellQuote(pattern))
	if res.Err == nil && res.ExitCode == 1 {
		return nil, nil
	}
	if !res.OK() {
		return nil, fmt.Errorf("pgrep %s: %w", pattern, res.AsError())
	}
	var pids []int
	for _, line := range res.Stdout {
		pid, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids, nil
}

func lastPID(lines []string) (int, error) {
	for i := len(lines) - 1; i >= 0; i-- {
		s := strings.TrimSpace(lines[i])
		if s == "" {
			continue
		}
		pid, err := strconv.Atoi(s)
		if err != nil || pid <= 0 {
			return 0, fmt.Errorf("unexpected pid output %q", s)
		}
		return pid, nil
	}
	return 0, fmt.Errorf("no pid reported")
}

var _ ProcessTable = (*ShellTable)(nil)
