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
	"errors"
	"sort"
	"strings"
	"sync"
)

// fakeTable is an in-memory ProcessTable. Each launched path becomes a
// process whose command line is "sh <path>".
type fakeTable struct {
	mu       sync.Mutex
	nextPID  int
	procs    map[int]string
	launches int
	kills    []int

	launchErr error
	findErr   error
}

func newFakeTable() *fakeTable {
	return &fakeTable{nextPID: 1000, procs: make(map[int]string)}
}

func (f *fakeTable) Launch(ctx context.Context, path string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launchErr != nil {
		return 0, f.launchErr
	}
	f.nextPID++
	f.procs[f.nextPID] = "sh " + path
	f.launches++
	return f.nextPID, nil
}

func (f *fakeTable) Alive(ctx context.Context, pid int, pattern string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmdline, ok := f.procs[pid]
	return ok && strings.Contains(cmdline, pattern), nil
}

func (f *fakeTable) Kill(ctx context.Context, pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.procs, pid)
	f.kills = append(f.kills, pid)
	return nil
}

func (f *fakeTable) KillMatching(ctx context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pid, cmdline := range f.procs {
		if strings.Contains(cmdline, pattern) {
			delete(f.procs, pid)
		}
	}
	return nil
}

func (f *fakeTable) Find(ctx context.Context, pattern string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var pids []int
	for pid, cmdline := range f.procs {
		if strings.Contains(cmdline, pattern) {
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids, nil
}

// spawn adds a process outside the supervisor, like an instance left
// behind by an older build.
func (f *fakeTable) spawn(cmdline string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPID++
	f.procs[f.nextPID] = cmdline
	return f.nextPID
}

func (f *fakeTable) count(pattern string) int {
	pids, _ := f.Find(context.Background(), pattern)
	return len(pids)
}

var errLaunch = errors.New("launch refused")

var _ ProcessTable = (*fakeTable)(nil)
