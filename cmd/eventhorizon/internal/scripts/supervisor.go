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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// Lifecycle State
// =============================================================================

// State is the lifecycle state of a managed script.
type State int

const (
	// StateUnknown means the supervisor has not looked yet.
	StateUnknown State = iota

	// StateStarting covers writing the file and launching it.
	StateStarting

	// StateRunning means a live instance was launched or discovered.
	StateRunning

	// StateStopping covers killing the instance.
	StateStopping

	// StateStopped means no instance is running.
	StateStopped
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of one kind.
type Status struct {
	Kind      Kind
	State     State
	PID       int
	StartedAt time.Time
	Path      string
}

// Running reports whether State is StateRunning.
func (s Status) Running() bool {
	return s.State == StateRunning
}

// Handle refers to a started script instance.
type Handle struct {
	Kind      Kind
	PID       int
	StartedAt time.Time

	sup *Supervisor
}

// Stop stops the handle's kind. It is equivalent to Supervisor.Stop and
// is a no-op if the kind was already stopped.
func (h Handle) Stop(ctx context.Context) error {
	if h.sup == nil {
		return nil
	}
	return h.sup.Stop(ctx, h.Kind)
}

// =============================================================================
// Supervisor
// =============================================================================

// entry is one row of the resource table.
type entry struct {
	state     State
	pid       int
	def       Definition
	startedAt time.Time
}

// Supervisor owns the managed scripts in one script directory.
//
// # Thread Safety
//
// Supervisor is safe for concurrent use. Start and Stop for the same lock
// key (kind, or group when set) run one at a time; Status never waits on
// them and reports Starting or Stopping while one is in flight.
type Supervisor struct {
	dir    string
	table  ProcessTable
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	sems    map[string]chan struct{}
}

// NewSupervisor creates a supervisor that keeps script, pid and lock files
// in dir. A nil logger discards log output.
func NewSupervisor(dir string, table ProcessTable, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Supervisor{
		dir:     dir,
		table:   table,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
		sems:    make(map[string]chan struct{}),
	}
}

// Dir returns the script directory.
func (s *Supervisor) Dir() string { return s.dir }

// ScriptPath returns the file path for kind.
func (s *Supervisor) ScriptPath(kind Kind) string {
	return filepath.Join(s.dir, kind.FileName)
}

func (s *Supervisor) pidPath(kind Kind) string {
	return s.ScriptPath(kind) + ".pid"
}

// Start writes def to the script directory and launches it.
//
// # Description
//
// Under the kind's lock: stops any running instance of the kind and of
// every kind in its group, overwrites the script file with mode 0755,
// launches it detached, and records the pid in memory and in
// "<file>.pid".
//
// # Outputs
//
//   - Handle: the new instance.
//   - error: ErrUnknownKind, ErrEmptyScript, *ErrLockHeld, or a wrapped
//     write/launch failure. On failure the kind is left stopped.
func (s *Supervisor) Start(ctx context.Context, def Definition) (Handle, error) {
	if err := def.validate(); err != nil {
		return Handle{}, err
	}
	kind, _ := LookupKind(def.Kind.Name)
	def.Kind = kind

	ctx, span := tracer.Start(ctx, "scripts.Start",
		trace.WithAttributes(attribute.String("scripts.kind", kind.Name)),
	)
	defer span.End()

	release, err := s.lock(ctx, kind)
	if err != nil {
		recordStart(kind, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Handle{}, err
	}
	defer release()

	handle, err := s.startLocked(ctx, def)
	recordStart(kind, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("script start failed", "kind", kind.Name, "error", err)
		return Handle{}, err
	}
	span.SetAttributes(attribute.Int("scripts.pid", handle.PID))
	s.logger.Info("script started", "kind", kind.Name, "pid", handle.PID, "path", s.ScriptPath(kind))
	return handle, nil
}

func (s *Supervisor) startLocked(ctx context.Context, def Definition) (Handle, error) {
	kind := def.Kind
	for _, member := range groupMembers(kind) {
		if err := s.stopLocked(ctx, member); err != nil {
			return Handle{}, fmt.Errorf("stop previous %s: %w", member.Name, err)
		}
	}

	s.setState(kind, StateStarting, 0, def, time.Time{})

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.setState(kind, StateStopped, 0, def, time.Time{})
		return Handle{}, fmt.Errorf("create script dir: %w", err)
	}
	path := s.ScriptPath(kind)
	if err := writeExecutable(path, def.Body); err != nil {
		s.setState(kind, StateStopped, 0, def, time.Time{})
		return Handle{}, err
	}

	pid, err := s.table.Launch(ctx, path)
	if err != nil {
		s.setState(kind, StateStopped, 0, def, time.Time{})
		return Handle{}, err
	}
	if err := os.WriteFile(s.pidPath(kind), []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		s.logger.Warn("failed to write pid file", "kind", kind.Name, "error", err)
	}

	started := s.now()
	s.setState(kind, StateRunning, pid, def, started)
	return Handle{Kind: kind, PID: pid, StartedAt: started, sup: s}, nil
}

// Stop stops every instance of kind. Stopping a kind that is not running
// returns nil.
func (s *Supervisor) Stop(ctx context.Context, kind Kind) error {
	known, err := LookupKind(kind.Name)
	if err != nil {
		return err
	}
	kind = known

	ctx, span := tracer.Start(ctx, "scripts.Stop",
		trace.WithAttributes(attribute.String("scripts.kind", kind.Name)),
	)
	defer span.End()

	release, err := s.lock(ctx, kind)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer release()

	if err := s.stopLocked(ctx, kind); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("script stop failed", "kind", kind.Name, "error", err)
		return err
	}
	return nil
}

// stopLocked kills the recorded pid and any stray instance of kind. The
// caller holds the kind's lock.
func (s *Supervisor) stopLocked(ctx context.Context, kind Kind) error {
	s.mu.Lock()
	e := s.entryLocked(kind)
	pid := e.pid
	prev := e.state
	if prev != StateStopped {
		e.state = StateStopping
	}
	s.mu.Unlock()

	// Only signal pids still running this script; a stale pid file may
	// name a recycled pid.
	killed := 0
	for _, p := range uniquePIDs(pid, readPIDFile(s.pidPath(kind))) {
		alive, err := s.table.Alive(ctx, p, kind.FileName)
		if err != nil {
			s.restoreState(kind, prev)
			return err
		}
		if !alive {
			continue
		}
		if err := s.table.Kill(ctx, p); err != nil {
			s.restoreState(kind, prev)
			return err
		}
		killed = p
	}
	if err := s.table.KillMatching(ctx, s.ScriptPath(kind)); err != nil {
		s.restoreState(kind, prev)
		return err
	}
	if err := os.Remove(s.pidPath(kind)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove pid file", "kind", kind.Name, "error", err)
	}

	s.mu.Lock()
	e.state = StateStopped
	e.pid = 0
	e.startedAt = time.Time{}
	s.mu.Unlock()

	if killed > 0 {
		recordStop(kind)
		s.logger.Info("script stopped", "kind", kind.Name, "pid", killed)
	}
	return nil
}

// Status reports the lifecycle state of kind.
//
// # Description
//
// While a Start or Stop is in flight the transient state is returned as
// is. Otherwise the instance is verified against the process table: the
// pid file (or in-memory pid) must be alive and still running the script;
// failing that, a search by script path finds instances launched without
// a pid file.
func (s *Supervisor) Status(ctx context.Context, kind Kind) (Status, error) {
	known, err := LookupKind(kind.Name)
	if err != nil {
		return Status{}, err
	}
	kind = known
	path := s.ScriptPath(kind)

	s.mu.Lock()
	e := s.entryLocked(kind)
	snapshot := *e
	s.mu.Unlock()

	if snapshot.state == StateStarting || snapshot.state == StateStopping {
		return Status{Kind: kind, State: snapshot.state, PID: snapshot.pid, Path: path}, nil
	}

	pid := readPIDFile(s.pidPath(kind))
	if pid == 0 {
		pid = snapshot.pid
	}
	if pid > 0 {
		alive, err := s.table.Alive(ctx, pid, kind.FileName)
		if err != nil {
			return Status{Kind: kind, State: StateUnknown, PID: pid, Path: path}, err
		}
		if alive {
			s.observe(kind, StateRunning, pid)
			return Status{Kind: kind, State: StateRunning, PID: pid, StartedAt: snapshot.startedAt, Path: path}, nil
		}
	}

	pids, err := s.table.Find(ctx, path)
	if err != nil {
		return Status{Kind: kind, State: StateUnknown, Path: path}, err
	}
	if len(pids) > 0 {
		s.observe(kind, StateRunning, pids[0])
		return Status{Kind: kind, State: StateRunning, PID: pids[0], Path: path}, nil
	}

	s.observe(kind, StateStopped, 0)
	return Status{Kind: kind, State: StateStopped, Path: path}, nil
}

// StatusAll reports every kind in catalogue order. Probe errors are
// returned per kind in the map.
func (s *Supervisor) StatusAll(ctx context.Context) ([]Status, map[string]error) {
	var out []Status
	errs := make(map[string]error)
	for _, kind := range catalogue {
		st, err := s.Status(ctx, kind)
		if err != nil {
			errs[kind.Name] = err
		}
		out = append(out, st)
	}
	return out, errs
}

// Definition returns the last definition started for kind, if any.
func (s *Supervisor) Definition(kind Kind) (Definition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[kind.Name]
	if !ok || e.def.Body == "" {
		return Definition{}, false
	}
	return e.def, true
}

// =============================================================================
// Locking and table helpers
// =============================================================================

// lock serializes Start/Stop on kind's lock key, first inside this
// process, then across processes with a flock file in the script dir.
func (s *Supervisor) lock(ctx context.Context, kind Kind) (func(), error) {
	key := kind.lockKey()

	s.mu.Lock()
	sem, ok := s.sems[key]
	if !ok {
		sem = make(chan struct{}, 1)
		s.sems[key] = sem
	}
	s.mu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s lock: %w", kind.Name, ctx.Err())
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		<-sem
		return nil, fmt.Errorf("create script dir: %w", err)
	}
	fl := NewFileLock(s.dir, "."+key)
	if err := fl.Acquire(ctx); err != nil {
		<-sem
		return nil, err
	}

	return func() {
		if err := fl.Release(); err != nil {
			s.logger.Warn("failed to release script lock", "key", key, "error", err)
		}
		<-sem
	}, nil
}

// entryLocked returns kind's row, creating it. Caller holds s.mu.
func (s *Supervisor) entryLocked(kind Kind) *entry {
	e, ok := s.entries[kind.Name]
	if !ok {
		e = &entry{state: StateUnknown}
		s.entries[kind.Name] = e
	}
	return e
}

func (s *Supervisor) setState(kind Kind, state State, pid int, def Definition, startedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(kind)
	e.state = state
	e.pid = pid
	e.def = def
	e.startedAt = startedAt
}

func (s *Supervisor) restoreState(kind Kind, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryLocked(kind).state = state
}

// observe records a discovered state unless a Start or Stop began since.
func (s *Supervisor) observe(kind Kind, state State, pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(kind)
	if e.state == StateStarting || e.state == StateStopping {
		return
	}
	e.state = state
	e.pid = pid
	if state == StateStopped {
		e.startedAt = time.Time{}
	}
}

func writeExecutable(path, body string) error {
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	if err := os.WriteFile(path, []byte(body), 0755); err != nil {
		return fmt.Errorf("write script %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0755); err != nil {
		return fmt.Errorf("chmod script %s: %w", path, err)
	}
	return nil
}

func uniquePIDs(pids ...int) []int {
	var out []int
	for _, p := range pids {
		if p <= 0 {
			continue
		}
		dup := false
		for _, q := range out {
			if q == p {
				dup = true
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

func readPIDFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}
