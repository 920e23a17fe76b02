// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package exploit extracts and launches the bundled privilege-escalation
// payload and streams its console output.
//
// The payload is opaque: a launcher executable that is invoked as
//
//	<Executable> sh <ExtractDir>/<LaunchScript>
//
// after every file in AssetsDir has been copied into ExtractDir and
// marked executable. Output (stdout and stderr merged) is delivered line
// by line to a callback. Cancelling the context kills the whole process
// group, including anything launch.sh spawned.
package exploit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sys/unix"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/util"
)

var (
	// ErrNoLauncher is returned when the launcher executable is missing.
	ErrNoLauncher = errors.New("exploit launcher not found")

	// ErrAlreadyRunning is returned when a run is already in progress.
	ErrAlreadyRunning = errors.New("exploit already running")
)

// DefaultLaunchScript is the entry script inside the extracted assets.
const DefaultLaunchScript = "launch.sh"

// killWaitDelay bounds how long Run waits on output still held open by
// leftover children once the launcher has exited or been killed.
const killWaitDelay = 2 * time.Second

// Launcher runs the payload.
//
// # Thread Safety
//
// A Launcher runs at most one payload at a time; a concurrent Run returns
// ErrAlreadyRunning.
type Launcher struct {
	// Executable is the native launcher binary.
	Executable string

	// AssetsDir holds the payload files to extract.
	AssetsDir string

	// ExtractDir receives the payload files. Existing files are replaced.
	ExtractDir string

	// LaunchScript is the script passed to the launcher. Default: launch.sh.
	LaunchScript string

	Logger *slog.Logger

	running sync.Mutex
}

func (l *Launcher) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.Logger
}

func (l *Launcher) script() string {
	if l.LaunchScript == "" {
		return DefaultLaunchScript
	}
	return l.LaunchScript
}

// Run extracts the payload, launches it, and calls onLine for every line
// of output. Any failure is also delivered to onLine as "Error: <msg>"
// before being returned. onLine is called from a single goroutine.
func (l *Launcher) Run(ctx context.Context, onLine func(string)) error {
	if onLine == nil {
		onLine = func(string) {}
	}
	if !l.running.TryLock() {
		return ErrAlreadyRunning
	}
	defer l.running.Unlock()

	runID := uuid.NewString()
	logger := l.logger().With("run_id", runID)

	ctx, span := tracer.Start(ctx, "exploit.Run",
		trace.WithAttributes(
			attribute.String("exploit.run_id", runID),
			attribute.String("exploit.executable", l.Executable),
		))
	defer span.End()

	start := time.Now()
	err := l.run(ctx, onLine, logger)
	recordRun(err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("exploit run failed", "error", err)
		onLine("Error: " + err.Error())
		return err
	}
	logger.Info("exploit run finished", "duration", time.Since(start))
	return nil
}

func (l *Launcher) run(ctx context.Context, onLine func(string), logger *slog.Logger) error {
	if l.Executable == "" {
		return ErrNoLauncher
	}
	if _, err := os.Stat(l.Executable); err != nil {
		return fmt.Errorf("%w: %s", ErrNoLauncher, l.Executable)
	}

	n, err := Extract(l.AssetsDir, l.ExtractDir)
	if err != nil {
		return err
	}
	logger.Debug("exploit assets extracted", "files", n, "dir", l.ExtractDir)

	launch := filepath.Join(l.ExtractDir, l.script())
	cmd := exec.CommandContext(ctx, l.Executable, "sh", launch)
	cmd.Dir = l.ExtractDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killGroup(cmd.Process.Pid)
	}
	cmd.WaitDelay = killWaitDelay

	out := &lineWriter{onLine: onLine}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start exploit: %w", err)
	}
	logger.Info("exploit started", "pid", cmd.Process.Pid, "script", launch)

	waitErr := cmd.Wait()
	out.Flush()
	if ctx.Err() != nil {
		return fmt.Errorf("exploit cancelled: %w", ctx.Err())
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return util.NewCommandError(launch, exitErr.ExitCode(), "", waitErr)
		}
		if !errors.Is(waitErr, exec.ErrWaitDelay) {
			return fmt.Errorf("wait for exploit: %w", waitErr)
		}
	}
	return nil
}

// lineWriter splits written bytes into lines for onLine. exec calls
// Write from one goroutine at a time when Stdout and Stderr are the same
// writer.
type lineWriter struct {
	onLine func(string)
	buf    []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.onLine(strings.TrimSuffix(string(w.buf[:i]), "\r"))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush delivers a trailing unterminated line.
func (w *lineWriter) Flush() {
	if len(w.buf) > 0 {
		w.onLine(strings.TrimSuffix(string(w.buf), "\r"))
		w.buf = nil
	}
}

// killGroup sends SIGKILL to the process group led by pid.
func killGroup(pid int) error {
	err := unix.Kill(-pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

// Extract copies every regular file in src into dst, replacing existing
// files and marking them executable. It returns the number of files
// copied.
func Extract(src, dst string) (int, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, fmt.Errorf("read exploit assets: %w", err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return 0, fmt.Errorf("create extract dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := copyExecutable(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open asset: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*")
	if err != nil {
		return fmt.Errorf("extract %s: %w", filepath.Base(dst), err)
	}
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("extract %s: %w", filepath.Base(dst), err)
	}
	if _, err := io.Copy(tmp, in); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0755); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("extract %s: %w", filepath.Base(dst), err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("extract %s: %w", filepath.Base(dst), err)
	}
	return nil
}
