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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrEmptyCommand is the reason attached to a Result for a blank command.
var ErrEmptyCommand = errors.New("empty command")

// DefaultBinary is the privilege-escalation helper on rooted devices.
const DefaultBinary = "su"

// pipeWaitDelay bounds how long Run waits for output pipes after the
// helper exits or is killed.
const pipeWaitDelay = 2 * time.Second

// =============================================================================
// Interface
// =============================================================================

// Runner executes shell command text with root privilege.
//
// # Description
//
// Implementations spawn one helper process per call and block until it
// exits. Run must not panic and must not return a Go error; every failure
// is expressed in the returned Result.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Concurrent calls are
// independent processes; no ordering is implied between them.
type Runner interface {
	// Run executes command (one or more newline-separated statements).
	Run(ctx context.Context, command string, opts ...Option) Result

	// IsRootAvailable runs "id" and reports whether the output contains
	// "uid=0". The answer is advisory: root may be granted or revoked at
	// any time afterwards.
	IsRootAvailable(ctx context.Context) bool
}

// =============================================================================
// Options
// =============================================================================

// Option adjusts a single Run call.
type Option func(*runOptions)

type runOptions struct {
	mountMaster  bool
	showExitCode bool
	timeout      time.Duration
}

// WithMountMaster asks the helper to run in the global mount namespace
// ("su --mount-master"), so mounts made by the command are visible to
// every app.
func WithMountMaster() Option {
	return func(o *runOptions) { o.mountMaster = true }
}

// WithExitCode appends an "exit code: N" line to Result.Text.
func WithExitCode() Option {
	return func(o *runOptions) { o.showExitCode = true }
}

// WithTimeout bounds this call. Zero disables the bound; the caller's
// context still applies.
func WithTimeout(d time.Duration) Option {
	return func(o *runOptions) { o.timeout = d }
}

// =============================================================================
// SuRunner
// =============================================================================

// Config configures an SuRunner.
type Config struct {
	// Binary is the helper to spawn. Default: "su".
	Binary string

	// Args are passed to Binary before any per-call arguments. Tests use
	// this to point Binary at /bin/sh.
	Args []string

	// Timeout is the default bound for every call. Zero means no bound.
	Timeout time.Duration

	// MountMaster applies WithMountMaster to every call.
	MountMaster bool
}

// SuRunner is the production Runner. It pipes command text into the
// helper's stdin and captures both output streams.
type SuRunner struct {
	config Config
	logger *slog.Logger
}

// NewSuRunner creates a runner. A nil logger discards log output.
//
// Example:
//
//	runner := rootshell.NewSuRunner(rootshell.Config{Timeout: 30 * time.Second}, logger)
func NewSuRunner(config Config, logger *slog.Logger) *SuRunner {
	if config.Binary == "" {
		config.Binary = DefaultBinary
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SuRunner{config: config, logger: logger}
}

// Run executes command under the helper.
//
// # Description
//
// Writes "<command>\nexit\n" to the helper's stdin, waits for it to exit,
// and collects both streams in full. Stdout and stderr are read into
// separate buffers concurrently by os/exec, so a chatty command cannot
// deadlock on a full pipe.
//
// # Outputs
//
//   - Result: never zero; Status reports the outcome.
//
// # Limitations
//
//   - Output is delivered only after the helper exits. Long-running
//     commands should go through the script supervisor instead.
func (r *SuRunner) Run(ctx context.Context, command string, opts ...Option) Result {
	o := runOptions{mountMaster: r.config.MountMaster, timeout: r.config.Timeout}
	for _, opt := range opts {
		opt(&o)
	}

	res := Result{
		ID:           uuid.NewString(),
		Command:      command,
		ExitCode:     -1,
		ShowExitCode: o.showExitCode,
	}

	if strings.TrimSpace(command) == "" {
		res.Err = ErrEmptyCommand
		res.Status = StatusFailure
		recordCommand(res)
		return res
	}

	ctx, span := tracer.Start(ctx, "rootshell.Run",
		trace.WithAttributes(
			attribute.String("rootshell.run_id", res.ID),
			attribute.Bool("rootshell.mount_master", o.mountMaster),
		),
	)
	defer span.End()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	args := append([]string{}, r.config.Args...)
	if o.mountMaster {
		args = append(args, "--mount-master")
	}

	cmd := exec.CommandContext(ctx, r.config.Binary, args...)
	cmd.Stdin = strings.NewReader(command + "\nexit\n")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Background children may inherit the pipes; stop waiting on them.
	cmd.WaitDelay = pipeWaitDelay

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = splitLines(stdout.String())
	res.Stderr = splitLines(stderr.String())

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case ctx.Err() != nil:
		res.Err = fmt.Errorf("command timed out after %s: %w", res.Duration.Round(time.Millisecond), ctx.Err())
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil:
		res.ExitCode = cmd.ProcessState.ExitCode()
	default:
		res.Err = err
	}
	res.Status = deriveStatus(res.Err, res.ExitCode)

	span.SetAttributes(
		attribute.Int("rootshell.exit_code", res.ExitCode),
		attribute.String("rootshell.status", res.Status.String()),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	recordCommand(res)

	r.logger.Debug("root command",
		"run_id", res.ID,
		"command", firstLine(command),
		"status", res.Status.String(),
		"exit_code", res.ExitCode,
		"duration", res.Duration,
	)
	if res.Err != nil {
		r.logger.Warn("root command failed", "run_id", res.ID, "error", res.Err)
	}
	return res
}

// IsRootAvailable runs "id" and looks for uid=0.
func (r *SuRunner) IsRootAvailable(ctx context.Context) bool {
	return r.Run(ctx, "id").Contains("uid=0")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

var _ Runner = (*SuRunner)(nil)
