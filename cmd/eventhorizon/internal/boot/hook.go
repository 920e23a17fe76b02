// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package boot re-applies persisted preferences after the device starts.
//
// The hook runs in two phases. If root_on_boot is set and the device is
// not yet rooted (and the build is not patched), the exploit runs first,
// since everything after it needs root. The remaining actions then run
// concurrently: the LED script (custom colour wins over rainbow), the
// minimum-frequency lock, the interceptor, the DNS blocker, and the
// second dogfood step when one is pending.
//
// No action is fatal. Each outcome is recorded in the Report.
package boot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/exploit"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/prefs"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/rootshell"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
)

// Action names used in a Report.
const (
	ActionExploit     = "exploit"
	ActionLED         = "led"
	ActionMinFreq     = "min_freq"
	ActionInterceptor = "interceptor"
	ActionBlocker     = "blocker"
	ActionDogfood     = "dogfood_step2"
)

// =============================================================================
// Collaborators
// =============================================================================

// ScriptStarter starts background scripts. *scripts.Supervisor satisfies it.
type ScriptStarter interface {
	Start(ctx context.Context, def scripts.Definition) (scripts.Handle, error)
}

// BlockerStarter starts the DNS blocker. *blocklist.Blocker satisfies it.
type BlockerStarter interface {
	Start(ctx context.Context) error
}

// ExploitRunner runs the exploit. *exploit.Launcher satisfies it.
type ExploitRunner interface {
	Run(ctx context.Context, onLine func(string)) error
}

// DogfoodFinisher runs the second dogfood step. *tweaks.Tweaker satisfies it.
type DogfoodFinisher interface {
	DogfoodStep2(ctx context.Context) tweaks.Outcome
}

// DeviceReader identifies the running build.
type DeviceReader func(ctx context.Context) (exploit.Device, error)

// MinFreq is the frequency lock applied at boot.
type MinFreq struct {
	Layout tweaks.CoreLayout
	Little int
	Big    int
}

// =============================================================================
// Report
// =============================================================================

// ActionStatus is the outcome of one boot action.
type ActionStatus string

const (
	StatusDone    ActionStatus = "done"
	StatusSkipped ActionStatus = "skipped"
	StatusFailed  ActionStatus = "failed"
)

// Action records one boot action.
type Action struct {
	Name   string       `json:"name"`
	Status ActionStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// Report is the result of a boot run. Actions are in a fixed order.
type Report struct {
	RunID    string        `json:"run_id"`
	Actions  []Action      `json:"actions"`
	Duration time.Duration `json:"duration"`
}

// Failed returns the failed actions.
func (r Report) Failed() []Action {
	var out []Action
	for _, a := range r.Actions {
		if a.Status == StatusFailed {
			out = append(out, a)
		}
	}
	return out
}

// Action returns the named action.
func (r Report) Action(name string) (Action, bool) {
	for _, a := range r.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

func done(name, detail string) Action    { return Action{Name: name, Status: StatusDone, Detail: detail} }
func skipped(name, detail string) Action { return Action{Name: name, Status: StatusSkipped, Detail: detail} }
func failed(name string, err error) Action {
	return Action{Name: name, Status: StatusFailed, Detail: err.Error()}
}

// =============================================================================
// Hook
// =============================================================================

// Hook re-applies persisted preferences. Nil collaborators skip their
// actions.
type Hook struct {
	Prefs   prefs.Store
	Runner  rootshell.Runner
	Scripts ScriptStarter
	Blocker BlockerStarter
	Exploit ExploitRunner
	Device  DeviceReader
	Dogfood DogfoodFinisher

	MinFreq          MinFreq
	InterceptTargets []string

	Logger *slog.Logger
}

func (h *Hook) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return h.Logger
}

// Run executes the boot actions and reports each outcome.
func (h *Hook) Run(ctx context.Context) Report {
	start := time.Now()
	report := Report{RunID: uuid.NewString()}
	logger := h.logger().With("run_id", report.RunID)

	ctx, span := tracer.Start(ctx, "boot.Run",
		trace.WithAttributes(attribute.String("boot.run_id", report.RunID)))
	defer span.End()

	report.Actions = append(report.Actions, h.rootOnBoot(ctx, logger))

	actions := []struct {
		name string
		fn   func(context.Context) Action
	}{
		{ActionLED, h.led},
		{ActionMinFreq, h.minFreq},
		{ActionInterceptor, h.interceptor},
		{ActionBlocker, h.blocker},
		{ActionDogfood, h.dogfood},
	}
	results := make([]Action, len(actions))
	var g errgroup.Group
	for i, a := range actions {
		g.Go(func() error {
			results[i] = a.fn(ctx)
			return nil
		})
	}
	_ = g.Wait()
	report.Actions = append(report.Actions, results...)
	report.Duration = time.Since(start)

	for _, a := range report.Actions {
		recordAction(a)
		switch a.Status {
		case StatusFailed:
			logger.Warn("boot action failed", "action", a.Name, "error", a.Detail)
		case StatusDone:
			logger.Info("boot action done", "action", a.Name, "detail", a.Detail)
		default:
			logger.Debug("boot action skipped", "action", a.Name, "reason", a.Detail)
		}
	}
	if n := len(report.Failed()); n > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d boot actions failed", n))
	}
	return report
}

func (h *Hook) flag(key string) (bool, error) {
	if h.Prefs == nil {
		return false, nil
	}
	return h.Prefs.Bool(key, false)
}

func (h *Hook) rootOnBoot(ctx context.Context, logger *slog.Logger) Action {
	on, err := h.flag(prefs.KeyRootOnBoot)
	if err != nil {
		return failed(ActionExploit, err)
	}
	if !on {
		return skipped(ActionExploit, "disabled")
	}
	if h.Exploit == nil {
		return skipped(ActionExploit, "no launcher configured")
	}
	if h.Runner != nil && h.Runner.IsRootAvailable(ctx) {
		return skipped(ActionExploit, "already rooted")
	}
	if h.Device != nil {
		dev, err := h.Device(ctx)
		if err != nil {
			logger.Warn("device identification failed", "error", err)
		} else if dev.Patched() {
			return skipped(ActionExploit, fmt.Sprintf("patched build %s on %s", dev.Incremental, dev.Board))
		}
	}
	lines := 0
	err = h.Exploit.Run(ctx, func(line string) {
		lines++
		logger.Info("exploit", "line", line)
	})
	if err != nil {
		return failed(ActionExploit, err)
	}
	return done(ActionExploit, fmt.Sprintf("%d lines of output", lines))
}

func (h *Hook) led(ctx context.Context) Action {
	if h.Prefs == nil {
		return skipped(ActionLED, "no preferences")
	}
	mode, err := prefs.GetLEDBootMode(h.Prefs)
	if err != nil {
		return failed(ActionLED, err)
	}
	var def scripts.Definition
	switch mode {
	case prefs.LEDBootCustom:
		r, g, b, err := prefs.LEDColor(h.Prefs)
		if err != nil {
			return failed(ActionLED, err)
		}
		def = tweaks.CustomColorDefinition(tweaks.Color{R: r, G: g, B: b})
	case prefs.LEDBootRainbow:
		def = tweaks.RainbowDefinition()
	default:
		return skipped(ActionLED, "disabled")
	}
	return h.startScript(ctx, ActionLED, def)
}

func (h *Hook) minFreq(ctx context.Context) Action {
	on, err := h.flag(prefs.KeyMinFreqOnBoot)
	if err != nil {
		return failed(ActionMinFreq, err)
	}
	if !on {
		return skipped(ActionMinFreq, "disabled")
	}
	return h.startScript(ctx, ActionMinFreq, tweaks.MinFreqDefinition(h.MinFreq.Layout, h.MinFreq.Little, h.MinFreq.Big))
}

func (h *Hook) interceptor(ctx context.Context) Action {
	on, err := h.flag(prefs.KeyInterceptorOnBoot)
	if err != nil {
		return failed(ActionInterceptor, err)
	}
	if !on {
		return skipped(ActionInterceptor, "disabled")
	}
	return h.startScript(ctx, ActionInterceptor, tweaks.InterceptorDefinition(h.InterceptTargets))
}

func (h *Hook) startScript(ctx context.Context, name string, def scripts.Definition) Action {
	if h.Scripts == nil {
		return skipped(name, "no supervisor configured")
	}
	handle, err := h.Scripts.Start(ctx, def)
	if err != nil {
		return failed(name, err)
	}
	return done(name, fmt.Sprintf("%s running as pid %d", def.Kind.Name, handle.PID))
}

func (h *Hook) blocker(ctx context.Context) Action {
	on, err := h.flag(prefs.KeyBlockerOnBoot)
	if err != nil {
		return failed(ActionBlocker, err)
	}
	if !on {
		return skipped(ActionBlocker, "disabled")
	}
	if h.Blocker == nil {
		return skipped(ActionBlocker, "no blocker configured")
	}
	if err := h.Blocker.Start(ctx); err != nil {
		return failed(ActionBlocker, err)
	}
	return done(ActionBlocker, "started")
}

func (h *Hook) dogfood(ctx context.Context) Action {
	pending, err := h.flag(prefs.KeyDogfoodPendingStep2)
	if err != nil {
		return failed(ActionDogfood, err)
	}
	if !pending {
		return skipped(ActionDogfood, "nothing pending")
	}
	if h.Dogfood == nil {
		return skipped(ActionDogfood, "no tweaker configured")
	}
	out := h.Dogfood.DogfoodStep2(ctx)
	if !out.OK() {
		return failed(ActionDogfood, fmt.Errorf("%s", out.Detail))
	}
	if err := h.Prefs.SetBool(prefs.KeyDogfoodPendingStep2, false); err != nil {
		return failed(ActionDogfood, fmt.Errorf("clear pending flag: %w", err))
	}
	return done(ActionDogfood, out.Detail)
}
