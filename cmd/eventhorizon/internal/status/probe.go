// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package status gathers a point-in-time snapshot of the device: root
// availability, every managed script, the CPU governor, each toggle and
// the DNS blocker. Probes run concurrently; a failed probe is reported in
// its slot and never fails the snapshot.
package status

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/exploit"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
)

// DefaultConcurrency bounds how many privileged probes run at once.
const DefaultConcurrency = 4

// RootProber reports root availability. rootshell.Runner satisfies it.
type RootProber interface {
	IsRootAvailable(ctx context.Context) bool
}

// ScriptProber reports a script's state. *scripts.Supervisor satisfies it.
type ScriptProber interface {
	Status(ctx context.Context, kind scripts.Kind) (scripts.Status, error)
}

// TweakProber reads tweak state. *tweaks.Tweaker satisfies it.
type TweakProber interface {
	Governor(ctx context.Context) (string, error)
	State(ctx context.Context, name string) (bool, error)
}

// BlockerProber reports the DNS blocker. *blocklist.Blocker satisfies it.
type BlockerProber interface {
	Running() bool
	Len() int
}

// ScriptState is one script in a Snapshot.
type ScriptState struct {
	Kind  string `json:"kind"`
	State string `json:"state"`
	PID   int    `json:"pid,omitempty"`
	Error string `json:"error,omitempty"`
}

// ToggleState is one toggle in a Snapshot. On is nil when the state
// could not be read.
type ToggleState struct {
	Name  string `json:"name"`
	On    *bool  `json:"on,omitempty"`
	Error string `json:"error,omitempty"`
}

// BlockerState is the DNS blocker in a Snapshot.
type BlockerState struct {
	Running bool `json:"running"`
	Domains int  `json:"domains"`
}

// DeviceState is the build identification in a Snapshot.
type DeviceState struct {
	exploit.Device
	Patched bool   `json:"patched"`
	Error   string `json:"error,omitempty"`
}

// Snapshot is the result of a Probe.
type Snapshot struct {
	TakenAt       time.Time     `json:"taken_at"`
	Rooted        bool          `json:"rooted"`
	Scripts       []ScriptState `json:"scripts"`
	Governor      string        `json:"governor,omitempty"`
	GovernorError string        `json:"governor_error,omitempty"`
	Toggles       []ToggleState `json:"toggles"`
	Blocker       *BlockerState `json:"blocker,omitempty"`
	Device        *DeviceState  `json:"device,omitempty"`
}

// Prober builds snapshots. Nil collaborators leave their slots empty.
type Prober struct {
	Root    RootProber
	Scripts ScriptProber
	Tweaks  TweakProber
	Blocker BlockerProber
	Device  func(ctx context.Context) (exploit.Device, error)

	// Concurrency bounds parallel probes. Zero means DefaultConcurrency.
	Concurrency int

	Logger *slog.Logger
	now    func() time.Time
}

// Probe gathers a Snapshot.
func (p *Prober) Probe(ctx context.Context) Snapshot {
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	limit := p.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, span := tracer.Start(ctx, "status.Probe")
	defer span.End()
	start := time.Now()

	snap := Snapshot{TakenAt: now()}
	kinds := scripts.Kinds()
	toggles := tweaks.Toggles()
	if p.Scripts != nil {
		snap.Scripts = make([]ScriptState, len(kinds))
	}
	if p.Tweaks != nil {
		snap.Toggles = make([]ToggleState, len(toggles))
	}

	var g errgroup.Group
	g.SetLimit(limit)

	if p.Root != nil {
		g.Go(func() error {
			snap.Rooted = p.Root.IsRootAvailable(ctx)
			return nil
		})
	}
	if p.Scripts != nil {
		for i, kind := range kinds {
			g.Go(func() error {
				st, err := p.Scripts.Status(ctx, kind)
				s := ScriptState{Kind: kind.Name, State: st.State.String(), PID: st.PID}
				if err != nil {
					s.Error = err.Error()
				}
				snap.Scripts[i] = s
				return nil
			})
		}
	}
	if p.Tweaks != nil {
		g.Go(func() error {
			gov, err := p.Tweaks.Governor(ctx)
			if err != nil {
				snap.GovernorError = err.Error()
			} else {
				snap.Governor = gov
			}
			return nil
		})
		for i, t := range toggles {
			g.Go(func() error {
				s := ToggleState{Name: t.Name}
				on, err := p.Tweaks.State(ctx, t.Name)
				if err != nil {
					s.Error = err.Error()
				} else {
					s.On = &on
				}
				snap.Toggles[i] = s
				return nil
			})
		}
	}
	if p.Device != nil {
		g.Go(func() error {
			dev, err := p.Device(ctx)
			d := &DeviceState{Device: dev}
			if err != nil {
				d.Error = err.Error()
			} else {
				d.Patched = dev.Patched()
			}
			snap.Device = d
			return nil
		})
	}
	_ = g.Wait()

	if p.Blocker != nil {
		snap.Blocker = &BlockerState{Running: p.Blocker.Running(), Domains: p.Blocker.Len()}
	}

	probeDuration.Observe(time.Since(start).Seconds())
	logger.Debug("status probed", "rooted", snap.Rooted, "duration", time.Since(start))
	return snap
}

// Script returns the named script's state.
func (s Snapshot) Script(kind string) (ScriptState, bool) {
	for _, st := range s.Scripts {
		if st.Kind == kind {
			return st, true
		}
	}
	return ScriptState{}, false
}

// Toggle returns the named toggle's state.
func (s Snapshot) Toggle(name string) (ToggleState, bool) {
	for _, t := range s.Toggles {
		if t.Name == name {
			return t, true
		}
	}
	return ToggleState{}, false
}
