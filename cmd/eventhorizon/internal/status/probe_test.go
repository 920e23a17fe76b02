// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package status

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/exploit"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
)

type fakeRoot bool

func (f fakeRoot) IsRootAvailable(context.Context) bool { return bool(f) }

type fakeScripts struct {
	running map[string]int
	failFor string
}

func (f *fakeScripts) Status(_ context.Context, kind scripts.Kind) (scripts.Status, error) {
	if kind.Name == f.failFor {
		return scripts.Status{Kind: kind, State: scripts.StateUnknown}, errors.New("probe failed")
	}
	if pid, ok := f.running[kind.Name]; ok {
		return scripts.Status{Kind: kind, State: scripts.StateRunning, PID: pid}, nil
	}
	return scripts.Status{Kind: kind, State: scripts.StateStopped}, nil
}

type fakeTweaks struct {
	governor    string
	governorErr error
	on          map[string]bool
	inFlight    int32
	maxInFlight int32
}

func (f *fakeTweaks) track() func() {
	n := atomic.AddInt32(&f.inFlight, 1)
	for {
		m := atomic.LoadInt32(&f.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxInFlight, m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return func() { atomic.AddInt32(&f.inFlight, -1) }
}

func (f *fakeTweaks) Governor(context.Context) (string, error) {
	defer f.track()()
	return f.governor, f.governorErr
}

func (f *fakeTweaks) State(_ context.Context, name string) (bool, error) {
	defer f.track()()
	on, ok := f.on[name]
	if !ok {
		return false, tweaks.ErrUnrecognizedFormat
	}
	return on, nil
}

type fakeBlocker struct{}

func (fakeBlocker) Running() bool { return true }
func (fakeBlocker) Len() int      { return 42 }

func TestProbe_FullSnapshot(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tw := &fakeTweaks{governor: "performance", on: map[string]bool{
		"navigator_ui": true, "void_transition": false, "teleport_anywhere": true,
		"navigator_fog": false, "panel_scaling": true,
	}}
	p := &Prober{
		Root:    fakeRoot(true),
		Scripts: &fakeScripts{running: map[string]int{"rgb_led": 77}},
		Tweaks:  tw,
		Blocker: fakeBlocker{},
		Device: func(context.Context) (exploit.Device, error) {
			return exploit.Device{Board: "eureka", Incremental: "1"}, nil
		},
		now: func() time.Time { return fixed },
	}

	snap := p.Probe(context.Background())

	assert.Equal(t, fixed, snap.TakenAt)
	assert.True(t, snap.Rooted)
	assert.Equal(t, "performance", snap.Governor)
	assert.Empty(t, snap.GovernorError)

	require.Len(t, snap.Scripts, len(scripts.Kinds()))
	rgb, ok := snap.Script("rgb_led")
	require.True(t, ok)
	assert.Equal(t, "running", rgb.State)
	assert.Equal(t, 77, rgb.PID)
	minFreq, _ := snap.Script("min_freq")
	assert.Equal(t, "stopped", minFreq.State)

	require.Len(t, snap.Toggles, len(tweaks.Toggles()))
	nav, _ := snap.Toggle("navigator_ui")
	require.NotNil(t, nav.On)
	assert.True(t, *nav.On)
	infinite, _ := snap.Toggle("infinite_panels")
	assert.Nil(t, infinite.On)
	assert.NotEmpty(t, infinite.Error)

	require.NotNil(t, snap.Blocker)
	assert.Equal(t, BlockerState{Running: true, Domains: 42}, *snap.Blocker)
	require.NotNil(t, snap.Device)
	assert.False(t, snap.Device.Patched)
}

func TestProbe_ErrorsStayInTheirSlots(t *testing.T) {
	p := &Prober{
		Root:    fakeRoot(false),
		Scripts: &fakeScripts{failFor: "interceptor"},
		Tweaks:  &fakeTweaks{governorErr: errors.New("read governor: exit code 1")},
		Device: func(context.Context) (exploit.Device, error) {
			return exploit.Device{}, errors.New("getprop missing")
		},
	}

	snap := p.Probe(context.Background())

	assert.False(t, snap.Rooted)
	assert.Contains(t, snap.GovernorError, "exit code 1")
	ic, _ := snap.Script("interceptor")
	assert.Equal(t, "unknown", ic.State)
	assert.Equal(t, "probe failed", ic.Error)
	assert.Equal(t, "getprop missing", snap.Device.Error)
	assert.Nil(t, snap.Blocker)
}

func TestProbe_RespectsConcurrencyLimit(t *testing.T) {
	tw := &fakeTweaks{governor: "schedutil", on: map[string]bool{}}
	p := &Prober{Tweaks: tw, Concurrency: 2}

	p.Probe(context.Background())

	assert.LessOrEqual(t, atomic.LoadInt32(&tw.maxInFlight), int32(2))
}

func TestProbe_NothingConfigured(t *testing.T) {
	snap := (&Prober{}).Probe(context.Background())

	assert.False(t, snap.Rooted)
	assert.Nil(t, snap.Scripts)
	assert.Nil(t, snap.Toggles)
	assert.Nil(t, snap.Blocker)
	assert.Nil(t, snap.Device)
}
