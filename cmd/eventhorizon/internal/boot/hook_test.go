// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package boot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/exploit"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/prefs"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/rootshell"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeStarter struct {
	mu      sync.Mutex
	started []scripts.Definition
	failFor string
}

func (f *fakeStarter) Start(_ context.Context, def scripts.Definition) (scripts.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if def.Kind.Name == f.failFor {
		return scripts.Handle{}, errors.New("launch failed")
	}
	f.started = append(f.started, def)
	return scripts.Handle{Kind: def.Kind, PID: 100 + len(f.started)}, nil
}

func (f *fakeStarter) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, d := range f.started {
		out = append(out, d.Kind.Name)
	}
	return out
}

func (f *fakeStarter) definition(kind string) (scripts.Definition, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.started {
		if d.Kind.Name == kind {
			return d, true
		}
	}
	return scripts.Definition{}, false
}

type fakeBlocker struct {
	starts int
	err    error
}

func (f *fakeBlocker) Start(context.Context) error {
	f.starts++
	return f.err
}

type fakeExploit struct {
	runs  int
	lines []string
	err   error
}

func (f *fakeExploit) Run(_ context.Context, onLine func(string)) error {
	f.runs++
	for _, l := range f.lines {
		onLine(l)
	}
	return f.err
}

type fakeDogfood struct {
	calls   int
	outcome tweaks.Outcome
}

func (f *fakeDogfood) DogfoodStep2(context.Context) tweaks.Outcome {
	f.calls++
	return f.outcome
}

func newStore(t *testing.T) prefs.Store {
	t.Helper()
	store, err := prefs.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func rootRunner(rooted bool) *rootshell.MockRunner {
	return &rootshell.MockRunner{
		IsRootAvailableFunc: func(context.Context) bool { return rooted },
	}
}

func statusOf(t *testing.T, r Report, name string) ActionStatus {
	t.Helper()
	a, ok := r.Action(name)
	require.True(t, ok, "action %s missing", name)
	return a.Status
}

// =============================================================================
// Tests
// =============================================================================

func TestRun_NothingEnabled(t *testing.T) {
	starter := &fakeStarter{}
	hook := &Hook{Prefs: newStore(t), Scripts: starter, Blocker: &fakeBlocker{}}

	report := hook.Run(context.Background())

	require.Len(t, report.Actions, 6)
	for _, a := range report.Actions {
		assert.Equal(t, StatusSkipped, a.Status, a.Name)
	}
	assert.Empty(t, starter.kinds())
	assert.NotEmpty(t, report.RunID)
	assert.Empty(t, report.Failed())
}

func TestRun_ActionOrderIsFixed(t *testing.T) {
	report := (&Hook{}).Run(context.Background())

	var names []string
	for _, a := range report.Actions {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{ActionExploit, ActionLED, ActionMinFreq, ActionInterceptor, ActionBlocker, ActionDogfood}, names)
}

func TestRun_CustomLEDWinsOverRainbow(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetBools(map[string]bool{prefs.KeyRGBOnBoot: true, prefs.KeyCustomLEDOnBoot: true}))
	require.NoError(t, prefs.SaveLEDColor(store, 10, 20, 30))
	starter := &fakeStarter{}

	report := (&Hook{Prefs: store, Scripts: starter}).Run(context.Background())

	assert.Equal(t, StatusDone, statusOf(t, report, ActionLED))
	assert.Equal(t, []string{scripts.KindCustomLED.Name}, starter.kinds())
	def, ok := starter.definition(scripts.KindCustomLED.Name)
	require.True(t, ok)
	assert.Equal(t, tweaks.CustomColorScript(tweaks.Color{R: 10, G: 20, B: 30}), def.Body)
}

func TestRun_RainbowLED(t *testing.T) {
	store := newStore(t)
	require.NoError(t, prefs.SetLEDBootMode(store, prefs.LEDBootRainbow))
	starter := &fakeStarter{}

	(&Hook{Prefs: store, Scripts: starter}).Run(context.Background())

	assert.Equal(t, []string{scripts.KindRGBLED.Name}, starter.kinds())
}

func TestRun_AllBackgroundActions(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetBools(map[string]bool{
		prefs.KeyMinFreqOnBoot:       true,
		prefs.KeyInterceptorOnBoot:   true,
		prefs.KeyBlockerOnBoot:       true,
		prefs.KeyDogfoodPendingStep2: true,
	}))
	starter := &fakeStarter{}
	blocker := &fakeBlocker{}
	dogfood := &fakeDogfood{outcome: tweaks.Outcome{Status: tweaks.OutcomeApplied, Detail: "Dogfood Hub enabled; restarting"}}

	hook := &Hook{
		Prefs:   store,
		Scripts: starter,
		Blocker: blocker,
		Dogfood: dogfood,
		MinFreq: MinFreq{Layout: tweaks.DefaultCoreLayout, Little: 691200, Big: 1000000},
	}
	report := hook.Run(context.Background())

	assert.Equal(t, StatusDone, statusOf(t, report, ActionMinFreq))
	assert.Equal(t, StatusDone, statusOf(t, report, ActionInterceptor))
	assert.Equal(t, StatusDone, statusOf(t, report, ActionBlocker))
	assert.Equal(t, StatusDone, statusOf(t, report, ActionDogfood))
	assert.ElementsMatch(t, []string{scripts.KindMinFreq.Name, scripts.KindInterceptor.Name}, starter.kinds())
	assert.Equal(t, 1, blocker.starts)
	assert.Equal(t, 1, dogfood.calls)

	pending, err := store.Bool(prefs.KeyDogfoodPendingStep2, true)
	require.NoError(t, err)
	assert.False(t, pending)

	def, ok := starter.definition(scripts.KindMinFreq.Name)
	require.True(t, ok)
	assert.Contains(t, def.Body, "1000000")
}

func TestRun_FailuresAreIsolated(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetBools(map[string]bool{
		prefs.KeyMinFreqOnBoot:     true,
		prefs.KeyInterceptorOnBoot: true,
		prefs.KeyBlockerOnBoot:     true,
	}))
	starter := &fakeStarter{failFor: scripts.KindMinFreq.Name}
	blocker := &fakeBlocker{err: errors.New("watch failed")}

	report := (&Hook{Prefs: store, Scripts: starter, Blocker: blocker}).Run(context.Background())

	assert.Equal(t, StatusFailed, statusOf(t, report, ActionMinFreq))
	assert.Equal(t, StatusFailed, statusOf(t, report, ActionBlocker))
	assert.Equal(t, StatusDone, statusOf(t, report, ActionInterceptor))
	require.Len(t, report.Failed(), 2)

	a, _ := report.Action(ActionMinFreq)
	assert.Contains(t, a.Detail, "launch failed")
}

func TestRun_DogfoodFailureKeepsPending(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetBool(prefs.KeyDogfoodPendingStep2, true))
	dogfood := &fakeDogfood{outcome: tweaks.Outcome{Status: tweaks.OutcomeFailed, Detail: "exit code 1"}}

	report := (&Hook{Prefs: store, Dogfood: dogfood}).Run(context.Background())

	assert.Equal(t, StatusFailed, statusOf(t, report, ActionDogfood))
	pending, err := store.Bool(prefs.KeyDogfoodPendingStep2, false)
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestRun_ExploitOnBoot(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetBool(prefs.KeyRootOnBoot, true))
	exp := &fakeExploit{lines: []string{"stage 1", "root acquired"}}

	report := (&Hook{Prefs: store, Runner: rootRunner(false), Exploit: exp}).Run(context.Background())

	assert.Equal(t, 1, exp.runs)
	a, _ := report.Action(ActionExploit)
	assert.Equal(t, StatusDone, a.Status)
	assert.Equal(t, "2 lines of output", a.Detail)
}

func TestRun_ExploitSkippedWhenRooted(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetBool(prefs.KeyRootOnBoot, true))
	exp := &fakeExploit{}

	report := (&Hook{Prefs: store, Runner: rootRunner(true), Exploit: exp}).Run(context.Background())

	assert.Zero(t, exp.runs)
	a, _ := report.Action(ActionExploit)
	assert.Equal(t, StatusSkipped, a.Status)
	assert.Equal(t, "already rooted", a.Detail)
}

func TestRun_ExploitSkippedWhenPatched(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetBool(prefs.KeyRootOnBoot, true))
	exp := &fakeExploit{}
	device := func(context.Context) (exploit.Device, error) {
		return exploit.Device{Board: "eureka", Incremental: "51154110129000999"}, nil
	}

	report := (&Hook{Prefs: store, Runner: rootRunner(false), Exploit: exp, Device: device}).Run(context.Background())

	assert.Zero(t, exp.runs)
	assert.Equal(t, StatusSkipped, statusOf(t, report, ActionExploit))
}

func TestRun_ExploitFailure(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetBool(prefs.KeyRootOnBoot, true))
	exp := &fakeExploit{err: exploit.ErrNoLauncher}

	report := (&Hook{Prefs: store, Runner: rootRunner(false), Exploit: exp}).Run(context.Background())

	assert.Equal(t, StatusFailed, statusOf(t, report, ActionExploit))
}
