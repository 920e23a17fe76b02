// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/config"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/exploit"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/prefs"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/rootshell"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

// =============================================================================
// Test harness
// =============================================================================

// procTable is an in-memory scripts.ProcessTable.
type procTable struct {
	mu      sync.Mutex
	nextPID int
	procs   map[int]string
}

func newProcTable() *procTable {
	return &procTable{nextPID: 1000, procs: make(map[int]string)}
}

func (p *procTable) Launch(_ context.Context, path string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextPID++
	p.procs[p.nextPID] = "sh " + path
	return p.nextPID, nil
}

func (p *procTable) Alive(_ context.Context, pid int, pattern string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cmdline, ok := p.procs[pid]
	return ok && strings.Contains(cmdline, pattern), nil
}

func (p *procTable) Kill(_ context.Context, pid int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.procs, pid)
	return nil
}

func (p *procTable) KillMatching(_ context.Context, pattern string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for pid, cmdline := range p.procs {
		if strings.Contains(cmdline, pattern) {
			delete(p.procs, pid)
		}
	}
	return nil
}

func (p *procTable) Find(_ context.Context, pattern string) ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var pids []int
	for pid, cmdline := range p.procs {
		if strings.Contains(cmdline, pattern) {
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids, nil
}

// device answers like a rooted headset: id reports uid 0, the governor is
// performance and every preference read prints "<key>: true".
func device(_ context.Context, command string) rootshell.Result {
	switch {
	case command == "id":
		return rootshell.Success(command, "uid=0(root) gid=0(root)")
	case strings.Contains(command, "scaling_governor"):
		return rootshell.Success(command, "performance")
	case strings.Contains(command, "--getc "):
		key := command[strings.LastIndex(command, " ")+1:]
		return rootshell.Success(command, key+": true")
	case command == tweaks.DogfoodStateCommand:
		return rootshell.Success(command, "user")
	default:
		return rootshell.Success(command)
	}
}

type harness struct {
	cli    *cli
	runner *rootshell.MockRunner
	table  *procTable
	store  prefs.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Paths.ScriptDir = t.TempDir()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Blocklist.URL = ""
	cfg.Blocklist.LocalFile = filepath.Join(t.TempDir(), "hosts")

	runner := &rootshell.MockRunner{RunFunc: device}
	table := newProcTable()
	a := buildApp(cfg, slog.New(slog.DiscardHandler), runner, table)
	a.device = func(context.Context) (exploit.Device, error) {
		return exploit.Device{Board: "eureka", Incremental: "51154110129000520"}, nil
	}

	store, err := prefs.OpenInMemory()
	require.NoError(t, err)
	a.openPrefs = func() (prefs.Store, error) { return store, nil }
	t.Cleanup(func() { _ = a.Close() })

	prev := ux.GetPersonality()
	t.Cleanup(func() { ux.SetPersonality(prev) })

	return &harness{cli: &cli{app: a}, runner: runner, table: table, store: store}
}

// run executes args with machine output and returns everything printed.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	restore := ux.SetOutput(&out, &out)
	defer restore()

	root := h.cli.rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--personality", "machine"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// =============================================================================
// Root and exec
// =============================================================================

func TestRootCheck(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "root-check")
	require.NoError(t, err)
	assert.Equal(t, "OK: Root access available\n", out)
}

func TestRootCheck_Denied(t *testing.T) {
	h := newHarness(t)
	h.runner.IsRootAvailableFunc = func(context.Context) bool { return false }

	_, err := h.run(t, "root-check")
	assert.ErrorIs(t, err, errNoRoot)
}

func TestExec_JoinsArgs(t *testing.T) {
	h := newHarness(t)
	h.runner.RunFunc = func(_ context.Context, command string) rootshell.Result {
		return rootshell.Success(command, "hello world")
	}

	out, err := h.run(t, "exec", "echo", "hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)
	assert.Equal(t, []string{"echo hello world"}, h.runner.GetCalls())
}

func TestExec_ExitCode(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "exec", "--exit-code", "true")
	require.NoError(t, err)
	assert.Contains(t, out, "exit code: 0")
}

func TestExec_Failure(t *testing.T) {
	h := newHarness(t)
	h.runner.RunFunc = func(_ context.Context, command string) rootshell.Result {
		return rootshell.Failure(command, 2, "No such file or directory")
	}

	out, err := h.run(t, "exec", "ls", "/nothing")
	require.Error(t, err)
	assert.Contains(t, out, "No such file or directory")
}

func TestExec_RequiresCommand(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "exec")
	assert.Error(t, err)
}

// =============================================================================
// Scripts
// =============================================================================

func TestLEDColor_StartsScriptAndSavesColour(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "led", "color", "255", "0", "128")
	require.NoError(t, err)
	assert.Equal(t, "OK: custom_led started (pid 1001)\n", out)

	r, g, b, err := prefs.LEDColor(h.store)
	require.NoError(t, err)
	assert.Equal(t, []int{255, 0, 128}, []int{r, g, b})
	active, err := h.store.Bool(prefs.KeyCustomLEDActive, false)
	require.NoError(t, err)
	assert.True(t, active)

	body, err := os.ReadFile(h.cli.app.scripts.ScriptPath(scripts.KindCustomLED))
	require.NoError(t, err)
	assert.Contains(t, string(body), "echo 128")
}

func TestLEDColor_RejectsOutOfRange(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "led", "color", "256", "0", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 0 and 255")

	_, err = h.run(t, "led", "color", "red", "0", "0")
	assert.Error(t, err)
}

func TestLEDRainbow_ReplacesCustom(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "led", "color", "1", "2", "3")
	require.NoError(t, err)
	_, err = h.run(t, "led", "rainbow")
	require.NoError(t, err)

	out, err := h.run(t, "led", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "rgb_led\trunning\tpid 1002")
	assert.Contains(t, out, "custom_led\tstopped\t")

	active, err := h.store.Bool(prefs.KeyCustomLEDActive, true)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestLEDOff(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "led", "rainbow")
	require.NoError(t, err)
	out, err := h.run(t, "led", "off")
	require.NoError(t, err)
	assert.Equal(t, "OK: LEDs off\n", out)
	assert.NotEmpty(t, h.runner.CallsContaining("brightness"))
}

func TestLEDBoot(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "led", "boot", "custom")
	require.NoError(t, err)
	mode, err := prefs.GetLEDBootMode(h.store)
	require.NoError(t, err)
	assert.Equal(t, prefs.LEDBootCustom, mode)

	_, err = h.run(t, "led", "boot", "sparkle")
	assert.Error(t, err)
}

func TestMinFreqStart_Flags(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "cpu", "minfreq", "start", "--little", "1036800")
	require.NoError(t, err)

	body, err := os.ReadFile(h.cli.app.scripts.ScriptPath(scripts.KindMinFreq))
	require.NoError(t, err)
	assert.Contains(t, string(body), `echo "1036800"`)
	assert.Contains(t, string(body), `echo "691200"`)

	out, err := h.run(t, "cpu", "minfreq", "stop")
	require.NoError(t, err)
	assert.Equal(t, "OK: min_freq stopped\n", out)
}

func TestInterceptor_StartStatus(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "interceptor", "start", "--target", "com.example/.Main")
	require.NoError(t, err)

	out, err := h.run(t, "interceptor", "status")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "interceptor\trunning\tpid 1001"))

	body, err := os.ReadFile(h.cli.app.scripts.ScriptPath(scripts.KindInterceptor))
	require.NoError(t, err)
	assert.Contains(t, string(body), "com.example/.Main")
}

func TestInterceptor_RejectsUnsafeTarget(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "interceptor", "start", "--target", `com.example/.Main"; reboot; "`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--target")
	_, statErr := os.Stat(h.cli.app.scripts.ScriptPath(scripts.KindInterceptor))
	assert.True(t, os.IsNotExist(statErr))
}

// =============================================================================
// Tweaks
// =============================================================================

func TestGovernor(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "cpu", "governor")
	require.NoError(t, err)
	assert.Equal(t, "governor\tperformance\n", out)

	_, err = h.run(t, "cpu", "governor", "schedutil")
	require.NoError(t, err)
	assert.NotEmpty(t, h.runner.CallsContaining("schedutil"))

	_, err = h.run(t, "cpu", "governor", "turbo")
	assert.ErrorIs(t, err, tweaks.ErrUnknownGovernor)
}

func TestTweakSetGet(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "tweak", "set", "teleport_anywhere", "on")
	require.NoError(t, err)
	assert.Equal(t, "OK: teleport_anywhere enabled\n", out)
	assert.NotEmpty(t, h.runner.CallsContaining("shell_teleport_anywhere"))

	out, err = h.run(t, "tweak", "get", "teleport_anywhere")
	require.NoError(t, err)
	assert.Equal(t, "teleport_anywhere\ton\n", out)

	_, err = h.run(t, "tweak", "set", "teleport_anywhere", "maybe")
	assert.Error(t, err)
	_, err = h.run(t, "tweak", "set", "warp_drive", "on")
	assert.ErrorIs(t, err, tweaks.ErrUnknownToggle)
}

func TestTweakSet_ToolMissing(t *testing.T) {
	h := newHarness(t)
	h.runner.RunFunc = func(_ context.Context, command string) rootshell.Result {
		res := rootshell.Failure(command, 127, "oculuspreferences: not found")
		res.Status = rootshell.StatusNotFound
		return res
	}

	_, err := h.run(t, "tweak", "set", "navigator_ui", "off")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestTweakList(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "tweak", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(tweaks.Toggles()))
	assert.True(t, strings.HasPrefix(lines[0], tweaks.Toggles()[0].Name+"\t"))
}

func TestDogfood_EnableSchedulesStep2(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "dogfood", "enable")
	require.NoError(t, err)
	pending, err := h.store.Bool(prefs.KeyDogfoodPendingStep2, false)
	require.NoError(t, err)
	assert.True(t, pending)

	out, err := h.run(t, "dogfood", "status")
	require.NoError(t, err)
	assert.Equal(t, "dogfood\toff\nstep 2\tpending\n", out)

	_, err = h.run(t, "dogfood", "step2")
	require.NoError(t, err)
	pending, err = h.store.Bool(prefs.KeyDogfoodPendingStep2, true)
	require.NoError(t, err)
	assert.False(t, pending)
}

// =============================================================================
// Prefs, apps, blocker, boot, status
// =============================================================================

func TestPrefs(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "prefs", "set", "blocker_on_boot", "true")
	require.NoError(t, err)

	out, err := h.run(t, "prefs", "get", "blocker_on_boot")
	require.NoError(t, err)
	assert.Equal(t, "blocker_on_boot\ttrue\n", out)

	out, err = h.run(t, "prefs", "list")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), len(prefs.Keys()))
	assert.Contains(t, out, "led_red\t255\n")

	_, err = h.run(t, "prefs", "set", "led_red", "bright")
	assert.ErrorIs(t, err, prefs.ErrInvalidValue)
	_, err = h.run(t, "prefs", "get", "volume")
	assert.ErrorIs(t, err, prefs.ErrUnknownKey)
}

func TestAppsList(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "apps", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "DockEditor\t"))
}

func TestAppsInstall_UnknownApp(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "apps", "install", "netflix")
	assert.Error(t, err)
}

func TestBlockerCheck_UsesCachedList(t *testing.T) {
	h := newHarness(t)
	hosts := "# ads\n0.0.0.0 ads.example.com\n0.0.0.0 tracker.example.net\n"
	require.NoError(t, os.WriteFile(h.cli.app.cfg.Blocklist.LocalFile, []byte(hosts), 0644))

	out, err := h.run(t, "blocker", "check", "ADS.example.com.")
	require.NoError(t, err)
	assert.Equal(t, "ads.example.com\tblocked\t\n", out)

	out, err = h.run(t, "blocker", "check", "example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com\tallowed\t\n", out)
}

func TestBlockerCheck_EmptyList(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "blocker", "check", "example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "WARN: blocklist is empty")
	assert.Contains(t, out, "example.com\tallowed\t")
}

func TestBootRun_NothingEnabled(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "boot", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "SUMMARY: done=0")
	assert.Contains(t, out, "failed=0")
	assert.Empty(t, h.table.procs)
}

func TestBootRun_StartsFlaggedScripts(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.SetBool(prefs.KeyMinFreqOnBoot, true))
	require.NoError(t, prefs.SetLEDBootMode(h.store, prefs.LEDBootRainbow))

	out, err := h.run(t, "boot", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "min_freq\tdone")
	assert.Contains(t, out, "led\tdone")
	assert.Contains(t, out, "SUMMARY: done=2")
	assert.Len(t, h.table.procs, 2)
}

func TestStatus_JSON(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "status", "--json")
	require.NoError(t, err)

	var snap map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, true, snap["rooted"])
	assert.Equal(t, "performance", snap["governor"])
	assert.Len(t, snap["scripts"], len(scripts.Kinds()))
	assert.Len(t, snap["toggles"], len(tweaks.Toggles()))
}

func TestStatus_Text(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "root\tyes\n")
	assert.Contains(t, out, "device\teureka 51154110129000520\n")
	assert.Contains(t, out, "governor\tperformance\n")
	assert.Contains(t, out, "rgb_led\tstopped\t\n")
}

// =============================================================================
// Helpers
// =============================================================================

func TestParseOnOff(t *testing.T) {
	for _, s := range []string{"on", "ON", "true", "1", "enable"} {
		v, err := parseOnOff(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"off", "false", "0", " disabled "} {
		v, err := parseOnOff(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := parseOnOff("sometimes")
	assert.Error(t, err)
}

func TestParseChannel(t *testing.T) {
	v, err := parseChannel("red", " 42 ")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = parseChannel("red", "-1")
	assert.Error(t, err)
	_, err = parseChannel("red", "x")
	assert.Error(t, err)
}
