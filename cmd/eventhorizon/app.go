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
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/config"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/blocklist"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/boot"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/exploit"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/prefs"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/release"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/rootshell"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/status"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
)

// app wires the components from the loaded config. Every command works
// through it so tests can swap the root runner and preference store.
type app struct {
	cfg    config.EventHorizonConfig
	logger *slog.Logger

	runner    rootshell.Runner
	scripts   *scripts.Supervisor
	tweaker   *tweaks.Tweaker
	releases  *release.Client
	installer *release.Installer
	launcher  *exploit.Launcher
	device    boot.DeviceReader

	// openPrefs opens the preference store on first use. BadgerDB allows
	// one process per directory, so commands that never read flags must
	// not hold it.
	openPrefs func() (prefs.Store, error)
	prefsOnce sync.Once
	store     prefs.Store
	prefsErr  error
}

func newApp(cfg config.EventHorizonConfig, logger *slog.Logger) *app {
	runner := rootshell.NewSuRunner(rootshell.Config{
		Binary:      cfg.Shell.Binary,
		Args:        cfg.Shell.Args,
		Timeout:     cfg.Shell.Timeout,
		MountMaster: cfg.Shell.MountMaster,
	}, logger)
	return buildApp(cfg, logger, runner, scripts.NewShellTable(runner))
}

// buildApp wires the components over runner and table.
func buildApp(cfg config.EventHorizonConfig, logger *slog.Logger, runner rootshell.Runner, table scripts.ProcessTable) *app {
	releases := release.NewClient(release.ClientConfig{
		BaseURL:           cfg.Release.BaseURL,
		RequestsPerSecond: cfg.Release.RequestsPerSecond,
		Burst:             cfg.Release.Burst,
	}, logger)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		runner:    runner,
		scripts:   scripts.NewSupervisor(cfg.Paths.ScriptDir, table, logger),
		tweaker:   tweaks.NewTweaker(runner, tweaks.ProtocolV1{}, cfg.CPU.GovernorCores, logger),
		releases:  releases,
		installer: release.NewInstaller(releases, runner, filepath.Join(cfg.Paths.CacheDir, "apk"), logger),
		launcher: &exploit.Launcher{
			Executable:   cfg.Exploit.Executable,
			AssetsDir:    cfg.Exploit.AssetsDir,
			ExtractDir:   cfg.Exploit.ExtractDir,
			LaunchScript: cfg.Exploit.LaunchScript,
			Logger:       logger,
		},
		device: func(ctx context.Context) (exploit.Device, error) {
			return exploit.ReadDevice(ctx, exploit.Getprop)
		},
	}
	a.openPrefs = func() (prefs.Store, error) {
		pcfg := prefs.DefaultConfig(filepath.Join(cfg.Paths.DataDir, "prefs"))
		pcfg.Logger = logger
		return prefs.Open(pcfg)
	}
	return a
}

// prefs returns the preference store, opening it on first call.
func (a *app) prefs() (prefs.Store, error) {
	a.prefsOnce.Do(func() {
		a.store, a.prefsErr = a.openPrefs()
	})
	return a.store, a.prefsErr
}

// blocker builds a blocker from config. watch overrides the configured
// hot-reload setting.
func (a *app) blocker(watch bool) *blocklist.Blocker {
	loader := blocklist.NewLoader(nil, a.cfg.Release.DownloadTimeout, a.logger)
	return blocklist.NewBlocker(blocklist.BlockerConfig{
		URL:       a.cfg.Blocklist.URL,
		LocalFile: a.cfg.Blocklist.LocalFile,
		Watch:     watch && a.cfg.Blocklist.Watch,
	}, loader, a.logger)
}

func (a *app) coreLayout() tweaks.CoreLayout {
	return tweaks.CoreLayout{Little: a.cfg.CPU.LittleCores, Big: a.cfg.CPU.BigCores}
}

// scriptOptions parameterizes script definitions from config. Colour is
// resolved per call from the preference store.
func (a *app) scriptOptions() tweaks.ScriptOptions {
	return tweaks.ScriptOptions{
		Color:            tweaks.White,
		Layout:           a.coreLayout(),
		MinLittle:        a.cfg.CPU.MinFreqLittle,
		MinBig:           a.cfg.CPU.MinFreqBig,
		InterceptTargets: a.cfg.Interceptor.Targets,
	}
}

// bootHook builds the boot hook over store. blocker may be nil when the
// caller does not keep a blocker alive.
func (a *app) bootHook(store prefs.Store, blocker *blocklist.Blocker) *boot.Hook {
	h := &boot.Hook{
		Prefs:   store,
		Runner:  a.runner,
		Scripts: a.scripts,
		Exploit: a.launcher,
		Device:  a.device,
		Dogfood: a.tweaker,
		MinFreq: boot.MinFreq{
			Layout: a.coreLayout(),
			Little: a.cfg.CPU.MinFreqLittle,
			Big:    a.cfg.CPU.MinFreqBig,
		},
		InterceptTargets: a.cfg.Interceptor.Targets,
		Logger:           a.logger,
	}
	if blocker != nil {
		h.Blocker = blocker
	}
	return h
}

// prober builds the status prober. blocker may be nil.
func (a *app) prober(blocker *blocklist.Blocker) *status.Prober {
	p := &status.Prober{
		Root:    a.runner,
		Scripts: a.scripts,
		Tweaks:  a.tweaker,
		Device:  a.device,
		Logger:  a.logger,
	}
	if blocker != nil {
		p.Blocker = blocker
	}
	return p
}

// Close releases the preference store if it was opened.
func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
