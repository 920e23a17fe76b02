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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/config"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/telemetry"
	"github.com/AleutianAI/EventHorizon/pkg/logging"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

// cli holds the global flags and the lazily built app shared by every
// command.
type cli struct {
	configPath  string
	personality string
	logLevel    string
	jsonLogs    bool
	verbose     bool

	// app is built by the root PersistentPreRunE unless a test set it.
	app *app

	logger   *logging.Logger
	shutdown func(context.Context) error
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "eventhorizon",
		Short: "Root control panel for Quest headsets",
		Long: `EventHorizon roots supported Quest builds and manages the device
through a fixed catalogue of root commands: LED scripts, CPU governor and
frequency locks, shell preference toggles, an activity interceptor, a DNS
blocklist and app sideloading.

Run "eventhorizon serve" to expose the same operations over a local HTTP API.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "",
		"Config file (default ~/.eventhorizon/eventhorizon.yaml)")
	flags.StringVar(&c.personality, "personality", "",
		"Output style: full, minimal or machine (default: detect)")
	flags.StringVar(&c.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
	flags.BoolVar(&c.jsonLogs, "log-json", false, "Write logs as JSON")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Shorthand for --log-level debug")

	root.AddCommand(
		c.rootCheckCmd(),
		c.execCmd(),
		c.statusCmd(),
		c.ledCmd(),
		c.cpuCmd(),
		c.interceptorCmd(),
		c.tweakCmd(),
		c.dogfoodCmd(),
		c.appsCmd(),
		c.updateCmd(),
		c.blockerCmd(),
		c.exploitCmd(),
		c.bootCmd(),
		c.prefsCmd(),
		c.serveCmd(),
		c.versionCmd(),
	)
	return root
}

// setup applies the output personality, loads the config and builds the
// app. Commands that never touch the device still pay for config loading
// so a broken config is reported early.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.personality != "" {
		ux.SetPersonalityLevel(ux.ParsePersonalityLevel(c.personality))
	} else {
		ux.InitPersonality()
	}

	if c.app != nil {
		return nil
	}

	if err := config.Load(c.configPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := config.Global

	level := cfg.Log.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	if c.verbose {
		level = "debug"
	}
	c.logger = logging.New(logging.Config{
		Level:   logging.ParseLevel(level),
		LogDir:  cfg.Paths.LogDir,
		Service: cmd.Name(),
		JSON:    c.jsonLogs || cfg.Log.JSON,
		Quiet:   cmd.Name() != "serve" && level != "debug",
	})

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		ServiceName:    "eventhorizon",
		ServiceVersion: version,
		TraceExporter:  cfg.Telemetry.TraceExporter,
		TraceFile:      cfg.Telemetry.TraceFile,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   true,
		MetricExporter: cfg.Telemetry.MetricExporter,
	})
	if err != nil {
		c.logger.Warn("telemetry disabled", "error", err)
	} else {
		c.shutdown = shutdown
	}

	c.app = newApp(cfg, c.logger.Slog())
	return nil
}

// close releases everything setup acquired. Safe to call when setup never
// ran.
func (c *cli) close() {
	if c.app != nil {
		if err := c.app.Close(); err != nil && c.logger != nil {
			c.logger.Warn("close failed", "error", err)
		}
	}
	if c.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.shutdown(ctx); err != nil && c.logger != nil {
			c.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}
	if c.logger != nil {
		_ = c.logger.Close()
	}
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the EventHorizon version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ux.KeyValue("version", version)
			return nil
		},
	}
}
