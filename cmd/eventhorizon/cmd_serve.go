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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/server"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

func (c *cli) serveCmd() *cobra.Command {
	var (
		addr         string
		runBoot      bool
		startBlocker bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the control API on localhost",
		Long: `Runs the headless control API. The process owns the preference store
and the blocker for as long as it runs, so start it from the boot script
with --boot to re-apply the enabled features.

Examples:
  eventhorizon serve
  eventhorizon serve --boot
  eventhorizon serve --addr 127.0.0.1:9000 --blocker`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := c.app.prefs()
			if err != nil {
				return err
			}

			blocker := c.app.blocker(true)
			defer blocker.Stop()
			hook := c.app.bootHook(store, blocker)

			if runBoot {
				printReport(hook.Run(ctx))
			}
			if startBlocker && !blocker.Running() {
				if err := blocker.Start(ctx); err != nil {
					ux.Warning("hot reload disabled: " + err.Error())
				}
			}

			listen := c.app.cfg.Server.Addr
			if addr != "" {
				listen = addr
			}

			srv := server.New(server.Config{
				Addr:          listen,
				ScriptOptions: c.app.scriptOptions(),
				ServiceName:   "eventhorizon",
			}, server.Deps{
				Status:    c.app.prober(blocker),
				Scripts:   c.app.scripts,
				Tweaks:    c.app.tweaker,
				Installer: c.app.installer,
				Blocker:   blocker,
				Prefs:     store,
				Boot:      hook,
			}, c.app.logger)

			ux.Success("Control API listening on http://" + listen)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&runBoot, "boot", false, "Run the boot hook before serving")
	cmd.Flags().BoolVar(&startBlocker, "blocker", false, "Start the blocker regardless of blocker_on_boot")
	return cmd
}
