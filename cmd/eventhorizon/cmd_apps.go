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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/release"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

func (c *cli) appsCmd() *cobra.Command {
	apps := &cobra.Command{
		Use:   "apps",
		Short: "Sideload catalogue apps from their latest release",
	}

	var fromURL string
	install := &cobra.Command{
		Use:   "install <name>",
		Short: "Download and install the latest APK of an app",
		Long: `Finds the latest release of the app, downloads its first .apk asset and
installs it with "pm install -r". The download is removed afterwards.

Examples:
  eventhorizon apps install shizuku
  eventhorizon apps install mixplorer
  eventhorizon apps install dockeditor --url https://example.com/DockEditor.apk`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := release.LookupApp(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if d := c.app.cfg.Release.DownloadTimeout; d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			ux.Title("Installing " + app.Name)
			onStatus := progressPrinter()
			var out release.Outcome
			if fromURL != "" {
				out = c.app.installer.InstallFromURL(ctx, app, fromURL, onStatus)
			} else {
				out = c.app.installer.Install(ctx, app, onStatus)
			}
			if !out.OK() {
				return errors.New(out.Message)
			}
			ux.Success(out.Message)
			return nil
		},
	}
	install.Flags().StringVar(&fromURL, "url", "",
		"Install from this APK URL instead of the latest release")

	apps.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the app catalogue",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				for _, a := range release.Apps() {
					ux.StatusLine(ux.IconBullet, a.Name, a.Source(), a.Description)
				}
				return nil
			},
		},
		install,
	)
	return apps
}

// progressPrinter prints every status except the last one, which the
// caller reports as the outcome.
func progressPrinter() release.StatusFunc {
	var pending string
	return func(status string) {
		if pending != "" {
			ux.Muted(pending)
		}
		pending = status
	}
}

func (c *cli) updateCmd() *cobra.Command {
	update := &cobra.Command{
		Use:   "update",
		Short: "EventHorizon self-update",
	}
	update.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Check for a newer EventHorizon release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.app.cfg.Release
			if cfg.UpdateOwner == "" || cfg.UpdateRepo == "" {
				return errors.New("no update source configured")
			}
			u, err := c.app.releases.CheckForUpdate(cmd.Context(), cfg.UpdateOwner, cfg.UpdateRepo, version)
			if err != nil {
				return err
			}
			ux.KeyValue("current", u.Current)
			ux.KeyValue("latest", u.Latest)
			if u.Available {
				ux.Success(fmt.Sprintf("Update available: %s", u.Latest))
				if u.Release.HTMLURL != "" {
					ux.Info(u.Release.HTMLURL)
				}
				return nil
			}
			ux.Info("EventHorizon is up to date")
			return nil
		},
	})
	return update
}
