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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/boot"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

func (c *cli) bootCmd() *cobra.Command {
	b := &cobra.Command{
		Use:   "boot",
		Short: "Re-apply the features enabled for boot",
	}
	b.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the boot hook once",
		Long: `Runs the exploit when root_on_boot is set, then starts every script
whose on-boot flag is set. Failures are reported per action and never stop
the other actions.

The blocker only lives as long as its process, so the one-shot hook skips
it. Use "eventhorizon serve --boot" to run the hook and keep the blocker.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.app.prefs()
			if err != nil {
				return err
			}
			report := c.app.bootHook(store, nil).Run(cmd.Context())
			printReport(report)
			return nil
		},
	})
	return b
}

func printReport(r boot.Report) {
	ux.Title("Boot hook")
	var done, skipped, failed int
	for _, a := range r.Actions {
		icon := ux.IconPending
		switch a.Status {
		case boot.StatusDone:
			icon = ux.IconSuccess
			done++
		case boot.StatusFailed:
			icon = ux.IconError
			failed++
		default:
			skipped++
		}
		ux.StatusLine(icon, a.Name, string(a.Status), a.Detail)
	}
	ux.Summary(done, skipped, failed)
	ux.Muted(fmt.Sprintf("run %s in %s", r.RunID, r.Duration.Round(time.Millisecond)))
}
