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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/blocklist"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
	"github.com/AleutianAI/EventHorizon/pkg/validation"
)

func (c *cli) blockerCmd() *cobra.Command {
	blocker := &cobra.Command{
		Use:   "blocker",
		Short: "DNS blocklist",
		Long: `Loads the hosts-format blocklist and answers lookups. The downloaded list
is cached in the configured local file and used when the download fails.`,
	}

	var noWatch bool
	start := &cobra.Command{
		Use:   "start",
		Short: "Load the blocklist and keep it loaded until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := c.app.blocker(!noWatch)
			if err := b.Start(cmd.Context()); err != nil {
				ux.Warning("hot reload disabled: " + err.Error())
			}
			defer b.Stop()
			ux.Success(fmt.Sprintf("Blocker running with %d domains", b.Len()))
			<-cmd.Context().Done()
			ux.Info("Blocker stopped")
			return nil
		},
	}
	start.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload when the local file changes")

	var refresh bool
	check := &cobra.Command{
		Use:   "check <domain>",
		Short: "Report whether a domain is blocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := validation.SanitizeDomain(args[0])
			if err != nil {
				return err
			}
			blocked, n, err := c.lookupDomain(cmd, domain, refresh)
			if err != nil {
				return err
			}
			if n == 0 {
				ux.Warning("blocklist is empty")
			}
			if blocked {
				ux.StatusLine(ux.IconError, domain, "blocked", "")
			} else {
				ux.StatusLine(ux.IconSuccess, domain, "allowed", "")
			}
			return nil
		},
	}
	check.Flags().BoolVar(&refresh, "refresh", false, "Download the list instead of using the cached copy")

	blocker.AddCommand(start, check)
	return blocker
}

// lookupDomain checks domain against the cached list, downloading it when
// refresh is set or no cached copy exists.
func (c *cli) lookupDomain(cmd *cobra.Command, domain string, refresh bool) (blocked bool, n int, err error) {
	if local := c.app.cfg.Blocklist.LocalFile; !refresh && local != "" {
		if set, err := blocklist.LoadFile(local); err == nil {
			return set.Contains(domain), set.Len(), nil
		}
	}
	b := c.app.blocker(false)
	if err := b.Start(cmd.Context()); err != nil {
		return false, 0, err
	}
	defer b.Stop()
	return b.IsBlocked(domain), b.Len(), nil
}
