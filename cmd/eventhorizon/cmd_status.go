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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/status"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

func (c *cli) statusCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show root, script, governor and toggle state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := c.app.prober(nil).Probe(cmd.Context())
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			printSnapshot(snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON for scripting")
	return cmd
}

func printSnapshot(snap status.Snapshot) {
	ux.Title("EventHorizon")
	ux.KeyValue("root", yesNo(snap.Rooted))
	if d := snap.Device; d != nil {
		if d.Error != "" {
			ux.KeyValue("device", "unknown ("+d.Error+")")
		} else {
			patched := ""
			if d.Patched {
				patched = " (patched)"
			}
			ux.KeyValue("device", fmt.Sprintf("%s %s%s", d.Board, d.Incremental, patched))
		}
	}
	if snap.GovernorError != "" {
		ux.KeyValue("governor", "unknown ("+snap.GovernorError+")")
	} else {
		ux.KeyValue("governor", snap.Governor)
	}
	if b := snap.Blocker; b != nil {
		ux.KeyValue("blocker", fmt.Sprintf("%s, %d domains", runningStopped(b.Running), b.Domains))
	}

	ux.Title("Scripts")
	for _, s := range snap.Scripts {
		detail := s.Error
		if s.PID > 0 {
			detail = fmt.Sprintf("pid %d", s.PID)
		}
		ux.StatusLine(ux.IconFor(s.State == "running"), s.Kind, s.State, detail)
	}

	ux.Title("Tweaks")
	for _, t := range snap.Toggles {
		switch {
		case t.Error != "":
			ux.StatusLine(ux.IconWarning, t.Name, "unknown", t.Error)
		case t.On != nil:
			ux.StatusLine(ux.IconFor(*t.On), t.Name, onOff(*t.On), "")
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runningStopped(b bool) string {
	if b {
		return "running"
	}
	return "stopped"
}
