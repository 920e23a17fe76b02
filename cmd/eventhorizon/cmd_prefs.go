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

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/prefs"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

func (c *cli) prefsCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "prefs",
		Short: "Persisted feature flags",
		Long: `Reads and writes the flags the boot hook acts on. Boolean flags take
true or false; LED channels take 0 to 255.

Examples:
  eventhorizon prefs list
  eventhorizon prefs set blocker_on_boot true
  eventhorizon prefs get led_red`,
	}

	p.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every flag with its effective value",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := c.app.prefs()
				if err != nil {
					return err
				}
				values, err := prefs.Effective(store)
				if err != nil {
					return err
				}
				for _, k := range prefs.Keys() {
					ux.KeyValue(k.Name, values[k.Name])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one flag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				info, err := prefs.LookupKey(args[0])
				if err != nil {
					return err
				}
				store, err := c.app.prefs()
				if err != nil {
					return err
				}
				values, err := prefs.Effective(store)
				if err != nil {
					return err
				}
				ux.KeyValue(info.Name, values[info.Name])
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set one flag",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := c.app.prefs()
				if err != nil {
					return err
				}
				if err := prefs.SetText(store, args[0], args[1]); err != nil {
					return err
				}
				ux.Success(args[0] + " updated")
				return nil
			},
		},
	)
	return p
}
