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

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/prefs"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

func (c *cli) tweakCmd() *cobra.Command {
	tweak := &cobra.Command{
		Use:   "tweak",
		Short: "Shell preference toggles",
		Long: `Reads and writes the shell preference toggles. Some toggles restart the
shell to take effect.

Examples:
  eventhorizon tweak list
  eventhorizon tweak set teleport_anywhere on
  eventhorizon tweak get navigator_ui`,
	}

	tweak.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the available toggles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				for _, t := range tweaks.Toggles() {
					ux.KeyValue(t.Name, t.Description)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <name>",
			Short: "Read a toggle from the device",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				on, err := c.app.tweaker.State(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				ux.KeyValue(args[0], onOff(on))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <name> <on|off>",
			Short: "Write a toggle",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				on, err := parseOnOff(args[1])
				if err != nil {
					return err
				}
				out, err := c.app.tweaker.Apply(cmd.Context(), args[0], on)
				if err != nil {
					return err
				}
				return outcomeErr("set "+args[0], out)
			},
		},
	)
	return tweak
}

func (c *cli) dogfoodCmd() *cobra.Command {
	dogfood := &cobra.Command{
		Use:   "dogfood",
		Short: "Enable, disable or open the Dogfood Hub",
		Long: `Enabling the Dogfood Hub takes two framework restarts. "enable" applies
step 1 and records that step 2 is pending; step 2 then runs from the boot
hook, or manually with "dogfood step2".`,
	}

	dogfood.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show whether the Dogfood Hub is enabled",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				on, err := c.app.tweaker.DogfoodEnabled(cmd.Context())
				if err != nil {
					return err
				}
				ux.KeyValue("dogfood", onOff(on))
				if store, err := c.app.prefs(); err == nil {
					if pending, err := store.Bool(prefs.KeyDogfoodPendingStep2, false); err == nil && pending {
						ux.KeyValue("step 2", "pending")
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "enable",
			Short: "Apply step 1 and schedule step 2",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := c.app.prefs()
				if err != nil {
					return err
				}
				out := c.app.tweaker.DogfoodStep1(cmd.Context())
				if !out.OK() {
					return outcomeErr("dogfood step 1", out)
				}
				if err := store.SetBool(prefs.KeyDogfoodPendingStep2, true); err != nil {
					return fmt.Errorf("schedule step 2: %w", err)
				}
				return outcomeErr("dogfood step 1", out)
			},
		},
		&cobra.Command{
			Use:   "step2",
			Short: "Apply step 2 now",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				out := c.app.tweaker.DogfoodStep2(cmd.Context())
				if out.OK() {
					c.clearDogfoodPending()
				}
				return outcomeErr("dogfood step 2", out)
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Disable the Dogfood Hub",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c.clearDogfoodPending()
				return outcomeErr("dogfood disable", c.app.tweaker.DogfoodDisable(cmd.Context()))
			},
		},
		&cobra.Command{
			Use:   "launch",
			Short: "Open the Dogfood Hub",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return outcomeErr("dogfood launch", c.app.tweaker.DogfoodLaunch(cmd.Context()))
			},
		},
	)
	return dogfood
}

func (c *cli) clearDogfoodPending() {
	store, err := c.app.prefs()
	if err == nil {
		err = store.SetBool(prefs.KeyDogfoodPendingStep2, false)
	}
	if err != nil {
		ux.Warning("pending step 2 not cleared: " + err.Error())
	}
}
