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
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

func (c *cli) ledCmd() *cobra.Command {
	led := &cobra.Command{
		Use:   "led",
		Short: "Control the headset LEDs",
		Long: `Starts and stops the LED scripts. The rainbow and custom colour scripts
share one LED group: starting either stops the other.

Examples:
  eventhorizon led rainbow
  eventhorizon led color 255 0 128
  eventhorizon led off
  eventhorizon led boot custom`,
	}

	led.AddCommand(
		&cobra.Command{
			Use:   "rainbow",
			Short: "Cycle the LEDs through a rainbow",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				h, err := c.app.scripts.Start(cmd.Context(), tweaks.RainbowDefinition())
				if err != nil {
					return err
				}
				c.markCustomLED(false)
				printHandle(h)
				return nil
			},
		},
		&cobra.Command{
			Use:   "color <r> <g> <b>",
			Short: "Hold the LEDs at a custom colour",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				var ch [3]int
				for i, name := range []string{"red", "green", "blue"} {
					v, err := parseChannel(name, args[i])
					if err != nil {
						return err
					}
					ch[i] = v
				}
				color := tweaks.Color{R: ch[0], G: ch[1], B: ch[2]}

				h, err := c.app.scripts.Start(cmd.Context(), tweaks.CustomColorDefinition(color))
				if err != nil {
					return err
				}
				if store, err := c.app.prefs(); err == nil {
					if err := prefs.SaveLEDColor(store, ch[0], ch[1], ch[2]); err != nil {
						ux.Warning("colour not saved: " + err.Error())
					}
				} else {
					ux.Warning("colour not saved: " + err.Error())
				}
				printHandle(h)
				return nil
			},
		},
		&cobra.Command{
			Use:   "off",
			Short: "Stop LED scripts and turn the LEDs off",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				for _, kind := range []scripts.Kind{scripts.KindRGBLED, scripts.KindCustomLED} {
					if err := c.app.scripts.Stop(cmd.Context(), kind); err != nil {
						return err
					}
				}
				c.markCustomLED(false)
				return outcomeErr("LEDs off", c.app.tweaker.LEDsOff(cmd.Context()))
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the LED scripts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				for _, kind := range []scripts.Kind{scripts.KindRGBLED, scripts.KindCustomLED} {
					st, err := c.app.scripts.Status(cmd.Context(), kind)
					if err != nil {
						return err
					}
					printScriptStatus(st)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:       "boot <rainbow|custom|none>",
			Short:     "Choose which LED script starts at boot",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{string(prefs.LEDBootRainbow), string(prefs.LEDBootCustom), string(prefs.LEDBootNone)},
			RunE: func(cmd *cobra.Command, args []string) error {
				mode, err := prefs.ParseLEDBootMode(args[0])
				if err != nil {
					return err
				}
				store, err := c.app.prefs()
				if err != nil {
					return err
				}
				if err := prefs.SetLEDBootMode(store, mode); err != nil {
					return err
				}
				ux.Success(fmt.Sprintf("LED boot mode set to %s", mode))
				return nil
			},
		},
	)
	return led
}

// markCustomLED records whether the custom colour script is the active LED
// script. Failures are reported but not fatal.
func (c *cli) markCustomLED(active bool) {
	store, err := c.app.prefs()
	if err == nil {
		err = store.SetBool(prefs.KeyCustomLEDActive, active)
	}
	if err != nil {
		ux.Warning("LED state not saved: " + err.Error())
	}
}
