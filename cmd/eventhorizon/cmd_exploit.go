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

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/exploit"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

func (c *cli) exploitCmd() *cobra.Command {
	expl := &cobra.Command{
		Use:   "exploit",
		Short: "Temporary root exploit",
	}

	var force bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Extract the payload and run the exploit",
		Long: `Extracts the bundled payload and runs the native launcher, streaming its
output. Root lasts until the next reboot; enable root_on_boot to repeat it
from the boot hook.

The run is refused on builds newer than the last vulnerable one and when
root is already available, unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !force {
				if c.app.runner.IsRootAvailable(ctx) {
					ux.Success("Already rooted")
					return nil
				}
				dev, err := c.app.device(ctx)
				if err != nil {
					ux.Warning("could not identify device: " + err.Error())
				} else if dev.Patched() {
					return fmt.Errorf("build %s on %s is patched; use --force to try anyway", dev.Incremental, dev.Board)
				}
			}

			ux.Title("Running exploit")
			if err := c.app.launcher.Run(ctx, ux.Info); err != nil {
				return err
			}
			if c.app.runner.IsRootAvailable(ctx) {
				ux.Success("Root acquired")
				return nil
			}
			ux.Warning("exploit finished but root is not available yet")
			return nil
		},
	}
	runCmd.Flags().BoolVar(&force, "force", false, "Skip the rooted and patched checks")

	device := &cobra.Command{
		Use:   "device",
		Short: "Show the board, build and patch state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, err := c.app.device(cmd.Context())
			if err != nil {
				return err
			}
			printDevice(dev)
			return nil
		},
	}

	expl.AddCommand(runCmd, device)
	return expl
}

func printDevice(dev exploit.Device) {
	ux.KeyValue("board", dev.Board)
	ux.KeyValue("incremental", dev.Incremental)
	if last := exploit.LastVulnerable(dev.Board); last > 0 {
		ux.KeyValue("last vulnerable", fmt.Sprintf("%d", last))
	}
	ux.KeyValue("patched", yesNo(dev.Patched()))
}
