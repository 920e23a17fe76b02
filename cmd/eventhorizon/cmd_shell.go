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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/rootshell"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

// errNoRoot is returned by root-check when the helper is denied or missing.
var errNoRoot = errors.New("root access unavailable")

func (c *cli) rootCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "root-check",
		Short: "Check whether root commands can run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !c.app.runner.IsRootAvailable(cmd.Context()) {
				return errNoRoot
			}
			ux.Success("Root access available")
			return nil
		},
	}
}

func (c *cli) execCmd() *cobra.Command {
	var (
		mountMaster bool
		exitCode    bool
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "exec <command...>",
		Short: "Run a shell command as root",
		Long: `Runs a command through the privilege helper and prints its output.

Standard output comes first, followed by standard error lines prefixed with
"ERROR: ". A command with no output prints a confirmation instead.

Examples:
  eventhorizon exec id
  eventhorizon exec --mount-master mount
  eventhorizon exec --exit-code 'ls /data/nothing'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []rootshell.Option
			if mountMaster {
				opts = append(opts, rootshell.WithMountMaster())
			}
			if exitCode {
				opts = append(opts, rootshell.WithExitCode())
			}
			if timeout > 0 {
				opts = append(opts, rootshell.WithTimeout(timeout))
			}

			res := c.app.runner.Run(cmd.Context(), strings.Join(args, " "), opts...)
			fmt.Fprint(cmd.OutOrStdout(), res.Text())
			return res.AsError()
		},
	}
	cmd.Flags().BoolVar(&mountMaster, "mount-master", false,
		"Run in the global mount namespace")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false,
		"Append the exit code to the output")
	cmd.Flags().DurationVar(&timeout, "timeout", 0,
		"Override the configured command timeout")
	return cmd
}
