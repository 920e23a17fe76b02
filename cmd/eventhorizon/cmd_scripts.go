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

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
	"github.com/AleutianAI/EventHorizon/pkg/validation"
)

// scriptCmds returns the start, stop and status subcommands for one
// script kind. def builds the definition at start time.
func (c *cli) scriptCmds(kind scripts.Kind, def func() (scripts.Definition, error)) []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "start",
			Short: "Start the " + kind.Name + " script",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				d, err := def()
				if err != nil {
					return err
				}
				h, err := c.app.scripts.Start(cmd.Context(), d)
				if err != nil {
					return err
				}
				printHandle(h)
				return nil
			},
		},
		{
			Use:   "stop",
			Short: "Stop the " + kind.Name + " script",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := c.app.scripts.Stop(cmd.Context(), kind); err != nil {
					return err
				}
				ux.Success(kind.Name + " stopped")
				return nil
			},
		},
		{
			Use:   "status",
			Short: "Show the " + kind.Name + " script",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				st, err := c.app.scripts.Status(cmd.Context(), kind)
				if err != nil {
					return err
				}
				printScriptStatus(st)
				return nil
			},
		},
	}
}

func (c *cli) cpuCmd() *cobra.Command {
	cpu := &cobra.Command{
		Use:   "cpu",
		Short: "CPU governor and minimum frequency lock",
	}

	governor := &cobra.Command{
		Use:   "governor [performance|schedutil]",
		Short: "Show or set the CPU governor",
		Long: `Without an argument, prints the governor of cpu0. With one, writes it to
every configured core and locks the sysfs files read-only.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(tweaks.GovernorPerformance), string(tweaks.GovernorSchedutil)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				gov, err := c.app.tweaker.Governor(cmd.Context())
				if err != nil {
					return err
				}
				ux.KeyValue("governor", gov)
				return nil
			}
			gov, err := tweaks.ParseGovernor(args[0])
			if err != nil {
				return err
			}
			return outcomeErr("set governor", c.app.tweaker.SetGovernor(cmd.Context(), gov))
		},
	}

	var little, big int
	minfreq := &cobra.Command{
		Use:   "minfreq",
		Short: "Hold a minimum CPU frequency with a background script",
		Long: `The min-freq script rewrites scaling_min_freq on every core every two
seconds. Frequencies are in kHz.

Examples:
  eventhorizon cpu minfreq start
  eventhorizon cpu minfreq start --little 1036800 --big 1190400
  eventhorizon cpu minfreq stop`,
	}
	minfreq.PersistentFlags().IntVar(&little, "little", 0,
		"LITTLE cluster minimum in kHz (default from config)")
	minfreq.PersistentFlags().IntVar(&big, "big", 0,
		"big cluster minimum in kHz (default from config)")
	minfreq.AddCommand(c.scriptCmds(scripts.KindMinFreq, func() (scripts.Definition, error) {
		l, b := c.app.cfg.CPU.MinFreqLittle, c.app.cfg.CPU.MinFreqBig
		if little > 0 {
			l = little
		}
		if big > 0 {
			b = big
		}
		return tweaks.MinFreqDefinition(c.app.coreLayout(), l, b), nil
	})...)

	cpu.AddCommand(governor, minfreq)
	return cpu
}

func (c *cli) interceptorCmd() *cobra.Command {
	var targets []string
	interceptor := &cobra.Command{
		Use:   "interceptor",
		Short: "Block selected system activities from opening",
		Long: `The interceptor watches the activity log and disables a target component
the moment it starts, then re-enables it so the app stays installed.

Examples:
  eventhorizon interceptor start
  eventhorizon interceptor start --target com.oculus.explore/.ExploreActivity
  eventhorizon interceptor status`,
	}
	interceptor.PersistentFlags().StringSliceVar(&targets, "target", nil,
		"Component to intercept, repeatable (default from config)")
	interceptor.AddCommand(c.scriptCmds(scripts.KindInterceptor, func() (scripts.Definition, error) {
		if len(targets) == 0 {
			return tweaks.InterceptorDefinition(c.app.cfg.Interceptor.Targets), nil
		}
		if err := validation.ValidateComponents(targets); err != nil {
			return scripts.Definition{}, fmt.Errorf("--target: %w", err)
		}
		return tweaks.InterceptorDefinition(targets), nil
	})...)
	return interceptor
}
