// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tweaks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/rootshell"
)

// OutcomeStatus classifies the result of applying a tweak.
type OutcomeStatus string

const (
	// OutcomeApplied means the command ran and exited 0.
	OutcomeApplied OutcomeStatus = "applied"

	// OutcomeFailed means the command ran and failed, or could not run.
	OutcomeFailed OutcomeStatus = "failed"

	// OutcomeUnsupported means a tool the tweak needs is missing.
	OutcomeUnsupported OutcomeStatus = "unsupported"
)

// Outcome is what a tweak did, ready for display.
type Outcome struct {
	Status OutcomeStatus
	Detail string
}

// OK reports whether the tweak was applied.
func (o Outcome) OK() bool { return o.Status == OutcomeApplied }

// OutcomeFrom derives an Outcome from a runner result. success is the
// message used when the command succeeded.
func OutcomeFrom(res rootshell.Result, success string) Outcome {
	switch res.Status {
	case rootshell.StatusSuccess:
		return Outcome{Status: OutcomeApplied, Detail: success}
	case rootshell.StatusNotFound:
		return Outcome{Status: OutcomeUnsupported, Detail: res.Reason()}
	default:
		return Outcome{Status: OutcomeFailed, Detail: res.Reason()}
	}
}

// Tweaker applies catalogue tweaks through a Runner.
//
// # Thread Safety
//
// Tweaker holds no mutable state and is safe for concurrent use.
// Concurrent writes to the same preference key are not ordered.
type Tweaker struct {
	runner   rootshell.Runner
	protocol PrefsProtocol
	cores    int
	logger   *slog.Logger
}

// NewTweaker creates a Tweaker. A nil protocol selects ProtocolV1;
// governorCores <= 0 selects DefaultGovernorCores.
func NewTweaker(runner rootshell.Runner, protocol PrefsProtocol, governorCores int, logger *slog.Logger) *Tweaker {
	if protocol == nil {
		protocol = ProtocolV1{}
	}
	if governorCores <= 0 {
		governorCores = DefaultGovernorCores
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tweaker{runner: runner, protocol: protocol, cores: governorCores, logger: logger}
}

// Apply switches the named toggle.
func (t *Tweaker) Apply(ctx context.Context, name string, on bool) (Outcome, error) {
	toggle, err := LookupToggle(name)
	if err != nil {
		return Outcome{}, err
	}
	res := t.runner.Run(ctx, toggle.SetCommand(on))
	state := "disabled"
	if on {
		state = "enabled"
	}
	out := OutcomeFrom(res, fmt.Sprintf("%s %s", toggle.Name, state))
	t.logger.Info("tweak applied", "tweak", toggle.Name, "on", on, "status", out.Status)
	return out, nil
}

// State reads the named toggle through the preference protocol.
//
// Returns ErrUnrecognizedFormat (wrapped) when the tool's output cannot
// be parsed or holds an unexpected value.
func (t *Tweaker) State(ctx context.Context, name string) (bool, error) {
	toggle, err := LookupToggle(name)
	if err != nil {
		return false, err
	}
	res := t.runner.Run(ctx, t.protocol.ReadCommand(toggle.Key))
	if !res.OK() {
		return false, fmt.Errorf("read %s: %w", toggle.Key, res.AsError())
	}
	value, err := t.protocol.Parse(toggle.Key, res.Trimmed())
	if err != nil {
		t.logger.Warn("preference output not understood",
			"key", toggle.Key, "protocol", t.protocol.Version(), "output", res.Trimmed())
		return false, err
	}
	return toggle.Interpret(value)
}

// SetGovernor applies gov to the configured cores.
func (t *Tweaker) SetGovernor(ctx context.Context, gov Governor) Outcome {
	res := t.runner.Run(ctx, GovernorCommand(gov, t.cores))
	return OutcomeFrom(res, fmt.Sprintf("CPU governor set to %s.", gov))
}

// Governor reads cpu0's current governor.
func (t *Tweaker) Governor(ctx context.Context) (string, error) {
	res := t.runner.Run(ctx, ReadGovernorCommand())
	if !res.OK() {
		return "", fmt.Errorf("read governor: %w", res.AsError())
	}
	return res.Trimmed(), nil
}

// LEDsOff turns every LED channel off.
func (t *Tweaker) LEDsOff(ctx context.Context) Outcome {
	return OutcomeFrom(t.runner.Run(ctx, LEDsOff()), "LEDs off")
}

// SetLED writes c to the LEDs once, without a keep-alive loop.
func (t *Tweaker) SetLED(ctx context.Context, c Color) Outcome {
	return OutcomeFrom(t.runner.Run(ctx, SetLEDCommand(c)), "LED colour set to "+c.Clamped().String())
}

// DogfoodEnabled reports whether the build type is userdebug.
func (t *Tweaker) DogfoodEnabled(ctx context.Context) (bool, error) {
	res := t.runner.Run(ctx, DogfoodStateCommand)
	if !res.OK() {
		return false, fmt.Errorf("read build type: %w", res.AsError())
	}
	return res.Trimmed() == dogfoodBuildType, nil
}

// DogfoodStep1 flips the build type and restarts the framework. The
// caller must persist that step 2 is pending.
func (t *Tweaker) DogfoodStep1(ctx context.Context) Outcome {
	return OutcomeFrom(t.runner.Run(ctx, DogfoodStep1Command), "Dogfood Hub step 1 applied; restarting")
}

// DogfoodStep2 marks the user trusted and restarts the framework.
func (t *Tweaker) DogfoodStep2(ctx context.Context) Outcome {
	return OutcomeFrom(t.runner.Run(ctx, DogfoodStep2Command), "Dogfood Hub enabled; restarting")
}

// DogfoodDisable restores the stock build type.
func (t *Tweaker) DogfoodDisable(ctx context.Context) Outcome {
	return OutcomeFrom(t.runner.Run(ctx, DogfoodDisableCommand), "Dogfood Hub disabled; restarting")
}

// DogfoodLaunch opens the Dogfood Hub.
func (t *Tweaker) DogfoodLaunch(ctx context.Context) Outcome {
	return OutcomeFrom(t.runner.Run(ctx, DogfoodLaunchCommand), "Dogfood Hub launched")
}
