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
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/rootshell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockWith(responses map[string]rootshell.Result) *rootshell.MockRunner {
	return &rootshell.MockRunner{
		RunFunc: func(ctx context.Context, command string) rootshell.Result {
			if res, ok := responses[command]; ok {
				res.Command = command
				return res
			}
			return rootshell.Success(command)
		},
	}
}

func TestTweaker_Apply(t *testing.T) {
	mock := mockWith(nil)
	tw := NewTweaker(mock, nil, 0, nil)

	out, err := tw.Apply(context.Background(), "panel_scaling", true)
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, "panel_scaling enabled", out.Detail)
	assert.Equal(t, []string{"oculuspreferences --setc panel_scaling true\nam force-stop com.oculus.vrshell"}, mock.GetCalls())
}

func TestTweaker_Apply_ToolMissing(t *testing.T) {
	mock := &rootshell.MockRunner{
		RunFunc: func(ctx context.Context, command string) rootshell.Result {
			return rootshell.Failure(command, 127, "oculuspreferences: not found")
		},
	}
	tw := NewTweaker(mock, nil, 0, nil)

	out, err := tw.Apply(context.Background(), "panel_scaling", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnsupported, out.Status)
	assert.Contains(t, out.Detail, "not found")
}

func TestTweaker_Apply_UnknownToggle(t *testing.T) {
	tw := NewTweaker(mockWith(nil), nil, 0, nil)
	_, err := tw.Apply(context.Background(), "warp_drive", true)
	assert.ErrorIs(t, err, ErrUnknownToggle)
}

func TestTweaker_State(t *testing.T) {
	mock := mockWith(map[string]rootshell.Result{
		"oculuspreferences --getc navigator_background_disabled": rootshell.Success("", "navigator_background_disabled: false"),
		"oculuspreferences --getc debug_navigator_state":         rootshell.Success("", "debug_navigator_state: 0"),
	})
	tw := NewTweaker(mock, ProtocolV1{}, 0, nil)

	fog, err := tw.State(context.Background(), "navigator_fog")
	require.NoError(t, err)
	assert.True(t, fog)

	nav, err := tw.State(context.Background(), "navigator_ui")
	require.NoError(t, err)
	assert.False(t, nav)
}

func TestTweaker_State_UnrecognizedIsNotOff(t *testing.T) {
	mock := mockWith(map[string]rootshell.Result{
		"oculuspreferences --getc panel_scaling": rootshell.Success("", "usage: oculuspreferences [options]"),
	})
	tw := NewTweaker(mock, nil, 0, nil)

	_, err := tw.State(context.Background(), "panel_scaling")
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}

func TestTweaker_State_CommandFails(t *testing.T) {
	mock := mockWith(map[string]rootshell.Result{
		"oculuspreferences --getc panel_scaling": rootshell.Failure("", 1, "denied"),
	})
	tw := NewTweaker(mock, nil, 0, nil)

	_, err := tw.State(context.Background(), "panel_scaling")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnrecognizedFormat))
}

func TestTweaker_Governor(t *testing.T) {
	mock := mockWith(map[string]rootshell.Result{
		ReadGovernorCommand(): rootshell.Success("", "schedutil"),
	})
	tw := NewTweaker(mock, nil, 3, nil)

	gov, err := tw.Governor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "schedutil", gov)

	out := tw.SetGovernor(context.Background(), GovernorPerformance)
	assert.True(t, out.OK())
	calls := mock.CallsContaining("echo 'performance'")
	require.Len(t, calls, 1)
	assert.Equal(t, 3, strings.Count(calls[0], "echo 'performance'"))
}

func TestTweaker_LEDs(t *testing.T) {
	mock := mockWith(nil)
	tw := NewTweaker(mock, nil, 0, nil)

	assert.True(t, tw.LEDsOff(context.Background()).OK())
	out := tw.SetLED(context.Background(), Color{R: 10, G: 20, B: 300})
	assert.Equal(t, "LED colour set to 10,20,255", out.Detail)
	assert.Equal(t, []string{LEDsOff(), SetLEDCommand(Color{10, 20, 255})}, mock.GetCalls())
}

func TestTweaker_Dogfood(t *testing.T) {
	mock := mockWith(map[string]rootshell.Result{
		DogfoodStateCommand: rootshell.Success("", "userdebug"),
	})
	tw := NewTweaker(mock, nil, 0, nil)
	ctx := context.Background()

	enabled, err := tw.DogfoodEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	assert.True(t, tw.DogfoodStep1(ctx).OK())
	assert.True(t, tw.DogfoodStep2(ctx).OK())
	assert.True(t, tw.DogfoodDisable(ctx).OK())
	assert.True(t, tw.DogfoodLaunch(ctx).OK())

	calls := mock.GetCalls()
	require.Len(t, calls, 5)
	assert.Equal(t, "magisk resetprop ro.build.type userdebug\nstop\nstart", calls[1])
	assert.Contains(t, calls[2], "DC_OVERRIDE")
	assert.Equal(t, "magisk resetprop --delete ro.build.type\nstop\nstart", calls[3])
	assert.Equal(t, DogfoodLaunchCommand, calls[4])
}

func TestOutcomeFrom(t *testing.T) {
	assert.Equal(t, OutcomeApplied, OutcomeFrom(rootshell.Success("x"), "ok").Status)
	assert.Equal(t, OutcomeFailed, OutcomeFrom(rootshell.Failure("x", 2, "bad"), "ok").Status)
	assert.Equal(t, OutcomeUnsupported, OutcomeFrom(rootshell.Failure("x", 127), "ok").Status)
	assert.Equal(t, "bad", OutcomeFrom(rootshell.Failure("x", 2, "bad"), "ok").Detail)
}
