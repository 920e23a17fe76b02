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
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/util"
)

// ErrUnknownToggle is returned for a toggle name outside the catalogue.
var ErrUnknownToggle = errors.New("unknown tweak")

// PreferencesTool is the on-device CLI for shell preferences.
const PreferencesTool = "oculuspreferences"

// ShellRestartCommand restarts the VR shell so preference changes apply.
const ShellRestartCommand = "am force-stop com.oculus.vrshell"

// Toggle is an on/off shell preference.
type Toggle struct {
	// Name is the stable identifier used by the CLI and API.
	Name string

	// Key is the oculuspreferences key.
	Key string

	// OnValue and OffValue are written for on and off.
	OnValue  string
	OffValue string

	// RestartShell appends ShellRestartCommand after setting the key.
	RestartShell bool

	// Description is shown by "tweak list".
	Description string
}

// SetCommand returns the command that switches the toggle.
func (t Toggle) SetCommand(on bool) string {
	value := t.OffValue
	if on {
		value = t.OnValue
	}
	set := fmt.Sprintf("%s --setc %s %s", PreferencesTool, t.Key, value)
	if !t.RestartShell {
		return set
	}
	return util.JoinCommands(set, ShellRestartCommand)
}

// Interpret maps a raw preference value to on/off. A value that is
// neither OnValue nor OffValue is ErrUnrecognizedFormat.
func (t Toggle) Interpret(value string) (bool, error) {
	switch strings.TrimSpace(value) {
	case t.OnValue:
		return true, nil
	case t.OffValue:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s=%q", ErrUnrecognizedFormat, t.Key, value)
	}
}

var toggles = []Toggle{
	{
		Name: "navigator_ui", Key: "debug_navigator_state",
		OnValue: "1", OffValue: "0", RestartShell: true,
		Description: "Use the Navigator UI instead of the classic dock",
	},
	{
		Name: "void_transition", Key: "shell_immersive_transitions_enabled",
		OnValue: "false", OffValue: "true", RestartShell: true,
		Description: "Replace immersive app transitions with the void",
	},
	{
		Name: "teleport_anywhere", Key: "shell_teleport_anywhere",
		OnValue: "true", OffValue: "false",
		Description: "Remove the teleport distance limit",
	},
	{
		Name: "navigator_fog", Key: "navigator_background_disabled",
		OnValue: "false", OffValue: "true", RestartShell: true,
		Description: "Show the fog behind the Navigator",
	},
	{
		Name: "panel_scaling", Key: "panel_scaling",
		OnValue: "true", OffValue: "false", RestartShell: true,
		Description: "Scale panels with distance",
	},
	{
		Name: "infinite_panels", Key: "debug_infinite_spatial_panels_enabled",
		OnValue: "true", OffValue: "false", RestartShell: true,
		Description: "Allow unlimited spatial panels",
	},
}

// Toggles returns the toggle catalogue in display order.
func Toggles() []Toggle {
	out := make([]Toggle, len(toggles))
	copy(out, toggles)
	return out
}

// LookupToggle finds a toggle by name (case-insensitive).
func LookupToggle(name string) (Toggle, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range toggles {
		if t.Name == name {
			return t, nil
		}
	}
	return Toggle{}, fmt.Errorf("%w: %q", ErrUnknownToggle, name)
}
