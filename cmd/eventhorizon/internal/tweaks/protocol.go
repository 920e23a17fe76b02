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
)

// ErrUnrecognizedFormat is returned when preference tool output does not
// match the protocol, or a value is not one the toggle knows. Callers must
// treat this as "state unknown", never as "off".
var ErrUnrecognizedFormat = errors.New("unrecognized preference output")

// PrefsProtocol reads a shell preference through the device's
// preferences tool. The tool's output format is undocumented and can
// change with OS updates, so it is versioned behind this interface.
type PrefsProtocol interface {
	// Version names the output format, e.g. "v1".
	Version() string

	// ReadCommand returns the command that prints key.
	ReadCommand(key string) string

	// Parse extracts key's raw value from the command output.
	Parse(key, output string) (string, error)
}

// ProtocolV1 understands "<key>: <value>" lines printed by
// "oculuspreferences --getc KEY". A line naming the key wins; otherwise a
// single "<anything>: <value>" line is accepted.
type ProtocolV1 struct{}

// Version returns "v1".
func (ProtocolV1) Version() string { return "v1" }

// ReadCommand returns "oculuspreferences --getc KEY".
func (ProtocolV1) ReadCommand(key string) string {
	return fmt.Sprintf("%s --getc %s", PreferencesTool, key)
}

// Parse returns the value after ": " on the line for key.
func (ProtocolV1) Parse(key, output string) (string, error) {
	var candidates []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		i := strings.LastIndex(line, ": ")
		if i < 0 {
			continue
		}
		name, value := strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+2:])
		if value == "" {
			continue
		}
		if name == key || strings.HasSuffix(name, " "+key) {
			return value, nil
		}
		candidates = append(candidates, value)
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnrecognizedFormat, strings.TrimSpace(output))
}

var _ PrefsProtocol = ProtocolV1{}
