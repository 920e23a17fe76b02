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
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

// =============================================================================
// Output helpers
// =============================================================================

func printScriptStatus(st scripts.Status) {
	running := st.State == scripts.StateRunning
	detail := ""
	if running {
		detail = fmt.Sprintf("pid %d", st.PID)
		if !st.StartedAt.IsZero() {
			detail += ", since " + st.StartedAt.Format(time.RFC3339)
		}
	}
	ux.StatusLine(ux.IconFor(running), st.Kind.Name, st.State.String(), detail)
}

func printHandle(h scripts.Handle) {
	ux.Success(fmt.Sprintf("%s started (pid %d)", h.Kind.Name, h.PID))
}

// outcomeErr prints an applied outcome and converts the others into an
// error for the exit code. what names the operation in error messages.
func outcomeErr(what string, out tweaks.Outcome) error {
	switch out.Status {
	case tweaks.OutcomeApplied:
		msg := out.Detail
		if msg == "" {
			msg = what
		}
		ux.Success(msg)
		return nil
	case tweaks.OutcomeUnsupported:
		return fmt.Errorf("%s: unsupported on this device: %s", what, out.Detail)
	default:
		return fmt.Errorf("%s failed: %s", what, out.Detail)
	}
}

// =============================================================================
// Argument parsing
// =============================================================================

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "enable", "enabled":
		return true, nil
	case "off", "false", "0", "disable", "disabled":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// parseChannel parses one colour channel in 0..255.
func parseChannel(name, s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %q", name, s)
	}
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("%s must be between 0 and 255, got %d", name, v)
	}
	return v, nil
}
