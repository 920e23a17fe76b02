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

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
)

// ErrUnknownGovernor is returned for a governor outside the catalogue.
var ErrUnknownGovernor = errors.New("unknown CPU governor")

// Governor is a cpufreq scaling governor.
type Governor string

const (
	// GovernorPerformance pins every core at its maximum frequency.
	GovernorPerformance Governor = "performance"

	// GovernorSchedutil is the stock load-driven governor.
	GovernorSchedutil Governor = "schedutil"
)

// ParseGovernor accepts "performance" or "schedutil" in any case.
func ParseGovernor(s string) (Governor, error) {
	switch g := Governor(strings.ToLower(strings.TrimSpace(s))); g {
	case GovernorPerformance, GovernorSchedutil:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGovernor, s)
	}
}

const (
	// DefaultGovernorCores is how many cores (cpu0..cpu5) the governor
	// command touches.
	DefaultGovernorCores = 6

	// DefaultMinFreq is the lowest safe frequency (kHz) on the XR2 Gen 2.
	DefaultMinFreq = 691200
)

// CoreLayout splits cores into a LITTLE cluster starting at cpu0 and a big
// cluster directly after it.
type CoreLayout struct {
	Little int
	Big    int
}

// DefaultCoreLayout is the Quest 3 layout: cpu0-3 LITTLE, cpu4-6 big.
var DefaultCoreLayout = CoreLayout{Little: 4, Big: 3}

func cpufreqPath(core int, file string) string {
	return fmt.Sprintf("/sys/devices/system/cpu/cpu%d/cpufreq/%s", core, file)
}

// GovernorCommand sets gov on cpu0..cpu(cores-1). Each governor file is
// made writable, written, then made read-only again so the system cannot
// switch it back.
func GovernorCommand(gov Governor, cores int) string {
	if cores <= 0 {
		cores = DefaultGovernorCores
	}
	var lines []string
	for i := 0; i < cores; i++ {
		path := cpufreqPath(i, "scaling_governor")
		lines = append(lines,
			"chmod 644 "+path,
			fmt.Sprintf("echo '%s' > %s", gov, path),
			"chmod 444 "+path,
		)
	}
	return strings.Join(lines, "\n")
}

// ReadGovernorCommand reads cpu0's governor.
func ReadGovernorCommand() string {
	return "cat " + cpufreqPath(0, "scaling_governor")
}

// MinFreqScript rewrites scaling_min_freq on every core every two seconds.
// Frequencies are in kHz; non-positive values use DefaultMinFreq.
func MinFreqScript(layout CoreLayout, little, big int) string {
	if layout.Little <= 0 && layout.Big <= 0 {
		layout = DefaultCoreLayout
	}
	if little <= 0 {
		little = DefaultMinFreq
	}
	if big <= 0 {
		big = DefaultMinFreq
	}

	var b strings.Builder
	b.WriteString("#!/system/bin/sh\nwhile true; do\n")
	for i := 0; i < layout.Little; i++ {
		fmt.Fprintf(&b, "    echo \"%d\" > %s\n", little, cpufreqPath(i, "scaling_min_freq"))
	}
	for i := layout.Little; i < layout.Little+layout.Big; i++ {
		fmt.Fprintf(&b, "    echo \"%d\" > %s\n", big, cpufreqPath(i, "scaling_min_freq"))
	}
	b.WriteString("    sleep 2\ndone\n")
	return b.String()
}

// MinFreqDefinition is the managed min_freq script.
func MinFreqDefinition(layout CoreLayout, little, big int) scripts.Definition {
	return scripts.Definition{Kind: scripts.KindMinFreq, Body: MinFreqScript(layout, little, big)}
}
