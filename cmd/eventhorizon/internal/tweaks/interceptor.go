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
	"fmt"
	"strings"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
)

// Activity components the interceptor bounces by default: the Horizon
// Feed (Explore) and the People Shelf.
const (
	ExploreActivity     = "com.oculus.explore/.ExploreActivity"
	PeopleShelfActivity = "com.oculus.socialplatform/com.oculus.panelapp.people.PeopleShelfActivity"
)

// DefaultInterceptTargets returns the components intercepted when none
// are configured.
func DefaultInterceptTargets() []string {
	return []string{ExploreActivity, PeopleShelfActivity}
}

// InterceptorScript watches ActivityTaskManager in logcat and, whenever
// one of targets starts, disables and re-enables that component, which
// closes it. Empty targets fall back to DefaultInterceptTargets.
func InterceptorScript(targets []string) string {
	if len(targets) == 0 {
		targets = DefaultInterceptTargets()
	}

	var b strings.Builder
	b.WriteString(`#!/system/bin/sh

# Drop stale entries, then follow ActivityTaskManager only.
logcat -c

logcat -T 0 ActivityTaskManager:D *:S | while read -r line; do
    case "$line" in
`)
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		fmt.Fprintf(&b, "        *\"START u0\"*cmp=%s*)\n", target)
		fmt.Fprintf(&b, "            pm disable \"%s\"\n", target)
		fmt.Fprintf(&b, "            pm enable \"%s\"\n", target)
		b.WriteString("            ;;\n")
	}
	b.WriteString("    esac\ndone\n")
	return b.String()
}

// InterceptorDefinition is the managed interceptor script.
func InterceptorDefinition(targets []string) scripts.Definition {
	return scripts.Definition{Kind: scripts.KindInterceptor, Body: InterceptorScript(targets)}
}
