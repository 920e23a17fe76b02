// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package rootshell executes shell commands through the device's su helper.

Every device feature in EventHorizon (LED loops, CPU governor, shell
preferences, package installs, script supervision) is a string of shell
statements handed to Runner.Run. The runner is the only place that spawns
the privilege-escalation helper.

# Contract

  - Each call spawns a fresh helper process. There is no session: working
    directory and environment do not carry over between calls.
  - The command text is written to the helper's stdin, followed by "exit".
  - The call blocks until the helper exits, then returns all stdout lines
    followed by all stderr lines (each prefixed with "ERROR: ").
  - Run never returns a Go error and never panics. Spawn and I/O failures
    become a Result with StatusFailure whose Text() starts with
    "Execution failed: ".
  - Calls are not serialized. Callers writing the same resource must order
    their own calls (see package scripts for the per-kind lock).

# Structured results

Result carries the exit code and a Status (Success, Failure, NotFound) so
callers do not have to parse text to decide what happened. Text() still
renders the classic combined output for display.

# Example

	runner := rootshell.NewSuRunner(rootshell.Config{Binary: "su"}, logger)
	res := runner.Run(ctx, "cat /sys/devices/system/cpu/cpu0/cpufreq/scaling_governor")
	if res.OK() {
	    fmt.Println(res.Trimmed()) // "schedutil"
	}
*/
package rootshell
