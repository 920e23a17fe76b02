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
Package scripts supervises long-running background shell scripts.

A managed script is a shell file written to the script directory and
launched detached under root (LED colour loops, the CPU minimum-frequency
lock, the logcat interceptor). The launching process does not keep a
handle to it, so the supervisor tracks each script kind in a keyed
resource table and persists the pid next to the script file.

# Overview

  - Kind names a script and its file. Kinds that share a Group are
    mutually exclusive (rainbow LED and custom-colour LED both drive the
    same sysfs channels).
  - ProcessTable is the OS boundary: launch, liveness, kill, find.
    ShellTable implements it through the root command runner.
  - Supervisor serializes Start and Stop per kind (per group where one is
    set) with an in-process semaphore and a flock(2) lock file, so two
    CLI invocations cannot interleave a stop-then-launch sequence.

# Guarantees

  - Starting a kind that is already running stops the old instance first;
    repeated starts leave exactly one instance.
  - Stopping a kind that is not running is a no-op and returns nil.
  - Status discovers state on a cold start from the pid file, falling
    back to a process search for instances launched before pid files
    existed.

# Example

	sup := scripts.NewSupervisor(dir, scripts.NewShellTable(runner), logger)
	handle, err := sup.Start(ctx, tweaks.RainbowDefinition())
	if err != nil {
	    return err
	}
	defer handle.Stop(ctx)
*/
package scripts
