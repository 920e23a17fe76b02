// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tweaks is the catalogue of root commands and script bodies that
// change device settings: LED channels, CPU governor and minimum
// frequency, the logcat interceptor, shell preference toggles and the
// Dogfood Hub.
//
// Builders in this package return plain command text or a
// scripts.Definition; nothing here spawns a process. Tweaker runs the
// commands through a rootshell.Runner and turns results into Outcomes.
package tweaks
