// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package util

import "strings"

// ShellQuote quotes s for a POSIX shell.
//
// Common safe characters are left bare; anything else is single-quoted with
// embedded quotes escaped as '\''.
//
//	ShellQuote("/data/user/0/files/rgb_led.sh") // /data/user/0/files/rgb_led.sh
//	ShellQuote("two words")                      // 'two words'
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	unsafe := strings.IndexFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		}
		switch r {
		case '-', '_', '.', '/', '@', ':', ',', '+', '=':
			return false
		}
		return true
	})
	if unsafe == -1 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// JoinCommands joins shell statements with newlines, dropping empty ones.
// This is how several tweaks are composed into one root invocation.
func JoinCommands(cmds ...string) string {
	parts := make([]string, 0, len(cmds))
	for _, c := range cmds {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "\n")
}
