// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks user-provided strings before they reach a root
// shell.
//
// Interceptor targets are interpolated into a shell script and blocklist
// domains into log lines and API responses. Both accept only a strict
// character set so no quoting or expansion can occur.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// componentPattern matches an Android component name: a dotted package,
// a slash, then a class that is either fully qualified or starts with a dot.
//
//	com.oculus.explore/.ExploreActivity
//	com.oculus.panelapp.people/com.oculus.panelapp.people.PeopleShelfActivity
var componentPattern = regexp.MustCompile(
	`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)+/\.?[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// labelPattern matches one DNS label.
var labelPattern = regexp.MustCompile(`^[a-z0-9_]([a-z0-9_-]{0,61}[a-z0-9_])?$`)

const maxComponentLen = 255

// ValidateComponent validates an Android component name.
//
// Example:
//
//	if err := validation.ValidateComponent(target); err != nil {
//	    return fmt.Errorf("invalid target: %w", err)
//	}
func ValidateComponent(name string) error {
	if name == "" {
		return fmt.Errorf("component cannot be empty")
	}
	if len(name) > maxComponentLen {
		return fmt.Errorf("component too long: %d chars (max %d)", len(name), maxComponentLen)
	}
	if !componentPattern.MatchString(name) {
		return fmt.Errorf("invalid component format: %q (want package/.Class or package/full.Class)", name)
	}
	return nil
}

// ValidateComponents validates every name and reports all invalid ones.
func ValidateComponents(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateComponent(n); err != nil {
			invalid = append(invalid, n)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid components: %q", invalid)
	}
	return nil
}

// SanitizeDomain lowercases a hostname, trims whitespace and a trailing dot,
// and validates it. Returns the normalized domain or an error.
func SanitizeDomain(domain string) (string, error) {
	d := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if d == "" {
		return "", fmt.Errorf("domain cannot be empty")
	}
	if len(d) > 253 {
		return "", fmt.Errorf("domain too long: %d chars (max 253)", len(d))
	}
	for _, label := range strings.Split(d, ".") {
		if !labelPattern.MatchString(label) {
			return "", fmt.Errorf("invalid domain: %q", domain)
		}
	}
	return d, nil
}
