// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// EnvPersonality overrides the detected personality level.
const EnvPersonality = "EVENTHORIZON_PERSONALITY"

// PersonalityLevel controls how much styling the CLI emits.
type PersonalityLevel string

const (
	// PersonalityFull enables colors, icons, and boxes.
	PersonalityFull PersonalityLevel = "full"

	// PersonalityMinimal uses icons without colors or boxes.
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine outputs plain tab-separated text for scripts.
	PersonalityMachine PersonalityLevel = "machine"
)

// Personality holds the active output settings.
type Personality struct {
	Level PersonalityLevel
}

var (
	currentPersonality = DefaultPersonality()
	personalityMu      sync.RWMutex
)

// DefaultPersonality returns the full personality.
func DefaultPersonality() Personality {
	return Personality{Level: PersonalityFull}
}

// GetPersonality returns the active personality.
func GetPersonality() Personality {
	personalityMu.RLock()
	defer personalityMu.RUnlock()
	return currentPersonality
}

// SetPersonality replaces the active personality.
func SetPersonality(p Personality) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentPersonality = p
}

// SetPersonalityLevel changes only the level.
func SetPersonalityLevel(level PersonalityLevel) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentPersonality.Level = level
}

// ParsePersonalityLevel accepts full names and short aliases. Unknown
// strings map to PersonalityFull.
func ParsePersonalityLevel(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "plain", "quiet", "q":
		return PersonalityMachine
	default:
		return PersonalityFull
	}
}

// InitPersonality picks a level from EVENTHORIZON_PERSONALITY, falling back
// to machine output when stdout is not a terminal.
func InitPersonality() {
	if env := os.Getenv(EnvPersonality); env != "" {
		SetPersonalityLevel(ParsePersonalityLevel(env))
		return
	}
	if !isTerminal(os.Stdout) {
		SetPersonalityLevel(PersonalityMachine)
		return
	}
	SetPersonalityLevel(PersonalityFull)
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// IsInteractive reports whether prompts and colors make sense.
func IsInteractive() bool {
	return GetPersonality().Level != PersonalityMachine && isTerminal(os.Stdout)
}

// ShouldShowColors reports whether styled output is enabled.
func ShouldShowColors() bool {
	return GetPersonality().Level == PersonalityFull
}
