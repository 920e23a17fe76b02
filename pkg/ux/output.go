// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the EventHorizon CLI.
//
// Every helper respects the active Personality: full output is colored with
// lipgloss, minimal output keeps icons only, and machine output is plain
// text with errors and warnings on stderr.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// EventHorizon palette: accretion-disk orange over deep violet.
var (
	ColorFlare    = lipgloss.Color("#FF9F43")
	ColorDisk     = lipgloss.Color("#EE5A24")
	ColorViolet   = lipgloss.Color("#8C7AE6")
	ColorDeep     = lipgloss.Color("#40407A")
	ColorVoid     = lipgloss.Color("#1E1E2E")
	ColorSlate    = lipgloss.Color("#57606F")
	ColorSuccess  = lipgloss.Color("#2ED573")
	ColorWarning  = lipgloss.Color("#FFA502")
	ColorError    = lipgloss.Color("#FF4757")
	ColorMuted    = ColorSlate
	ColorAccent   = ColorViolet
	ColorPrimary  = ColorFlare
	ColorBoxEdges = ColorDeep
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Key       lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorMuted),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorAccent).Bold(true),
	Key:       lipgloss.NewStyle().Foreground(ColorAccent).Width(18),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBoxEdges).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with its color, or the bare glyph when colors
// are off.
func (i Icon) Render() string {
	if !ShouldShowColors() {
		return string(i)
	}
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// IconFor maps a boolean state to success or pending.
func IconFor(ok bool) Icon {
	if ok {
		return IconSuccess
	}
	return IconPending
}

// =============================================================================
// Writers
// =============================================================================

var (
	outMu  sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects helper output and returns a function restoring the
// previous writers. Nil keeps the current writer.
func SetOutput(out, errOut io.Writer) (restore func()) {
	outMu.Lock()
	defer outMu.Unlock()
	prevOut, prevErr := stdout, stderr
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
	return func() {
		outMu.Lock()
		defer outMu.Unlock()
		stdout, stderr = prevOut, prevErr
	}
}

func printOut(format string, args ...any) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintf(stdout, format, args...)
}

func printErr(format string, args ...any) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintf(stderr, format, args...)
}

// =============================================================================
// Print helpers
// =============================================================================

// Title prints a styled heading. Machine output omits it.
func Title(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		return
	case PersonalityMinimal:
		printOut("%s\n", text)
	default:
		printOut("%s\n", Styles.Title.Render(text))
	}
}

// Success prints a success message.
func Success(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printOut("OK: %s\n", text)
	case PersonalityMinimal:
		printOut("%s %s\n", IconSuccess.Render(), text)
	default:
		printOut("%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning. Machine output goes to stderr.
func Warning(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printErr("WARN: %s\n", text)
	case PersonalityMinimal:
		printOut("%s %s\n", IconWarning.Render(), text)
	default:
		printOut("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error. Machine output goes to stderr.
func Error(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printErr("ERROR: %s\n", text)
	case PersonalityMinimal:
		printOut("%s %s\n", IconError.Render(), text)
	default:
		printOut("%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints a plain informational line.
func Info(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine, PersonalityMinimal:
		printOut("%s\n", text)
	default:
		printOut("%s %s\n", Styles.Muted.Render("│"), text)
	}
}

// Muted prints secondary text. Machine output omits it.
func Muted(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		return
	case PersonalityMinimal:
		printOut("%s\n", text)
	default:
		printOut("%s\n", Styles.Muted.Render(text))
	}
}

// KeyValue prints an aligned "key value" pair. Machine output is
// tab-separated.
func KeyValue(key, value string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printOut("%s\t%s\n", key, value)
	case PersonalityMinimal:
		printOut("%-18s%s\n", key, value)
	default:
		printOut("%s%s\n", Styles.Key.Render(key), value)
	}
}

// StatusLine prints one component row: icon, name, state and optional
// detail. Machine output is "name\tstate\tdetail".
func StatusLine(icon Icon, name, state, detail string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printOut("%s\t%s\t%s\n", name, state, detail)
	case PersonalityMinimal:
		printOut("%s %-18s%s%s\n", icon.Render(), name, state, suffix(detail, false))
	default:
		printOut("%s %s%s%s\n", icon.Render(), Styles.Key.Render(name), state, suffix(detail, true))
	}
}

func suffix(detail string, styled bool) string {
	if detail == "" {
		return ""
	}
	if styled {
		return " " + Styles.Muted.Render("("+detail+")")
	}
	return " (" + detail + ")"
}

// Box prints content inside a bordered box.
func Box(title, content string) {
	if GetPersonality().Level != PersonalityFull {
		printOut("%s: %s\n", title, content)
		return
	}
	titleLine := Styles.Title.Render(title)
	printOut("%s\n", Styles.Box.Width(60).Render(titleLine+"\n"+content))
}

// WarningBox prints a highlighted warning block. Machine output goes to
// stderr on a single line.
func WarningBox(title, content string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printErr("WARN %s: %s\n", title, strings.ReplaceAll(content, "\n", " "))
	case PersonalityMinimal:
		printOut("%s %s: %s\n", IconWarning.Render(), title, content)
	default:
		titleLine := Styles.Warning.Bold(true).Render(title)
		printOut("%s\n", Styles.WarningBox.Width(60).Render(titleLine+"\n"+content))
	}
}

// Summary prints a counts line such as "3 done  1 skipped  0 failed".
func Summary(done, skipped, failed int) {
	if GetPersonality().Level == PersonalityMachine {
		printOut("SUMMARY: done=%d skipped=%d failed=%d\n", done, skipped, failed)
		return
	}
	if !ShouldShowColors() {
		printOut("%d done  %d skipped  %d failed\n", done, skipped, failed)
		return
	}
	printOut("%s %s  %s %s  %s %s\n",
		Styles.Success.Render(fmt.Sprintf("%d", done)), Styles.Muted.Render("done"),
		Styles.Muted.Render(fmt.Sprintf("%d", skipped)), Styles.Muted.Render("skipped"),
		Styles.Error.Render(fmt.Sprintf("%d", failed)), Styles.Muted.Render("failed"),
	)
}
