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
	"strings"
	"testing"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// LED
// =============================================================================

func TestColor_Clamped(t *testing.T) {
	assert.Equal(t, Color{0, 128, 255}, Color{-20, 128, 999}.Clamped())
	assert.Equal(t, "0,128,255", Color{-20, 128, 999}.Clamped().String())
}

func TestLEDsOff(t *testing.T) {
	assert.Equal(t,
		"echo 0 > /sys/class/leds/red/brightness\n"+
			"echo 0 > /sys/class/leds/green/brightness\n"+
			"echo 0 > /sys/class/leds/blue/brightness",
		LEDsOff())
}

func TestCustomColorScript_ClampsChannels(t *testing.T) {
	body := CustomColorScript(Color{R: 300, G: -5, B: 42})

	assert.True(t, strings.HasPrefix(body, "#!/system/bin/sh\n"))
	assert.Contains(t, body, `echo 255 > "$RED_LED"`)
	assert.Contains(t, body, `echo 0 > "$GREEN_LED"`)
	assert.Contains(t, body, `echo 42 > "$BLUE_LED"`)
	assert.Contains(t, body, "sleep 1")
}

func TestRainbowScript(t *testing.T) {
	body := RainbowScript()

	assert.Contains(t, body, `trap "set_rgb 0 0 0; exit" INT TERM`)
	assert.Equal(t, 3, strings.Count(body, "$(seq 0 5 255)"))
	assert.Contains(t, body, `RED_LED="/sys/class/leds/red/brightness"`)
}

func TestDefinitions_UseCatalogueKinds(t *testing.T) {
	assert.Equal(t, scripts.KindRGBLED, RainbowDefinition().Kind)
	assert.Equal(t, scripts.KindCustomLED, CustomColorDefinition(White).Kind)
	assert.Equal(t, scripts.KindMinFreq, MinFreqDefinition(DefaultCoreLayout, 0, 0).Kind)
	assert.Equal(t, scripts.KindInterceptor, InterceptorDefinition(nil).Kind)
}

// =============================================================================
// CPU
// =============================================================================

func TestParseGovernor(t *testing.T) {
	g, err := ParseGovernor(" Performance ")
	require.NoError(t, err)
	assert.Equal(t, GovernorPerformance, g)

	_, err = ParseGovernor("ondemand")
	assert.ErrorIs(t, err, ErrUnknownGovernor)
}

func TestGovernorCommand(t *testing.T) {
	cmd := GovernorCommand(GovernorPerformance, 2)

	assert.Equal(t, strings.Join([]string{
		"chmod 644 /sys/devices/system/cpu/cpu0/cpufreq/scaling_governor",
		"echo 'performance' > /sys/devices/system/cpu/cpu0/cpufreq/scaling_governor",
		"chmod 444 /sys/devices/system/cpu/cpu0/cpufreq/scaling_governor",
		"chmod 644 /sys/devices/system/cpu/cpu1/cpufreq/scaling_governor",
		"echo 'performance' > /sys/devices/system/cpu/cpu1/cpufreq/scaling_governor",
		"chmod 444 /sys/devices/system/cpu/cpu1/cpufreq/scaling_governor",
	}, "\n"), cmd)
}

func TestGovernorCommand_DefaultCores(t *testing.T) {
	cmd := GovernorCommand(GovernorSchedutil, 0)
	assert.Contains(t, cmd, "cpu5/cpufreq/scaling_governor")
	assert.NotContains(t, cmd, "cpu6/")
}

func TestMinFreqScript(t *testing.T) {
	body := MinFreqScript(DefaultCoreLayout, 0, 1200000)

	for i := 0; i < 4; i++ {
		assert.Contains(t, body, `echo "691200" > /sys/devices/system/cpu/cpu`+string(rune('0'+i))+`/cpufreq/scaling_min_freq`)
	}
	for i := 4; i < 7; i++ {
		assert.Contains(t, body, `echo "1200000" > /sys/devices/system/cpu/cpu`+string(rune('0'+i))+`/cpufreq/scaling_min_freq`)
	}
	assert.NotContains(t, body, "cpu7")
	assert.Contains(t, body, "sleep 2")
}

// =============================================================================
// Interceptor
// =============================================================================

func TestInterceptorScript_Defaults(t *testing.T) {
	body := InterceptorScript(nil)

	assert.Contains(t, body, "logcat -c")
	assert.Contains(t, body, "logcat -T 0 ActivityTaskManager:D *:S | while read -r line; do")
	assert.Contains(t, body, `*"START u0"*cmp=com.oculus.explore/.ExploreActivity*)`)
	assert.Contains(t, body, `pm disable "com.oculus.explore/.ExploreActivity"`)
	assert.Contains(t, body, `pm enable "com.oculus.socialplatform/com.oculus.panelapp.people.PeopleShelfActivity"`)
	assert.Equal(t, 2, strings.Count(body, ";;"))
}

func TestInterceptorScript_CustomTargets(t *testing.T) {
	body := InterceptorScript([]string{"com.example/.Main", " "})

	assert.Equal(t, 1, strings.Count(body, ";;"))
	assert.NotContains(t, body, "ExploreActivity")
}

// =============================================================================
// Toggles and protocol
// =============================================================================

func TestToggle_SetCommand(t *testing.T) {
	nav, err := LookupToggle("navigator_ui")
	require.NoError(t, err)
	assert.Equal(t, "oculuspreferences --setc debug_navigator_state 1\nam force-stop com.oculus.vrshell", nav.SetCommand(true))
	assert.Equal(t, "oculuspreferences --setc debug_navigator_state 0\nam force-stop com.oculus.vrshell", nav.SetCommand(false))

	tp, err := LookupToggle("teleport_anywhere")
	require.NoError(t, err)
	assert.Equal(t, "oculuspreferences --setc shell_teleport_anywhere true", tp.SetCommand(true))
}

func TestToggle_InvertedValues(t *testing.T) {
	void, err := LookupToggle("void_transition")
	require.NoError(t, err)
	assert.Contains(t, void.SetCommand(true), "shell_immersive_transitions_enabled false")

	on, err := void.Interpret("false")
	require.NoError(t, err)
	assert.True(t, on)
}

func TestToggle_InterpretUnknownValue(t *testing.T) {
	nav, _ := LookupToggle("navigator_ui")
	_, err := nav.Interpret("2")
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}

func TestLookupToggle_Unknown(t *testing.T) {
	_, err := LookupToggle("disco_mode")
	assert.ErrorIs(t, err, ErrUnknownToggle)
}

func TestToggles_Catalogue(t *testing.T) {
	var names []string
	for _, tg := range Toggles() {
		names = append(names, tg.Name)
	}
	assert.Equal(t, []string{
		"navigator_ui", "void_transition", "teleport_anywhere",
		"navigator_fog", "panel_scaling", "infinite_panels",
	}, names)
}

func TestProtocolV1_Parse(t *testing.T) {
	p := ProtocolV1{}
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{"bare key line", "debug_navigator_state: 1", "1", false},
		{"prefixed key line", "Pref debug_navigator_state: 0", "0", false},
		{"single unnamed line", "value: true", "true", false},
		{"key among others", "other: 5\ndebug_navigator_state: 1", "1", false},
		{"empty", "", "", true},
		{"no separator", "Unknown option --getc", "", true},
		{"ambiguous", "a: 1\nb: 2", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse("debug_navigator_state", tt.output)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnrecognizedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProtocolV1_ReadCommand(t *testing.T) {
	assert.Equal(t, "oculuspreferences --getc panel_scaling", ProtocolV1{}.ReadCommand("panel_scaling"))
	assert.Equal(t, "v1", ProtocolV1{}.Version())
}

func TestScriptDefinition(t *testing.T) {
	opts := ScriptOptions{Color: Color{R: 1, G: 2, B: 3}, MinLittle: 800000, MinBig: 900000}

	for _, kind := range scripts.Kinds() {
		def, err := ScriptDefinition(kind, opts)
		require.NoError(t, err, kind.Name)
		assert.Equal(t, kind, def.Kind)
		assert.NotEmpty(t, def.Body)
	}

	led, _ := ScriptDefinition(scripts.KindCustomLED, opts)
	assert.Equal(t, CustomColorScript(opts.Color), led.Body)
	freq, _ := ScriptDefinition(scripts.KindMinFreq, opts)
	assert.Contains(t, freq.Body, `echo "900000"`)

	_, err := ScriptDefinition(scripts.Kind{Name: "bogus"}, opts)
	assert.ErrorIs(t, err, scripts.ErrUnknownKind)
}
