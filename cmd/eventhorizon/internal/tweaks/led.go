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

// Sysfs brightness files of the three indicator LED channels.
const (
	RedLEDPath   = "/sys/class/leds/red/brightness"
	GreenLEDPath = "/sys/class/leds/green/brightness"
	BlueLEDPath  = "/sys/class/leds/blue/brightness"
)

// Color is an RGB LED colour. Channels outside 0..255 are clamped when
// rendered.
type Color struct {
	R, G, B int
}

// White is the colour used when no custom colour has been saved.
var White = Color{R: 255, G: 255, B: 255}

// Clamped returns c with every channel limited to 0..255.
func (c Color) Clamped() Color {
	return Color{R: clampChannel(c.R), G: clampChannel(c.G), B: clampChannel(c.B)}
}

// String renders the colour as "R,G,B".
func (c Color) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

func clampChannel(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return v
	}
}

// LEDsOff returns the command that turns all three channels off.
func LEDsOff() string {
	return strings.Join([]string{
		"echo 0 > " + RedLEDPath,
		"echo 0 > " + GreenLEDPath,
		"echo 0 > " + BlueLEDPath,
	}, "\n")
}

// SetLEDCommand writes c to the channels once.
func SetLEDCommand(c Color) string {
	c = c.Clamped()
	return strings.Join([]string{
		fmt.Sprintf("echo %d > %s", c.R, RedLEDPath),
		fmt.Sprintf("echo %d > %s", c.G, GreenLEDPath),
		fmt.Sprintf("echo %d > %s", c.B, BlueLEDPath),
	}, "\n")
}

const rainbowScript = `#!/system/bin/sh
RED_LED="` + RedLEDPath + `"
GREEN_LED="` + GreenLEDPath + `"
BLUE_LED="` + BlueLEDPath + `"
set_rgb() { echo "${1}" > "$RED_LED"; echo "${2}" > "$GREEN_LED"; echo "${3}" > "$BLUE_LED"; }
clamp() { if [ "$1" -lt 0 ]; then echo 0; elif [ "$1" -gt 255 ]; then echo 255; else echo "$1"; fi; }
trap "set_rgb 0 0 0; exit" INT TERM
while true; do
    for i in $(seq 0 5 255); do set_rgb $(clamp $((255 - i))) $(clamp ${i}) 0; sleep 0.005; done
    for i in $(seq 0 5 255); do set_rgb 0 $(clamp $((255 - i))) $(clamp ${i}); sleep 0.005; done
    for i in $(seq 0 5 255); do set_rgb $(clamp ${i}) 0 $(clamp $((255 - i))); sleep 0.005; done
done
`

// RainbowScript returns the rainbow colour-cycle loop. It fades
// red→green→blue in steps of 5 and turns the LEDs off on SIGTERM.
func RainbowScript() string {
	return rainbowScript
}

// CustomColorScript returns a loop that rewrites c to the channels every
// second, so other writers (the system battery LED) cannot override it.
func CustomColorScript(c Color) string {
	c = c.Clamped()
	return fmt.Sprintf(`#!/system/bin/sh
RED_LED="%s"
GREEN_LED="%s"
BLUE_LED="%s"

while true; do
    echo %d > "$RED_LED"
    echo %d > "$GREEN_LED"
    echo %d > "$BLUE_LED"
    sleep 1
done
`, RedLEDPath, GreenLEDPath, BlueLEDPath, c.R, c.G, c.B)
}

// RainbowDefinition is the managed rgb_led script.
func RainbowDefinition() scripts.Definition {
	return scripts.Definition{Kind: scripts.KindRGBLED, Body: RainbowScript()}
}

// CustomColorDefinition is the managed custom_led script for c.
func CustomColorDefinition(c Color) scripts.Definition {
	return scripts.Definition{Kind: scripts.KindCustomLED, Body: CustomColorScript(c)}
}
