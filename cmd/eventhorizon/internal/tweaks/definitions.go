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

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
)

// ScriptOptions parameterize the catalogue script bodies.
type ScriptOptions struct {
	// Color is the custom_led colour.
	Color Color

	// Layout, MinLittle and MinBig configure min_freq. Zero values use
	// the defaults.
	Layout    CoreLayout
	MinLittle int
	MinBig    int

	// InterceptTargets configures interceptor. Empty uses
	// DefaultInterceptTargets.
	InterceptTargets []string
}

// ScriptDefinition builds the managed script for kind.
func ScriptDefinition(kind scripts.Kind, opts ScriptOptions) (scripts.Definition, error) {
	switch kind.Name {
	case scripts.KindRGBLED.Name:
		return RainbowDefinition(), nil
	case scripts.KindCustomLED.Name:
		return CustomColorDefinition(opts.Color), nil
	case scripts.KindMinFreq.Name:
		return MinFreqDefinition(opts.Layout, opts.MinLittle, opts.MinBig), nil
	case scripts.KindInterceptor.Name:
		return InterceptorDefinition(opts.InterceptTargets), nil
	default:
		return scripts.Definition{}, fmt.Errorf("%w: %q", scripts.ErrUnknownKind, kind.Name)
	}
}
