// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scripts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned for a script kind name not in the catalogue.
var ErrUnknownKind = errors.New("unknown script kind")

// ErrEmptyScript is returned when a Definition has no body.
var ErrEmptyScript = errors.New("script body is empty")

// Kind identifies one managed script.
type Kind struct {
	// Name is the stable identifier used by the CLI, the API and logs.
	Name string

	// FileName is the script's file name inside the script directory.
	// It is also the pattern used to find stray instances.
	FileName string

	// Group names an exclusivity group. Starting a kind stops every other
	// kind in the same group. Empty means no group.
	Group string
}

// lockKey is the name the kind's Start/Stop sequence is serialized on.
func (k Kind) lockKey() string {
	if k.Group != "" {
		return "group-" + k.Group
	}
	return k.Name
}

// String returns the kind name.
func (k Kind) String() string { return k.Name }

var (
	// KindRGBLED is the rainbow LED colour cycle.
	KindRGBLED = Kind{Name: "rgb_led", FileName: "rgb_led.sh", Group: "led"}

	// KindCustomLED holds a fixed LED colour.
	KindCustomLED = Kind{Name: "custom_led", FileName: "custom_led.sh", Group: "led"}

	// KindMinFreq pins the CPU minimum frequency.
	KindMinFreq = Kind{Name: "min_freq", FileName: "min_freq_lock.sh"}

	// KindInterceptor watches logcat and bounces selected activities.
	KindInterceptor = Kind{Name: "interceptor", FileName: "interceptor.sh"}
)

var catalogue = []Kind{KindRGBLED, KindCustomLED, KindMinFreq, KindInterceptor}

// Kinds returns every managed script kind in display order.
func Kinds() []Kind {
	out := make([]Kind, len(catalogue))
	copy(out, catalogue)
	return out
}

// LookupKind finds a kind by name (case-insensitive).
func LookupKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range catalogue {
		if k.Name == name {
			return k, nil
		}
	}
	return Kind{}, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// groupMembers returns every kind sharing k's group, k included.
func groupMembers(k Kind) []Kind {
	if k.Group == "" {
		return []Kind{k}
	}
	var out []Kind
	for _, other := range catalogue {
		if other.Group == k.Group {
			out = append(out, other)
		}
	}
	return out
}

// Definition is a script ready to be written and launched.
type Definition struct {
	Kind Kind
	Body string
}

func (d Definition) validate() error {
	if _, err := LookupKind(d.Kind.Name); err != nil {
		return err
	}
	if strings.TrimSpace(d.Body) == "" {
		return fmt.Errorf("%s: %w", d.Kind.Name, ErrEmptyScript)
	}
	return nil
}
