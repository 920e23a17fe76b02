// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prefs

import (
	"fmt"
	"strconv"
	"strings"
)

// Preference keys.
const (
	KeyRootOnBoot          = "root_on_boot"
	KeyRGBOnBoot           = "rgb_on_boot"
	KeyCustomLEDOnBoot     = "custom_led_on_boot"
	KeyCustomLEDActive     = "custom_led_active"
	KeyBlockerOnBoot       = "blocker_on_boot"
	KeyMinFreqOnBoot       = "min_freq_on_boot"
	KeyInterceptorOnBoot   = "interceptor_on_boot"
	KeyLEDRed              = "led_red"
	KeyLEDGreen            = "led_green"
	KeyLEDBlue             = "led_blue"
	KeyDogfoodPendingStep2 = "dogfood_pending_step2"
)

// DefaultLEDChannel is the default for each saved LED channel.
const DefaultLEDChannel = 255

// KeyType is the value type of a key.
type KeyType int

const (
	TypeBool KeyType = iota
	TypeInt
)

// KeyInfo describes a catalogue key.
type KeyInfo struct {
	Name    string
	Type    KeyType
	Default string
}

var catalogue = []KeyInfo{
	{KeyRootOnBoot, TypeBool, "false"},
	{KeyRGBOnBoot, TypeBool, "false"},
	{KeyCustomLEDOnBoot, TypeBool, "false"},
	{KeyCustomLEDActive, TypeBool, "false"},
	{KeyBlockerOnBoot, TypeBool, "false"},
	{KeyMinFreqOnBoot, TypeBool, "false"},
	{KeyInterceptorOnBoot, TypeBool, "false"},
	{KeyLEDRed, TypeInt, "255"},
	{KeyLEDGreen, TypeInt, "255"},
	{KeyLEDBlue, TypeInt, "255"},
	{KeyDogfoodPendingStep2, TypeBool, "false"},
}

// Keys returns the key catalogue.
func Keys() []KeyInfo {
	out := make([]KeyInfo, len(catalogue))
	copy(out, catalogue)
	return out
}

// LookupKey finds a catalogue key.
func LookupKey(name string) (KeyInfo, error) {
	name = strings.TrimSpace(name)
	for _, k := range catalogue {
		if k.Name == name {
			return k, nil
		}
	}
	return KeyInfo{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
}

// SetText parses text as the key's type and stores it. Used by
// "prefs set" and the API, which receive strings.
func SetText(store Store, name, text string) error {
	info, err := LookupKey(name)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	switch info.Type {
	case TypeInt:
		v, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("%w: %s wants an integer, got %q", ErrInvalidValue, name, text)
		}
		return store.SetInt(info.Name, v)
	default:
		v, err := strconv.ParseBool(text)
		if err != nil {
			return fmt.Errorf("%w: %s wants true or false, got %q", ErrInvalidValue, name, text)
		}
		// The two LED boot flags are exclusive.
		if v && info.Name == KeyRGBOnBoot {
			return SetLEDBootMode(store, LEDBootRainbow)
		}
		if v && info.Name == KeyCustomLEDOnBoot {
			return SetLEDBootMode(store, LEDBootCustom)
		}
		return store.SetBool(info.Name, v)
	}
}

// Effective returns every catalogue key with its stored value, or the
// default when unset.
func Effective(store Store) (map[string]string, error) {
	stored, err := store.All()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(catalogue))
	for _, k := range catalogue {
		if v, ok := stored[k.Name]; ok {
			out[k.Name] = v
		} else {
			out[k.Name] = k.Default
		}
	}
	return out, nil
}

// =============================================================================
// LED boot mode
// =============================================================================

// LEDBootMode is which LED script the boot hook restarts.
type LEDBootMode string

const (
	LEDBootNone    LEDBootMode = "none"
	LEDBootRainbow LEDBootMode = "rainbow"
	LEDBootCustom  LEDBootMode = "custom"
)

// ParseLEDBootMode accepts "none", "rainbow" or "custom".
func ParseLEDBootMode(s string) (LEDBootMode, error) {
	switch m := LEDBootMode(strings.ToLower(strings.TrimSpace(s))); m {
	case LEDBootNone, LEDBootRainbow, LEDBootCustom:
		return m, nil
	default:
		return "", fmt.Errorf("%w: led boot mode %q", ErrInvalidValue, s)
	}
}

// SetLEDBootMode stores mode. The rainbow and custom boot flags are
// mutually exclusive, so both are written in one transaction.
func SetLEDBootMode(store Store, mode LEDBootMode) error {
	return store.SetBools(map[string]bool{
		KeyRGBOnBoot:       mode == LEDBootRainbow,
		KeyCustomLEDOnBoot: mode == LEDBootCustom,
	})
}

// GetLEDBootMode reads the LED boot mode. If both flags are somehow set,
// custom wins, matching the order the boot hook checks them.
func GetLEDBootMode(store Store) (LEDBootMode, error) {
	custom, err := store.Bool(KeyCustomLEDOnBoot, false)
	if err != nil {
		return LEDBootNone, err
	}
	if custom {
		return LEDBootCustom, nil
	}
	rgb, err := store.Bool(KeyRGBOnBoot, false)
	if err != nil {
		return LEDBootNone, err
	}
	if rgb {
		return LEDBootRainbow, nil
	}
	return LEDBootNone, nil
}

// LEDColor returns the saved custom colour channels.
func LEDColor(store Store) (r, g, b int, err error) {
	if r, err = store.Int(KeyLEDRed, DefaultLEDChannel); err != nil {
		return
	}
	if g, err = store.Int(KeyLEDGreen, DefaultLEDChannel); err != nil {
		return
	}
	b, err = store.Int(KeyLEDBlue, DefaultLEDChannel)
	return
}

// SaveLEDColor stores the custom colour and marks it active.
func SaveLEDColor(store Store, r, g, b int) error {
	for key, v := range map[string]int{KeyLEDRed: r, KeyLEDGreen: g, KeyLEDBlue: b} {
		if err := store.SetInt(key, v); err != nil {
			return err
		}
	}
	return store.SetBool(KeyCustomLEDActive, true)
}
