// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package exploit

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// lastVulnerable maps a board name to the last build incremental the
// exploit works on.
var lastVulnerable = map[string]uint64{
	"eureka":  51154110129000520,
	"panther": 1176880099000610,
}

// LastVulnerable returns the last vulnerable incremental for board, or 0
// when the board is unknown.
func LastVulnerable(board string) uint64 {
	return lastVulnerable[strings.ToLower(strings.TrimSpace(board))]
}

// IsPatched reports whether a device on board running build incremental
// is past the last vulnerable build. Unknown boards and unparseable
// incrementals report false; the exploit may still be attempted.
func IsPatched(board, incremental string) bool {
	last := LastVulnerable(board)
	if last == 0 {
		return false
	}
	v, err := strconv.ParseUint(strings.TrimSpace(incremental), 10, 64)
	if err != nil {
		return false
	}
	return v > last
}

// Device identifies the running build.
type Device struct {
	Board       string `json:"board"`
	Incremental string `json:"incremental"`
}

// Patched reports IsPatched for d.
func (d Device) Patched() bool {
	return IsPatched(d.Board, d.Incremental)
}

// PropReader reads one system property.
type PropReader func(ctx context.Context, name string) (string, error)

// Getprop reads a property with the unprivileged getprop tool. Root is
// not needed, which matters before the device is rooted.
func Getprop(ctx context.Context, name string) (string, error) {
	out, err := exec.CommandContext(ctx, "getprop", name).Output()
	if err != nil {
		return "", fmt.Errorf("getprop %s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ReadDevice reads the board and build incremental.
func ReadDevice(ctx context.Context, read PropReader) (Device, error) {
	if read == nil {
		read = Getprop
	}
	board, err := read(ctx, "ro.product.board")
	if err != nil {
		return Device{}, err
	}
	inc, err := read(ctx, "ro.build.version.incremental")
	if err != nil {
		return Device{}, err
	}
	return Device{Board: board, Incremental: inc}, nil
}
