// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion is returned when a version is not semver.
var ErrInvalidVersion = errors.New("invalid version")

// Canonical converts a tag such as "1.4", "v1.4.0" or "V1.4.0-beta" into
// canonical semver ("v1.4.0"). Returns ErrInvalidVersion otherwise.
func Canonical(tag string) (string, error) {
	v := strings.TrimSpace(tag)
	if strings.HasPrefix(v, "V") {
		v = "v" + v[1:]
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, tag)
	}
	return semver.Canonical(v), nil
}

// Update is the result of an update check.
type Update struct {
	Current   string
	Latest    string
	Available bool
	Release   Release
}

// CheckForUpdate compares current with the latest release tag of
// owner/repo.
func (c *Client) CheckForUpdate(ctx context.Context, owner, repo, current string) (Update, error) {
	cur, err := Canonical(current)
	if err != nil {
		return Update{}, fmt.Errorf("current version: %w", err)
	}
	rel, err := c.Latest(ctx, owner, repo)
	if err != nil {
		return Update{}, err
	}
	latest, err := Canonical(rel.TagName)
	if err != nil {
		return Update{}, fmt.Errorf("latest release: %w", err)
	}
	return Update{
		Current:   cur,
		Latest:    latest,
		Available: semver.Compare(latest, cur) > 0,
		Release:   rel,
	}, nil
}
