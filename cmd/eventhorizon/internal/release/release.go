// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package release sideloads APKs published as GitHub release assets.
//
// The flow mirrors what a user would do by hand: look up the latest
// release of owner/repo, pick its first .apk asset, download it into the
// cache directory, hand it to "pm install -r" as root, then delete the
// download. Progress is reported through a callback as short status
// lines so the CLI and the API can show the same messages.
//
// Requests to the release host are rate limited (golang.org/x/time/rate)
// so a loop of installs or update checks stays under the anonymous API
// quota.
package release

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoAPK is returned when the latest release has no .apk asset.
	ErrNoAPK = errors.New("no APK found in the latest release")

	// ErrNoDownloadURL is returned when the selected asset has no URL.
	ErrNoDownloadURL = errors.New("APK asset has no download URL")
)

// Asset is one downloadable file of a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Release is the subset of the GitHub release document EventHorizon uses.
type Release struct {
	TagName string  `json:"tag_name"`
	Name    string  `json:"name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// SelectAPK returns the first asset whose name ends in ".apk", or
// ErrNoAPK. The suffix match is case-sensitive. A first match without a
// download URL is an error, not a reason to try the next asset.
func SelectAPK(assets []Asset) (Asset, error) {
	for _, a := range assets {
		if !strings.HasSuffix(a.Name, ".apk") {
			continue
		}
		if a.BrowserDownloadURL == "" {
			return Asset{}, fmt.Errorf("%w: %s", ErrNoDownloadURL, a.Name)
		}
		return a, nil
	}
	return Asset{}, ErrNoAPK
}

// App is a catalogue entry. Either Owner/Repo (latest GitHub release) or
// DirectURL is set.
type App struct {
	Name        string
	Owner       string
	Repo        string
	DirectURL   string
	Description string
}

// Source describes where the APK comes from.
func (a App) Source() string {
	if a.DirectURL != "" {
		return a.DirectURL
	}
	return a.Owner + "/" + a.Repo
}

// cacheName is the download file name inside the cache directory.
func (a App) cacheName() string {
	if a.Repo != "" {
		return a.Repo + ".apk"
	}
	return strings.ReplaceAll(a.Name, " ", "_") + ".apk"
}

// ErrUnknownApp is returned for a name outside the catalogue.
var ErrUnknownApp = errors.New("unknown app")

var apps = []App{
	{
		Name: "DockEditor", Owner: "Lumince", Repo: "DockEditor",
		Description: "Edit the pinned apps on the universal menu dock",
	},
	{
		Name: "Shizuku", Owner: "RikkaApps", Repo: "Shizuku",
		Description: "Lets apps use system APIs through adb or root",
	},
	{
		Name:        "MiXplorer",
		DirectURL:   "https://mixplorer.com/beta/MiXplorer_v6.68.4-Beta_B24112312-arm64.apk",
		Description: "File manager with root support",
	},
}

// Apps returns the sideload catalogue.
func Apps() []App {
	out := make([]App, len(apps))
	copy(out, apps)
	return out
}

// LookupApp finds a catalogue app by name (case-insensitive).
func LookupApp(name string) (App, error) {
	for _, a := range apps {
		if strings.EqualFold(a.Name, strings.TrimSpace(name)) {
			return a, nil
		}
	}
	return App{}, fmt.Errorf("%w: %q", ErrUnknownApp, name)
}
