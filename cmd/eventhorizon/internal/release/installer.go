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
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/rootshell"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/util"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// installSuccessMarker is printed by "pm install" on success.
const installSuccessMarker = "Success"

// OutcomeStatus classifies an install.
type OutcomeStatus string

const (
	// InstallSucceeded means pm reported Success.
	InstallSucceeded OutcomeStatus = "installed"

	// InstallFailed means pm ran and rejected the package.
	InstallFailed OutcomeStatus = "install_failed"

	// InstallNoAPK means the release had no .apk asset.
	InstallNoAPK OutcomeStatus = "no_apk"

	// InstallError means lookup, download or the root shell failed.
	InstallError OutcomeStatus = "error"
)

// Outcome is the final state of an install. Message is the same text sent
// as the last status update.
type Outcome struct {
	App     string
	Status  OutcomeStatus
	Message string
	Release string
}

// OK reports whether the APK was installed.
func (o Outcome) OK() bool { return o.Status == InstallSucceeded }

// StatusFunc receives human-readable progress lines.
type StatusFunc func(status string)

// Installer downloads and installs catalogue apps.
type Installer struct {
	client   *Client
	runner   rootshell.Runner
	cacheDir string
	logger   *slog.Logger
}

// NewInstaller creates an Installer that downloads into cacheDir.
func NewInstaller(client *Client, runner rootshell.Runner, cacheDir string, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Installer{client: client, runner: runner, cacheDir: cacheDir, logger: logger}
}

// Install installs app from its latest release, or from DirectURL.
//
// # Description
//
// Emits "Finding latest release...", "Downloading <asset>...",
// "Installing...", then exactly one final line which is also
// Outcome.Message. Never returns an error; every failure is an Outcome.
func (i *Installer) Install(ctx context.Context, app App, onStatus StatusFunc) Outcome {
	if app.DirectURL != "" {
		return i.InstallFromURL(ctx, app, app.DirectURL, onStatus)
	}
	emit := statusEmitter(onStatus)

	ctx, span := tracer.Start(ctx, "release.Install",
		trace.WithAttributes(attribute.String("release.app", app.Name), attribute.String("release.repo", app.Source())))
	defer span.End()

	emit("Finding latest release...")
	rel, err := i.client.Latest(ctx, app.Owner, app.Repo)
	if err != nil {
		return i.finish(span, emit, Outcome{App: app.Name, Status: InstallError, Message: "An error occurred: " + err.Error()})
	}
	asset, err := SelectAPK(rel.Assets)
	if errors.Is(err, ErrNoDownloadURL) {
		return i.finish(span, emit, Outcome{
			App: app.Name, Status: InstallError, Release: rel.TagName,
			Message: "An error occurred: " + err.Error(),
		})
	}
	if err != nil {
		return i.finish(span, emit, Outcome{
			App: app.Name, Status: InstallNoAPK, Release: rel.TagName,
			Message: "Error: No APK found in the latest release.",
		})
	}

	out := i.downloadAndInstall(ctx, app, asset.Name, asset.BrowserDownloadURL, emit)
	out.Release = rel.TagName
	return i.finish(span, emit, out)
}

// InstallFromURL installs app from a fixed download URL.
func (i *Installer) InstallFromURL(ctx context.Context, app App, rawURL string, onStatus StatusFunc) Outcome {
	emit := statusEmitter(onStatus)
	ctx, span := tracer.Start(ctx, "release.InstallFromURL",
		trace.WithAttributes(attribute.String("release.app", app.Name)))
	defer span.End()

	out := i.downloadAndInstall(ctx, app, app.Name, rawURL, emit)
	return i.finish(span, emit, out)
}

func (i *Installer) downloadAndInstall(ctx context.Context, app App, assetName, rawURL string, emit StatusFunc) Outcome {
	dest := filepath.Join(i.cacheDir, app.cacheName())
	defer func() {
		if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
			i.logger.Warn("failed to remove downloaded APK", "path", dest, "error", err)
		}
	}()

	emit(fmt.Sprintf("Downloading %s...", assetName))
	n, err := i.client.Download(ctx, rawURL, dest, nil)
	if err != nil {
		return Outcome{App: app.Name, Status: InstallError, Message: "An error occurred: " + err.Error()}
	}
	i.logger.Info("apk downloaded", "app", app.Name, "bytes", n, "path", dest)

	emit("Installing...")
	res := i.runner.Run(ctx, "pm install -r "+util.ShellQuote(dest))
	if res.Err != nil {
		return Outcome{App: app.Name, Status: InstallError, Message: "An error occurred: " + res.Err.Error()}
	}
	if res.OK() && res.Contains(installSuccessMarker) {
		return Outcome{App: app.Name, Status: InstallSucceeded, Message: fmt.Sprintf("%s installed successfully!", app.Name)}
	}
	return Outcome{
		App:     app.Name,
		Status:  InstallFailed,
		Message: "Installation failed. Result:\n" + strings.TrimRight(res.Text(), "\n"),
	}
}

func (i *Installer) finish(span trace.Span, emit StatusFunc, out Outcome) Outcome {
	emit(out.Message)
	installsTotal.WithLabelValues(out.App, string(out.Status)).Inc()
	span.SetAttributes(attribute.String("release.outcome", string(out.Status)))
	if !out.OK() {
		span.SetStatus(codes.Error, out.Message)
		i.logger.Warn("install did not succeed", "app", out.App, "status", out.Status, "message", out.Message)
	} else {
		i.logger.Info("app installed", "app", out.App, "release", out.Release)
	}
	return out
}

func statusEmitter(fn StatusFunc) StatusFunc {
	if fn == nil {
		return func(string) {}
	}
	return fn
}
