// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package blocklist

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BlockerConfig configures a Blocker.
type BlockerConfig struct {
	// URL is the remote hosts list. Empty skips the download.
	URL string

	// LocalFile caches the downloaded list and is the fallback when the
	// download fails. Empty disables caching and fallback.
	LocalFile string

	// Watch reloads LocalFile when it changes on disk.
	Watch bool
}

// Blocker is the DNS blocker's domain decision service.
//
// # Description
//
// Start loads the list and marks the blocker running. A failed load is
// logged and the blocker runs with whatever it has, possibly an empty
// list, rather than refusing to start. While stopped IsBlocked answers
// false for every domain.
//
// # Thread Safety
//
// Safe for concurrent use.
type Blocker struct {
	config BlockerConfig
	loader *Loader
	set    *Set
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	watcher *Watcher
}

// NewBlocker creates a stopped Blocker.
func NewBlocker(config BlockerConfig, loader *Loader, logger *slog.Logger) *Blocker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if loader == nil {
		loader = NewLoader(nil, 0, logger)
	}
	return &Blocker{config: config, loader: loader, set: NewSet(), logger: logger}
}

// Start loads the blocklist and starts the blocker. Calling Start on a
// running blocker is a no-op. The returned error reports only a failed
// watcher setup; load failures are logged.
func (b *Blocker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}

	ctx, span := tracer.Start(ctx, "blocklist.Start",
		trace.WithAttributes(attribute.String("blocklist.url", b.config.URL)))
	defer span.End()

	if err := b.load(ctx); err != nil {
		span.RecordError(err)
		b.logger.Error("blocklist load failed; running with empty list", "error", err)
	}
	domainsGauge.Set(float64(b.set.Len()))
	span.SetAttributes(attribute.Int("blocklist.domains", b.set.Len()))
	b.running = true
	b.logger.Info("blocker started", "domains", b.set.Len())

	if b.config.Watch && b.config.LocalFile != "" {
		w, err := NewWatcher(b.config.LocalFile, b.set, func(n int, err error) {
			recordLoad("watch", err)
			if err == nil {
				domainsGauge.Set(float64(n))
			}
		}, b.logger)
		if err == nil {
			err = w.Start(context.WithoutCancel(ctx))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "watch failed")
			b.logger.Warn("blocklist watch disabled", "path", b.config.LocalFile, "error", err)
			return err
		}
		b.watcher = w
	}
	return nil
}

// load fills b.set from the URL, falling back to the local copy.
func (b *Blocker) load(ctx context.Context) error {
	var fetchErr error
	if b.config.URL != "" {
		var set *Set
		if b.config.LocalFile != "" {
			set, fetchErr = b.loader.FetchToFile(ctx, b.config.URL, b.config.LocalFile)
		} else {
			set, fetchErr = b.loader.Fetch(ctx, b.config.URL)
		}
		recordLoad("remote", fetchErr)
		if set != nil {
			if fetchErr != nil {
				b.logger.Warn("blocklist cache not saved", "error", fetchErr)
			}
			b.set.Replace(set)
			return nil
		}
		b.logger.Warn("blocklist download failed", "url", b.config.URL, "error", fetchErr)
	}
	if b.config.LocalFile == "" {
		return fetchErr
	}
	set, err := LoadFile(b.config.LocalFile)
	recordLoad("file", err)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && fetchErr != nil {
			return fetchErr
		}
		return err
	}
	b.set.Replace(set)
	return nil
}

// Stop stops the blocker and its watcher.
func (b *Blocker) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	if b.watcher != nil {
		b.watcher.Stop()
		b.watcher = nil
	}
	b.running = false
	b.logger.Info("blocker stopped")
}

// Running reports whether the blocker is started.
func (b *Blocker) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// IsBlocked reports whether domain is on the list. Always false while
// the blocker is stopped.
func (b *Blocker) IsBlocked(domain string) bool {
	if !b.Running() {
		return false
	}
	blocked := b.set.Contains(domain)
	recordLookup(blocked)
	return blocked
}

// Len returns the size of the loaded list.
func (b *Blocker) Len() int {
	return b.set.Len()
}
