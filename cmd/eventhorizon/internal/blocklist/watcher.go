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
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a local hosts file into a Set whenever it changes.
//
// # Description
//
// The parent directory is watched rather than the file itself so that
// editors and downloaders that replace the file by rename are seen.
// Events for other names in the directory are ignored. A burst of events
// triggers one reload after the debounce window.
//
// # Thread Safety
//
// Safe for concurrent use. Reloads run on a single goroutine.
type Watcher struct {
	path     string
	set      *Set
	debounce time.Duration
	onReload func(n int, err error)
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	watching bool
}

// NewWatcher creates a watcher that reloads path into set. onReload, when
// non-nil, is called after every reload attempt with the new size or the
// parse error.
func NewWatcher(path string, set *Set, onReload func(n int, err error), logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		path:     filepath.Clean(path),
		set:      set,
		debounce: DefaultDebounce,
		onReload: onReload,
		logger:   logger,
		watcher:  fw,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// SetDebounce overrides the debounce window. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Start begins watching. The loop exits on Stop or when ctx ends.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching {
		return nil
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.watching = true
	go w.loop(ctx)
	return nil
}

// Stop ends watching and waits for the loop to exit. Safe to call more
// than once, and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		started := w.watching
		w.watching = false
		w.mu.Unlock()
		if started {
			<-w.stopped
		}
	})
}

// IsWatching reports whether the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watching
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.stopped)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("blocklist watcher error", "path", w.path, "error", err)
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	next, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn("blocklist reload failed", "path", w.path, "error", err)
		if w.onReload != nil {
			w.onReload(0, err)
		}
		return
	}
	w.set.Replace(next)
	w.logger.Info("blocklist reloaded", "path", w.path, "domains", next.Len())
	if w.onReload != nil {
		w.onReload(next.Len(), nil)
	}
}
