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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultURL is the EventHorizon hosts list.
const DefaultURL = "https://raw.githubusercontent.com/Lumince/eventhorizon/refs/heads/main/hosts"

// maxListBytes bounds a downloaded list.
const maxListBytes = 32 << 20

// ErrListTooLarge is returned when a download exceeds the size bound.
// A truncated list could end in a partial hostname, so it is rejected.
var ErrListTooLarge = errors.New("blocklist too large")

// Loader fetches blocklists. Concurrent fetches of the same URL share one
// request.
type Loader struct {
	http    *http.Client
	timeout time.Duration
	group   singleflight.Group
	logger  *slog.Logger

	maxBytes int64
}

// NewLoader creates a Loader. A nil client uses http.DefaultClient; a
// zero timeout means 60s.
func NewLoader(client *http.Client, timeout time.Duration, logger *slog.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{http: client, timeout: timeout, logger: logger, maxBytes: maxListBytes}
}

// Fetch downloads and parses the list at url.
func (l *Loader) Fetch(ctx context.Context, url string) (*Set, error) {
	data, err := l.fetchBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(data))
}

// FetchToFile downloads url, parses it, and writes the raw list to path
// so later starts can fall back to it offline.
func (l *Loader) FetchToFile(ctx context.Context, url, path string) (*Set, error) {
	data, err := l.fetchBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	set, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(path, data); err != nil {
		return set, err
	}
	return set, nil
}

func (l *Loader) fetchBytes(ctx context.Context, url string) ([]byte, error) {
	v, err, shared := l.group.Do(url, func() (interface{}, error) {
		// Detached from any one caller so a cancelled caller does not
		// fail the others sharing this fetch.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(fctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", "eventhorizon")
		resp, err := l.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch blocklist: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("fetch blocklist: HTTP %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read blocklist: %w", err)
		}
		if int64(len(data)) > l.maxBytes {
			return nil, fmt.Errorf("fetch blocklist: %w (over %d bytes)", ErrListTooLarge, l.maxBytes)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.logger.Debug("blocklist fetch shared", "url", url)
	}
	return v.([]byte), nil
}

// LoadFile parses the hosts file at path.
func LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blocklist: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create blocklist dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".hosts-*")
	if err != nil {
		return fmt.Errorf("save blocklist: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save blocklist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save blocklist: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save blocklist: %w", err)
	}
	return nil
}
