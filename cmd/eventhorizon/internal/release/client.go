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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the GitHub REST API root.
const DefaultBaseURL = "https://api.github.com"

// ErrNotFound is returned when the repository or its latest release does
// not exist.
var ErrNotFound = errors.New("release not found")

// HTTPError is a non-2xx response from the release host.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("GET %s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the API root. Default: DefaultBaseURL.
	BaseURL string

	// RequestsPerSecond limits API and download requests. Zero means 1.
	RequestsPerSecond float64

	// Burst is the limiter burst. Zero means 2.
	Burst int

	// Timeout bounds API calls. Downloads are bounded by the caller's
	// context only. Zero means 30s.
	Timeout time.Duration

	// HTTPClient replaces the default client. Tests pass the httptest
	// server's client.
	HTTPClient *http.Client
}

// Client talks to the release host.
//
// # Thread Safety
//
// Client is safe for concurrent use; all requests share one limiter.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a Client. A nil logger discards log output.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger,
	}
}

// Latest fetches the latest release of owner/repo.
//
// # Outputs
//
//   - Release: decoded release document.
//   - error: ErrNotFound for 404, *HTTPError for other non-2xx, or a
//     transport/decoding error.
func (c *Client) Latest(ctx context.Context, owner, repo string) (Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, url.PathEscape(owner), url.PathEscape(repo))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.get(ctx, endpoint, "application/vnd.github+json")
	if err != nil {
		return Release{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Release{}, fmt.Errorf("%s/%s: %w", owner, repo, ErrNotFound)
	}
	if resp.StatusCode/100 != 2 {
		return Release{}, httpError(endpoint, resp)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Release{}, fmt.Errorf("decode release %s/%s: %w", owner, repo, err)
	}
	c.logger.Debug("latest release", "repo", owner+"/"+repo, "tag", rel.TagName, "assets", len(rel.Assets))
	return rel, nil
}

// Progress is called while downloading with bytes written so far and the
// expected total (-1 when unknown).
type Progress func(written, total int64)

// Download streams rawURL to dest, replacing any existing file. A partial
// download is removed on failure.
func (c *Client) Download(ctx context.Context, rawURL, dest string, progress Progress) (int64, error) {
	resp, err := c.get(ctx, rawURL, "application/octet-stream")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return 0, httpError(rawURL, resp)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("create cache dir: %w", err)
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}

	var w io.Writer = f
	if progress != nil {
		w = &progressWriter{w: f, total: resp.ContentLength, fn: progress}
	}
	n, copyErr := io.Copy(w, resp.Body)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(dest)
		return n, fmt.Errorf("download %s: %w", rawURL, copyErr)
	}
	return n, nil
}

func (c *Client) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "eventhorizon")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	return resp, nil
}

func httpError(rawURL string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &HTTPError{URL: rawURL, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	fn      Progress
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.fn(p.written, p.total)
	return n, err
}
