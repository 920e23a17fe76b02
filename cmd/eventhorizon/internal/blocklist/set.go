// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package blocklist loads a hosts-format domain blocklist and answers
// "is this domain blocked?" for the DNS blocker.
//
// Establishing the DNS tunnel belongs to the operating system; this
// package only owns the list: fetching it (deduplicated with
// singleflight), parsing it, keeping it in a concurrency-safe set, and
// reloading it when a local copy changes (fsnotify).
package blocklist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Set is a concurrency-safe set of blocked domains.
type Set struct {
	mu      sync.RWMutex
	domains map[string]struct{}
}

// NewSet creates a set holding domains.
func NewSet(domains ...string) *Set {
	s := &Set{domains: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		s.add(d)
	}
	return s
}

// Normalize lower-cases d and strips surrounding space and a trailing dot.
func Normalize(d string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
}

func (s *Set) add(d string) {
	if d = Normalize(d); d != "" {
		s.domains[d] = struct{}{}
	}
}

// Add inserts d.
func (s *Set) Add(d string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(d)
}

// Contains reports whether d is blocked. Matching is exact after
// normalization; subdomains are not implied.
func (s *Set) Contains(d string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.domains[Normalize(d)]
	return ok
}

// Len returns the number of domains.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.domains)
}

// Replace swaps in the contents of other. Readers see either the old or
// the new list, never a mix.
func (s *Set) Replace(other *Set) {
	other.mu.RLock()
	next := make(map[string]struct{}, len(other.domains))
	for d := range other.domains {
		next[d] = struct{}{}
	}
	other.mu.RUnlock()

	s.mu.Lock()
	s.domains = next
	s.mu.Unlock()
}

// Domains returns the domains in sorted order.
func (s *Set) Domains() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.domains))
	for d := range s.domains {
		out = append(out, d)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// maxLineBytes bounds a single hosts line. Longer lines are skipped.
const maxLineBytes = 64 * 1024

// Parse reads a hosts file. For every line with at least two
// whitespace-separated fields the second field is added; blank lines and
// lines starting with '#' are skipped. A line longer than maxLineBytes is
// dropped without affecting the rest of the list.
//
//	0.0.0.0 graph.facebook.com   -> graph.facebook.com
//	127.0.0.1	localhost         -> localhost
//	# comment                     -> skipped
func Parse(r io.Reader) (*Set, error) {
	set := NewSet()
	br := bufio.NewReaderSize(r, maxLineBytes)
	for {
		line, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = br.ReadSlice('\n')
			}
			linesSkipped.Inc()
		} else {
			addLine(set, string(line))
		}
		if errors.Is(err, io.EOF) {
			return set, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse blocklist: %w", err)
		}
	}
}

func addLine(set *Set, line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	if fields := strings.Fields(line); len(fields) >= 2 {
		set.add(fields[1])
	}
}
