// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/EventHorizon/pkg/logging"
	"github.com/AleutianAI/EventHorizon/pkg/validation"
)

var (
	// Global is a singleton instance
	Global EventHorizonConfig
	once   sync.Once

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// DefaultPath returns ~/.eventhorizon/eventhorizon.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".eventhorizon", "eventhorizon.yaml"), nil
}

// Load reads the config once into Global. An empty path uses DefaultPath.
// A missing file is created with defaults.
func Load(path string) error {
	var err error
	once.Do(func() {
		Global, err = LoadFrom(path)
	})
	return err
}

// LoadFrom reads, expands and validates the config at path without
// touching Global. Keys missing from the file keep their defaults.
func LoadFrom(path string) (EventHorizonConfig, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return EventHorizonConfig{}, err
		}
		path = p
	}
	// create it if it doesn't exist
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, " First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return EventHorizonConfig{}, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return EventHorizonConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EventHorizonConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.expand()
	if err := Validate(cfg); err != nil {
		return EventHorizonConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks struct constraints and reports every violation.
func Validate(cfg EventHorizonConfig) error {
	var msgs []string
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	if err := validation.ValidateComponents(cfg.Interceptor.Targets); err != nil {
		msgs = append(msgs, "EventHorizonConfig.Interceptor.Targets: "+err.Error())
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Save writes cfg to path.
func Save(path string, cfg EventHorizonConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func createDefault(path string) error {
	return Save(path, DefaultConfig())
}

// expand resolves a leading ~ in every path setting.
func (c *EventHorizonConfig) expand() {
	for _, p := range []*string{
		&c.Paths.ScriptDir,
		&c.Paths.CacheDir,
		&c.Paths.DataDir,
		&c.Paths.LogDir,
		&c.Blocklist.LocalFile,
		&c.Exploit.Executable,
		&c.Exploit.AssetsDir,
		&c.Exploit.ExtractDir,
		&c.Telemetry.TraceFile,
	} {
		*p = logging.ExpandPath(*p)
	}
}
