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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestCreateDefault verifies default config creation.
func TestCreateDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".eventhorizon", "eventhorizon.yaml")

	require.NoError(t, createDefault(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var cfg EventHorizonConfig
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, "su", cfg.Shell.Binary)
	assert.Equal(t, 30*time.Second, cfg.Shell.Timeout)
	assert.Equal(t, "127.0.0.1:8765", cfg.Server.Addr)
}

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestLoadFrom_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventhorizon.yaml")

	cfg, err := LoadFrom(path)

	require.NoError(t, err)
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
	assert.Equal(t, 6, cfg.CPU.GovernorCores)
	assert.Equal(t, "launch.sh", cfg.Exploit.LaunchScript)
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventhorizon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
shell:
  binary: /system/xbin/su
  timeout: 45s
cpu:
  min_freq_big: 1000000
log:
  level: debug
`), 0644))

	cfg, err := LoadFrom(path)

	require.NoError(t, err)
	assert.Equal(t, "/system/xbin/su", cfg.Shell.Binary)
	assert.Equal(t, 45*time.Second, cfg.Shell.Timeout)
	assert.Equal(t, 1000000, cfg.CPU.MinFreqBig)
	assert.Equal(t, 691200, cfg.CPU.MinFreqLittle)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "https://api.github.com", cfg.Release.BaseURL)
}

func TestLoadFrom_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "eventhorizon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  data_dir: ~/eh-data\n"), 0644))

	cfg, err := LoadFrom(path)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "eh-data"), cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(home, ".eventhorizon", "cache", "hosts"), cfg.Blocklist.LocalFile)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "shell: [unterminated", "failed to parse"},
		{"bad exporter", "telemetry:\n  trace_exporter: zipkin\n", "TraceExporter"},
		{"empty binary", "shell:\n  binary: \"\"\n", "Binary"},
		{"bad addr", "server:\n  addr: not-an-addr\n", "Addr"},
		{"zero rate", "release:\n  requests_per_second: 0\n", "RequestsPerSecond"},
		{"bad level", "log:\n  level: chatty\n", "Level"},
		{"bad target", "interceptor:\n  targets: [\"com.a.b/.C;reboot\"]\n", "Interceptor.Targets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "eventhorizon.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadFrom(path)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSave_RoundTripsDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := DefaultConfig()
	cfg.Release.DownloadTimeout = 90 * time.Second

	require.NoError(t, Save(path, cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "download_timeout: 1m30s")

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, loaded.Release.DownloadTimeout)
}

func TestLoad_SetsGlobalOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventhorizon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: 127.0.0.1:9999\n"), 0644))

	require.NoError(t, Load(path))
	require.NoError(t, Load(filepath.Join(t.TempDir(), "other.yaml")))

	assert.Equal(t, "127.0.0.1:9999", Global.Server.Addr)
}
