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
	"time"
)

// EventHorizonConfig is the on-disk configuration at
// ~/.eventhorizon/eventhorizon.yaml.
type EventHorizonConfig struct {
	// Shell: how root commands are executed
	Shell ShellConfig `yaml:"shell"`

	// Paths: where scripts, caches, data and logs live
	Paths PathsConfig `yaml:"paths"`

	// Release: app release host and self-update source
	Release ReleaseConfig `yaml:"release"`

	// Blocklist: DNS blocker list source
	Blocklist BlocklistConfig `yaml:"blocklist"`

	// Exploit: bundled payload locations
	Exploit ExploitConfig `yaml:"exploit"`

	// CPU: core layout and frequency lock defaults
	CPU CPUConfig `yaml:"cpu"`

	// Interceptor: activities redirected by the interceptor script
	Interceptor InterceptorConfig `yaml:"interceptor"`

	// Server: control API
	Server ServerConfig `yaml:"server"`

	// Telemetry: OpenTelemetry exporters
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Log: logging level and format
	Log LogConfig `yaml:"log"`
}

type ShellConfig struct {
	Binary      string        `yaml:"binary" validate:"required"` // e.g. su
	Args        []string      `yaml:"args,omitempty"`             // extra helper arguments
	MountMaster bool          `yaml:"mount_master"`               // run in the global mount namespace
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`   // 0 = no timeout
}

type PathsConfig struct {
	ScriptDir string `yaml:"script_dir" validate:"required"` // must be executable by root
	CacheDir  string `yaml:"cache_dir" validate:"required"`  // downloaded APKs, blocklist copy
	DataDir   string `yaml:"data_dir" validate:"required"`   // preference store
	LogDir    string `yaml:"log_dir"`                        // empty disables file logs
}

type ReleaseConfig struct {
	BaseURL           string        `yaml:"base_url" validate:"required,url"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gt=0"`
	Burst             int           `yaml:"burst" validate:"min=1"`
	DownloadTimeout   time.Duration `yaml:"download_timeout" validate:"gte=0"`
	UpdateOwner       string        `yaml:"update_owner"` // self-update repository
	UpdateRepo        string        `yaml:"update_repo"`
}

type BlocklistConfig struct {
	URL       string `yaml:"url" validate:"omitempty,url"`
	LocalFile string `yaml:"local_file"`
	Watch     bool   `yaml:"watch"`
}

type ExploitConfig struct {
	Executable   string `yaml:"executable"`
	AssetsDir    string `yaml:"assets_dir"`
	ExtractDir   string `yaml:"extract_dir"`
	LaunchScript string `yaml:"launch_script"`
}

type CPUConfig struct {
	GovernorCores int `yaml:"governor_cores" validate:"min=1,max=64"`
	LittleCores   int `yaml:"little_cores" validate:"min=0,max=64"`
	BigCores      int `yaml:"big_cores" validate:"min=0,max=64"`
	MinFreqLittle int `yaml:"min_freq_little" validate:"min=0"` // kHz
	MinFreqBig    int `yaml:"min_freq_big" validate:"min=0"`    // kHz
}

type InterceptorConfig struct {
	Targets []string `yaml:"targets"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	TraceFile      string `yaml:"trace_file"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
}

func DefaultConfig() EventHorizonConfig {
	return EventHorizonConfig{
		Shell: ShellConfig{
			Binary:  "su",
			Timeout: 30 * time.Second,
		},
		Paths: PathsConfig{
			ScriptDir: "/data/local/tmp/eventhorizon",
			CacheDir:  "~/.eventhorizon/cache",
			DataDir:   "~/.eventhorizon/data",
			LogDir:    "~/.eventhorizon/logs",
		},
		Release: ReleaseConfig{
			BaseURL:           "https://api.github.com",
			RequestsPerSecond: 1,
			Burst:             3,
			DownloadTimeout:   5 * time.Minute,
			UpdateOwner:       "Lumince",
			UpdateRepo:        "eventhorizon",
		},
		Blocklist: BlocklistConfig{
			URL:       "https://raw.githubusercontent.com/Lumince/eventhorizon/refs/heads/main/hosts",
			LocalFile: "~/.eventhorizon/cache/hosts",
			Watch:     true,
		},
		Exploit: ExploitConfig{
			Executable:   "~/.eventhorizon/exploit/libexploit.so",
			AssetsDir:    "~/.eventhorizon/exploit/assets",
			ExtractDir:   "~/.eventhorizon/exploit/extracted",
			LaunchScript: "launch.sh",
		},
		CPU: CPUConfig{
			GovernorCores: 6,
			LittleCores:   4,
			BigCores:      3,
			MinFreqLittle: 691200,
			MinFreqBig:    691200,
		},
		Interceptor: InterceptorConfig{
			Targets: []string{
				"com.oculus.explore/.ExploreActivity",
				"com.oculus.socialplatform/com.oculus.panelapp.people.PeopleShelfActivity",
			},
		},
		Server: ServerConfig{Addr: "127.0.0.1:8765"},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			TraceFile:      "~/.eventhorizon/logs/traces.json",
			OTLPEndpoint:   "localhost:4317",
			MetricExporter: "prometheus",
		},
		Log: LogConfig{Level: "info"},
	}
}
