// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server is the local HTTP control API, the headless counterpart
// of the EventHorizon panel.
//
// # Endpoints
//
//	GET  /healthz
//	GET  /metrics
//	GET  /v1/status
//	GET  /v1/scripts
//	GET  /v1/scripts/:kind
//	POST /v1/scripts/:kind/start
//	POST /v1/scripts/:kind/stop
//	GET  /v1/tweaks
//	GET  /v1/tweaks/:name
//	POST /v1/tweaks/:name          {"enabled": true}
//	GET  /v1/cpu/governor
//	POST /v1/cpu/governor          {"governor": "performance"}
//	GET  /v1/apps
//	POST /v1/apps/:name/install
//	GET  /v1/blocklist/check?domain=example.com
//	GET  /v1/prefs
//	PUT  /v1/prefs/:key            {"value": "true"}
//	POST /v1/boot
//
// Errors are rendered as {"error": "..."} with a 4xx or 5xx status. Every
// response carries an X-Request-ID header.
//
// # Security Considerations
//
// The API executes root commands. Bind it to loopback only.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/boot"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/prefs"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/release"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/status"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
)

// DefaultAddr is the loopback listen address.
const DefaultAddr = "127.0.0.1:8765"

// =============================================================================
// Collaborators
// =============================================================================

// StatusProber builds device snapshots. *status.Prober satisfies it.
type StatusProber interface {
	Probe(ctx context.Context) status.Snapshot
}

// ScriptControl manages background scripts. *scripts.Supervisor
// satisfies it.
type ScriptControl interface {
	Start(ctx context.Context, def scripts.Definition) (scripts.Handle, error)
	Stop(ctx context.Context, kind scripts.Kind) error
	Status(ctx context.Context, kind scripts.Kind) (scripts.Status, error)
}

// TweakControl applies catalogue tweaks. *tweaks.Tweaker satisfies it.
type TweakControl interface {
	Apply(ctx context.Context, name string, on bool) (tweaks.Outcome, error)
	State(ctx context.Context, name string) (bool, error)
	SetGovernor(ctx context.Context, gov tweaks.Governor) tweaks.Outcome
	Governor(ctx context.Context) (string, error)
}

// AppInstaller installs catalogue apps. *release.Installer satisfies it.
type AppInstaller interface {
	Install(ctx context.Context, app release.App, onStatus release.StatusFunc) release.Outcome
}

// DomainChecker answers blocklist lookups. *blocklist.Blocker satisfies it.
type DomainChecker interface {
	IsBlocked(domain string) bool
	Running() bool
	Len() int
}

// BootRunner runs the boot hook. *boot.Hook satisfies it.
type BootRunner interface {
	Run(ctx context.Context) boot.Report
}

// Deps are the server's collaborators. A nil collaborator makes its
// endpoints answer 503.
type Deps struct {
	Status    StatusProber
	Scripts   ScriptControl
	Tweaks    TweakControl
	Installer AppInstaller
	Blocker   DomainChecker
	Prefs     prefs.Store
	Boot      BootRunner
}

// Config configures the server.
type Config struct {
	// Addr is the listen address. Default: DefaultAddr.
	Addr string

	// ScriptOptions parameterize scripts started through the API.
	ScriptOptions tweaks.ScriptOptions

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration

	// ServiceName labels server spans. Default: "eventhorizon".
	ServiceName string
}

// =============================================================================
// Server
// =============================================================================

// Server is the control API.
type Server struct {
	config Config
	deps   Deps
	logger *slog.Logger
	engine *gin.Engine
}

// New creates a Server and registers its routes.
func New(config Config, deps Deps, logger *slog.Logger) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if config.ServiceName == "" {
		config.ServiceName = "eventhorizon"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{config: config, deps: deps, logger: logger}
	engine := gin.New()
	engine.Use(
		gin.CustomRecovery(s.recover),
		requestID(),
		otelgin.Middleware(config.ServiceName),
		s.accessLog(),
		requestMetrics(),
	)
	s.engine = engine
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.config.Addr
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	v1.GET("/status", s.handleStatus)

	v1.GET("/scripts", s.handleScriptList)
	v1.GET("/scripts/:kind", s.handleScriptStatus)
	v1.POST("/scripts/:kind/start", s.handleScriptStart)
	v1.POST("/scripts/:kind/stop", s.handleScriptStop)

	v1.GET("/tweaks", s.handleTweakList)
	v1.GET("/tweaks/:name", s.handleTweakGet)
	v1.POST("/tweaks/:name", s.handleTweakSet)

	v1.GET("/cpu/governor", s.handleGovernorGet)
	v1.POST("/cpu/governor", s.handleGovernorSet)

	v1.GET("/apps", s.handleAppList)
	v1.POST("/apps/:name/install", s.handleAppInstall)

	v1.GET("/blocklist/check", s.handleBlocklistCheck)

	v1.GET("/prefs", s.handlePrefsList)
	v1.PUT("/prefs/:key", s.handlePrefsSet)

	v1.POST("/boot", s.handleBoot)
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control API listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info("control API shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
