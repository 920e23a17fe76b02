// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/prefs"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/release"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
	"github.com/AleutianAI/EventHorizon/pkg/validation"
)

// =============================================================================
// Response types
// =============================================================================

type scriptResponse struct {
	Kind      string `json:"kind"`
	State     string `json:"state"`
	PID       int    `json:"pid,omitempty"`
	StartedAt string `json:"started_at,omitempty"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newScriptResponse(st scripts.Status) scriptResponse {
	r := scriptResponse{Kind: st.Kind.Name, State: st.State.String(), PID: st.PID, Path: st.Path}
	if !st.StartedAt.IsZero() {
		r.StartedAt = st.StartedAt.UTC().Format(time.RFC3339)
	}
	return r
}

type outcomeResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

type toggleResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	On          *bool  `json:"on,omitempty"`
	Error       string `json:"error,omitempty"`
}

type installResponse struct {
	App      string   `json:"app"`
	Status   string   `json:"status"`
	Message  string   `json:"message"`
	Release  string   `json:"release,omitempty"`
	Progress []string `json:"progress"`
}

// =============================================================================
// Request types
// =============================================================================

type colorRequest struct {
	R int `json:"r" binding:"min=0,max=255"`
	G int `json:"g" binding:"min=0,max=255"`
	B int `json:"b" binding:"min=0,max=255"`
}

type scriptStartRequest struct {
	Color     *colorRequest `json:"color"`
	MinLittle int           `json:"min_little" binding:"min=0"`
	MinBig    int           `json:"min_big" binding:"min=0"`
	Targets   []string      `json:"targets"`
}

type tweakRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type governorRequest struct {
	Governor string `json:"governor" binding:"required"`
}

type prefRequest struct {
	Value string `json:"value" binding:"required"`
}

// =============================================================================
// Health and status
// =============================================================================

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	if s.deps.Status == nil {
		unavailable(c, "status probe")
		return
	}
	c.JSON(http.StatusOK, s.deps.Status.Probe(c.Request.Context()))
}

// =============================================================================
// Scripts
// =============================================================================

func (s *Server) scriptKind(c *gin.Context) (scripts.Kind, bool) {
	if s.deps.Scripts == nil {
		unavailable(c, "script supervisor")
		return scripts.Kind{}, false
	}
	kind, err := scripts.LookupKind(c.Param("kind"))
	if err != nil {
		s.fail(c, err)
		return scripts.Kind{}, false
	}
	return kind, true
}

func (s *Server) handleScriptList(c *gin.Context) {
	if s.deps.Scripts == nil {
		unavailable(c, "script supervisor")
		return
	}
	out := make([]scriptResponse, 0, len(scripts.Kinds()))
	for _, kind := range scripts.Kinds() {
		st, err := s.deps.Scripts.Status(c.Request.Context(), kind)
		r := newScriptResponse(st)
		r.Kind = kind.Name
		if err != nil {
			r.Error = err.Error()
		}
		out = append(out, r)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleScriptStatus(c *gin.Context) {
	kind, ok := s.scriptKind(c)
	if !ok {
		return
	}
	st, err := s.deps.Scripts.Status(c.Request.Context(), kind)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newScriptResponse(st))
}

func (s *Server) handleScriptStart(c *gin.Context) {
	kind, ok := s.scriptKind(c)
	if !ok {
		return
	}
	var req scriptStartRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	opts := s.config.ScriptOptions
	if req.MinLittle > 0 {
		opts.MinLittle = req.MinLittle
	}
	if req.MinBig > 0 {
		opts.MinBig = req.MinBig
	}
	if len(req.Targets) > 0 {
		if err := validation.ValidateComponents(req.Targets); err != nil {
			badRequest(c, err)
			return
		}
		opts.InterceptTargets = req.Targets
	}
	if kind == scripts.KindCustomLED {
		color, err := s.customColor(req.Color)
		if err != nil {
			s.fail(c, err)
			return
		}
		opts.Color = color
	}

	def, err := tweaks.ScriptDefinition(kind, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	handle, err := s.deps.Scripts.Start(c.Request.Context(), def)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newScriptResponse(scripts.Status{
		Kind:      handle.Kind,
		State:     scripts.StateRunning,
		PID:       handle.PID,
		StartedAt: handle.StartedAt,
	}))
}

// customColor resolves the custom LED colour: the request's colour (which
// is then saved), else the saved colour, else white.
func (s *Server) customColor(req *colorRequest) (tweaks.Color, error) {
	if req != nil {
		color := tweaks.Color{R: req.R, G: req.G, B: req.B}
		if s.deps.Prefs != nil {
			if err := prefs.SaveLEDColor(s.deps.Prefs, color.R, color.G, color.B); err != nil {
				return tweaks.Color{}, err
			}
		}
		return color, nil
	}
	if s.deps.Prefs == nil {
		return tweaks.White, nil
	}
	r, g, b, err := prefs.LEDColor(s.deps.Prefs)
	if err != nil {
		return tweaks.Color{}, err
	}
	return tweaks.Color{R: r, G: g, B: b}, nil
}

func (s *Server) handleScriptStop(c *gin.Context) {
	kind, ok := s.scriptKind(c)
	if !ok {
		return
	}
	if err := s.deps.Scripts.Stop(c.Request.Context(), kind); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, scriptResponse{Kind: kind.Name, State: scripts.StateStopped.String()})
}

// =============================================================================
// Tweaks
// =============================================================================

func (s *Server) handleTweakList(c *gin.Context) {
	out := make([]toggleResponse, 0, len(tweaks.Toggles()))
	for _, t := range tweaks.Toggles() {
		r := toggleResponse{Name: t.Name, Description: t.Description}
		if s.deps.Tweaks != nil {
			on, err := s.deps.Tweaks.State(c.Request.Context(), t.Name)
			if err != nil {
				r.Error = err.Error()
			} else {
				r.On = &on
			}
		}
		out = append(out, r)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleTweakGet(c *gin.Context) {
	if s.deps.Tweaks == nil {
		unavailable(c, "tweaker")
		return
	}
	toggle, err := tweaks.LookupToggle(c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	on, err := s.deps.Tweaks.State(c.Request.Context(), toggle.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toggleResponse{Name: toggle.Name, Description: toggle.Description, On: &on})
}

func (s *Server) handleTweakSet(c *gin.Context) {
	if s.deps.Tweaks == nil {
		unavailable(c, "tweaker")
		return
	}
	var req tweakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	out, err := s.deps.Tweaks.Apply(c.Request.Context(), c.Param("name"), *req.Enabled)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(outcomeCode(out), outcomeResponse{Status: string(out.Status), Detail: out.Detail})
}

// =============================================================================
// CPU
// =============================================================================

func (s *Server) handleGovernorGet(c *gin.Context) {
	if s.deps.Tweaks == nil {
		unavailable(c, "tweaker")
		return
	}
	gov, err := s.deps.Tweaks.Governor(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"governor": gov})
}

func (s *Server) handleGovernorSet(c *gin.Context) {
	if s.deps.Tweaks == nil {
		unavailable(c, "tweaker")
		return
	}
	var req governorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	gov, err := tweaks.ParseGovernor(req.Governor)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := s.deps.Tweaks.SetGovernor(c.Request.Context(), gov)
	c.JSON(outcomeCode(out), outcomeResponse{Status: string(out.Status), Detail: out.Detail})
}

// =============================================================================
// Apps
// =============================================================================

func (s *Server) handleAppList(c *gin.Context) {
	type appResponse struct {
		Name        string `json:"name"`
		Source      string `json:"source"`
		Description string `json:"description"`
	}
	out := make([]appResponse, 0, len(release.Apps()))
	for _, a := range release.Apps() {
		out = append(out, appResponse{Name: a.Name, Source: a.Source(), Description: a.Description})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAppInstall(c *gin.Context) {
	if s.deps.Installer == nil {
		unavailable(c, "installer")
		return
	}
	app, err := release.LookupApp(c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var progress []string
	out := s.deps.Installer.Install(c.Request.Context(), app, func(line string) {
		progress = append(progress, line)
	})
	c.JSON(installCode(out), installResponse{
		App:      out.App,
		Status:   string(out.Status),
		Message:  out.Message,
		Release:  out.Release,
		Progress: progress,
	})
}

// =============================================================================
// Blocklist
// =============================================================================

func (s *Server) handleBlocklistCheck(c *gin.Context) {
	if s.deps.Blocker == nil {
		unavailable(c, "blocker")
		return
	}
	if strings.TrimSpace(c.Query("domain")) == "" {
		badRequest(c, errors.New("domain query parameter is required"))
		return
	}
	domain, err := validation.SanitizeDomain(c.Query("domain"))
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"domain":  domain,
		"blocked": s.deps.Blocker.IsBlocked(domain),
		"running": s.deps.Blocker.Running(),
		"domains": s.deps.Blocker.Len(),
	})
}

// =============================================================================
// Preferences
// =============================================================================

func (s *Server) handlePrefsList(c *gin.Context) {
	if s.deps.Prefs == nil {
		unavailable(c, "preference store")
		return
	}
	values, err := prefs.Effective(s.deps.Prefs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, values)
}

func (s *Server) handlePrefsSet(c *gin.Context) {
	if s.deps.Prefs == nil {
		unavailable(c, "preference store")
		return
	}
	var req prefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	info, err := prefs.LookupKey(c.Param("key"))
	if err != nil {
		s.fail(c, err)
		return
	}
	key := info.Name
	if err := prefs.SetText(s.deps.Prefs, key, req.Value); err != nil {
		s.fail(c, err)
		return
	}
	value, err := s.deps.Prefs.Get(key)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// =============================================================================
// Boot
// =============================================================================

func (s *Server) handleBoot(c *gin.Context) {
	if s.deps.Boot == nil {
		unavailable(c, "boot hook")
		return
	}
	c.JSON(http.StatusOK, s.deps.Boot.Run(c.Request.Context()))
}
