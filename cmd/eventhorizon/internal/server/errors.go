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

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/prefs"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/release"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/scripts"
	"github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/tweaks"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var held *scripts.ErrLockHeld
	switch {
	case errors.Is(err, scripts.ErrUnknownKind),
		errors.Is(err, tweaks.ErrUnknownToggle),
		errors.Is(err, release.ErrUnknownApp),
		errors.Is(err, prefs.ErrUnknownKey):
		return http.StatusNotFound
	case errors.Is(err, tweaks.ErrUnknownGovernor),
		errors.Is(err, prefs.ErrInvalidValue),
		errors.Is(err, scripts.ErrEmptyScript):
		return http.StatusBadRequest
	case errors.As(err, &held):
		return http.StatusConflict
	case errors.Is(err, tweaks.ErrUnrecognizedFormat):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail renders err.
func (s *Server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Warn("api request failed",
			"request_id", c.GetString(requestIDKey),
			"path", c.Request.URL.Path,
			"error", err,
		)
	}
	c.AbortWithStatusJSON(code, errorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func unavailable(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: what + " not configured"})
}

// outcomeCode maps a tweak outcome onto an HTTP status.
func outcomeCode(o tweaks.Outcome) int {
	switch o.Status {
	case tweaks.OutcomeApplied:
		return http.StatusOK
	case tweaks.OutcomeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusBadGateway
	}
}

// installCode maps an install outcome onto an HTTP status.
func installCode(o release.Outcome) int {
	switch o.Status {
	case release.InstallSucceeded:
		return http.StatusOK
	case release.InstallNoAPK:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
