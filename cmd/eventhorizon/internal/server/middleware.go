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
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RequestIDHeader carries the request id.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "eventhorizon_http_request_duration_seconds",
	Help:    "Control API request duration by route and status",
	Buckets: prometheus.DefBuckets,
}, []string{"route", "status"})

// requestID reuses a well-formed incoming X-Request-ID or mints one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// accessLog logs one line per request.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(c.Request.Context(), level, "api request",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// requestMetrics records the Prometheus histogram and the OTel request
// counter.
func requestMetrics() gin.HandlerFunc {
	counter, err := otel.Meter("eventhorizon.server").Int64Counter(
		"eventhorizon.http.requests",
		metric.WithDescription("Control API requests"),
	)
	if err != nil {
		otel.Handle(err)
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := fmt.Sprintf("%d", c.Writer.Status())
		requestDuration.WithLabelValues(route, code).Observe(time.Since(start).Seconds())
		if counter != nil {
			counter.Add(c.Request.Context(), 1, metric.WithAttributes(
				attribute.String("http.route", route),
				attribute.String("http.status", code),
			))
		}
	}
}

// recover turns a handler panic into a 500.
func (s *Server) recover(c *gin.Context, err any) {
	s.logger.Error("api handler panicked",
		"request_id", c.GetString(requestIDKey),
		"path", c.Request.URL.Path,
		"panic", err,
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
