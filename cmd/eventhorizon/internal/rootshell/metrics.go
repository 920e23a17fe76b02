// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rootshell

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("eventhorizon.rootshell")

var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhorizon_root_commands_total",
			Help: "Privileged commands executed, by result status.",
		},
		[]string{"status"},
	)

	commandDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventhorizon_root_command_duration_seconds",
			Help:    "Wall time of privileged commands.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

func recordCommand(res Result) {
	commandsTotal.WithLabelValues(res.Status.String()).Inc()
	if res.Duration > 0 {
		commandDuration.Observe(res.Duration.Seconds())
	}
}
