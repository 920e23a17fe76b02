// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scripts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("eventhorizon.scripts")

var (
	scriptStartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhorizon_script_starts_total",
			Help: "Managed script start attempts, by kind and result.",
		},
		[]string{"kind", "result"},
	)

	scriptStopsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhorizon_script_stops_total",
			Help: "Managed script instances stopped, by kind.",
		},
		[]string{"kind"},
	)
)

func recordStart(kind Kind, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	scriptStartsTotal.WithLabelValues(kind.Name, result).Inc()
}

func recordStop(kind Kind) {
	scriptStopsTotal.WithLabelValues(kind.Name).Inc()
}
