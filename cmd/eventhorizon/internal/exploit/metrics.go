// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package exploit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("eventhorizon.exploit")

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventhorizon_exploit_runs_total",
		Help: "Exploit runs by result",
	}, []string{"result"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eventhorizon_exploit_run_duration_seconds",
		Help:    "Exploit run duration",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	})
)

func recordRun(err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	runsTotal.WithLabelValues(result).Inc()
	runDuration.Observe(d.Seconds())
}
