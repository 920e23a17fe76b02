// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package blocklist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("eventhorizon.blocklist")

var (
	domainsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eventhorizon_blocklist_domains",
		Help: "Number of domains in the active blocklist",
	})

	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventhorizon_blocklist_lookups_total",
		Help: "Blocklist lookups by result",
	}, []string{"result"})

	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventhorizon_blocklist_loads_total",
		Help: "Blocklist loads by source and result",
	}, []string{"source", "result"})

	linesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventhorizon_blocklist_lines_skipped_total",
		Help: "Hosts lines dropped for exceeding the line length bound",
	})
)

func recordLookup(blocked bool) {
	if blocked {
		lookupsTotal.WithLabelValues("blocked").Inc()
		return
	}
	lookupsTotal.WithLabelValues("allowed").Inc()
}

func recordLoad(source string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	loadsTotal.WithLabelValues(source, result).Inc()
}
