// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package boot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("eventhorizon.boot")

var actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "eventhorizon_boot_actions_total",
	Help: "Boot hook actions by name and status",
}, []string{"action", "status"})

func recordAction(a Action) {
	actionsTotal.WithLabelValues(a.Name, string(a.Status)).Inc()
}
