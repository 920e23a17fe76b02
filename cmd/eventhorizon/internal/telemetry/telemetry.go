// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry configures OpenTelemetry for EventHorizon.
//
// Every package creates spans through otel.Tracer; until Init installs a
// provider those spans are no-ops. Init wires a trace exporter and a
// meter provider according to Config and returns a shutdown function
// that flushes both.
//
// # Exporters
//
// Traces: "stdout" writes JSON spans to a file (or any io.Writer), "otlp"
// ships them over gRPC, "none" disables tracing.
//
// Metrics: "prometheus" bridges OTel instruments into the Prometheus
// registry served at /metrics, "stdout" writes them periodically as JSON,
// "none" disables the OTel meter. Prometheus client metrics registered
// with promauto are always served regardless of this setting.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrNilContext is returned when Init is called with a nil context.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for an unrecognized exporter name.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")
)

// Exporter names.
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
)

// Config configures Init.
type Config struct {
	// ServiceName identifies this process in traces and metrics.
	ServiceName string

	// ServiceVersion is the build version.
	ServiceVersion string

	// TraceExporter is "stdout", "otlp" or "none".
	TraceExporter string

	// TraceFile receives stdout spans. Empty means TraceWriter, then stderr.
	TraceFile string

	// TraceWriter receives stdout spans when TraceFile is empty.
	TraceWriter io.Writer

	// OTLPEndpoint is the OTLP gRPC receiver.
	OTLPEndpoint string

	// OTLPInsecure disables TLS for OTLP.
	OTLPInsecure bool

	// MetricExporter is "prometheus", "stdout" or "none".
	MetricExporter string

	// MetricWriter receives stdout metrics. Nil means stderr.
	MetricWriter io.Writer

	// MetricInterval is the stdout metric export period. Zero means 60s.
	MetricInterval time.Duration

	// Registerer receives the Prometheus bridge. Nil means the default
	// registry.
	Registerer prometheus.Registerer
}

// DefaultConfig disables both exporters.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "eventhorizon",
		ServiceVersion: "dev",
		TraceExporter:  ExporterNone,
		MetricExporter: ExporterNone,
		OTLPEndpoint:   "localhost:4317",
		OTLPInsecure:   true,
	}
}

// Init installs the global tracer and meter providers.
//
// The returned shutdown flushes pending spans and metrics and closes the
// trace file. It is safe to call when nothing was installed.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	var shutdownFuncs []func(context.Context) error
	cleanup := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdownFuncs) - 1; i >= 0; i-- {
			if err := shutdownFuncs[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	ok := false
	defer func() {
		if !ok {
			_ = cleanup(ctx)
		}
	}()

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	if cfg.TraceExporter != "" && cfg.TraceExporter != ExporterNone {
		tp, closeOut, err := initTracer(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		if closeOut != nil {
			shutdownFuncs = append(shutdownFuncs, closeOut)
		}
		otel.SetTracerProvider(tp)
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	}

	if cfg.MetricExporter != "" && cfg.MetricExporter != ExporterNone {
		mp, err := initMeter(cfg, res)
		if err != nil {
			return nil, fmt.Errorf("init meter: %w", err)
		}
		otel.SetMeterProvider(mp)
		shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
	}

	ok = true
	return cleanup, nil
}

func initTracer(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, func(context.Context) error, error) {
	var (
		exporter trace.SpanExporter
		closeOut func(context.Context) error
		err      error
	)

	switch cfg.TraceExporter {
	case ExporterStdout:
		out := cfg.TraceWriter
		if cfg.TraceFile != "" {
			f, ferr := openTraceFile(cfg.TraceFile)
			if ferr != nil {
				return nil, nil, ferr
			}
			out = f
			closeOut = func(context.Context) error { return f.Close() }
		}
		if out == nil {
			out = os.Stderr
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(out))

	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}
	if err != nil {
		if closeOut != nil {
			_ = closeOut(ctx)
		}
		return nil, nil, fmt.Errorf("create exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.AlwaysSample()),
	)
	return tp, closeOut, nil
}

func initMeter(cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	switch cfg.MetricExporter {
	case ExporterPrometheus:
		reg := cfg.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		return metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(exporter),
		), nil

	case ExporterStdout:
		out := cfg.MetricWriter
		if out == nil {
			out = os.Stderr
		}
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(out))
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		interval := cfg.MetricInterval
		if interval <= 0 {
			interval = 60 * time.Second
		}
		return metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))),
		), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.MetricExporter)
	}
}

func openTraceFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return f, nil
}
