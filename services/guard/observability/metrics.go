// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the guard service.
//
// # Description
//
// Metrics cover the detection pipeline end to end:
//   - Token throughput (tokens observed across all streams)
//   - Trigger counts (streams stopped for repetition)
//   - Active guard gauge (live streams being tracked)
//   - Observe batch latency
//   - HTTP request counters by endpoint and status
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting on trigger rates: a sudden spike in
// repguard_guard_triggers_total usually means a model or sampling
// regression upstream, not a guard problem.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics.
const metricsNamespace = "repguard"

// Subsystem for guard pipeline metrics.
const guardSubsystem = "guard"

// Metrics holds all Prometheus metrics for the guard service.
//
// # Fields
//
//   - TokensObservedTotal: Counter of tokens fed through guards
//   - TriggersTotal: Counter of repetition triggers
//   - ActiveGuards: Gauge of live per-stream guards
//   - ObserveDurationSeconds: Histogram of observe batch latency
//   - RequestsTotal: Counter of HTTP requests by endpoint and status
//   - AbortsTotal: Counter of abort requests emitted by the processor
//
// # Thread Safety
//
// All operations are thread-safe.
type Metrics struct {
	// TokensObservedTotal counts every non-absent token fed to a guard.
	TokensObservedTotal prometheus.Counter

	// TriggersTotal counts streams that crossed a repetition threshold.
	TriggersTotal prometheus.Counter

	// ActiveGuards tracks the number of streams currently tracked.
	ActiveGuards prometheus.Gauge

	// ObserveDurationSeconds measures observe batch duration.
	// Labels: endpoint (observe, processor)
	ObserveDurationSeconds *prometheus.HistogramVec

	// RequestsTotal counts HTTP requests.
	// Labels: endpoint (observe, release, stats), status (HTTP status code)
	RequestsTotal *prometheus.CounterVec

	// AbortsTotal counts abort requests the batch processor handed back
	// to the engine.
	AbortsTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance registered on the default
// Prometheus registry. Initialized by InitMetrics.
var DefaultMetrics *Metrics

var initOnce sync.Once

// InitMetrics initializes and returns the default metrics instance.
//
// Safe to call more than once; registration happens exactly once on the
// default registry. Call at service startup before the first request.
func InitMetrics() *Metrics {
	initOnce.Do(func() {
		DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return DefaultMetrics
}

// NewMetrics creates and registers a metrics instance on reg.
//
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate
// registration panics across test cases.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TokensObservedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: guardSubsystem,
			Name:      "tokens_observed_total",
			Help:      "Total tokens fed through repetition guards",
		}),

		TriggersTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: guardSubsystem,
			Name:      "triggers_total",
			Help:      "Total streams stopped for degenerate repetition",
		}),

		ActiveGuards: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: guardSubsystem,
			Name:      "active_guards",
			Help:      "Number of streams currently tracked by a guard",
		}),

		ObserveDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: guardSubsystem,
			Name:      "observe_duration_seconds",
			Help:      "Observe batch duration in seconds",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0},
		}, []string{"endpoint"}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: guardSubsystem,
			Name:      "requests_total",
			Help:      "Total HTTP requests by endpoint and status",
		}, []string{"endpoint", "status"}),

		AbortsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: guardSubsystem,
			Name:      "aborts_total",
			Help:      "Total abort requests emitted to the engine",
		}),
	}
}
