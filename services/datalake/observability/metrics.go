// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the data lake ETL
// pipeline: fetch outcomes, cache behavior, and load-cycle duration.
//
// Metrics are exposed via the /metrics endpoint. All operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "climatelake"
	etlSubsystem     = "etl"
)

// ETLMetrics holds all Prometheus metrics for load-cycle monitoring.
// Initialize once at startup via InitMetrics().
type ETLMetrics struct {
	// IndicatorsLoaded counts indicators resolved per load cycle.
	// Labels: source (cache, fetch), status (ok, empty)
	IndicatorsLoaded *prometheus.CounterVec

	// FetchFailures counts fetches that degraded to an empty record set.
	FetchFailures prometheus.Counter

	// LoadDurationSeconds measures full load-cycle duration.
	LoadDurationSeconds prometheus.Histogram

	// TablesLoaded gauges the indicator tables currently in memory,
	// growth tables included.
	TablesLoaded prometheus.Gauge

	// CacheWrites counts cache write-backs after a load cycle.
	CacheWrites prometheus.Counter
}

// NewETLMetrics creates and registers the metric set against reg.
// Tests pass prometheus.NewRegistry() to avoid global state.
func NewETLMetrics(reg prometheus.Registerer) *ETLMetrics {
	factory := promauto.With(reg)
	return &ETLMetrics{
		IndicatorsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: etlSubsystem,
			Name:      "indicators_loaded_total",
			Help:      "Indicators resolved per load cycle by source and status.",
		}, []string{"source", "status"}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: etlSubsystem,
			Name:      "fetch_failures_total",
			Help:      "Indicator fetches that degraded to an empty record set.",
		}),
		LoadDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: etlSubsystem,
			Name:      "load_duration_seconds",
			Help:      "Full load-cycle duration.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		TablesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: etlSubsystem,
			Name:      "tables_loaded",
			Help:      "Indicator tables currently held in memory.",
		}),
		CacheWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: etlSubsystem,
			Name:      "cache_writes_total",
			Help:      "Cache write-backs performed after load cycles.",
		}),
	}
}

// DefaultMetrics is the singleton instance used by the service.
var DefaultMetrics *ETLMetrics

var initOnce sync.Once

// InitMetrics initializes DefaultMetrics against the default registry.
// Safe to call more than once; only the first call registers.
func InitMetrics() *ETLMetrics {
	initOnce.Do(func() {
		DefaultMetrics = NewETLMetrics(prometheus.DefaultRegisterer)
	})
	return DefaultMetrics
}
