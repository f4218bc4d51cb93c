// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package metrics holds slothlet's Prometheus instrumentation: counters
// and histograms for invocations, hook dispatch, lazy materialization, and
// ownership mutations, registered lazily on first use the way the
// teacher's ingestion pipeline registers its own metric set.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var buckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

type registry struct {
	once sync.Once

	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	invocationErrors   *prometheus.CounterVec

	hooksFiredTotal *prometheus.CounterVec
	hookErrors      *prometheus.CounterVec

	materializationsTotal   *prometheus.CounterVec
	materializationDuration *prometheus.HistogramVec
	materializationErrors   *prometheus.CounterVec

	ownershipMutationsTotal *prometheus.CounterVec
	ownershipDenialsTotal   *prometheus.CounterVec
}

var m registry

func (r *registry) init() {
	r.once.Do(func() {
		r.invocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slothlet_invocations_total", Help: "Total leaf invocations, by path.",
		}, []string{"path"})
		r.invocationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "slothlet_invocation_duration_seconds", Help: "Leaf invocation duration, by path.", Buckets: buckets,
		}, []string{"path"})
		r.invocationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slothlet_invocation_errors_total", Help: "Leaf invocations that returned an error, by path and kind.",
		}, []string{"path", "kind"})

		r.hooksFiredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slothlet_hooks_fired_total", Help: "Hook handlers invoked, by subset.",
		}, []string{"subset"})
		r.hookErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slothlet_hook_errors_total", Help: "Hook handlers that returned an error, by subset.",
		}, []string{"subset"})

		r.materializationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slothlet_materializations_total", Help: "Lazy subtree materializations, by path.",
		}, []string{"path"})
		r.materializationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "slothlet_materialization_duration_seconds", Help: "Lazy subtree materialization duration, by path.", Buckets: buckets,
		}, []string{"path"})
		r.materializationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slothlet_materialization_errors_total", Help: "Lazy subtree materializations that failed, by path.",
		}, []string{"path"})

		r.ownershipMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slothlet_ownership_mutations_total", Help: "addApi/removeApi/reloadApi operations, by op.",
		}, []string{"op"})
		r.ownershipDenialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slothlet_ownership_denials_total", Help: "addApi calls rejected by Rule 12 cross-module gating.",
		}, []string{"path"})

		prometheus.MustRegister(
			r.invocationsTotal, r.invocationDuration, r.invocationErrors,
			r.hooksFiredTotal, r.hookErrors,
			r.materializationsTotal, r.materializationDuration, r.materializationErrors,
			r.ownershipMutationsTotal, r.ownershipDenialsTotal,
		)
	})
}

// RecordInvocation records one completed leaf invocation: its duration and,
// if errKind is non-empty, that it failed with that slotherr.Kind.
func RecordInvocation(path string, d time.Duration, errKind string) {
	m.init()
	m.invocationsTotal.WithLabelValues(path).Inc()
	m.invocationDuration.WithLabelValues(path).Observe(d.Seconds())
	if errKind != "" {
		m.invocationErrors.WithLabelValues(path, errKind).Inc()
	}
}

// RecordHook records one hook handler firing for subset, and whether it
// returned an error.
func RecordHook(subset string, failed bool) {
	m.init()
	m.hooksFiredTotal.WithLabelValues(subset).Inc()
	if failed {
		m.hookErrors.WithLabelValues(subset).Inc()
	}
}

// RecordMaterialization records one lazy subtree materialization at path.
func RecordMaterialization(path string, d time.Duration, failed bool) {
	m.init()
	m.materializationsTotal.WithLabelValues(path).Inc()
	m.materializationDuration.WithLabelValues(path).Observe(d.Seconds())
	if failed {
		m.materializationErrors.WithLabelValues(path).Inc()
	}
}

// RecordOwnershipMutation records one addApi/removeApi/reloadApi call.
func RecordOwnershipMutation(op string) {
	m.init()
	m.ownershipMutationsTotal.WithLabelValues(op).Inc()
}

// RecordOwnershipDenial records one addApi call rejected by Rule 12.
func RecordOwnershipDenial(path string) {
	m.init()
	m.ownershipDenialsTotal.WithLabelValues(path).Inc()
}
