// Package metrics exports sync engine counters to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prudhvinik1/deltasync/internal/models"
)

const namespace = "deltasync"

type SyncMetrics struct {
	applied    *prometheus.CounterVec
	conflicted *prometheus.CounterVec
	failed     *prometheus.CounterVec
	syncs      *prometheus.CounterVec
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_applied_total",
			Help:      "Client changes applied to the store.",
		}, []string{"entity_type"}),
		conflicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_conflicted_total",
			Help:      "Client changes that hit a version conflict.",
		}, []string{"entity_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_failed_total",
			Help:      "Client changes that failed with an error.",
		}, []string{"entity_type"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_requests_total",
			Help:      "Sync round trips by outcome.",
		}, []string{"entity_type", "outcome"}),
	}
	reg.MustRegister(m.applied, m.conflicted, m.failed, m.syncs)
	return m
}

// RecordBatch implements the audit sink contract of the sync services.
func (m *SyncMetrics) RecordBatch(_ context.Context, entry models.AuditEntry) {
	m.applied.WithLabelValues(entry.EntityType).Add(float64(entry.AppliedCount))
	m.conflicted.WithLabelValues(entry.EntityType).Add(float64(entry.ConflictCount))
	m.failed.WithLabelValues(entry.EntityType).Add(float64(entry.ErrorCount))
}

// ObserveSync counts one round trip; outcome is "ok", "partial" or "error".
func (m *SyncMetrics) ObserveSync(entityType, outcome string) {
	m.syncs.WithLabelValues(entityType, outcome).Inc()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
