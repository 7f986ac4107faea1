// Package metrics declares the Prometheus collectors of both binaries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncCycles counts finished sync cycles by status (ok, partial, failed)
	SyncCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "impo_sync_cycles_total",
		Help: "Total number of sync cycles by result",
	}, []string{"status"})

	// SyncCycleDuration measures a full drain + pull cycle
	SyncCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "impo_sync_cycle_duration_seconds",
		Help:    "Duration of a sync cycle in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	// OutboxJobs counts drained outbox jobs.
	// status: sent, failed, skipped, discarded
	OutboxJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "impo_outbox_jobs_total",
		Help: "Outbox jobs processed by the drain phase",
	}, []string{"op", "status"})

	// OutboxBacklog number of jobs still pending after the last drain
	OutboxBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "impo_outbox_backlog",
		Help: "Current number of pending jobs in the local outbox",
	})

	// PulledRecords counts remote records by pull decision (applied, kept_local, kept_deleted)
	PulledRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "impo_pull_records_total",
		Help: "Remote records examined by the pull phase",
	}, []string{"result"})

	// Online 1 when the server answers health probes
	Online = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "impo_client_online",
		Help: "Connectivity to the server (1 online, 0 offline)",
	})

	// DocumentWrites counts server-side document writes
	DocumentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "impo_server_document_writes_total",
		Help: "Document writes handled by the server",
	}, []string{"op", "status"})
)
