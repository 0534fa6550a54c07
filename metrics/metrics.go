// Package metrics registers the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PicksTotal counts applied picks by impact label
	PicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prism_picks_total",
		Help: "Total alternative picks by impact label",
	}, []string{"impact"})

	// ResolvesTotal counts whole-document strategy resolutions
	ResolvesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prism_resolves_total",
		Help: "Total apply-strategy-to-all requests",
	})

	// SharesTotal counts share tokens issued
	SharesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prism_shares_total",
		Help: "Total share tokens issued",
	})

	// DecodeSkippedSegments counts token segments that failed to parse
	DecodeSkippedSegments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prism_decode_skipped_segments_total",
		Help: "Share token segments skipped because they were not integers",
	})

	// DocumentAnomalies counts sanitizer findings by field
	DocumentAnomalies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prism_document_anomalies_total",
		Help: "Document anomalies found while loading, by field",
	}, []string{"field"})

	// PersistenceErrors counts failed key-value operations by op
	PersistenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prism_persistence_errors_total",
		Help: "Selection persistence failures by operation",
	}, []string{"op"})

	// ExportJobs counts finished export jobs by status
	ExportJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prism_export_jobs_total",
		Help: "Export jobs by final status",
	}, []string{"status"})
)
