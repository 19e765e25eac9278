// Package metrics provides Prometheus metrics for the transfer engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	connectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferryman_connects_total",
			Help: "Connection attempts by protocol and outcome",
		},
		[]string{"protocol", "outcome"},
	)

	transfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferryman_transfers_total",
			Help: "Finished transfers by direction and terminal status",
		},
		[]string{"direction", "status"},
	)

	transferBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferryman_transfer_bytes_total",
			Help: "Bytes moved by direction",
		},
		[]string{"direction"},
	)

	activeTransfers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferryman_active_transfers",
			Help: "Transfers currently in the running state",
		},
	)

	queuedTransfers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferryman_queued_transfers",
			Help: "Transfers waiting in the pending queue",
		},
	)

	refreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ferryman_refresh_duration_seconds",
			Help:    "Directory refresh duration",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordConnect counts a connection attempt.
func RecordConnect(protocol string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	connectsTotal.WithLabelValues(protocol, outcome).Inc()
}

// RecordTransfer counts a transfer reaching a terminal status.
func RecordTransfer(direction, status string) {
	transfersTotal.WithLabelValues(direction, status).Inc()
}

// AddTransferBytes accumulates moved bytes.
func AddTransferBytes(direction string, n int64) {
	if n > 0 {
		transferBytes.WithLabelValues(direction).Add(float64(n))
	}
}

// SetActiveTransfers updates the running-transfer gauge.
func SetActiveTransfers(n int) {
	activeTransfers.Set(float64(n))
}

// SetQueuedTransfers updates the pending-queue gauge.
func SetQueuedTransfers(n int) {
	queuedTransfers.Set(float64(n))
}

// ObserveRefresh records one directory refresh.
func ObserveRefresh(d time.Duration) {
	refreshDuration.Observe(d.Seconds())
}

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
