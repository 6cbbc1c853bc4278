// Package observability provides Prometheus metrics for a single run.
//
// The process is short-lived, so nothing is served over HTTP: the registry is
// written once at exit to a node_exporter textfile.
package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nftbot"

// Metrics holds the run counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	EventsFetched *prometheus.CounterVec
	EventsDeduped *prometheus.CounterVec
	EventsSkipped *prometheus.CounterVec
	Deliveries    *prometheus.CounterVec
	LedgerWrites  *prometheus.CounterVec

	RunDuration prometheus.Gauge
	LastSuccess prometheus.Gauge
}

// NewMetrics registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		EventsFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_fetched_total",
			Help:      "Candidate events returned by the marketplace",
		}, []string{"kind"}),
		EventsDeduped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_deduped_total",
			Help:      "Events skipped because the ledger already had them",
		}, []string{"kind"}),
		EventsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_skipped_total",
			Help:      "Events dropped before delivery, by reason",
		}, []string{"kind", "reason"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivery attempts per destination and result",
		}, []string{"kind", "destination", "result"}),
		LedgerWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_writes_total",
			Help:      "Identifiers recorded in the ledger",
		}, []string{"kind"}),
		RunDuration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that finished without error",
		}),
	}
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) Fetched(kind string, n int) {
	if m == nil {
		return
	}
	m.EventsFetched.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) Deduped(kind string) {
	if m == nil {
		return
	}
	m.EventsDeduped.WithLabelValues(kind).Inc()
}

func (m *Metrics) Skipped(kind, reason string) {
	if m == nil {
		return
	}
	m.EventsSkipped.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) Delivery(kind, destination string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.Deliveries.WithLabelValues(kind, destination, result).Inc()
}

func (m *Metrics) Recorded(kind string) {
	if m == nil {
		return
	}
	m.LedgerWrites.WithLabelValues(kind).Inc()
}

// Finish stamps the run duration and, on success, the last-success time.
func (m *Metrics) Finish(start time.Time, err error) {
	if m == nil {
		return
	}
	m.RunDuration.Set(time.Since(start).Seconds())
	if err == nil {
		m.LastSuccess.SetToCurrentTime()
	}
}

// WriteTextfile writes the registry in text exposition format. The write is
// atomic (tmp file + rename), which the textfile collector requires.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics dir: %w", err)
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
