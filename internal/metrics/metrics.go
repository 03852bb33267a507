// Package metrics exposes Prometheus instruments for pair executions, ticks,
// and daemon state. The daemon serves them at /metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mirrorvault"

// Metrics groups the registered collectors.
type Metrics struct {
	PairOutcomes     *prometheus.CounterVec
	PairDuration     *prometheus.HistogramVec
	BytesTransferred prometheus.Counter
	FilesCopied      prometheus.Counter
	Ticks            *prometheus.CounterVec
	DaemonRunning    prometheus.Gauge
	PairsConfigured  *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		PairOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pair_outcomes_total",
			Help:      "Finished pair executions by outcome.",
		}, []string{"outcome"}),
		PairDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pair_duration_seconds",
			Help:      "Wall time of one mirroring tool invocation.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"outcome"}),
		BytesTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_transferred_total",
			Help:      "Bytes reported copied by successful executions.",
		}),
		FilesCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_copied_total",
			Help:      "Files reported copied by successful executions.",
		}),
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Batch runs by trigger (schedule, manual, device).",
		}, []string{"trigger"}),
		DaemonRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daemon_running",
			Help:      "1 while the interval scheduler is running.",
		}),
		PairsConfigured: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pairs_configured",
			Help:      "Configured backup pairs by state.",
		}, []string{"state"}),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{
		m.PairOutcomes, m.PairDuration, m.BytesTransferred, m.FilesCopied,
		m.Ticks, m.DaemonRunning, m.PairsConfigured,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

// RecordOutcome counts one finished execution.
func (m *Metrics) RecordOutcome(outcome string, duration time.Duration, files, bytes int64) {
	if m == nil {
		return
	}
	m.PairOutcomes.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.PairDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	}
	if files > 0 {
		m.FilesCopied.Add(float64(files))
	}
	if bytes > 0 {
		m.BytesTransferred.Add(float64(bytes))
	}
}

// RecordTick counts one batch run.
func (m *Metrics) RecordTick(trigger string) {
	if m == nil {
		return
	}
	m.Ticks.WithLabelValues(trigger).Inc()
}

// SetDaemonRunning mirrors the scheduler state.
func (m *Metrics) SetDaemonRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.DaemonRunning.Set(1)
		return
	}
	m.DaemonRunning.Set(0)
}

// SetPairs publishes the enabled/disabled pair counts.
func (m *Metrics) SetPairs(enabled, disabled int) {
	if m == nil {
		return
	}
	m.PairsConfigured.WithLabelValues("enabled").Set(float64(enabled))
	m.PairsConfigured.WithLabelValues("disabled").Set(float64(disabled))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
