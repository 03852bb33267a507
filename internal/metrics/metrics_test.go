package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"mirrorvault/internal/metrics"
)

func TestRecordOutcome(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics.New: %v", err)
	}

	m.RecordOutcome("success", 2*time.Second, 3, 4096)
	m.RecordOutcome("success", 500*time.Millisecond, 0, 0)
	m.RecordOutcome("failed", 0, 0, 0)

	if got := counterValue(t, m.PairOutcomes, "success"); got != 2 {
		t.Fatalf("expected 2 successes, got %f", got)
	}
	if got := counterValue(t, m.PairOutcomes, "failed"); got != 1 {
		t.Fatalf("expected 1 failure, got %f", got)
	}
	count, sum := histogramValues(t, m.PairDuration, "success")
	if count != 2 || sum != 2.5 {
		t.Fatalf("unexpected histogram count=%d sum=%f", count, sum)
	}
	if got := plainValue(t, m.BytesTransferred).GetCounter().GetValue(); got != 4096 {
		t.Fatalf("expected 4096 bytes, got %f", got)
	}
	if got := plainValue(t, m.FilesCopied).GetCounter().GetValue(); got != 3 {
		t.Fatalf("expected 3 files, got %f", got)
	}
}

func TestGaugesAndTicks(t *testing.T) {
	m, err := metrics.New(nil)
	if err != nil {
		t.Fatalf("metrics.New: %v", err)
	}
	m.SetDaemonRunning(true)
	m.SetPairs(2, 1)
	m.RecordTick("schedule")
	m.RecordTick("schedule")
	m.RecordTick("manual")

	if got := plainValue(t, m.DaemonRunning).GetGauge().GetValue(); got != 1 {
		t.Fatalf("expected running gauge 1, got %f", got)
	}
	m.SetDaemonRunning(false)
	if got := plainValue(t, m.DaemonRunning).GetGauge().GetValue(); got != 0 {
		t.Fatalf("expected running gauge 0, got %f", got)
	}
	if got := counterValue(t, m.Ticks, "schedule"); got != 2 {
		t.Fatalf("expected 2 scheduled ticks, got %f", got)
	}

	var g dto.Metric
	if err := m.PairsConfigured.WithLabelValues("disabled").Write(&g); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if g.GetGauge().GetValue() != 1 {
		t.Fatalf("expected 1 disabled pair, got %f", g.GetGauge().GetValue())
	}
}

func TestDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := metrics.New(reg); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := metrics.New(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics.New: %v", err)
	}
	m.RecordOutcome("warning", time.Second, 0, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `mirrorvault_pair_outcomes_total{outcome="warning"} 1`) {
		t.Fatalf("metric missing from exposition:\n%s", body)
	}

	var nilMetrics *metrics.Metrics
	nilMetrics.RecordOutcome("success", time.Second, 1, 1)
	nilMetrics.SetDaemonRunning(true)
}

func counterValue(t *testing.T, counter *prometheus.CounterVec, label string) float64 {
	t.Helper()
	var m dto.Metric
	if err := counter.WithLabelValues(label).(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func histogramValues(t *testing.T, hist *prometheus.HistogramVec, label string) (uint64, float64) {
	t.Helper()
	var m dto.Metric
	if err := hist.WithLabelValues(label).(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func plainValue(t *testing.T, metric prometheus.Metric) *dto.Metric {
	t.Helper()
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return &m
}
