package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveCalls       prometheus.Gauge
	CallEvents        *prometheus.CounterVec
	DialFailures      *prometheus.CounterVec
	AnalysisOutcomes  *prometheus.CounterVec
	PersistFailures   prometheus.Counter
	CallDuration      prometheus.Histogram
	DialAnswerLatency prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveCalls: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_calls",
			Help:      "Number of outbound calls currently in flight.",
		}),
		CallEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_events_total",
			Help:      "Call lifecycle events by state.",
		}, []string{"event"}),
		DialFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dial_failures_total",
			Help:      "Failed dial attempts by provider error code.",
		}, []string{"code"}),
		AnalysisOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_outcomes_total",
			Help:      "Transcript analysis results by outcome.",
		}, []string{"outcome"}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_persist_failures_total",
			Help:      "Transcript writes that failed at call teardown.",
		}),
		CallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of completed calls in seconds.",
			Buckets:   []float64{15, 30, 60, 120, 180, 300, 600, 1200},
		}),
		DialAnswerLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dial_answer_latency_ms",
			Help:      "Latency from dial request to callee answer in milliseconds.",
			Buckets:   []float64{1000, 2500, 5000, 10000, 15000, 20000, 30000, 45000},
		}),
	}
}

func (m *Metrics) ObserveDialAnswerLatency(d time.Duration) {
	m.DialAnswerLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveCallDuration(d time.Duration) {
	m.CallDuration.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
