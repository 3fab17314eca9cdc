// ABOUTME: Prometheus instruments for retries, connection state and health probes
// ABOUTME: Implements the observer hooks of the retry, supervisor and health packages
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harper/marcusbot/internal/retry"
	"github.com/harper/marcusbot/internal/supervisor"
)

const Namespace = "marcusbot"

// Metrics groups all Prometheus instruments used by the bot.
type Metrics struct {
	registry *prometheus.Registry

	Retries         *prometheus.CounterVec
	RetryDelay      *prometheus.HistogramVec
	Exhausted       *prometheus.CounterVec
	ConnectAttempts *prometheus.CounterVec
	SessionState    prometheus.Gauge
	HealthUp        prometheus.Gauge
}

// NewMetrics registers the instruments on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retries_total",
			Help:      "Retries scheduled by operation and failure class.",
		}, []string{"operation", "class"}),
		RetryDelay: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "retry_delay_seconds",
			Help:      "Wait before each retry in seconds.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 900},
		}, []string{"operation"}),
		Exhausted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retries_exhausted_total",
			Help:      "Operations that failed after their final attempt.",
		}, []string{"operation", "class"}),
		ConnectAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connect_attempts_total",
			Help:      "Chat platform connect attempts by outcome.",
		}, []string{"result"}),
		SessionState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "session_state",
			Help:      "Supervisor state (0 connecting, 1 connected, 2 disconnected, 3 reconnecting, 4 terminated).",
		}),
		HealthUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "health_up",
			Help:      "1 when the last outbound health probe succeeded.",
		}),
	}
}

func (m *Metrics) ObserveRetry(operation string, class retry.Class, _ int, delay time.Duration) {
	m.Retries.WithLabelValues(operation, class.String()).Inc()
	m.RetryDelay.WithLabelValues(operation).Observe(delay.Seconds())
}

func (m *Metrics) ObserveExhausted(operation string, class retry.Class) {
	m.Exhausted.WithLabelValues(operation, class.String()).Inc()
}

func (m *Metrics) ObserveState(state supervisor.State) {
	m.SessionState.Set(float64(state))
}

func (m *Metrics) ObserveConnectAttempt(kind string) {
	m.ConnectAttempts.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveHealth(up bool) {
	if up {
		m.HealthUp.Set(1)
		return
	}
	m.HealthUp.Set(0)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
