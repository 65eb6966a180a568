package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. A nil *Metrics records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	authOutcomes  *prometheus.CounterVec
	outboxEvents  *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maijjd_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maijjd_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		authOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maijjd_auth_outcomes_total",
				Help: "Auth flow results by operation and response code",
			},
			[]string{"operation", "code"},
		),
		outboxEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maijjd_outbox_events_total",
				Help: "Outbox rows handled by the relay, by result",
			},
			[]string{"result"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maijjd_notifications_total",
				Help: "Email and SMS deliveries by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) AuthOutcome(operation, code string) {
	if m == nil {
		return
	}
	m.authOutcomes.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) OutboxBatch(published, failed, deadLettered int) {
	if m == nil {
		return
	}
	m.outboxEvents.WithLabelValues("published").Add(float64(published))
	m.outboxEvents.WithLabelValues("failed").Add(float64(failed))
	m.outboxEvents.WithLabelValues("dead_lettered").Add(float64(deadLettered))
}

func (m *Metrics) Notification(channel, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, outcome).Inc()
}

// observeRequest records one served request under its chi route pattern.
func (m *Metrics) observeRequest(method, route string, statusCode int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
