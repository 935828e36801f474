package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics exposes request counters and latency histograms to Prometheus
type HTTPMetrics struct {
	service  string
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	category *prometheus.CounterVec
}

// NewHTTPMetrics registers the HTTP collectors on reg
func NewHTTPMetrics(service string, reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		service: service,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method", "path", "status"},
		),
		category: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_status_category_total",
				Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
			},
			[]string{"service", "category"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.category)
	return m
}

// Observe records one finished request
func (m *HTTPMetrics) Observe(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	statusStr := strconv.Itoa(status)
	m.requests.WithLabelValues(m.service, method, path, statusStr).Inc()
	m.duration.WithLabelValues(m.service, method, path, statusStr).Observe(elapsed.Seconds())

	switch {
	case status >= 200 && status < 300:
		m.category.WithLabelValues(m.service, "2xx").Inc()
	case status >= 400 && status < 500:
		m.category.WithLabelValues(m.service, "4xx").Inc()
	case status >= 500:
		m.category.WithLabelValues(m.service, "5xx").Inc()
	}
}

// DomainMetrics counts marketplace events. A nil *DomainMetrics is a no-op.
type DomainMetrics struct {
	messagesSent    prometheus.Counter
	publishFailures prometheus.Counter
	reviewsApplied  *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
}

// NewDomainMetrics registers the domain collectors on reg
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	m := &DomainMetrics{
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_messages_sent_total",
			Help: "Direct messages persisted",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_realtime_publish_failures_total",
			Help: "Realtime notifications that could not be published",
		}),
		reviewsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_reviews_applied_total",
			Help: "Review mutations applied to provider aggregates",
		}, []string{"operation"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_auth_failures_total",
			Help: "Rejected logins and tokens",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.messagesSent, m.publishFailures, m.reviewsApplied, m.authFailures)
	return m
}

func (m *DomainMetrics) MessageSent(ctx context.Context) {
	if m != nil {
		m.messagesSent.Inc()
	}
}

func (m *DomainMetrics) PublishFailed(ctx context.Context) {
	if m != nil {
		m.publishFailures.Inc()
	}
}

func (m *DomainMetrics) ReviewApplied(ctx context.Context, operation string) {
	if m != nil {
		m.reviewsApplied.WithLabelValues(operation).Inc()
	}
}

func (m *DomainMetrics) AuthFailed(ctx context.Context, reason string) {
	if m != nil {
		m.authFailures.WithLabelValues(reason).Inc()
	}
}

// PrometheusHandler returns the scrape endpoint for the gatherer
func PrometheusHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
