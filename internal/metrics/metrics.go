package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Entitlement metrics
	ResolutionsTotal      *prometheus.CounterVec
	ResolutionDuration    prometheus.Histogram
	OverridesGrantedTotal prometheus.Counter
	DenialsTotal          *prometheus.CounterVec

	// Billing metrics
	WebhookEventsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on registry, together with the Go
// runtime and process collectors.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "designpulse_entitlement_resolutions_total",
				Help: "Entitlement resolutions by outcome",
			},
			[]string{"outcome"},
		),
		ResolutionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "designpulse_entitlement_resolution_seconds",
				Help:    "Time spent resolving an entitlement, store reads included",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),
		OverridesGrantedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "designpulse_entitlement_overrides_granted_total",
				Help: "Feature overrides granted by administrators",
			},
		),
		DenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "designpulse_entitlement_denials_total",
				Help: "Requests refused by an entitlement gate",
			},
			[]string{"capability"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "designpulse_stripe_webhook_events_total",
				Help: "Stripe webhook events by type and result",
			},
			[]string{"type", "result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "designpulse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "designpulse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.OverridesGrantedTotal,
		m.DenialsTotal,
		m.WebhookEventsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveResolution implements entitlement.Recorder.
func (m *Metrics) ObserveResolution(outcome string, d time.Duration) {
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
	m.ResolutionDuration.Observe(d.Seconds())
}

// OverrideGranted implements entitlement.Recorder. Feature names are free
// text, so they are not used as a label.
func (m *Metrics) OverrideGranted(string) {
	m.OverridesGrantedTotal.Inc()
}

func (m *Metrics) Denied(capability string) {
	m.DenialsTotal.WithLabelValues(capability).Inc()
}

func (m *Metrics) WebhookEvent(eventType, result string) {
	m.WebhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		route := c.Route().Path
		m.HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
