// Package metrics collects Prometheus metrics for requests and the provisioning workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provisioning outcomes.
const (
	OutcomeSuccess        = "success"
	OutcomeIdentityFailed = "identity_failed"
	OutcomeInsertFailed   = "insert_failed"
)

// Best-effort steps whose failures are counted but never surfaced.
const (
	StepPictureUpload  = "picture_upload"
	StepMetadataMirror = "metadata_mirror"
	StepEmailLog       = "email_log"
	StepCompensation   = "compensation"
)

// Recorder is what handlers, services and workers report to.
type Recorder interface {
	RecordHTTPRequest(method, route string, status int, latency time.Duration)
	RecordProvisioning(outcome string)
	RecordBestEffortFailure(step string)
	RecordNotification(sent bool)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordProvisioning(string)                            {}
func (Nop) RecordBestEffortFailure(string)                       {}
func (Nop) RecordNotification(bool)                              {}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	provisioning  *prometheus.CounterVec
	bestEffort    *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talentdesk_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "talentdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		provisioning: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talentdesk_artist_provisioning_total",
			Help: "Artist provisioning attempts by outcome.",
		}, []string{"outcome"}),
		bestEffort: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talentdesk_best_effort_failures_total",
			Help: "Failures of secondary steps that do not fail the request.",
		}, []string{"step"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talentdesk_notifications_total",
			Help: "Welcome notifications by delivery result.",
		}, []string{"result"}),
	}
	reg.MustRegister(c.requests, c.latency, c.provisioning, c.bestEffort, c.notifications)
	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, latency time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(route).Observe(latency.Seconds())
}

func (c *Collector) RecordProvisioning(outcome string) {
	c.provisioning.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordBestEffortFailure(step string) {
	c.bestEffort.WithLabelValues(step).Inc()
}

func (c *Collector) RecordNotification(sent bool) {
	result := "sent"
	if !sent {
		result = "failed"
	}
	c.notifications.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
