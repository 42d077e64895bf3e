// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records the trust-boundary metrics: login outcomes, share-gate
// refusals, and request latency.
type Collector struct {
	loginSuccess  prometheus.Counter
	loginFailure  *prometheus.CounterVec
	gateRefusals  *prometheus.CounterVec
	shareDownload prometheus.Counter
	httpStatus    *prometheus.CounterVec
	latency       prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "openvault_login_success_total",
			Help: "Total number of successful logins.",
		}),
		loginFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openvault_login_failure_total",
			Help: "Total number of failed logins by reason code.",
		}, []string{"reason"}),
		gateRefusals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openvault_share_gate_refusal_total",
			Help: "Total number of share-link gate refusals by reason code.",
		}, []string{"reason"}),
		shareDownload: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "openvault_share_download_total",
			Help: "Total number of issued share download handles.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openvault_http_status_total",
			Help: "Total responses by HTTP status code.",
		}, []string{"status_code"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "openvault_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFailure,
		c.gateRefusals,
		c.shareDownload,
		c.httpStatus,
		c.latency,
	)

	return c
}

// RecordLoginSuccess counts a successful login.
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure counts a failed login by refusal reason.
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFailure.WithLabelValues(reason).Inc()
}

// RecordGateRefusal counts a share-gate refusal by reason.
func (c *Collector) RecordGateRefusal(reason string) {
	c.gateRefusals.WithLabelValues(reason).Inc()
}

// RecordShareDownload counts an issued download handle.
func (c *Collector) RecordShareDownload() {
	c.shareDownload.Inc()
}

// RecordHTTPStatus counts a response by status code.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordLatency records one request duration.
func (c *Collector) RecordLatency(d time.Duration) {
	c.latency.Observe(d.Seconds())
}

// Handler returns the /metrics endpoint for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
