// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OTP outcome labels.
const (
	ResultIssued          = "issued"
	ResultThrottled       = "throttled"
	ResultUnknownEmail    = "unknown_email"
	ResultError           = "error"
	ResultVerified        = "verified"
	ResultExpired         = "expired"
	ResultInvalid         = "invalid"
	ResultTooManyAttempts = "too_many_attempts"
)

// Recorder is what services and middleware report to.
type Recorder interface {
	RecordOTPRequest(result string)
	RecordOTPVerification(result string)
	RecordHTTPRequest(method, route string, status int, d time.Duration)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	otpRequests      *prometheus.CounterVec
	otpVerifications *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		otpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auirah_otp_requests_total",
			Help: "OTP issuance requests by outcome.",
		}, []string{"result"}),
		otpVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auirah_otp_verifications_total",
			Help: "OTP verification attempts by outcome.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auirah_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auirah_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.otpRequests,
		c.otpVerifications,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordOTPRequest(result string) {
	c.otpRequests.WithLabelValues(result).Inc()
}

func (c *Collector) RecordOTPVerification(result string) {
	c.otpVerifications.WithLabelValues(result).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordOTPRequest(string)                              {}
func (Nop) RecordOTPVerification(string)                         {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
