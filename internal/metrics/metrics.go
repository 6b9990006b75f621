// Package metrics collects Prometheus metrics for the authentication pipeline
// and exposes them for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth outcomes recorded once per request by the authentication middleware.
const (
	OutcomeAuthenticated = "authenticated"
	OutcomeRenewed       = "renewed"
	OutcomeEmpty         = "empty"
	OutcomeMalformed     = "malformed"
	OutcomeBadSignature  = "invalid_signature"
	OutcomeRenewFailed   = "renew_failed"
)

// Collector is the Prometheus implementation used by the server and the
// session store decorator.
type Collector struct {
	authOutcomes *prometheus.CounterVec
	logins       *prometheus.CounterVec
	storeOps     *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
	rateLimited  prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_auth_requests_total",
			Help: "Requests seen by the authentication middleware, by outcome",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_auth_logins_total",
			Help: "Session creation attempts, by result",
		}, []string{"result"}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_store_operations_total",
			Help: "Session store calls, by operation and result",
		}, []string{"op", "result"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "session_store_latency_seconds",
			Help:    "Session store call latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_auth_rate_limited_total",
			Help: "Login requests rejected by the rate limiter",
		}),
	}

	reg.MustRegister(
		c.authOutcomes,
		c.logins,
		c.storeOps,
		c.storeLatency,
		c.rateLimited,
	)

	return c
}

func (c *Collector) RecordAuthOutcome(outcome string) {
	c.authOutcomes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordStoreOp satisfies sessions.OpRecorder.
func (c *Collector) RecordStoreOp(op, result string, duration time.Duration) {
	c.storeOps.WithLabelValues(op, result).Inc()
	c.storeLatency.WithLabelValues(op).Observe(duration.Seconds())
}

func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
