// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Admission metrics
	AdmissionDecisions *prometheus.CounterVec
	RuleFailures       *prometheus.CounterVec
	RouteVerdicts      *prometheus.CounterVec

	// Signal metrics
	SignalsIssued  prometheus.Counter
	SignalsRefused prometheus.Counter
	SignalsExpired prometheus.Counter

	// Exit metrics
	ExitChecks      prometheus.Counter
	PositionsClosed *prometheus.CounterVec
	PositionsHeld   *prometheus.CounterVec
	OpenPositions   prometheus.Gauge

	// Rate limit metrics
	RateLimited *prometheus.CounterVec

	// Latency metrics
	QuoteLatency prometheus.Histogram
	CycleLatency prometheus.Histogram

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
	LastSuccessfulPoll  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_trade_sentry"
	}

	return &Metrics{
		AdmissionDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "decisions_total",
			Help:      "Total admission decisions by verdict",
		}, []string{"verdict"}),
		RuleFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "rule_failures_total",
			Help:      "Total admission rejections by failing rule",
		}, []string{"rule"}),
		RouteVerdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "route",
			Name:      "verdicts_total",
			Help:      "Total route verifications by deciding source",
		}, []string{"source"}),

		SignalsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "issued_total",
			Help:      "Total trade signals issued",
		}),
		SignalsRefused: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "refused_total",
			Help:      "Total signals refused by the concurrency cap",
		}),
		SignalsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "expired_total",
			Help:      "Total signals expired past their TTL",
		}),

		ExitChecks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exit",
			Name:      "checks_total",
			Help:      "Total exit evaluations run",
		}),
		PositionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exit",
			Name:      "positions_closed_total",
			Help:      "Total positions closed by exit reason",
		}, []string{"reason"}),
		PositionsHeld: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exit",
			Name:      "positions_held_total",
			Help:      "Total fired exits held back by cause",
		}, []string{"cause"}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "exit",
			Name:      "open_positions",
			Help:      "Current number of open positions",
		}),

		RateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Total requests dropped by the rate limiter by scope",
		}, []string{"scope"}),

		QuoteLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "quote_latency_seconds",
			Help:      "Aggregator quote round trip latency",
			Buckets:   prometheus.DefBuckets,
		}),
		CycleLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "cycle_latency_seconds",
			Help:      "Admission cycle duration",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last successful admission cycle",
		}),
		LastSuccessfulPoll: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_poll_timestamp",
			Help:      "Unix timestamp of last successful exit poll",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAdmission records one admission decision.
func RecordAdmission(approved bool, failedRule string) {
	if approved {
		DefaultMetrics.AdmissionDecisions.WithLabelValues("approved").Inc()
		return
	}
	DefaultMetrics.AdmissionDecisions.WithLabelValues("rejected").Inc()
	if failedRule != "" {
		DefaultMetrics.RuleFailures.WithLabelValues(failedRule).Inc()
	}
}

// RecordRouteVerdict records the source that decided a route verification.
func RecordRouteVerdict(source string) {
	DefaultMetrics.RouteVerdicts.WithLabelValues(source).Inc()
}

// RecordSignalIssued increments the issued signals counter.
func RecordSignalIssued() {
	DefaultMetrics.SignalsIssued.Inc()
}

// RecordSignalRefused increments the refused signals counter.
func RecordSignalRefused() {
	DefaultMetrics.SignalsRefused.Inc()
}

// RecordSignalsExpired adds to the expired signals counter.
func RecordSignalsExpired(n int) {
	DefaultMetrics.SignalsExpired.Add(float64(n))
}

// RecordExitCheck increments the exit evaluations counter.
func RecordExitCheck() {
	DefaultMetrics.ExitChecks.Inc()
}

// RecordPositionClosed records a close by exit reason.
func RecordPositionClosed(reason string) {
	DefaultMetrics.PositionsClosed.WithLabelValues(reason).Inc()
}

// RecordPositionHeld records a fired exit that was held back.
func RecordPositionHeld(cause string) {
	DefaultMetrics.PositionsHeld.WithLabelValues(cause).Inc()
}

// UpdateOpenPositions sets the open positions gauge.
func UpdateOpenPositions(n int) {
	DefaultMetrics.OpenPositions.Set(float64(n))
}

// RecordRateLimited records a dropped request by scope.
func RecordRateLimited(scope string) {
	DefaultMetrics.RateLimited.WithLabelValues(scope).Inc()
}

// RecordQuoteLatency records aggregator quote latency.
func RecordQuoteLatency(seconds float64) {
	DefaultMetrics.QuoteLatency.Observe(seconds)
}

// RecordCycleLatency records admission cycle duration.
func RecordCycleLatency(seconds float64) {
	DefaultMetrics.CycleLatency.Observe(seconds)
}
