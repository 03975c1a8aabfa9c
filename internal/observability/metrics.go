// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Stream metrics
	NotificationsReceived *prometheus.CounterVec
	StreamRestarts        *prometheus.CounterVec

	// Decoder metrics
	TradeEventsDecoded prometheus.Counter
	DecodeErrors       *prometheus.CounterVec

	// Detector metrics
	BucketsSwept  prometheus.Counter
	AlarmsRaised  *prometheus.CounterVec
	AlarmsDropped prometheus.Counter
	WindowBuckets *prometheus.GaugeVec

	// Execution metrics
	BundlesSubmitted    *prometheus.CounterVec
	BundleOutcomes      *prometheus.CounterVec
	ConfirmationLatency prometheus.Histogram
	CurrentTipSOL       prometheus.Gauge
	RelayCallLatency    *prometheus.HistogramVec

	// Database metrics
	DBQueryErrors      *prometheus.CounterVec
	TradeEventsDropped prometheus.Counter

	// Health metrics
	LastNotification prometheus.Gauge
	LastTipUpdate    prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "dealer_scan"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Stream metrics
		NotificationsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "notifications_total",
			Help:      "Total number of log notifications received per monitor",
		}, []string{"monitor"}),
		StreamRestarts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "restarts_total",
			Help:      "Total number of supervised stream restarts",
		}, []string{"stream"}),

		// Decoder metrics
		TradeEventsDecoded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "trade_events_total",
			Help:      "Total number of trade events decoded",
		}),
		DecodeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "errors_total",
			Help:      "Total number of decode failures",
		}, []string{"kind"}),

		// Detector metrics
		BucketsSwept: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "buckets_swept_total",
			Help:      "Total number of time buckets evaluated and evicted",
		}),
		AlarmsRaised: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "alarms_total",
			Help:      "Total number of alarms raised",
		}, []string{"rule"}),
		AlarmsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "alarms_dropped_total",
			Help:      "Total number of alarms dropped because the execution queue was full",
		}),
		WindowBuckets: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "window_buckets",
			Help:      "Number of live time buckets in the statistics window",
		}, []string{"monitor"}),

		// Execution metrics
		BundlesSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "bundles_submitted_total",
			Help:      "Total number of bundles submitted to the relay",
		}, []string{"side"}),
		BundleOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "bundle_outcomes_total",
			Help:      "Terminal status of trade attempts",
		}, []string{"status"}),
		ConfirmationLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "confirmation_seconds",
			Help:      "Time from submission to terminal confirmation status",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 45, 60},
		}),
		CurrentTipSOL: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "tip_sol",
			Help:      "Most recent computed tip in SOL",
		}),
		RelayCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jito",
			Name:      "call_latency_seconds",
			Help:      "Latency of block engine JSON-RPC calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		TradeEventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "events_dropped_total",
			Help:      "Decoded trade events not recorded because the recorder buffer was full",
		}),

		// Health metrics
		LastNotification: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_notification_timestamp",
			Help:      "Unix timestamp of the last received notification",
		}),
		LastTipUpdate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_tip_update_timestamp",
			Help:      "Unix timestamp of the last tip percentile snapshot",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordNotification counts a log notification for a monitor.
func RecordNotification(monitor string) {
	DefaultMetrics.NotificationsReceived.WithLabelValues(monitor).Inc()
	DefaultMetrics.LastNotification.Set(float64(time.Now().Unix()))
}

// RecordStreamRestart counts a supervised restart of a stream.
func RecordStreamRestart(stream string) {
	DefaultMetrics.StreamRestarts.WithLabelValues(stream).Inc()
}

// RecordTradeEventDecoded increments the decoded trade events counter.
func RecordTradeEventDecoded() {
	DefaultMetrics.TradeEventsDecoded.Inc()
}

// RecordDecodeError records a decode failure.
func RecordDecodeError(kind string) {
	DefaultMetrics.DecodeErrors.WithLabelValues(kind).Inc()
}

// RecordSweep records evicted buckets and the remaining window size.
func RecordSweep(monitor string, evicted, remaining int) {
	DefaultMetrics.BucketsSwept.Add(float64(evicted))
	DefaultMetrics.WindowBuckets.WithLabelValues(monitor).Set(float64(remaining))
}

// RecordAlarm increments the alarms counter for a rule.
func RecordAlarm(rule string) {
	DefaultMetrics.AlarmsRaised.WithLabelValues(rule).Inc()
}

// RecordAlarmDropped increments the dropped alarms counter.
func RecordAlarmDropped() {
	DefaultMetrics.AlarmsDropped.Inc()
}

// RecordBundleSubmitted increments the bundles submitted counter.
func RecordBundleSubmitted(side string) {
	DefaultMetrics.BundlesSubmitted.WithLabelValues(side).Inc()
}

// RecordBundleOutcome records the terminal status of an attempt and its latency.
func RecordBundleOutcome(status string, elapsed time.Duration) {
	DefaultMetrics.BundleOutcomes.WithLabelValues(status).Inc()
	if elapsed > 0 {
		DefaultMetrics.ConfirmationLatency.Observe(elapsed.Seconds())
	}
}

// SetCurrentTip updates the current tip gauge.
func SetCurrentTip(sol float64) {
	DefaultMetrics.CurrentTipSOL.Set(sol)
}

// RecordTipUpdate marks a fresh tip snapshot.
func RecordTipUpdate() {
	DefaultMetrics.LastTipUpdate.Set(float64(time.Now().Unix()))
}

// ObserveRelayCall records the latency of a block engine call.
func ObserveRelayCall(method string, start time.Time) {
	DefaultMetrics.RelayCallLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// RecordDBError records a database error.
func RecordDBError(database, operation string) {
	DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
}

// RecordTradeEventDropped records a trade event the recorder could not buffer.
func RecordTradeEventDropped() {
	DefaultMetrics.TradeEventsDropped.Inc()
}
