// Package metrics exposes the pipeline's append-only counters and
// gauges for the external monitor, one promauto var per series with a
// small Record* helper alongside.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============ Feed connection metrics ============

var FeedConnectionStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "arbwatch",
		Subsystem: "feed",
		Name:      "connection_status",
		Help:      "Feed connection status (1=connected, 0=disconnected)",
	},
	[]string{"feed"}, // cex, dex
)

var ReconnectAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbwatch",
		Subsystem: "feed",
		Name:      "reconnect_attempts_total",
		Help:      "Number of reconnect attempts by feed",
	},
	[]string{"feed"},
)

var ReconnectExhausted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbwatch",
		Subsystem: "feed",
		Name:      "reconnect_exhausted_total",
		Help:      "Number of times a feed's reconnect policy was exhausted",
	},
	[]string{"feed"},
)

var ProviderFailovers = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbwatch",
		Subsystem: "dex_feed",
		Name:      "provider_failovers_total",
		Help:      "Number of times the DEX feed advanced to the next RPC provider",
	},
	[]string{"provider"},
)

var ParseErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbwatch",
		Subsystem: "feed",
		Name:      "parse_errors_total",
		Help:      "Number of message parse errors by feed",
	},
	[]string{"feed"},
)

var PoolDecodeErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbwatch",
		Subsystem: "dex_feed",
		Name:      "pool_decode_errors_total",
		Help:      "Number of pool account decode failures",
	},
	[]string{"path"}, // strict, fallback
)

var PoolDecodeFallbacks = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbwatch",
		Subsystem: "dex_feed",
		Name:      "pool_decode_fallbacks_total",
		Help:      "Number of pool decodes that used the tolerant offset-based fallback path",
	},
)

// ============ Store / detector metrics ============

var PriceUpdatesReceived = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbwatch",
		Subsystem: "store",
		Name:      "price_updates_total",
		Help:      "Total price updates pushed into the store by source",
	},
	[]string{"source"},
)

var DetectorChecks = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbwatch",
		Subsystem: "detector",
		Name:      "checks_total",
		Help:      "Total detector ticks whose price pair passed validation",
	},
)

var DetectorValidationErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbwatch",
		Subsystem: "detector",
		Name:      "validation_errors_total",
		Help:      "Detector validation failures by kind",
	},
	[]string{"kind"}, // stale, invalid_price
)

var OpportunitiesDetected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbwatch",
		Subsystem: "detector",
		Name:      "opportunities_total",
		Help:      "Opportunities seen by the detector",
	},
	[]string{"triggered"}, // yes, no
)

var SpreadObservedPct = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "arbwatch",
		Subsystem: "detector",
		Name:      "spread_observed_percent",
		Help:      "Observed spread percentage per validated check",
		Buckets:   []float64{-1, -0.5, 0, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
	},
)

var DetectorState = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "arbwatch",
		Subsystem: "detector",
		Name:      "state",
		Help:      "Detector state (0=idle, 1=running, 2=stopped)",
	},
)

// ============ Helper functions ============

// RecordConnectionStatus updates a feed's connection gauge.
func RecordConnectionStatus(feed string, connected bool) {
	if connected {
		FeedConnectionStatus.WithLabelValues(feed).Set(1)
	} else {
		FeedConnectionStatus.WithLabelValues(feed).Set(0)
	}
}

// RecordReconnectAttempt increments the reconnect-attempt counter.
func RecordReconnectAttempt(feed string) {
	ReconnectAttempts.WithLabelValues(feed).Inc()
}

// RecordReconnectExhausted increments the exhaustion counter.
func RecordReconnectExhausted(feed string) {
	ReconnectExhausted.WithLabelValues(feed).Inc()
}

// RecordProviderFailover increments the DEX provider failover counter.
func RecordProviderFailover(provider string) {
	ProviderFailovers.WithLabelValues(provider).Inc()
}

// RecordParseError increments the per-feed parse error counter.
func RecordParseError(feed string) {
	ParseErrors.WithLabelValues(feed).Inc()
}

// RecordPoolDecode records a pool decode outcome.
func RecordPoolDecode(fallback bool, decodeErr error) {
	if decodeErr != nil {
		path := "strict"
		if fallback {
			path = "fallback"
		}
		PoolDecodeErrors.WithLabelValues(path).Inc()
		return
	}
	if fallback {
		PoolDecodeFallbacks.Inc()
	}
}

// RecordPriceUpdate increments the per-source update counter.
func RecordPriceUpdate(source string) {
	PriceUpdatesReceived.WithLabelValues(source).Inc()
}

// RecordDetectorCheck increments the total-checks counter.
func RecordDetectorCheck() {
	DetectorChecks.Inc()
}

// RecordValidationError increments the validation-error counter for
// the given kind ("stale" or "invalid_price").
func RecordValidationError(kind string) {
	DetectorValidationErrors.WithLabelValues(kind).Inc()
}

// RecordOpportunity records a seen opportunity, and whether it
// crossed the configured threshold.
func RecordOpportunity(triggered bool) {
	triggeredStr := "no"
	if triggered {
		triggeredStr = "yes"
	}
	OpportunitiesDetected.WithLabelValues(triggeredStr).Inc()
}

// RecordSpread observes a spread percentage sample.
func RecordSpread(pct float64) {
	SpreadObservedPct.Observe(pct)
}

// Detector state gauge values, mirrored from detector.State.
const (
	StateIdle    = 0
	StateRunning = 1
	StateStopped = 2
)

// SetDetectorState updates the detector state gauge.
func SetDetectorState(state int) {
	DetectorState.Set(float64(state))
}
