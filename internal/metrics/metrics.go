// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mall"

var (
	// HTTPRequestDuration observes handler latency by route and status
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route, method and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	// ProximityChecks counts proximity checks by outcome: empty, matched, invalid, error
	ProximityChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proximity_checks_total",
		Help:      "Proximity checks by outcome.",
	}, []string{"outcome"})

	// OffersUnlocked counts unlocks; attributed is false for anonymous callers
	OffersUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "offers_unlocked_total",
		Help:      "Offers unlocked by proximity checks.",
	}, []string{"attributed"})

	// Redemptions counts redemption attempts by result
	Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "offer_redemptions_total",
		Help:      "Offer redemption attempts by result.",
	}, []string{"result"})

	// AnalyticsEvents counts analytics events by type and fate: written, dropped,
	// failed, suppressed by the debounce window or publish_failed
	AnalyticsEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analytics_events_total",
		Help:      "Analytics events by type and fate.",
	}, []string{"type", "fate"})

	// AnalyticsQueueDepth is the number of events waiting for the writer
	AnalyticsQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "analytics_queue_depth",
		Help:      "Analytics events buffered and not yet written.",
	})
)
