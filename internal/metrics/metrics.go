// Package metrics provides Prometheus counters for pairing and relay activity.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay outcomes
const (
	OutcomeDelivered      = "delivered"
	OutcomeDropped        = "dropped"
	OutcomePartnerMissing = "partner_missing"
	OutcomeFailed         = "translation_failed"
	OutcomeDeliveryFailed = "delivery_failed"
)

// Pairing events
const (
	EventCodeIssued   = "code_issued"
	EventPaired       = "paired"
	EventJoinFailed   = "join_failed"
	EventEnded        = "ended"
	EventForceEnded   = "force_ended"
	EventBulkReset    = "bulk_reset"
	EventCodesExpired = "codes_expired"
)

var (
	once sync.Once

	// Registered by Init
	RelayMessages       *prometheus.CounterVec
	PairingEvents       *prometheus.CounterVec
	TranslationDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		RelayMessages = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relaybot_relay_messages_total",
			Help: "Relayed messages by outcome",
		}, []string{"outcome"})
		PairingEvents = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relaybot_pairing_events_total",
			Help: "Pairing lifecycle events",
		}, []string{"event"})
		TranslationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "relaybot_translation_duration_seconds",
			Help:    "Translation call duration seconds",
			Buckets: prometheus.DefBuckets,
		})
	})
}

// ObserveRelay counts one relay attempt. No-op before Init.
func ObserveRelay(outcome string) {
	if RelayMessages != nil {
		RelayMessages.WithLabelValues(outcome).Inc()
	}
}

// ObservePairing counts n pairing events. No-op before Init.
func ObservePairing(event string, n int) {
	if PairingEvents != nil && n > 0 {
		PairingEvents.WithLabelValues(event).Add(float64(n))
	}
}

// ObserveTranslation records how long a translation call took. No-op before Init.
func ObserveTranslation(d time.Duration) {
	if TranslationDuration != nil {
		TranslationDuration.Observe(d.Seconds())
	}
}
