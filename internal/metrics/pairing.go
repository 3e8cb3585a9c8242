package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PairingsInitiated tracks pairing attempts started
	PairingsInitiated = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pairing",
			Name:      "initiated_total",
			Help:      "Total number of pairing attempts initiated",
		},
		[]string{"role"}, // initiator, responder
	)

	// PairingsCompleted tracks pairing attempts that reached Done
	PairingsCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pairing",
			Name:      "completed_total",
			Help:      "Total number of pairing attempts completed",
		},
		[]string{"status"}, // success, failure
	)

	// PairingsFailed tracks pairing attempts that reached Failed, by cause
	PairingsFailed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pairing",
			Name:      "failed_total",
			Help:      "Total number of failed pairing attempts by error type",
		},
		[]string{"error_type"}, // pin_mismatch, timeout, transport
	)

	// PairingStageDuration tracks the duration of each pairing state transition
	PairingStageDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pairing",
			Name:      "stage_duration_seconds",
			Help:      "Pairing state machine stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to 2s
		},
		[]string{"stage"}, // initiate, exchange_keys, verify_pin, complete_pairing
	)
)
