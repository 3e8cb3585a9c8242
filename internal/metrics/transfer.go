package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransfersStarted tracks file transfers started
	TransfersStarted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfers",
			Name:      "started_total",
			Help:      "Total number of file transfers started",
		},
		[]string{"direction"}, // send, receive
	)

	// TransfersCompleted tracks file transfers that reached completion
	TransfersCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfers",
			Name:      "completed_total",
			Help:      "Total number of file transfers completed",
		},
		[]string{"status"}, // success, cancelled, failed
	)

	// TransferChunksSent tracks chunk packets sent
	TransferChunksSent = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfers",
			Name:      "chunks_sent_total",
			Help:      "Total number of file transfer chunk packets sent",
		},
	)

	// TransferBytesSent tracks payload bytes sent across all transfers
	TransferBytesSent = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfers",
			Name:      "bytes_sent_total",
			Help:      "Total number of file transfer payload bytes sent",
		},
	)

	// TransferAckLag tracks the gap between the highest sent offset and the
	// highest acknowledged contiguous offset at the time each ACK arrives
	TransferAckLag = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfers",
			Name:      "ack_lag_bytes",
			Help:      "Bytes sent but not yet acknowledged when an ACK is received",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 2, 10), // 64KiB to 32MiB
		},
	)
)
