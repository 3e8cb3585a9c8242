package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistration(t *testing.T) {
	if PairingsInitiated == nil {
		t.Error("PairingsInitiated metric is nil")
	}
	if PairingsCompleted == nil {
		t.Error("PairingsCompleted metric is nil")
	}
	if PairingsFailed == nil {
		t.Error("PairingsFailed metric is nil")
	}
	if PairingStageDuration == nil {
		t.Error("PairingStageDuration metric is nil")
	}

	if SessionsCreated == nil {
		t.Error("SessionsCreated metric is nil")
	}
	if SessionsActive == nil {
		t.Error("SessionsActive metric is nil")
	}
	if SessionsExpired == nil {
		t.Error("SessionsExpired metric is nil")
	}
	if SessionDuration == nil {
		t.Error("SessionDuration metric is nil")
	}
	if SessionMessageSize == nil {
		t.Error("SessionMessageSize metric is nil")
	}

	if CryptoOperations == nil {
		t.Error("CryptoOperations metric is nil")
	}

	if TransfersStarted == nil {
		t.Error("TransfersStarted metric is nil")
	}
	if TransferChunksSent == nil {
		t.Error("TransferChunksSent metric is nil")
	}
}

func TestMetricsIncrement(t *testing.T) {
	PairingsInitiated.WithLabelValues("initiator").Inc()
	PairingsCompleted.WithLabelValues("success").Inc()
	PairingsFailed.WithLabelValues("pin_mismatch").Inc()
	PairingStageDuration.WithLabelValues("verify_pin").Observe(0.5)

	SessionsCreated.WithLabelValues("success").Inc()
	SessionsActive.Inc()
	SessionsExpired.Inc()
	SessionDuration.WithLabelValues("encrypt").Observe(1.5)
	SessionMessageSize.WithLabelValues("outbound").Observe(1024)

	CryptoOperations.WithLabelValues("encrypt", "aes-256-gcm").Inc()
	CryptoOperations.WithLabelValues("decrypt", "aes-256-gcm").Inc()

	TransfersStarted.WithLabelValues("send").Inc()
	TransferChunksSent.Inc()
	TransferBytesSent.Add(65536)
	TransferAckLag.Observe(131072)

	if count := testutil.CollectAndCount(PairingsInitiated); count == 0 {
		t.Error("PairingsInitiated has no metrics collected")
	}
	if count := testutil.CollectAndCount(SessionsCreated); count == 0 {
		t.Error("SessionsCreated has no metrics collected")
	}
	if count := testutil.CollectAndCount(CryptoOperations); count == 0 {
		t.Error("CryptoOperations has no metrics collected")
	}
	if count := testutil.CollectAndCount(TransfersStarted); count == 0 {
		t.Error("TransfersStarted has no metrics collected")
	}
}
