package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncBatchCreated(3)
	m.IncLedgerAnchor("fallback")
	m.IncLedgerAnchor("fallback")
	m.SetPending(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerAnchors.WithLabelValues("fallback")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.PendingRecords))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncBatchCreated(1)
		m.IncChallengeConsumed("ok")
		m.IncTokenValidation("expired")
		m.ObserveRequest("GET", "/health", "200", 0.01)
	})
}
