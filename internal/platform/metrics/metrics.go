package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Every method is
// safe on a nil receiver so components can run without metrics in tests.
type Metrics struct {
	BatchesCreated     prometheus.Counter
	BatchRecords       prometheus.Histogram
	PendingRecords     prometheus.Gauge
	LedgerAnchors      *prometheus.CounterVec
	ProofRequests      *prometheus.CounterVec
	RecordsCreated     prometheus.Counter
	ChallengesIssued   prometheus.Counter
	ChallengesConsumed *prometheus.CounterVec
	TokensIssued       prometheus.Counter
	TokenValidations   *prometheus.CounterVec
	LoginFailures      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BatchesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "anchorgate_batches_created_total",
			Help: "Total number of Merkle batches created",
		}),
		BatchRecords: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "anchorgate_batch_records",
			Help:    "Number of records committed per batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		PendingRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "anchorgate_pending_records",
			Help: "Record identifiers waiting for the next batch",
		}),
		LedgerAnchors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "anchorgate_ledger_anchors_total",
			Help: "Ledger anchoring attempts by outcome",
		}, []string{"outcome"}),
		ProofRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "anchorgate_proof_requests_total",
			Help: "Inclusion proof requests by result",
		}, []string{"result"}),
		RecordsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "anchorgate_records_created_total",
			Help: "Total number of records stored",
		}),
		ChallengesIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "anchorgate_challenges_issued_total",
			Help: "Total number of authentication challenges issued",
		}),
		ChallengesConsumed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "anchorgate_challenges_consumed_total",
			Help: "Challenge consumption attempts by outcome",
		}, []string{"outcome"}),
		TokensIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "anchorgate_tokens_issued_total",
			Help: "Total number of bearer tokens issued",
		}),
		TokenValidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "anchorgate_token_validations_total",
			Help: "Bearer token validations by outcome",
		}, []string{"outcome"}),
		LoginFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "anchorgate_login_failures_total",
			Help: "Failed logins by the stage that aborted the flow",
		}, []string{"stage"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "anchorgate_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) IncBatchCreated(records int) {
	if m == nil {
		return
	}
	m.BatchesCreated.Inc()
	m.BatchRecords.Observe(float64(records))
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingRecords.Set(float64(n))
}

// IncLedgerAnchor records an anchoring outcome: "anchored", "fallback" or "circuit_open".
func (m *Metrics) IncLedgerAnchor(outcome string) {
	if m == nil {
		return
	}
	m.LedgerAnchors.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncProofRequest(result string) {
	if m == nil {
		return
	}
	m.ProofRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) IncRecordCreated() {
	if m == nil {
		return
	}
	m.RecordsCreated.Inc()
}

func (m *Metrics) IncChallengeIssued() {
	if m == nil {
		return
	}
	m.ChallengesIssued.Inc()
}

func (m *Metrics) IncChallengeConsumed(outcome string) {
	if m == nil {
		return
	}
	m.ChallengesConsumed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncTokenIssued() {
	if m == nil {
		return
	}
	m.TokensIssued.Inc()
}

func (m *Metrics) IncTokenValidation(outcome string) {
	if m == nil {
		return
	}
	m.TokenValidations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncLoginFailure(stage string) {
	if m == nil {
		return
	}
	m.LoginFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
