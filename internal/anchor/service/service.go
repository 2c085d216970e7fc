// Package service implements the batch anchoring lifecycle: pending record
// ids are accumulated, committed to a Merkle root, handed to the ledger, and
// kept so inclusion proofs can be rebuilt on demand.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"anchorgate/internal/anchor/ledger"
	"anchorgate/internal/anchor/merkle"
	"anchorgate/internal/anchor/models"
	"anchorgate/internal/platform/logger"
	"anchorgate/internal/platform/metrics"
	recordmodels "anchorgate/internal/records/models"
	dErrors "anchorgate/pkg/domain-errors"
	"anchorgate/pkg/platform/circuit"
	"anchorgate/pkg/platform/sentinel"
)

// RecordFetcher loads the current version of a record.
type RecordFetcher interface {
	Get(ctx context.Context, id string) (*recordmodels.Record, error)
}

// Ledger accepts a batch commitment and returns a transaction reference.
type Ledger interface {
	Anchor(ctx context.Context, req ledger.AnchorRequest) (string, error)
}

const defaultFetchConcurrency = 8

type storedBatch struct {
	batch     *models.AnchoredBatch
	recordIDs []string
}

// Queue owns the pending id list and the batch id -> anchored batch map.
// Both are guarded by their own lock; the pending lock is never held while
// records are fetched or hashed.
type Queue struct {
	fetcher          RecordFetcher
	ledger           Ledger
	breaker          *circuit.Breaker
	logger           *slog.Logger
	metrics          *metrics.Metrics
	tracer           trace.Tracer
	now              func() time.Time
	metaURIPrefix    string
	fetchConcurrency int

	pendingMu sync.Mutex
	pending   []string

	batchesMu sync.RWMutex
	batches   map[uint64]storedBatch

	lastBatchID atomic.Uint64
}

type Option func(*Queue)

func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithLedger sets the ledger collaborator. Without one every batch gets a
// local placeholder reference.
func WithLedger(l Ledger) Option {
	return func(q *Queue) { q.ledger = l }
}

// WithBreaker guards ledger calls with a circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(q *Queue) { q.breaker = b }
}

func WithMetaURIPrefix(prefix string) Option {
	return func(q *Queue) { q.metaURIPrefix = prefix }
}

// WithFetchConcurrency bounds parallel record fetches while building a tree.
func WithFetchConcurrency(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.fetchConcurrency = n
		}
	}
}

func New(fetcher RecordFetcher, opts ...Option) *Queue {
	q := &Queue{
		fetcher:          fetcher,
		logger:           logger.Discard(),
		tracer:           otel.Tracer("anchorgate/anchor"),
		now:              time.Now,
		metaURIPrefix:    models.DefaultMetaURIPrefix,
		fetchConcurrency: defaultFetchConcurrency,
		batches:          make(map[uint64]storedBatch),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds a record id to the next batch. Callers avoid duplicates.
func (q *Queue) Enqueue(id string) {
	q.pendingMu.Lock()
	q.pending = append(q.pending, id)
	n := len(q.pending)
	q.pendingMu.Unlock()
	q.metrics.SetPending(n)
}

func (q *Queue) PendingCount() int {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	return len(q.pending)
}

// takePending snapshots and clears the pending list in one critical section.
func (q *Queue) takePending() []string {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	snapshot := q.pending
	q.pending = nil
	return snapshot
}

// requeue puts ids back ahead of anything enqueued since they were taken.
func (q *Queue) requeue(ids []string) {
	q.pendingMu.Lock()
	q.pending = append(slices.Clone(ids), q.pending...)
	n := len(q.pending)
	q.pendingMu.Unlock()
	q.metrics.SetPending(n)
}

// CreateBatch commits every pending record to a new Merkle root. It returns
// nil, nil when nothing is pending or when no pending record could be
// fetched. Records that fail to load are skipped; RecordIDs lists only the
// records actually hashed, in leaf order.
func (q *Queue) CreateBatch(ctx context.Context) (*models.BatchResult, error) {
	ctx, span := q.tracer.Start(ctx, "anchor.CreateBatch")
	defer span.End()

	snapshot := q.takePending()
	q.metrics.SetPending(q.PendingCount())
	if len(snapshot) == 0 {
		return nil, nil
	}
	span.SetAttributes(attribute.Int("anchor.pending", len(snapshot)))

	tree, err := q.buildTree(ctx, snapshot)
	if err != nil {
		q.requeue(snapshot)
		span.RecordError(err)
		span.SetStatus(codes.Error, "build tree")
		return nil, err
	}

	root, ok := tree.Root()
	if !ok {
		q.logger.WarnContext(ctx, "no pending records could be fetched, batch dropped",
			"pending", len(snapshot))
		return nil, nil
	}

	now := q.now()
	result := &models.BatchResult{
		Root: &models.MerkleRoot{
			RootHash:    root,
			AlgoID:      merkle.AlgoSHA256,
			BatchID:     q.nextBatchID(ctx, now),
			RecordCount: tree.LeafCount(),
			Timestamp:   uint64(now.Unix()),
		},
		RecordIDs: tree.LeafIDs(),
	}

	span.SetAttributes(
		attribute.Int64("anchor.batch_id", int64(result.Root.BatchID)),
		attribute.Int("anchor.records", result.Root.RecordCount),
	)
	q.metrics.IncBatchCreated(result.Root.RecordCount)
	q.logger.InfoContext(ctx, "batch created",
		"batch_id", result.Root.BatchID,
		"root", result.Root.RootHashHex(),
		"records", result.Root.RecordCount,
		"skipped", len(snapshot)-result.Root.RecordCount,
	)
	return result, nil
}

// nextBatchID derives the id from wall-clock seconds but never reuses or
// goes below a previously issued id.
func (q *Queue) nextBatchID(ctx context.Context, now time.Time) uint64 {
	candidate := uint64(max(now.Unix(), 0))
	for {
		last := q.lastBatchID.Load()
		id := candidate
		if id <= last {
			id = last + 1
		}
		if q.lastBatchID.CompareAndSwap(last, id) {
			if id != candidate {
				q.logger.WarnContext(ctx, "batch id collided with clock seconds, bumped",
					"clock_id", candidate, "batch_id", id)
			}
			return id
		}
	}
}

// buildTree fetches ids concurrently and adds the survivors to a tree in the
// order given. Only context cancellation is an error.
func (q *Queue) buildTree(ctx context.Context, ids []string) (*merkle.Tree, error) {
	leaves := make([][]byte, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			record, err := q.fetcher.Get(gctx, id)
			if err != nil {
				q.logger.WarnContext(ctx, "record skipped, fetch failed", "record_id", id, "error", err)
				return nil
			}
			data, err := record.CanonicalBytes()
			if err != nil {
				q.logger.WarnContext(ctx, "record skipped, encode failed", "record_id", id, "error", err)
				return nil
			}
			leaves[i] = data
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree := merkle.New()
	for i, data := range leaves {
		if data != nil {
			tree.AddLeafWithID(data, ids[i])
		}
	}
	return tree, nil
}

// AnchorToLedger publishes the batch root and returns the transaction
// reference. Ledger failures, an open circuit, or a missing ledger all yield
// a local placeholder instead of an error.
func (q *Queue) AnchorToLedger(ctx context.Context, batch *models.BatchResult) string {
	root := batch.Root
	placeholder := fmt.Sprintf("0xmock_%x_local", root.BatchID)

	if q.ledger == nil {
		q.metrics.IncLedgerAnchor("fallback")
		return placeholder
	}
	if q.breaker != nil && !q.breaker.Allow() {
		q.metrics.IncLedgerAnchor("circuit_open")
		q.logger.WarnContext(ctx, "ledger circuit open, using placeholder",
			"batch_id", root.BatchID, "tx_ref", placeholder)
		return placeholder
	}

	txRef, err := q.ledger.Anchor(ctx, ledger.AnchorRequest{
		BatchID:     root.BatchID,
		RootHashHex: root.RootHashHex(),
		AlgoID:      root.AlgoID,
		RecordCount: root.RecordCount,
		MetaURI:     models.MetaURI(q.metaURIPrefix, root.BatchID),
	})
	if err != nil {
		if q.breaker != nil {
			if _, change := q.breaker.RecordFailure(); change.Opened {
				q.logger.ErrorContext(ctx, "ledger circuit opened", "breaker", q.breaker.Name())
			}
		}
		q.metrics.IncLedgerAnchor("fallback")
		q.logger.WarnContext(ctx, "ledger anchor failed, using placeholder",
			"batch_id", root.BatchID, "tx_ref", placeholder, "error", err)
		return placeholder
	}

	if q.breaker != nil {
		if _, change := q.breaker.RecordSuccess(); change.Closed {
			q.logger.InfoContext(ctx, "ledger circuit closed", "breaker", q.breaker.Name())
		}
	}
	q.metrics.IncLedgerAnchor("anchored")
	q.logger.InfoContext(ctx, "batch anchored", "batch_id", root.BatchID, "tx_ref", txRef)
	return txRef
}

// StoreAnchoredBatch records the batch and its leaf-ordered ids for proof
// reconstruction. An existing entry with the same id is replaced.
func (q *Queue) StoreAnchoredBatch(ctx context.Context, batch *models.AnchoredBatch, ids []string) {
	q.batchesMu.Lock()
	_, exists := q.batches[batch.BatchID]
	stored := *batch
	q.batches[batch.BatchID] = storedBatch{batch: &stored, recordIDs: slices.Clone(ids)}
	q.batchesMu.Unlock()

	if exists {
		q.logger.WarnContext(ctx, "anchored batch overwritten", "batch_id", batch.BatchID)
	}
}

// CreateAndAnchor runs create, anchor and store as one step. It returns
// nil, nil when there was nothing to batch.
func (q *Queue) CreateAndAnchor(ctx context.Context) (*models.AnchoredBatch, error) {
	result, err := q.CreateBatch(ctx)
	if err != nil || result == nil {
		return nil, err
	}
	batch := models.NewAnchoredBatch(result.Root, q.metaURIPrefix)
	batch.TxRef = q.AnchorToLedger(ctx, result)
	q.StoreAnchoredBatch(ctx, batch, result.RecordIDs)
	return batch, nil
}

// Batches lists stored batches by ascending id.
func (q *Queue) Batches() []*models.AnchoredBatch {
	q.batchesMu.RLock()
	defer q.batchesMu.RUnlock()
	out := make([]*models.AnchoredBatch, 0, len(q.batches))
	for _, sb := range q.batches {
		b := *sb.batch
		out = append(out, &b)
	}
	slices.SortFunc(out, func(a, b *models.AnchoredBatch) int {
		switch {
		case a.BatchID < b.BatchID:
			return -1
		case a.BatchID > b.BatchID:
			return 1
		}
		return 0
	})
	return out
}

// findBatch returns a copy of the first batch, by ascending id, that lists id.
func (q *Queue) findBatch(id string) (storedBatch, bool) {
	q.batchesMu.RLock()
	defer q.batchesMu.RUnlock()

	batchIDs := make([]uint64, 0, len(q.batches))
	for bid := range q.batches {
		batchIDs = append(batchIDs, bid)
	}
	slices.Sort(batchIDs)
	for _, bid := range batchIDs {
		sb := q.batches[bid]
		if slices.Contains(sb.recordIDs, id) {
			b := *sb.batch
			return storedBatch{batch: &b, recordIDs: slices.Clone(sb.recordIDs)}, true
		}
	}
	return storedBatch{}, false
}

// GenerateProofForRecord rebuilds the tree of the batch containing id from
// current storage and returns its inclusion proof. It returns nil, nil when
// id is in no stored batch.
func (q *Queue) GenerateProofForRecord(ctx context.Context, id string) (*models.RecordProof, error) {
	ctx, span := q.tracer.Start(ctx, "anchor.GenerateProofForRecord",
		trace.WithAttributes(attribute.String("anchor.record_id", id)))
	defer span.End()

	sb, ok := q.findBatch(id)
	if !ok {
		q.metrics.IncProofRequest("not_anchored")
		return nil, nil
	}
	span.SetAttributes(attribute.Int64("anchor.batch_id", int64(sb.batch.BatchID)))

	tree, err := q.buildTree(ctx, sb.recordIDs)
	if err != nil {
		q.metrics.IncProofRequest("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "rebuild tree")
		return nil, err
	}
	index := tree.IndexOf(id)
	if index < 0 {
		q.metrics.IncProofRequest("record_missing")
		return nil, dErrors.Wrap(fmt.Errorf("record %s: %w", id, sentinel.ErrNotFound),
			dErrors.CodeNotFound, "record no longer available")
	}
	proof, ok := tree.GenerateProof(index)
	if !ok {
		q.metrics.IncProofRequest("error")
		return nil, dErrors.New(dErrors.CodeInternal, "proof generation failed")
	}
	q.metrics.IncProofRequest("generated")
	return &models.RecordProof{
		BatchID:      sb.batch.BatchID,
		AnchoredRoot: sb.batch.RootHashHex,
		TxRef:        sb.batch.TxRef,
		Proof:        proof,
	}, nil
}

// VerifyRecord generates the record's proof and checks it against the
// anchored root. The proof is nil when the record is in no batch.
func (q *Queue) VerifyRecord(ctx context.Context, id string) (*models.RecordProof, bool, error) {
	proof, err := q.GenerateProofForRecord(ctx, id)
	if err != nil || proof == nil {
		return nil, false, err
	}
	valid := proof.Verify()
	if !valid {
		q.logger.WarnContext(ctx, "record does not match anchored root",
			"record_id", id, "batch_id", proof.BatchID)
	}
	return proof, valid, nil
}
