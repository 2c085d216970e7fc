package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"anchorgate/internal/platform/logger"
	"anchorgate/internal/platform/metrics"
	"anchorgate/internal/records/models"
	dErrors "anchorgate/pkg/domain-errors"
	"anchorgate/pkg/platform/sentinel"
	"anchorgate/pkg/requestcontext"
)

type Store interface {
	Put(ctx context.Context, record *models.Record) error
	Get(ctx context.Context, id string) (*models.Record, error)
	List(ctx context.Context) ([]*models.Record, error)
	Delete(ctx context.Context, id string) error
}

// Queue receives ids of newly stored records for the next anchoring batch.
type Queue interface {
	Enqueue(id string)
}

// Service stores records on behalf of the authenticated subject and queues
// each new record for anchoring. Callers only see their own records.
type Service struct {
	store   Store
	queue   Queue
	logger  *slog.Logger
	metrics *metrics.Metrics
	newID   func() string
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithIDGenerator replaces the UUID generator, for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func New(store Store, queue Queue, opts ...Option) *Service {
	s := &Service{
		store:  store,
		queue:  queue,
		logger: logger.Discard(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func caller(ctx context.Context) (string, uint64, error) {
	identity := requestcontext.Identity(ctx)
	if identity == "" {
		return "", 0, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return identity, requestcontext.SubjectID(ctx), nil
}

func (s *Service) Create(ctx context.Context, req models.CreateRecordRequest) (*models.Record, error) {
	identity, subjectID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	record, err := models.NewRecord(s.newID(), identity, req.Kind, req.Attributes, subjectID, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	if err := s.store.Put(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to store record", "record_id", record.ID, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store record")
	}
	s.queue.Enqueue(record.ID)
	s.metrics.IncRecordCreated()
	s.logger.InfoContext(ctx, "record created",
		"record_id", record.ID,
		"kind", record.Kind,
		"subject_id", subjectID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return record, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Record, error) {
	identity, _, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	record, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}
	// other subjects' records are reported as missing
	if record.Subject != identity {
		return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	return record, nil
}

// List returns the caller's records, oldest first.
func (s *Service) List(ctx context.Context) ([]*models.Record, error) {
	identity, _, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}
	out := make([]*models.Record, 0, len(all))
	for _, r := range all {
		if r.Subject == identity {
			out = append(out, r)
		}
	}
	return out, nil
}

// Delete removes one of the caller's records. A deleted record no longer
// appears in rebuilt batches, so its proofs stop verifying.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete record")
	}
	s.logger.InfoContext(ctx, "record deleted", "record_id", id)
	return nil
}
