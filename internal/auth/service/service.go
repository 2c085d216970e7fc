// Package service runs the challenge/response login: a caller asks for a
// nonce, signs "<service> Auth:<nonce>" with a key from its identity
// document, and trades the signature for a bearer token.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"anchorgate/internal/auth/identity"
	"anchorgate/internal/auth/models"
	"anchorgate/internal/auth/token"
	"anchorgate/internal/platform/logger"
	"anchorgate/internal/platform/metrics"
)

//go:generate mockgen -source=service.go -destination=mocks/service-mocks.go -package=mocks ChallengeStore IdentityResolver TokenManager RevocationList

const DefaultServiceName = "Anchorgate"

type ChallengeStore interface {
	Create(ctx context.Context, identity *string) (*models.Challenge, error)
	VerifyAndConsume(ctx context.Context, nonce string) (*models.Challenge, error)
}

type IdentityResolver interface {
	Resolve(ctx context.Context, identity string) (*identity.Document, error)
	VerifySignature(ctx context.Context, identity, message, signature string) (bool, error)
}

type TokenManager interface {
	Generate(identity string, subjectID uint64) (string, time.Time, error)
	Validate(token string, expectedIdentity *string) (*token.Claims, error)
}

// RevocationList remembers logged-out tokens by signature.
type RevocationList interface {
	Revoke(ctx context.Context, key string, ttl time.Duration) error
	IsRevoked(ctx context.Context, key string) (bool, error)
}

// Service orchestrates challenge issuance, login and token validation.
type Service struct {
	challenges  ChallengeStore
	resolver    IdentityResolver
	tokens      TokenManager
	revocations RevocationList
	now         func() time.Time
	serviceName string
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
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

// WithRevocations enables logout. Without it tokens live until expiry.
func WithRevocations(r RevocationList) Option {
	return func(s *Service) { s.revocations = r }
}

// WithClock overrides the time source used for revocation lifetimes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithServiceName sets the name embedded in the signed login message.
func WithServiceName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.serviceName = name
		}
	}
}

func New(challenges ChallengeStore, resolver IdentityResolver, tokens TokenManager, opts ...Option) *Service {
	s := &Service{
		challenges:  challenges,
		resolver:    resolver,
		tokens:      tokens,
		serviceName: DefaultServiceName,
		now:         time.Now,
		logger:      logger.Discard(),
		tracer:      otel.Tracer("anchorgate/auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Message returns the exact text a caller signs for nonce.
func (s *Service) Message(nonce string) string {
	return s.serviceName + " Auth:" + nonce
}
