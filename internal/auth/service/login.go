package service

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"anchorgate/internal/auth/models"
	"anchorgate/internal/auth/store/challenge"
	"anchorgate/internal/auth/token"
	dErrors "anchorgate/pkg/domain-errors"
	"anchorgate/pkg/platform/middleware/metadata"
	"anchorgate/pkg/platform/sentinel"
	"anchorgate/pkg/requestcontext"
)

// Stage is how far a login got.
type Stage int

const (
	StageChallengeIssued Stage = iota
	StageChallengeConsumed
	StageIdentityResolved
	StageSignatureVerified
	StageTokenIssued
)

func (s Stage) String() string {
	switch s {
	case StageChallengeIssued:
		return "challenge_issued"
	case StageChallengeConsumed:
		return "challenge_consumed"
	case StageIdentityResolved:
		return "identity_resolved"
	case StageSignatureVerified:
		return "signature_verified"
	case StageTokenIssued:
		return "token_issued"
	}
	return "unknown"
}

const subjectIDSpace = 1_000_000

// SubjectID maps an identity to a stable numeric subject in [1, 1000000].
func SubjectID(identity string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(identity))
	return h.Sum64()%subjectIDSpace + 1
}

// CreateChallenge issues a nonce, optionally bound to a claimed identity.
func (s *Service) CreateChallenge(ctx context.Context, identity *string) (*models.ChallengeResponse, error) {
	if identity != nil {
		trimmed := strings.TrimSpace(*identity)
		if trimmed == "" {
			identity = nil
		} else {
			identity = &trimmed
		}
	}
	c, err := s.challenges.Create(ctx, identity)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create challenge", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create challenge")
	}
	s.metrics.IncChallengeIssued()
	s.logger.InfoContext(ctx, "challenge issued",
		"stage", StageChallengeIssued.String(),
		"expires_at", c.ExpiresAt,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.ChallengeResponse{
		Nonce:     c.Nonce,
		Message:   s.Message(c.Nonce),
		ExpiresAt: c.ExpiresAt,
	}, nil
}

// Login consumes the nonce, resolves the identity, checks the signature over
// Message(nonce) and issues a token. The nonce is consumed even when a later
// stage fails.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Login")
	defer span.End()

	result, stage, err := s.login(ctx, req)
	if err != nil {
		s.metrics.IncLoginFailure(stage.String())
		span.SetAttributes(attribute.String("auth.failed_after", stage.String()))
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		s.logger.WarnContext(ctx, "login failed",
			"reached_stage", stage.String(),
			"error", err,
			"client_ip", metadata.GetClientIP(ctx),
			"user_agent", metadata.GetUserAgent(ctx),
			"device", metadata.Device(metadata.GetUserAgent(ctx)),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}
	s.metrics.IncTokenIssued()
	s.logger.InfoContext(ctx, "login succeeded",
		"stage", StageTokenIssued.String(),
		"subject_id", result.SubjectID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return result, nil
}

// login returns the last stage reached alongside any error.
func (s *Service) login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, Stage, error) {
	identity := strings.TrimSpace(req.Identity)
	stage := StageChallengeIssued
	if identity == "" || req.Nonce == "" || req.Signature == "" {
		return nil, stage, dErrors.New(dErrors.CodeBadRequest, "identity, nonce and signature are required")
	}

	c, err := s.challenges.VerifyAndConsume(ctx, req.Nonce)
	switch {
	case errors.Is(err, challenge.ErrChallengeExpired):
		s.metrics.IncChallengeConsumed("expired")
		return nil, stage, dErrors.Wrap(err, dErrors.CodeUnauthorized, "challenge expired")
	case errors.Is(err, challenge.ErrChallengeNotFound):
		s.metrics.IncChallengeConsumed("not_found")
		return nil, stage, dErrors.Wrap(err, dErrors.CodeUnauthorized, "challenge not found")
	case err != nil:
		s.metrics.IncChallengeConsumed("error")
		return nil, stage, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume challenge")
	}
	s.metrics.IncChallengeConsumed("ok")
	stage = StageChallengeConsumed
	if c.Identity != nil && *c.Identity != identity {
		return nil, stage, dErrors.New(dErrors.CodeUnauthorized, "challenge was issued for a different identity")
	}

	if _, err := s.resolver.Resolve(ctx, identity); err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, stage, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity resolver unavailable")
		}
		return nil, stage, dErrors.Wrap(err, dErrors.CodeUnauthorized, "identity could not be resolved")
	}
	stage = StageIdentityResolved

	ok, err := s.resolver.VerifySignature(ctx, identity, s.Message(c.Nonce), req.Signature)
	if err != nil {
		return nil, stage, dErrors.Wrap(err, dErrors.CodeUnauthorized, "signature verification failed")
	}
	if !ok {
		return nil, stage, dErrors.New(dErrors.CodeUnauthorized, "invalid signature")
	}
	stage = StageSignatureVerified

	subjectID := SubjectID(identity)
	tok, expiresAt, err := s.tokens.Generate(identity, subjectID)
	if err != nil {
		return nil, stage, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &models.LoginResult{
		Token:     tok,
		SubjectID: subjectID,
		Identity:  identity,
		ExpiresAt: expiresAt,
	}, StageTokenIssued, nil
}

// ValidateToken checks a bearer token. identity may be empty unless the
// token manager runs in strict mode.
func (s *Service) ValidateToken(ctx context.Context, tok, identity string) (*token.Claims, error) {
	var expected *string
	if identity = strings.TrimSpace(identity); identity != "" {
		expected = &identity
	}
	claims, err := s.tokens.Validate(tok, expected)
	if err != nil {
		if errors.Is(err, sentinel.ErrExpired) {
			s.metrics.IncTokenValidation("expired")
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token expired")
		}
		s.metrics.IncTokenValidation("invalid")
		s.logger.DebugContext(ctx, "token rejected", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	if s.revocations != nil {
		revoked, err := s.isRevoked(ctx, tok)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "revocation check failed")
		}
		if revoked {
			s.metrics.IncTokenValidation("revoked")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token revoked")
		}
	}
	s.metrics.IncTokenValidation("valid")
	return claims, nil
}

// Logout revokes a valid token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, tok, identity string) error {
	claims, err := s.ValidateToken(ctx, tok, identity)
	if err != nil {
		return err
	}
	if s.revocations == nil {
		return nil
	}
	_, _, signature, err := token.Parse(tok)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	// Tokens stay valid through their expiry second.
	ttl := claims.ExpiresAt.Sub(s.now()) + time.Second
	if err := s.revocations.Revoke(ctx, signature, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to revoke token")
	}
	s.logger.InfoContext(ctx, "token revoked",
		"identity", claims.Identity,
		"subject_id", claims.SubjectID,
	)
	return nil
}

func (s *Service) isRevoked(ctx context.Context, tok string) (bool, error) {
	_, _, signature, err := token.Parse(tok)
	if err != nil {
		return false, err
	}
	return s.revocations.IsRevoked(ctx, signature)
}
