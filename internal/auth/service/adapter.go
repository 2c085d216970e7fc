package service

import (
	"context"

	"anchorgate/internal/platform/middleware"
)

// MiddlewareAdapter exposes Service as a middleware.TokenValidator.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(s *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: s}
}

func (a *MiddlewareAdapter) ValidateToken(ctx context.Context, tok, identity string) (*middleware.Principal, error) {
	claims, err := a.service.ValidateToken(ctx, tok, identity)
	if err != nil {
		return nil, err
	}
	return &middleware.Principal{
		Identity:  claims.Identity,
		SubjectID: claims.SubjectID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}
