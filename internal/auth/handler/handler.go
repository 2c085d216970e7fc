package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"anchorgate/internal/auth/models"
	"anchorgate/internal/auth/token"
	"anchorgate/internal/platform/metrics"
	"anchorgate/internal/platform/middleware"
	dErrors "anchorgate/pkg/domain-errors"
	"anchorgate/pkg/platform/httputil"
	"anchorgate/pkg/platform/middleware/metadata"
	"anchorgate/pkg/platform/middleware/request"
	"anchorgate/pkg/platform/middleware/requesttime"
)

// Service defines the interface for challenge login operations.
type Service interface {
	CreateChallenge(ctx context.Context, identity *string) (*models.ChallengeResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
	ValidateToken(ctx context.Context, tok, identity string) (*token.Claims, error)
	Logout(ctx context.Context, tok, identity string) error
}

// Handler handles challenge, login and introspection endpoints.
type Handler struct {
	logger       *slog.Logger
	auth         Service
	metrics      *metrics.Metrics
	secureCookie bool
}

// New creates a new auth Handler. secureCookie marks the auth cookie Secure.
func New(auth Service, logger *slog.Logger, metrics *metrics.Metrics, secureCookie bool) *Handler {
	return &Handler{
		logger:       logger,
		auth:         auth,
		metrics:      metrics,
		secureCookie: secureCookie,
	}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(request.Recovery(h.logger))
		r.Use(request.RequestID)
		r.Use(request.Logger(h.logger))
		r.Use(metadata.ClientMetadata)
		r.Use(requesttime.Middleware)
		r.Use(request.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Post("/api/auth/challenge", h.handleChallenge)
		r.Post("/api/login", h.handleLogin)
		r.Post("/api/logout", h.handleLogout)
		r.Get("/api/auth/introspect", h.handleIntrospect)
	})
}

func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.ChallengeRequest
	// an empty body asks for an unbound challenge
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.WarnContext(ctx, "invalid challenge request",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	resp, err := h.auth.CreateChallenge(ctx, req.Identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid login request",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.auth.Login(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		MaxAge:   int(time.Until(result.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	httputil.WriteJSON(w, http.StatusOK, result)
}

type introspectResponse struct {
	Active    bool      `json:"active"`
	Identity  string    `json:"identity"`
	SubjectID uint64    `json:"subject_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tok := middleware.BearerToken(r)
	if tok == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing token"))
		return
	}
	claims, err := h.auth.ValidateToken(ctx, tok, r.Header.Get(middleware.HeaderIdentity))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, introspectResponse{
		Active:    true,
		Identity:  claims.Identity,
		SubjectID: claims.SubjectID,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tok := middleware.BearerToken(r)
	if tok == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing token"))
		return
	}
	if err := h.auth.Logout(ctx, tok, r.Header.Get(middleware.HeaderIdentity)); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			h.logger.ErrorContext(ctx, "logout failed",
				"request_id", request.GetRequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
