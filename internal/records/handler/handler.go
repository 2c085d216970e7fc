package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"anchorgate/internal/platform/metrics"
	"anchorgate/internal/platform/middleware"
	"anchorgate/internal/records/models"
	dErrors "anchorgate/pkg/domain-errors"
	"anchorgate/pkg/platform/httputil"
	"anchorgate/pkg/platform/middleware/request"
	"anchorgate/pkg/platform/middleware/requesttime"
)

// Service defines the interface for record operations.
type Service interface {
	Create(ctx context.Context, req models.CreateRecordRequest) (*models.Record, error)
	Get(ctx context.Context, id string) (*models.Record, error)
	List(ctx context.Context) ([]*models.Record, error)
	Delete(ctx context.Context, id string) error
}

// Handler handles record endpoints.
type Handler struct {
	logger    *slog.Logger
	records   Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

// New creates a new record Handler.
func New(records Service, logger *slog.Logger, metrics *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		records:   records,
		metrics:   metrics,
		validator: validator,
	}
}

// Register registers the record routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(request.Recovery(h.logger))
		r.Use(request.RequestID)
		r.Use(request.Logger(h.logger))
		r.Use(requesttime.Middleware)
		r.Use(request.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/api/records", h.handleCreate)
		r.Get("/api/records", h.handleList)
		r.Get("/api/records/{id}", h.handleGet)
		r.Delete("/api/records/{id}", h.handleDelete)
	})
}

type recordResponse struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
}

func toResponse(r *models.Record) recordResponse {
	attrs := r.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	return recordResponse{ID: r.ID, Kind: r.Kind, Attributes: attrs, CreatedAt: r.CreatedAt}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	var req models.CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create record request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.records.Create(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(record))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.records.List(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list records", err)
		return
	}
	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	record, err := h.records.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to get record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(record))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.records.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(ctx, w, "failed to delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", request.GetRequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", request.GetRequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
