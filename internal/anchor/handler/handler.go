package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"anchorgate/internal/anchor/models"
	"anchorgate/internal/platform/metrics"
	"anchorgate/internal/platform/middleware"
	dErrors "anchorgate/pkg/domain-errors"
	"anchorgate/pkg/platform/httputil"
	"anchorgate/pkg/platform/middleware/request"
)

// Service defines the interface for batch anchoring operations.
type Service interface {
	CreateAndAnchor(ctx context.Context) (*models.AnchoredBatch, error)
	PendingCount() int
	VerifyRecord(ctx context.Context, id string) (*models.RecordProof, bool, error)
	Batches() []*models.AnchoredBatch
}

// Handler exposes batch creation, the pending count and proof checks.
type Handler struct {
	logger    *slog.Logger
	anchor    Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(anchor Service, logger *slog.Logger, metrics *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		anchor:    anchor,
		metrics:   metrics,
		validator: validator,
	}
}

// Register registers the anchor routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(request.Recovery(h.logger))
		r.Use(request.RequestID)
		r.Use(request.Logger(h.logger))
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/anchor/batch", h.handleCreateBatch)
		r.Get("/anchor/pending", h.handlePending)
		r.Get("/anchor/batches", h.handleBatches)
		r.Get("/anchor/verify/{id}", h.handleVerify)
	})
}

type createBatchResponse struct {
	Created bool                  `json:"created"`
	Batch   *models.AnchoredBatch `json:"batch,omitempty"`
}

func (h *Handler) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batch, err := h.anchor.CreateAndAnchor(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create batch",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create batch"))
		return
	}
	if batch == nil {
		httputil.WriteJSON(w, http.StatusOK, createBatchResponse{Created: false})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createBatchResponse{Created: true, Batch: batch})
}

func (h *Handler) handlePending(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"pending": h.anchor.PendingCount()})
}

func (h *Handler) handleBatches(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"batches": h.anchor.Batches()})
}

type verifyResponse struct {
	RecordID string              `json:"record_id"`
	Anchored bool                `json:"anchored"`
	Valid    bool                `json:"valid"`
	Proof    *models.RecordProof `json:"proof,omitempty"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	proof, valid, err := h.anchor.VerifyRecord(ctx, id)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to verify record",
				"record_id", id,
				"request_id", request.GetRequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyResponse{
		RecordID: id,
		Anchored: proof != nil,
		Valid:    valid,
		Proof:    proof,
	})
}
