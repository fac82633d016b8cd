package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pharmachain/internal/batch/models"
	"pharmachain/internal/platform/metrics"
	"pharmachain/internal/platform/middleware"
	"pharmachain/pkg/domain"
	dErrors "pharmachain/pkg/domain-errors"
	"pharmachain/pkg/platform/httputil"
	"pharmachain/pkg/platform/middleware/metadata"
	"pharmachain/pkg/requestcontext"
)

// Service defines the registry operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, caller domain.Address, reg models.Registration) (*models.BatchEvent, error)
	Transfer(ctx context.Context, caller domain.Address, batchID, newHolder string) (*models.BatchEvent, error)
	MarkAsSpoiled(ctx context.Context, caller domain.Address, batchID, reason string) (*models.BatchEvent, error)
	AutoExpire(ctx context.Context, caller domain.Address, batchID string) (*models.BatchEvent, error)
	UpdateCertificateHash(ctx context.Context, caller domain.Address, batchID, newHash string) (*models.BatchEvent, error)
	GetBatchDetails(ctx context.Context, batchID string) (*models.BatchDetails, error)
	CheckBatchValidity(ctx context.Context, batchID string) (bool, error)
	BatchExists(ctx context.Context, batchID string) (bool, error)
}

const defaultRequestTimeout = 30 * time.Second

// Handler serves the batch endpoints.
type Handler struct {
	logger         *slog.Logger
	registry       Service
	resolver       middleware.CallerResolver
	metrics        *metrics.Metrics
	requestTimeout time.Duration
}

// New creates a batch Handler. Mutating routes resolve the caller with
// resolver.
func New(
	registry Service,
	resolver middleware.CallerResolver,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	requestTimeout time.Duration) *Handler {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &Handler{
		logger:         logger,
		registry:       registry,
		resolver:       resolver,
		metrics:        metrics,
		requestTimeout: requestTimeout,
	}
}

// Register registers the batch routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/batches", func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(metadata.ClientMetadata)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(h.requestTimeout))
		r.Use(middleware.LatencyMiddleware(h.metrics))

		r.Get("/{batchID}", h.handleGetBatchDetails)
		r.Get("/{batchID}/validity", h.handleCheckValidity)
		r.Get("/{batchID}/exists", h.handleBatchExists)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Use(middleware.RequireAuth(h.resolver, h.logger))
			r.Post("/", h.handleRegister)
			r.Post("/{batchID}/transfer", h.handleTransfer)
			r.Post("/{batchID}/spoil", h.handleMarkAsSpoiled)
			r.Post("/{batchID}/expire", h.handleAutoExpire)
			r.Put("/{batchID}/certificate", h.handleUpdateCertificate)
		})
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.RegisterBatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	event, err := h.registry.Register(r.Context(), caller, req.ToRegistration())
	h.respondEvent(w, r, http.StatusCreated, event, err)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.TransferBatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	event, err := h.registry.Transfer(r.Context(), caller, chi.URLParam(r, "batchID"), req.NewHolder)
	h.respondEvent(w, r, http.StatusOK, event, err)
}

func (h *Handler) handleMarkAsSpoiled(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.SpoilBatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	event, err := h.registry.MarkAsSpoiled(r.Context(), caller, chi.URLParam(r, "batchID"), req.Reason)
	h.respondEvent(w, r, http.StatusOK, event, err)
}

func (h *Handler) handleAutoExpire(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	event, err := h.registry.AutoExpire(r.Context(), caller, chi.URLParam(r, "batchID"))
	h.respondEvent(w, r, http.StatusOK, event, err)
}

func (h *Handler) handleUpdateCertificate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.UpdateCertificateRequest
	if !h.decode(w, r, &req) {
		return
	}
	event, err := h.registry.UpdateCertificateHash(r.Context(), caller, chi.URLParam(r, "batchID"), req.CertificateHash)
	h.respondEvent(w, r, http.StatusOK, event, err)
}

func (h *Handler) handleGetBatchDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.registry.GetBatchDetails(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details.ToResponse())
}

func (h *Handler) handleCheckValidity(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	valid, err := h.registry.CheckBatchValidity(r.Context(), batchID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ValidityResponse{BatchID: batchID, Valid: valid})
}

func (h *Handler) handleBatchExists(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	exists, err := h.registry.BatchExists(r.Context(), batchID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ExistsResponse{BatchID: batchID, Exists: exists})
}

// caller reads the address set by RequireAuth.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	caller, ok := requestcontext.Caller(r.Context())
	if !ok {
		// This should never happen if RequireAuth middleware is configured correctly
		h.logger.ErrorContext(r.Context(), "caller missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return caller, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) respondEvent(w http.ResponseWriter, r *http.Request, status int, event *models.BatchEvent, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, status, models.NewEventResponse(event))
}

// writeError logs client errors at Warn and server errors at Error before
// rendering the error body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := httputil.StatusFor(dErrors.CodeOf(err))
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"batch_id", dErrors.BatchIDOf(err),
		"code", dErrors.CodeOf(err),
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "batch request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "batch request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}
