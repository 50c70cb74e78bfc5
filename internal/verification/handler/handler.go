// Package handler wires the verification endpoints to the service layer.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"warden/internal/platform/config"
	"warden/internal/verification/models"
	"warden/internal/verification/service"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
	"warden/pkg/requestcontext"
)

// Service defines the verification operations the handler needs.
type Service interface {
	RequestChallenge(ctx context.Context, subjectID, realmID string) (*models.ChallengeOutcome, error)
	SubmitAnswer(ctx context.Context, subjectID, realmID, answer string) (*models.SubmissionOutcome, error)
	IsVerified(ctx context.Context, subjectID, realmID string) (bool, error)
}

// AdminService defines the operator-facing operations.
type AdminService interface {
	RegisterAffordance(ctx context.Context, a models.PendingAffordance) (models.PendingAffordance, error)
	ListAffordances(ctx context.Context) ([]models.PendingAffordance, error)
	RemoveAffordance(ctx context.Context, id string) error
	Reconcile(ctx context.Context) (service.ReconcileResult, error)
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service  Service
	admin    AdminService
	messages config.MessagesConfig
	logger   *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(svc Service, admin AdminService, messages config.MessagesConfig, logger *slog.Logger) *Handler {
	return &Handler{
		service:  svc,
		admin:    admin,
		messages: messages,
		logger:   logger,
	}
}

// Register mounts the public verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify/request", h.HandleRequestChallenge)
	r.Post("/verify/submit", h.HandleSubmitAnswer)
	r.Get("/verify/status", h.HandleStatus)
}

// RegisterAdmin mounts the operator endpoints. Callers wrap the router with
// authentication middleware before mounting.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/affordances", h.HandleListAffordances)
	r.Post("/admin/affordances", h.HandleRegisterAffordance)
	r.Delete("/admin/affordances/{id}", h.HandleRemoveAffordance)
	r.Post("/admin/reconcile", h.HandleReconcile)
}

// HandleRequestChallenge handles POST /verify/request.
func (h *Handler) HandleRequestChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ChallengeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outcome, err := h.service.RequestChallenge(ctx, req.SubjectID, req.RealmID)
	if err != nil {
		h.logger.ErrorContext(ctx, "challenge request failed",
			"request_id", requestID,
			"subject_id", req.SubjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "challenge requested",
		"request_id", requestID,
		"subject_id", req.SubjectID,
		"outcome", outcome.Kind,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	resp := fromChallengeOutcome(outcome, h.messages)
	status := http.StatusOK
	if outcome.Kind == models.ChallengeTimeout {
		status = http.StatusTooManyRequests
		w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfterSeconds))
	}
	httputil.WriteJSON(w, status, resp)
}

// HandleSubmitAnswer handles POST /verify/submit.
func (h *Handler) HandleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outcome, err := h.service.SubmitAnswer(ctx, req.SubjectID, req.RealmID, req.Answer)
	if err != nil {
		h.logger.ErrorContext(ctx, "answer submission failed",
			"request_id", requestID,
			"subject_id", req.SubjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "answer submitted",
		"request_id", requestID,
		"subject_id", req.SubjectID,
		"outcome", outcome.Kind,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	resp := fromSubmissionOutcome(outcome, h.messages)
	status := http.StatusOK
	switch outcome.Kind {
	case models.SubmissionLockedOut:
		status = http.StatusTooManyRequests
		w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfterSeconds))
	case models.SubmissionChallengeExpired:
		status = http.StatusGone
	case models.SubmissionPermissionDenied:
		status = http.StatusForbidden
	}
	httputil.WriteJSON(w, status, resp)
}

// HandleStatus handles GET /verify/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID := strings.TrimSpace(r.URL.Query().Get("subject_id"))
	realmID := strings.TrimSpace(r.URL.Query().Get("realm_id"))
	if err := validateIDPair(subjectID, realmID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	verified, err := h.service.IsVerified(ctx, subjectID, realmID)
	if err != nil {
		h.logger.ErrorContext(ctx, "status lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		SubjectID: subjectID,
		RealmID:   realmID,
		Verified:  verified,
	})
}

// HandleListAffordances handles GET /admin/affordances.
func (h *Handler) HandleListAffordances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	affordances, err := h.admin.ListAffordances(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if affordances == nil {
		affordances = []models.PendingAffordance{}
	}
	httputil.WriteJSON(w, http.StatusOK, AffordanceListResponse{Affordances: affordances})
}

// HandleRegisterAffordance handles POST /admin/affordances.
func (h *Handler) HandleRegisterAffordance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AffordanceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	saved, err := h.admin.RegisterAffordance(ctx, models.PendingAffordance{
		MessageRef: req.MessageRef,
		ChannelRef: req.ChannelRef,
		RealmID:    req.RealmID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "affordance registration failed",
			"request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, saved)
}

// HandleRemoveAffordance handles DELETE /admin/affordances/{id}.
func (h *Handler) HandleRemoveAffordance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "affordance id is required"))
		return
	}

	if err := h.admin.RemoveAffordance(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReconcile handles POST /admin/reconcile, re-running the startup
// affordance replay on demand.
func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	result, err := h.admin.Reconcile(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "reconciliation failed",
			"request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "reconciliation triggered",
		"request_id", requestID,
		"rearmed", result.Rearmed,
		"pruned", result.Pruned,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, fromReconcileResult(result))
}
