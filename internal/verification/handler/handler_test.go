package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/internal/platform/config"
	"warden/internal/verification/models"
	"warden/internal/verification/service"
	dErrors "warden/pkg/domain-errors"
)

type stubService struct {
	challengeOutcome *models.ChallengeOutcome
	submitOutcome    *models.SubmissionOutcome
	verified         bool
	err              error

	affordances []models.PendingAffordance
	reconcile   service.ReconcileResult
}

func (s *stubService) RequestChallenge(context.Context, string, string) (*models.ChallengeOutcome, error) {
	return s.challengeOutcome, s.err
}

func (s *stubService) SubmitAnswer(context.Context, string, string, string) (*models.SubmissionOutcome, error) {
	return s.submitOutcome, s.err
}

func (s *stubService) IsVerified(context.Context, string, string) (bool, error) {
	return s.verified, s.err
}

func (s *stubService) RegisterAffordance(_ context.Context, a models.PendingAffordance) (models.PendingAffordance, error) {
	a.ID = "aff-generated"
	return a, s.err
}

func (s *stubService) ListAffordances(context.Context) ([]models.PendingAffordance, error) {
	return s.affordances, s.err
}

func (s *stubService) RemoveAffordance(context.Context, string) error { return s.err }

func (s *stubService) Reconcile(context.Context) (service.ReconcileResult, error) {
	return s.reconcile, s.err
}

func testMessages() config.MessagesConfig {
	return config.MessagesConfig{
		Welcome:         "welcome",
		AlreadyVerified: "already verified",
		Success:         "success",
		Failed:          "failed",
		Timeout:         "timeout",
	}
}

func newRouter(svc *stubService) *chi.Mux {
	h := New(svc, svc, testMessages(), slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestHandleRequestChallenge(t *testing.T) {
	t.Run("issued challenge returns base64 image", func(t *testing.T) {
		svc := &stubService{challengeOutcome: &models.ChallengeOutcome{
			Kind:     models.ChallengeIssued,
			ImagePNG: []byte("png-bytes"),
		}}
		w := doJSON(t, newRouter(svc), http.MethodPost, "/verify/request",
			`{"subject_id":"subject-1","realm_id":"realm-1"}`)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[ChallengeResponse](t, w)
		assert.Equal(t, "issued", resp.Status)
		assert.Equal(t, "welcome", resp.Message)
		assert.Equal(t, "cG5nLWJ5dGVz", resp.ImagePNG)
	})

	t.Run("lockout returns 429 with retry header", func(t *testing.T) {
		svc := &stubService{challengeOutcome: &models.ChallengeOutcome{
			Kind:       models.ChallengeTimeout,
			RetryAfter: 90 * time.Second,
		}}
		w := doJSON(t, newRouter(svc), http.MethodPost, "/verify/request",
			`{"subject_id":"subject-1","realm_id":"realm-1"}`)

		require.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "90", w.Header().Get("Retry-After"))
		resp := decodeBody[ChallengeResponse](t, w)
		assert.Equal(t, "timeout", resp.Status)
		assert.Equal(t, 90, resp.RetryAfterSeconds)
	})

	t.Run("missing subject id is rejected", func(t *testing.T) {
		w := doJSON(t, newRouter(&stubService{}), http.MethodPost, "/verify/request",
			`{"realm_id":"realm-1"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("service errors map through the error envelope", func(t *testing.T) {
		svc := &stubService{err: dErrors.New(dErrors.CodeUnavailable, "store down")}
		w := doJSON(t, newRouter(svc), http.MethodPost, "/verify/request",
			`{"subject_id":"subject-1","realm_id":"realm-1"}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHandleSubmitAnswer(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &stubService{submitOutcome: &models.SubmissionOutcome{Kind: models.SubmissionSuccess}}
		w := doJSON(t, newRouter(svc), http.MethodPost, "/verify/submit",
			`{"subject_id":"subject-1","realm_id":"realm-1","answer":"ABC234"}`)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[SubmitResponse](t, w)
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "success", resp.Message)
	})

	t.Run("wrong answer carries attempts and fresh image", func(t *testing.T) {
		svc := &stubService{submitOutcome: &models.SubmissionOutcome{
			Kind:         models.SubmissionWrongAnswer,
			AttemptsUsed: 2,
			AttemptsMax:  5,
			ImagePNG:     []byte("fresh"),
		}}
		w := doJSON(t, newRouter(svc), http.MethodPost, "/verify/submit",
			`{"subject_id":"subject-1","realm_id":"realm-1","answer":"NOPE"}`)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[SubmitResponse](t, w)
		assert.Equal(t, "wrong_answer", resp.Status)
		assert.Equal(t, 2, resp.AttemptsUsed)
		assert.Equal(t, 5, resp.AttemptsMax)
		assert.NotEmpty(t, resp.ImagePNG)
	})

	t.Run("locked out returns 429", func(t *testing.T) {
		svc := &stubService{submitOutcome: &models.SubmissionOutcome{
			Kind:       models.SubmissionLockedOut,
			RetryAfter: 10 * time.Minute,
		}}
		w := doJSON(t, newRouter(svc), http.MethodPost, "/verify/submit",
			`{"subject_id":"subject-1","realm_id":"realm-1","answer":"NOPE"}`)

		require.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "600", w.Header().Get("Retry-After"))
	})

	t.Run("expired challenge returns 410", func(t *testing.T) {
		svc := &stubService{submitOutcome: &models.SubmissionOutcome{Kind: models.SubmissionChallengeExpired}}
		w := doJSON(t, newRouter(svc), http.MethodPost, "/verify/submit",
			`{"subject_id":"subject-1","realm_id":"realm-1","answer":"ABC234"}`)
		assert.Equal(t, http.StatusGone, w.Code)
	})

	t.Run("permission denied returns 403", func(t *testing.T) {
		svc := &stubService{submitOutcome: &models.SubmissionOutcome{Kind: models.SubmissionPermissionDenied}}
		w := doJSON(t, newRouter(svc), http.MethodPost, "/verify/submit",
			`{"subject_id":"subject-1","realm_id":"realm-1","answer":"ABC234"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("empty answer is rejected before the service", func(t *testing.T) {
		w := doJSON(t, newRouter(&stubService{}), http.MethodPost, "/verify/submit",
			`{"subject_id":"subject-1","realm_id":"realm-1","answer":""}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleStatus(t *testing.T) {
	t.Run("reports verified flag", func(t *testing.T) {
		svc := &stubService{verified: true}
		w := doJSON(t, newRouter(svc), http.MethodGet,
			"/verify/status?subject_id=subject-1&realm_id=realm-1", "")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[StatusResponse](t, w)
		assert.True(t, resp.Verified)
		assert.Equal(t, "subject-1", resp.SubjectID)
	})

	t.Run("missing query params rejected", func(t *testing.T) {
		w := doJSON(t, newRouter(&stubService{}), http.MethodGet, "/verify/status", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminEndpoints(t *testing.T) {
	t.Run("register affordance", func(t *testing.T) {
		w := doJSON(t, newRouter(&stubService{}), http.MethodPost, "/admin/affordances",
			`{"message_ref":"msg-1","channel_ref":"chan-1","realm_id":"realm-1"}`)

		require.Equal(t, http.StatusCreated, w.Code)
		resp := decodeBody[models.PendingAffordance](t, w)
		assert.Equal(t, "aff-generated", resp.ID)
	})

	t.Run("list affordances never returns null", func(t *testing.T) {
		w := doJSON(t, newRouter(&stubService{}), http.MethodGet, "/admin/affordances", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"affordances":[]`)
	})

	t.Run("delete affordance", func(t *testing.T) {
		w := doJSON(t, newRouter(&stubService{}), http.MethodDelete, "/admin/affordances/aff-1", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("reconcile reports counts", func(t *testing.T) {
		svc := &stubService{reconcile: service.ReconcileResult{Rearmed: 2, Pruned: 1}}
		w := doJSON(t, newRouter(svc), http.MethodPost, "/admin/reconcile", "")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[ReconcileResponse](t, w)
		assert.Equal(t, 2, resp.Rearmed)
		assert.Equal(t, 1, resp.Pruned)
	})
}
