package handler

import (
	"encoding/base64"
	"time"

	"warden/internal/platform/config"
	"warden/internal/verification/models"
	"warden/internal/verification/service"
)

// ChallengeResponse is the HTTP response body for POST /verify/request.
type ChallengeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	// ImagePNG is the base64-encoded captcha image when Status == "issued".
	ImagePNG          string `json:"image_png,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// SubmitResponse is the HTTP response body for POST /verify/submit.
type SubmitResponse struct {
	Status            string `json:"status"`
	Message           string `json:"message,omitempty"`
	AttemptsUsed      int    `json:"attempts_used,omitempty"`
	AttemptsMax       int    `json:"attempts_max,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	// ImagePNG carries the replacement captcha after a wrong answer.
	ImagePNG string `json:"image_png,omitempty"`
}

// StatusResponse is the HTTP response body for GET /verify/status.
type StatusResponse struct {
	SubjectID string `json:"subject_id"`
	RealmID   string `json:"realm_id"`
	Verified  bool   `json:"verified"`
}

// ReconcileResponse is the HTTP response body for POST /admin/reconcile.
type ReconcileResponse struct {
	Rearmed int `json:"rearmed"`
	Pruned  int `json:"pruned"`
	Skipped int `json:"skipped"`
}

// AffordanceListResponse is the HTTP response body for GET /admin/affordances.
type AffordanceListResponse struct {
	Affordances []models.PendingAffordance `json:"affordances"`
}

func fromChallengeOutcome(outcome *models.ChallengeOutcome, messages config.MessagesConfig) ChallengeResponse {
	resp := ChallengeResponse{Status: string(outcome.Kind)}
	switch outcome.Kind {
	case models.ChallengeIssued:
		resp.Message = messages.Welcome
		resp.ImagePNG = base64.StdEncoding.EncodeToString(outcome.ImagePNG)
	case models.ChallengeAlreadyVerified:
		resp.Message = messages.AlreadyVerified
	case models.ChallengeTimeout:
		resp.Message = messages.Timeout
		resp.RetryAfterSeconds = retrySeconds(outcome.RetryAfter)
	}
	return resp
}

func fromSubmissionOutcome(outcome *models.SubmissionOutcome, messages config.MessagesConfig) SubmitResponse {
	resp := SubmitResponse{Status: string(outcome.Kind)}
	switch outcome.Kind {
	case models.SubmissionSuccess, models.SubmissionNoRoleConfigured:
		resp.Message = messages.Success
	case models.SubmissionWrongAnswer:
		resp.Message = messages.Failed
		resp.AttemptsUsed = outcome.AttemptsUsed
		resp.AttemptsMax = outcome.AttemptsMax
		resp.ImagePNG = base64.StdEncoding.EncodeToString(outcome.ImagePNG)
	case models.SubmissionLockedOut:
		resp.Message = messages.Timeout
		resp.RetryAfterSeconds = retrySeconds(outcome.RetryAfter)
	case models.SubmissionChallengeExpired:
		resp.Message = "No active challenge. Request a new one."
	case models.SubmissionPermissionDenied:
		resp.Message = "Verification could not be completed. Contact an administrator."
	}
	return resp
}

func fromReconcileResult(result service.ReconcileResult) ReconcileResponse {
	return ReconcileResponse{
		Rearmed: result.Rearmed,
		Pruned:  result.Pruned,
		Skipped: result.Skipped,
	}
}

// retrySeconds rounds a remaining window up so a client that waits exactly
// this long is never told it is still locked.
func retrySeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
