// Package models defines the verification domain records and outcome types.
package models

import (
	"strings"
	"time"
)

// VerifiedRecord marks a (subject, realm) pair as verified. Created once on
// success, never mutated; removal is an external administrative action.
type VerifiedRecord struct {
	SubjectID  string    `json:"subject_id"`
	RealmID    string    `json:"realm_id"`
	VerifiedAt time.Time `json:"verified_at"`
}

// Challenge is the one-time captcha a subject must solve. Held only in memory,
// owned by the state machine; superseded whenever a new challenge is issued.
type Challenge struct {
	SubjectID string
	Solution  string
	IssuedAt  time.Time
}

// Matches compares a submitted answer against the solution. Comparison is
// case-insensitive and whitespace-trimmed; malformed input simply fails to
// match, it never errors.
func (c *Challenge) Matches(answer string) bool {
	if c == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(c.Solution))
}

// PendingAffordance is a still-clickable verify button rendered in a past
// message, persisted so it can be re-armed after a restart.
type PendingAffordance struct {
	ID         string    `json:"id"`
	MessageRef string    `json:"message_ref"`
	ChannelRef string    `json:"channel_ref"`
	RealmID    string    `json:"realm_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChallengeOutcomeKind enumerates the results of requesting a challenge.
type ChallengeOutcomeKind string

const (
	ChallengeIssued          ChallengeOutcomeKind = "issued"
	ChallengeAlreadyVerified ChallengeOutcomeKind = "already_verified"
	ChallengeTimeout         ChallengeOutcomeKind = "timeout"
)

// ChallengeOutcome is the result of RequestChallenge.
type ChallengeOutcome struct {
	Kind ChallengeOutcomeKind
	// ImagePNG carries the rendered captcha when Kind == ChallengeIssued.
	ImagePNG []byte
	// RetryAfter is the remaining lockout when Kind == ChallengeTimeout.
	RetryAfter time.Duration
}

// SubmissionOutcomeKind enumerates the results of submitting an answer.
type SubmissionOutcomeKind string

const (
	SubmissionSuccess SubmissionOutcomeKind = "success"
	// SubmissionWrongAnswer means the answer did not match; a fresh challenge
	// has been issued and its image is attached.
	SubmissionWrongAnswer SubmissionOutcomeKind = "wrong_answer"
	SubmissionLockedOut   SubmissionOutcomeKind = "locked_out"
	// SubmissionChallengeExpired means no live challenge existed for the
	// subject (superseded or process restarted). The attempt counter is not
	// incremented; the caller should request a new challenge.
	SubmissionChallengeExpired SubmissionOutcomeKind = "challenge_expired"
	// SubmissionNoRoleConfigured means verification succeeded and was recorded
	// but no role is configured to grant.
	SubmissionNoRoleConfigured SubmissionOutcomeKind = "no_role_configured"
	// SubmissionPermissionDenied means the answer was correct but the platform
	// refused the role grant. Nothing was persisted; the challenge stays live
	// so the subject can resubmit once permissions are fixed.
	SubmissionPermissionDenied SubmissionOutcomeKind = "permission_denied"
)

// SubmissionOutcome is the result of SubmitAnswer.
type SubmissionOutcome struct {
	Kind         SubmissionOutcomeKind
	AttemptsUsed int
	AttemptsMax  int
	// RetryAfter is the lockout duration when Kind == SubmissionLockedOut.
	RetryAfter time.Duration
	// ImagePNG carries the replacement captcha when Kind == SubmissionWrongAnswer.
	ImagePNG []byte
}
