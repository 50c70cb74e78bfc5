// Package audit captures security-relevant verification events.
//
// Events are emitted from domain logic and fanned out to a sink: the in-memory
// store for single-process deployments, or Kafka when brokers are configured.
package audit

import (
	"context"
	"time"
)

// Action identifies what happened.
type Action string

const (
	ActionChallengeIssued       Action = "challenge_issued"
	ActionVerificationSucceeded Action = "verification_succeeded"
	ActionVerificationFailed    Action = "verification_failed"
	ActionVerificationLockout   Action = "verification_lockout"
	ActionAffordanceRegistered  Action = "affordance_registered"
	ActionAffordancePruned      Action = "affordance_pruned"
	ActionAffordanceRearmed     Action = "affordance_rearmed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	SubjectID string    `json:"subject_id,omitempty"`
	RealmID   string    `json:"realm_id,omitempty"`
	// Detail carries action-specific context (attempt counts, affordance IDs).
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Publisher emits audit events for security-relevant operations.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
