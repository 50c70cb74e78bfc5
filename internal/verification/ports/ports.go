// Package ports defines shared interfaces for the verification module.
// Interfaces are placed here when consumed by multiple packages to avoid
// duplication.
package ports

import (
	"context"

	"warden/internal/verification/models"
	audit "warden/pkg/platform/audit"
)

// Store is the durable record of verified subjects and pending affordances.
// Implementations must make each write atomic and be safe under interleaved
// calls from concurrent verification flows for different subjects.
type Store interface {
	// MarkVerified records a (subject, realm) pair as verified. Idempotent.
	MarkVerified(ctx context.Context, subjectID, realmID string) error

	// IsVerified reports whether a (subject, realm) pair is verified.
	IsVerified(ctx context.Context, subjectID, realmID string) (bool, error)

	// SaveAffordance persists a pending verify button.
	SaveAffordance(ctx context.Context, affordance models.PendingAffordance) error

	// DeleteAffordance removes a pending verify button by ID. Deleting a
	// missing affordance is a no-op.
	DeleteAffordance(ctx context.Context, id string) error

	// ListAffordances returns all pending verify buttons, used at startup
	// reconciliation.
	ListAffordances(ctx context.Context) ([]models.PendingAffordance, error)

	Close() error
}

// PlatformAdapter is the narrow surface of the chat platform the core needs.
// Implementations wrap the platform's API; the core never talks to it
// directly.
type PlatformAdapter interface {
	// GrantRole assigns the verified role. Returns sentinel.ErrForbidden when
	// platform policy refuses, sentinel.ErrRoleMissing when the role does not
	// exist or none is configured.
	GrantRole(ctx context.Context, subjectID, realmID string) error

	// MessageStillExists reports whether the message hosting an affordance is
	// still present.
	MessageStillExists(ctx context.Context, messageRef, channelRef string) (bool, error)

	// RearmAffordance re-attaches live click handling to an affordance after
	// a restart.
	RearmAffordance(ctx context.Context, affordance models.PendingAffordance) error
}

// AuditPublisher is an alias to the shared interface.
type AuditPublisher = audit.Publisher
