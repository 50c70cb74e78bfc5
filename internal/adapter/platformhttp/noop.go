package platformhttp

import (
	"context"

	"warden/internal/verification/models"
)

// Noop is the adapter used when no platform base URL is configured, for
// local development and tests. Grants succeed without effect and every
// affordance message is treated as still present.
type Noop struct{}

func (Noop) GrantRole(ctx context.Context, subjectID, realmID string) error { return nil }

func (Noop) MessageStillExists(ctx context.Context, messageRef, channelRef string) (bool, error) {
	return true, nil
}

func (Noop) RearmAffordance(ctx context.Context, affordance models.PendingAffordance) error {
	return nil
}
