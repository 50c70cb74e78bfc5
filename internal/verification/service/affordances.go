package service

import (
	"context"

	"github.com/google/uuid"

	"warden/internal/verification/models"
	dErrors "warden/pkg/domain-errors"
	audit "warden/pkg/platform/audit"
	"warden/pkg/requestcontext"
)

// ReconcileResult summarizes a startup affordance replay.
type ReconcileResult struct {
	Rearmed int
	Pruned  int
	Skipped int
}

// Reconcile replays persisted affordances after a restart: affordances whose
// host message still exists are re-armed, the rest are pruned. Platform
// lookups that fail transiently leave the affordance in place for the next
// run rather than aborting the whole pass.
func (s *Service) Reconcile(ctx context.Context) (ReconcileResult, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Reconcile")
	defer span.End()

	var result ReconcileResult

	affordances, err := s.store.ListAffordances(ctx)
	if err != nil {
		return result, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list pending affordances")
	}

	for _, a := range affordances {
		exists, err := s.adapter.MessageStillExists(ctx, a.MessageRef, a.ChannelRef)
		if err != nil {
			s.logger.WarnContext(ctx, "could not check affordance message, keeping it",
				"affordance_id", a.ID, "message_ref", a.MessageRef, "error", err)
			result.Skipped++
			continue
		}

		if !exists {
			if err := s.store.DeleteAffordance(ctx, a.ID); err != nil {
				return result, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to prune affordance")
			}
			if s.metrics != nil {
				s.metrics.AffordancesPruned.Inc()
			}
			s.emitAudit(ctx, audit.ActionAffordancePruned, "", a.RealmID, a.MessageRef)
			result.Pruned++
			continue
		}

		if err := s.adapter.RearmAffordance(ctx, a); err != nil {
			s.logger.WarnContext(ctx, "could not re-arm affordance, keeping it",
				"affordance_id", a.ID, "message_ref", a.MessageRef, "error", err)
			result.Skipped++
			continue
		}
		s.emitAudit(ctx, audit.ActionAffordanceRearmed, "", a.RealmID, a.MessageRef)
		result.Rearmed++
	}

	s.logger.InfoContext(ctx, "affordance reconciliation complete",
		"rearmed", result.Rearmed, "pruned", result.Pruned, "skipped", result.Skipped)
	return result, nil
}

// RegisterAffordance persists a new verify button so it survives restarts.
// The ID is assigned here when the caller leaves it empty.
func (s *Service) RegisterAffordance(ctx context.Context, a models.PendingAffordance) (models.PendingAffordance, error) {
	if a.MessageRef == "" || a.ChannelRef == "" {
		return models.PendingAffordance{}, dErrors.New(dErrors.CodeInvalidInput, "message_ref and channel_ref are required")
	}
	if a.RealmID == "" || len(a.RealmID) > 64 {
		return models.PendingAffordance{}, dErrors.New(dErrors.CodeInvalidInput, "realm id must be 1-64 characters")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = requestcontext.Now(ctx)
	}

	if err := s.store.SaveAffordance(ctx, a); err != nil {
		return models.PendingAffordance{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to save affordance")
	}
	s.emitAudit(ctx, audit.ActionAffordanceRegistered, "", a.RealmID, a.MessageRef)
	return a, nil
}

// ListAffordances returns every persisted affordance.
func (s *Service) ListAffordances(ctx context.Context) ([]models.PendingAffordance, error) {
	affordances, err := s.store.ListAffordances(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list affordances")
	}
	return affordances, nil
}

// RemoveAffordance deletes a persisted affordance by ID.
func (s *Service) RemoveAffordance(ctx context.Context, id string) error {
	if id == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "affordance id is required")
	}
	if err := s.store.DeleteAffordance(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to delete affordance")
	}
	return nil
}
