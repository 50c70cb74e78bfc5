// Package memory provides an in-memory verification store for tests and
// local development.
package memory

import (
	"context"
	"sync"

	"warden/internal/verification/models"
	"warden/pkg/requestcontext"
)

type pairKey struct {
	subjectID string
	realmID   string
}

// Store keeps verified records and affordances in process memory. Writes are
// atomic per record under the mutex; nothing survives a restart.
type Store struct {
	mu          sync.RWMutex
	verified    map[pairKey]models.VerifiedRecord
	affordances map[string]models.PendingAffordance
}

func New() *Store {
	return &Store{
		verified:    make(map[pairKey]models.VerifiedRecord),
		affordances: make(map[string]models.PendingAffordance),
	}
}

func (s *Store) MarkVerified(ctx context.Context, subjectID, realmID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{subjectID, realmID}
	if _, ok := s.verified[key]; ok {
		return nil
	}
	s.verified[key] = models.VerifiedRecord{
		SubjectID:  subjectID,
		RealmID:    realmID,
		VerifiedAt: requestcontext.Now(ctx),
	}
	return nil
}

func (s *Store) IsVerified(_ context.Context, subjectID, realmID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.verified[pairKey{subjectID, realmID}]
	return ok, nil
}

// Record returns the stored verified record for a pair, used by tests to
// inspect timestamps.
func (s *Store) Record(subjectID, realmID string) (models.VerifiedRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.verified[pairKey{subjectID, realmID}]
	return record, ok
}

func (s *Store) SaveAffordance(_ context.Context, affordance models.PendingAffordance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.affordances[affordance.ID] = affordance
	return nil
}

func (s *Store) DeleteAffordance(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.affordances, id)
	return nil
}

func (s *Store) ListAffordances(_ context.Context) ([]models.PendingAffordance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PendingAffordance, 0, len(s.affordances))
	for _, a := range s.affordances {
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
