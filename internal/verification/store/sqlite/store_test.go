package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/internal/verification/models"
	"warden/pkg/requestcontext"
)

type SQLiteStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, new(SQLiteStoreSuite))
}

func (s *SQLiteStoreSuite) SetupTest() {
	store, err := Open(filepath.Join(s.T().TempDir(), "verification.db"))
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
}

func (s *SQLiteStoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *SQLiteStoreSuite) TestVerifiedRecords() {
	s.Run("unverified by default", func() {
		verified, err := s.store.IsVerified(s.ctx, "subject-1", "realm-1")
		s.Require().NoError(err)
		s.False(verified)
	})

	s.Run("mark then read back", func() {
		s.Require().NoError(s.store.MarkVerified(s.ctx, "subject-1", "realm-1"))

		verified, err := s.store.IsVerified(s.ctx, "subject-1", "realm-1")
		s.Require().NoError(err)
		s.True(verified)
	})

	s.Run("scoped to the realm", func() {
		s.Require().NoError(s.store.MarkVerified(s.ctx, "subject-2", "realm-1"))

		verified, err := s.store.IsVerified(s.ctx, "subject-2", "realm-2")
		s.Require().NoError(err)
		s.False(verified)
	})

	s.Run("marking twice keeps the first timestamp", func() {
		first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		s.Require().NoError(s.store.MarkVerified(requestcontext.WithTime(s.ctx, first), "subject-3", "realm-1"))
		s.Require().NoError(s.store.MarkVerified(requestcontext.WithTime(s.ctx, first.Add(time.Hour)), "subject-3", "realm-1"))

		verified, err := s.store.IsVerified(s.ctx, "subject-3", "realm-1")
		s.Require().NoError(err)
		s.True(verified)
	})
}

func (s *SQLiteStoreSuite) TestAffordances() {
	affordance := models.PendingAffordance{
		ID:         "aff-1",
		MessageRef: "msg-1",
		ChannelRef: "chan-1",
		RealmID:    "realm-1",
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	s.Run("save and list round-trips", func() {
		s.Require().NoError(s.store.SaveAffordance(s.ctx, affordance))

		listed, err := s.store.ListAffordances(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(listed, 1)
		s.Equal(affordance.ID, listed[0].ID)
		s.Equal(affordance.MessageRef, listed[0].MessageRef)
		s.Equal(affordance.ChannelRef, listed[0].ChannelRef)
		s.Equal(affordance.RealmID, listed[0].RealmID)
		s.True(affordance.CreatedAt.Equal(listed[0].CreatedAt))
	})

	s.Run("saving the same id updates in place", func() {
		updated := affordance
		updated.MessageRef = "msg-2"
		s.Require().NoError(s.store.SaveAffordance(s.ctx, updated))

		listed, err := s.store.ListAffordances(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(listed, 1)
		s.Equal("msg-2", listed[0].MessageRef)
	})

	s.Run("delete removes, missing id is a no-op", func() {
		s.Require().NoError(s.store.DeleteAffordance(s.ctx, "aff-1"))
		s.Require().NoError(s.store.DeleteAffordance(s.ctx, "aff-1"))

		listed, err := s.store.ListAffordances(s.ctx)
		s.Require().NoError(err)
		s.Empty(listed)
	})
}

func (s *SQLiteStoreSuite) TestSurvivesReopen() {
	path := filepath.Join(s.T().TempDir(), "durable.db")

	store, err := Open(path)
	s.Require().NoError(err)
	s.Require().NoError(store.MarkVerified(s.ctx, "subject-1", "realm-1"))
	s.Require().NoError(store.SaveAffordance(s.ctx, models.PendingAffordance{
		ID: "aff-1", MessageRef: "msg-1", ChannelRef: "chan-1", RealmID: "realm-1",
		CreatedAt: time.Now().UTC(),
	}))
	s.Require().NoError(store.Close())

	reopened, err := Open(path)
	s.Require().NoError(err)
	defer reopened.Close()

	verified, err := reopened.IsVerified(s.ctx, "subject-1", "realm-1")
	s.Require().NoError(err)
	s.True(verified)

	listed, err := reopened.ListAffordances(s.ctx)
	s.Require().NoError(err)
	s.Len(listed, 1)
}
