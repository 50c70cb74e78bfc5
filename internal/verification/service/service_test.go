package service

//go:generate mockgen -source=../ports/ports.go -destination=mocks/mocks.go -package=mocks Store,PlatformAdapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"warden/internal/verification/models"
	"warden/internal/verification/service/mocks"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/sentinel"
	"warden/pkg/requestcontext"
)

// stubGenerator returns predictable solutions so tests can submit right and
// wrong answers deliberately.
type stubGenerator struct {
	mu       sync.Mutex
	solution string
	issued   int
	err      error
}

func (g *stubGenerator) Issue() (string, []byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", nil, g.err
	}
	g.issued++
	return g.solution, []byte{0x89, 'P', 'N', 'G'}, nil
}

type fixture struct {
	ctrl      *gomock.Controller
	store     *mocks.MockStore
	adapter   *mocks.MockPlatformAdapter
	generator *stubGenerator
	svc       *Service
	ctx       context.Context
	now       time.Time
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	adapter := mocks.NewMockPlatformAdapter(ctrl)
	generator := &stubGenerator{solution: "ABC234"}

	svc, err := New(store, adapter, generator, cfg)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &fixture{
		ctrl:      ctrl,
		store:     store,
		adapter:   adapter,
		generator: generator,
		svc:       svc,
		ctx:       requestcontext.WithTime(context.Background(), now),
		now:       now,
	}
}

func defaultConfig() Config {
	return Config{MaxAttempts: 5, Timeout: 10 * time.Minute, RoleConfigured: true}
}

// issueFor walks the subject into ChallengePending.
func (f *fixture) issueFor(t *testing.T, subjectID string) {
	t.Helper()
	f.store.EXPECT().IsVerified(gomock.Any(), subjectID, "realm-1").Return(false, nil)
	outcome, err := f.svc.RequestChallenge(f.ctx, subjectID, "realm-1")
	require.NoError(t, err)
	require.Equal(t, models.ChallengeIssued, outcome.Kind)
}

func TestService_RequestChallenge(t *testing.T) {
	t.Run("issues challenge with image", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.store.EXPECT().IsVerified(gomock.Any(), "subject-1", "realm-1").Return(false, nil)

		outcome, err := f.svc.RequestChallenge(f.ctx, "subject-1", "realm-1")
		require.NoError(t, err)
		assert.Equal(t, models.ChallengeIssued, outcome.Kind)
		assert.NotEmpty(t, outcome.ImagePNG)
	})

	t.Run("already verified subjects get no challenge", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.store.EXPECT().IsVerified(gomock.Any(), "subject-1", "realm-1").Return(true, nil)

		outcome, err := f.svc.RequestChallenge(f.ctx, "subject-1", "realm-1")
		require.NoError(t, err)
		assert.Equal(t, models.ChallengeAlreadyVerified, outcome.Kind)
		assert.Empty(t, outcome.ImagePNG)
	})

	t.Run("new challenge supersedes the old one", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.issueFor(t, "subject-1")
		f.issueFor(t, "subject-1")
		assert.Equal(t, 2, f.generator.issued)

		// Only the latest solution matches.
		f.adapter.EXPECT().GrantRole(gomock.Any(), "subject-1", "realm-1").Return(nil)
		f.store.EXPECT().MarkVerified(gomock.Any(), "subject-1", "realm-1").Return(nil)
		outcome, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "ABC234")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionSuccess, outcome.Kind)
	})

	t.Run("store failure surfaces as unavailable", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.store.EXPECT().IsVerified(gomock.Any(), "subject-1", "realm-1").Return(false, errors.New("db down"))

		_, err := f.svc.RequestChallenge(f.ctx, "subject-1", "realm-1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("rejects malformed subject id", func(t *testing.T) {
		f := newFixture(t, defaultConfig())

		_, err := f.svc.RequestChallenge(f.ctx, "", "realm-1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestService_SubmitAnswer(t *testing.T) {
	t.Run("correct answer grants role and persists", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.issueFor(t, "subject-1")

		gomock.InOrder(
			f.adapter.EXPECT().GrantRole(gomock.Any(), "subject-1", "realm-1").Return(nil),
			f.store.EXPECT().MarkVerified(gomock.Any(), "subject-1", "realm-1").Return(nil),
		)

		outcome, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "ABC234")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionSuccess, outcome.Kind)
	})

	t.Run("comparison ignores case and surrounding whitespace", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.issueFor(t, "subject-1")

		f.adapter.EXPECT().GrantRole(gomock.Any(), "subject-1", "realm-1").Return(nil)
		f.store.EXPECT().MarkVerified(gomock.Any(), "subject-1", "realm-1").Return(nil)

		outcome, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "  abc234\t")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionSuccess, outcome.Kind)
	})

	t.Run("wrong answer issues a replacement challenge", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.issueFor(t, "subject-1")

		outcome, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "WRONG1")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionWrongAnswer, outcome.Kind)
		assert.Equal(t, 1, outcome.AttemptsUsed)
		assert.Equal(t, 5, outcome.AttemptsMax)
		assert.NotEmpty(t, outcome.ImagePNG)
		assert.Equal(t, 2, f.generator.issued)
	})

	t.Run("exhausting attempts locks the subject out", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.issueFor(t, "subject-1")

		for i := 1; i < 5; i++ {
			outcome, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "WRONG1")
			require.NoError(t, err)
			require.Equal(t, models.SubmissionWrongAnswer, outcome.Kind, "attempt %d", i)
			require.Equal(t, i, outcome.AttemptsUsed)
		}

		outcome, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "WRONG1")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionLockedOut, outcome.Kind)
		assert.Equal(t, 10*time.Minute, outcome.RetryAfter)

		// Challenge requests during the window report the remaining time.
		f.store.EXPECT().IsVerified(gomock.Any(), "subject-1", "realm-1").Return(false, nil)
		challenge, err := f.svc.RequestChallenge(f.ctx, "subject-1", "realm-1")
		require.NoError(t, err)
		assert.Equal(t, models.ChallengeTimeout, challenge.Kind)
		assert.Equal(t, 10*time.Minute, challenge.RetryAfter)
	})

	t.Run("window expiry restores a clean slate", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.issueFor(t, "subject-1")
		for range 5 {
			_, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "WRONG1")
			require.NoError(t, err)
		}

		after := requestcontext.WithTime(context.Background(), f.now.Add(10*time.Minute+time.Second))
		f.store.EXPECT().IsVerified(gomock.Any(), "subject-1", "realm-1").Return(false, nil)
		outcome, err := f.svc.RequestChallenge(after, "subject-1", "realm-1")
		require.NoError(t, err)
		assert.Equal(t, models.ChallengeIssued, outcome.Kind)

		// Counter restarted from zero.
		submitted, err := f.svc.SubmitAnswer(after, "subject-1", "realm-1", "WRONG1")
		require.NoError(t, err)
		assert.Equal(t, 1, submitted.AttemptsUsed)
	})

	t.Run("submission without live challenge does not count", func(t *testing.T) {
		f := newFixture(t, defaultConfig())

		outcome, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "ABC234")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionChallengeExpired, outcome.Kind)

		// Next wrong answer is attempt one, not two.
		f.issueFor(t, "subject-1")
		submitted, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "WRONG1")
		require.NoError(t, err)
		assert.Equal(t, 1, submitted.AttemptsUsed)
	})

	t.Run("forbidden grant persists nothing and keeps the challenge", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.issueFor(t, "subject-1")

		f.adapter.EXPECT().GrantRole(gomock.Any(), "subject-1", "realm-1").Return(sentinel.ErrForbidden)
		outcome, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "ABC234")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionPermissionDenied, outcome.Kind)

		// Challenge still live: resubmitting succeeds once permissions allow.
		f.adapter.EXPECT().GrantRole(gomock.Any(), "subject-1", "realm-1").Return(nil)
		f.store.EXPECT().MarkVerified(gomock.Any(), "subject-1", "realm-1").Return(nil)
		retried, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "ABC234")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionSuccess, retried.Kind)
	})

	t.Run("missing role still records verification", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.issueFor(t, "subject-1")

		f.adapter.EXPECT().GrantRole(gomock.Any(), "subject-1", "realm-1").Return(sentinel.ErrRoleMissing)
		f.store.EXPECT().MarkVerified(gomock.Any(), "subject-1", "realm-1").Return(nil)

		outcome, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "ABC234")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionNoRoleConfigured, outcome.Kind)
	})

	t.Run("no configured role skips the adapter entirely", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.RoleConfigured = false
		f := newFixture(t, cfg)
		f.issueFor(t, "subject-1")

		f.store.EXPECT().MarkVerified(gomock.Any(), "subject-1", "realm-1").Return(nil)

		outcome, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "ABC234")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionNoRoleConfigured, outcome.Kind)
	})

	t.Run("persist failure is retryable", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.issueFor(t, "subject-1")

		f.adapter.EXPECT().GrantRole(gomock.Any(), "subject-1", "realm-1").Return(nil)
		f.store.EXPECT().MarkVerified(gomock.Any(), "subject-1", "realm-1").Return(errors.New("disk full"))

		_, err := f.svc.SubmitAnswer(f.ctx, "subject-1", "realm-1", "ABC234")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("subjects are isolated", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.issueFor(t, "subject-a")
		f.issueFor(t, "subject-b")

		for range 5 {
			_, err := f.svc.SubmitAnswer(f.ctx, "subject-a", "realm-1", "WRONG1")
			require.NoError(t, err)
		}

		// subject-b is untouched by subject-a's lockout.
		outcome, err := f.svc.SubmitAnswer(f.ctx, "subject-b", "realm-1", "WRONG1")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionWrongAnswer, outcome.Kind)
		assert.Equal(t, 1, outcome.AttemptsUsed)
	})
}

func TestService_SubmitAnswer_Concurrent(t *testing.T) {
	f := newFixture(t, defaultConfig())

	const subjects = 8
	for i := range subjects {
		f.issueFor(t, fmt.Sprintf("subject-%d", i))
	}

	done := make(chan error, subjects)
	for i := range subjects {
		go func(id string) {
			_, err := f.svc.SubmitAnswer(f.ctx, id, "realm-1", "WRONG1")
			done <- err
		}(fmt.Sprintf("subject-%d", i))
	}
	for range subjects {
		require.NoError(t, <-done)
	}
	for i := range subjects {
		assert.Equal(t, 1, f.svc.tracker.Peek(fmt.Sprintf("subject-%d", i)))
	}
}

func TestService_IsVerified(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.store.EXPECT().IsVerified(gomock.Any(), "subject-1", "realm-1").Return(true, nil)

	verified, err := f.svc.IsVerified(f.ctx, "subject-1", "realm-1")
	require.NoError(t, err)
	assert.True(t, verified)
}
