// Package service implements the verification state machine.
//
// Per subject the machine moves Unverified → ChallengePending → one of:
// back to Unverified (wrong answer, retries left), LockedOut (attempts
// exhausted, cleared after the timeout window), or Verified (terminal).
// All mutable per-subject state (live challenge, attempt counter, timeout
// window) is owned here and accessed only through the exported operations.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"warden/internal/platform/metrics"
	"warden/internal/verification/attempts"
	"warden/internal/verification/models"
	"warden/internal/verification/ports"
	dErrors "warden/pkg/domain-errors"
	audit "warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
	"warden/pkg/requestcontext"
)

// ChallengeGenerator produces a solution string and the obfuscated image
// encoding it.
type ChallengeGenerator interface {
	Issue() (solution string, imagePNG []byte, err error)
}

// Config carries the retry policy knobs the state machine needs.
type Config struct {
	MaxAttempts    int
	Timeout        time.Duration
	RoleConfigured bool
}

// Service orchestrates the generator, store, and attempt tracker.
type Service struct {
	store     ports.Store
	adapter   ports.PlatformAdapter
	generator ChallengeGenerator
	tracker   *attempts.Tracker
	cfg       Config

	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher ports.AuditPublisher
	tracer         trace.Tracer

	// challenges holds the single live challenge per subject. subjectLocks
	// serializes flows for the same subject; distinct subjects proceed in
	// parallel.
	mu           sync.Mutex
	challenges   map[string]*models.Challenge
	subjectLocks map[string]*sync.Mutex
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func New(store ports.Store, adapter ports.PlatformAdapter, generator ChallengeGenerator, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("verification store is required")
	}
	if adapter == nil {
		return nil, errors.New("platform adapter is required")
	}
	if generator == nil {
		return nil, errors.New("challenge generator is required")
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}

	svc := &Service{
		store:        store,
		adapter:      adapter,
		generator:    generator,
		tracker:      attempts.NewTracker(),
		cfg:          cfg,
		logger:       slog.Default(),
		tracer:       otel.Tracer("warden/verification"),
		challenges:   make(map[string]*models.Challenge),
		subjectLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RequestChallenge answers "may this subject get a captcha, and if so which".
func (s *Service) RequestChallenge(ctx context.Context, subjectID, realmID string) (*models.ChallengeOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "verification.RequestChallenge")
	defer span.End()

	if err := validateIDs(subjectID, realmID); err != nil {
		return nil, err
	}

	unlock := s.lockSubject(subjectID)
	defer unlock()

	verified, err := s.store.IsVerified(ctx, subjectID, realmID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read verification record")
	}
	if verified {
		return &models.ChallengeOutcome{Kind: models.ChallengeAlreadyVerified}, nil
	}

	now := requestcontext.Now(ctx)
	if remaining, locked := s.tracker.LockedRemaining(subjectID, now); locked {
		return &models.ChallengeOutcome{Kind: models.ChallengeTimeout, RetryAfter: remaining}, nil
	}

	img, err := s.issueChallenge(ctx, subjectID, now)
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.ActionChallengeIssued, subjectID, realmID, "")
	return &models.ChallengeOutcome{Kind: models.ChallengeIssued, ImagePNG: img}, nil
}

// SubmitAnswer checks a submission against the subject's live challenge and
// advances the state machine.
func (s *Service) SubmitAnswer(ctx context.Context, subjectID, realmID, answer string) (*models.SubmissionOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "verification.SubmitAnswer")
	defer span.End()

	if err := validateIDs(subjectID, realmID); err != nil {
		return nil, err
	}
	// Untrusted input: bound before comparison. Anything longer than a
	// rendered solution can never match anyway.
	if len(answer) > 128 {
		answer = answer[:128]
	}

	unlock := s.lockSubject(subjectID)
	defer unlock()

	now := requestcontext.Now(ctx)
	if remaining, locked := s.tracker.LockedRemaining(subjectID, now); locked {
		return s.observe(&models.SubmissionOutcome{
			Kind:       models.SubmissionLockedOut,
			RetryAfter: remaining,
		}), nil
	}

	s.mu.Lock()
	challenge := s.challenges[subjectID]
	s.mu.Unlock()

	if challenge == nil {
		// No live challenge (superseded or lost to a restart). Do not count
		// it against the subject; tell the caller to request a fresh one.
		return s.observe(&models.SubmissionOutcome{Kind: models.SubmissionChallengeExpired}), nil
	}

	if challenge.Matches(answer) {
		return s.completeVerification(ctx, subjectID, realmID)
	}

	count := s.tracker.IncrementAndGet(subjectID)
	if count >= s.cfg.MaxAttempts {
		s.tracker.LockOut(subjectID, now, s.cfg.Timeout)
		s.clearChallenge(subjectID)
		if s.metrics != nil {
			s.metrics.LockoutsTriggered.Inc()
		}
		s.emitAudit(ctx, audit.ActionVerificationLockout, subjectID, realmID, "")
		return s.observe(&models.SubmissionOutcome{
			Kind:       models.SubmissionLockedOut,
			RetryAfter: s.cfg.Timeout,
		}), nil
	}

	// Wrong but retries remain: supersede the challenge so the same image
	// cannot be brute-forced.
	img, err := s.issueChallenge(ctx, subjectID, now)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, audit.ActionVerificationFailed, subjectID, realmID, "")
	return s.observe(&models.SubmissionOutcome{
		Kind:         models.SubmissionWrongAnswer,
		AttemptsUsed: count,
		AttemptsMax:  s.cfg.MaxAttempts,
		ImagePNG:     img,
	}), nil
}

// IsVerified is a pure read against the store.
func (s *Service) IsVerified(ctx context.Context, subjectID, realmID string) (bool, error) {
	if err := validateIDs(subjectID, realmID); err != nil {
		return false, err
	}
	verified, err := s.store.IsVerified(ctx, subjectID, realmID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read verification record")
	}
	return verified, nil
}

// completeVerification runs the grant-then-persist sequence for a correct
// answer. The role is granted before the record is written so a refused grant
// leaves no half-verified state; the challenge stays live in that case so the
// subject can resubmit once permissions are fixed.
func (s *Service) completeVerification(ctx context.Context, subjectID, realmID string) (*models.SubmissionOutcome, error) {
	kind := models.SubmissionSuccess

	if s.cfg.RoleConfigured {
		switch err := s.adapter.GrantRole(ctx, subjectID, realmID); {
		case err == nil:
		case errors.Is(err, sentinel.ErrForbidden):
			s.logger.WarnContext(ctx, "role grant forbidden by platform policy",
				"subject_id", subjectID, "realm_id", realmID)
			return s.observe(&models.SubmissionOutcome{Kind: models.SubmissionPermissionDenied}), nil
		case errors.Is(err, sentinel.ErrRoleMissing):
			kind = models.SubmissionNoRoleConfigured
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to grant role")
		}
	} else {
		kind = models.SubmissionNoRoleConfigured
	}

	if err := s.store.MarkVerified(ctx, subjectID, realmID); err != nil {
		// Retryable: the grant (if any) is idempotent, so the subject can
		// simply resubmit.
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist verification record")
	}

	s.clearChallenge(subjectID)
	s.tracker.Clear(subjectID)
	s.emitAudit(ctx, audit.ActionVerificationSucceeded, subjectID, realmID, "")
	return s.observe(&models.SubmissionOutcome{Kind: kind}), nil
}

// issueChallenge draws a fresh challenge and installs it for the subject,
// superseding any prior one.
func (s *Service) issueChallenge(ctx context.Context, subjectID string, now time.Time) ([]byte, error) {
	start := time.Now()
	solution, img, err := s.generator.Issue()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate challenge")
	}
	if s.metrics != nil {
		s.metrics.ChallengesIssued.Inc()
		s.metrics.ObserveCaptchaRender(time.Since(start))
	}

	s.mu.Lock()
	s.challenges[subjectID] = &models.Challenge{
		SubjectID: subjectID,
		Solution:  solution,
		IssuedAt:  now,
	}
	s.mu.Unlock()
	return img, nil
}

func (s *Service) clearChallenge(subjectID string) {
	s.mu.Lock()
	delete(s.challenges, subjectID)
	s.mu.Unlock()
}

// lockSubject serializes operations for one subject. Locks are retained for
// the process lifetime; the map is bounded by the set of subjects seen since
// startup.
func (s *Service) lockSubject(subjectID string) func() {
	s.mu.Lock()
	lock, ok := s.subjectLocks[subjectID]
	if !ok {
		lock = &sync.Mutex{}
		s.subjectLocks[subjectID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *Service) observe(outcome *models.SubmissionOutcome) *models.SubmissionOutcome {
	if s.metrics != nil {
		s.metrics.ObserveSubmission(string(outcome.Kind))
	}
	return outcome
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, subjectID, realmID, detail string) {
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		SubjectID: subjectID,
		RealmID:   realmID,
		Detail:    detail,
		RequestID: requestcontext.RequestID(ctx),
	}
	s.logger.InfoContext(ctx, string(action),
		"subject_id", subjectID, "realm_id", realmID, "log_type", "audit",
		"request_id", event.RequestID)
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", action, "error", err)
	}
}

func validateIDs(subjectID, realmID string) error {
	if subjectID == "" || len(subjectID) > 64 {
		return dErrors.New(dErrors.CodeInvalidInput, "subject id must be 1-64 characters")
	}
	if realmID == "" || len(realmID) > 64 {
		return dErrors.New(dErrors.CodeInvalidInput, "realm id must be 1-64 characters")
	}
	return nil
}
