// Package saga contains multi-step business processes that coordinate
// several ports in a fixed order.
package saga

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coursehub/course-tracker/internal/domain/achievement"
	"github.com/coursehub/course-tracker/internal/domain/shared"
	"github.com/coursehub/course-tracker/pkg/logger"
	"github.com/coursehub/course-tracker/pkg/retry"
	"github.com/coursehub/course-tracker/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT GRANT FLOW
// Flow: Acquire Lock → Load Earned → Evaluate → Diff → Grant → Publish Events
//
// Grant performs one write per candidate.
//
// Concurrency: the earned store deduplicates on write and reports whether a
// row was inserted; only rows this run wrote count as granted. The optional
// GrantLock additionally serialises whole runs per user across processes.
// The earned set is always re-read inside the run that writes.
// ══════════════════════════════════════════════════════════════════════════════

// GrantInput contains the data needed to run a grant.
type GrantInput struct {
	// UserID - the user to evaluate.
	UserID string

	// At - the earned_at timestamp for every grant of this run.
	// Zero means "now" from the saga clock.
	At time.Time

	// Trigger - what caused the run (e.g. "action_logged", "scheduler").
	Trigger string

	// CorrelationID - propagated into published events.
	CorrelationID string
}

// Validate checks if the input is valid.
func (i GrantInput) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return shared.ErrInvalidUserID
	}
	return nil
}

// GrantResult contains the outcome of a grant run.
type GrantResult struct {
	UserID string

	// Granted - definitions persisted by this run, in catalog order.
	Granted []achievement.Definition

	// Skipped - candidates another writer persisted first.
	Skipped []achievement.ID

	// Failed - candidates whose write failed, keyed by id.
	Failed map[achievement.ID]error

	ProcessedAt time.Time
}

// HasNewAchievements returns true if anything was granted.
func (r *GrantResult) HasNewAchievements() bool {
	return len(r.Granted) > 0
}

// GrantFlowStep represents a step in the grant flow.
type GrantFlowStep string

const (
	StepValidate      GrantFlowStep = "validate"
	StepAcquireLock   GrantFlowStep = "acquire_lock"
	StepLoadEarned    GrantFlowStep = "load_earned"
	StepEvaluate      GrantFlowStep = "evaluate"
	StepGrant         GrantFlowStep = "grant"
	StepPublishEvents GrantFlowStep = "publish_events"
	StepGrantComplete GrantFlowStep = "complete"
)

// Run outcomes reported to the GrantObserver.
const (
	OutcomeGranted = "granted"
	OutcomeNoop    = "noop"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// grantFlowState tracks one run.
type grantFlowState struct {
	step       GrantFlowStep
	input      GrantInput
	earned     achievement.EarnedSet
	progress   []achievement.Progress
	candidates []achievement.Definition
	result     *GrantResult
}

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// ProgressEvaluator produces catalog-ordered progress for a user from a
// freshly loaded snapshot.
type ProgressEvaluator interface {
	Evaluate(ctx context.Context, userID string) ([]achievement.Progress, error)
}

// GrantLock serialises grant runs for one user.
type GrantLock interface {
	// Acquire returns shared.ErrLockNotAcquired when another holder exists.
	Acquire(ctx context.Context, userID string) (release func(context.Context) error, err error)
}

// GrantObserver receives grant metrics.
type GrantObserver interface {
	GrantSucceeded(id achievement.ID)
	GrantFailed(id achievement.ID)
	RunFinished(outcome string)
}

// ══════════════════════════════════════════════════════════════════════════════
// SAGA
// ══════════════════════════════════════════════════════════════════════════════

// AchievementFlowConfig contains configuration for the grant saga.
type AchievementFlowConfig struct {
	// WriteAttempts - attempts per candidate write, including the first.
	WriteAttempts int

	// LockAttempts - attempts to take the per-user lock.
	LockAttempts int
}

// DefaultAchievementFlowConfig returns default configuration.
func DefaultAchievementFlowConfig() AchievementFlowConfig {
	return AchievementFlowConfig{
		WriteAttempts: 3,
		LockAttempts:  5,
	}
}

// AchievementFlowSaga decides and persists newly earned achievements.
type AchievementFlowSaga struct {
	evaluator ProgressEvaluator
	earned    achievement.EarnedRepository
	lock      GrantLock
	events    shared.EventPublisher
	observer  GrantObserver
	clock     timeutil.Clock
	log       *logger.Logger

	writeRetrier *retry.Retrier
	lockRetrier  *retry.Retrier
}

// Execute runs one grant for input.UserID.
//
// On success the result lists granted definitions in catalog order. When some
// writes fail the result is still returned, together with an
// *AchievementFlowError whose cause is a *PartialGrantError naming the failed
// ids; grants that succeeded stay granted.
func (s *AchievementFlowSaga) Execute(ctx context.Context, input GrantInput) (*GrantResult, error) {
	state := &grantFlowState{step: StepValidate, input: input}

	if err := input.Validate(); err != nil {
		return nil, s.fail(state, err)
	}
	if state.input.At.IsZero() {
		state.input.At = s.clock.Now()
	}
	// Storage keeps microseconds; At must match its stored form exactly.
	state.input.At = state.input.At.Truncate(time.Microsecond)
	log := s.log.With(logger.UserID(input.UserID), logger.String("trigger", input.Trigger))

	// Step 1: Per-user lock
	state.step = StepAcquireLock
	release, err := s.acquireLock(ctx, input.UserID)
	if err != nil {
		return nil, s.fail(state, err)
	}
	defer func() {
		if release == nil {
			return
		}
		// Release even when ctx is already cancelled.
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			log.Warn("failed to release grant lock", logger.Err(rerr))
		}
	}()

	// Step 2: Load earned set
	state.step = StepLoadEarned
	if err := s.stepLoadEarned(ctx, state); err != nil {
		return nil, s.fail(state, err)
	}

	// Step 3: Evaluate and diff
	state.step = StepEvaluate
	if err := s.stepEvaluate(ctx, state); err != nil {
		return nil, s.fail(state, err)
	}

	state.result = &GrantResult{
		UserID:      input.UserID,
		Granted:     []achievement.Definition{},
		Failed:      map[achievement.ID]error{},
		ProcessedAt: state.input.At,
	}

	if len(state.candidates) == 0 {
		s.finish(OutcomeNoop)
		return state.result, nil
	}

	// Step 4: Grant, one write per candidate
	state.step = StepGrant
	s.stepGrant(ctx, state, log)

	// Step 5: Publish events for what this run wrote
	state.step = StepPublishEvents
	s.stepPublishEvents(state, log)

	if len(state.result.Failed) > 0 {
		state.step = StepGrant
		s.finish(OutcomePartial)
		partial := &PartialGrantError{
			Granted: definitionIDs(state.result.Granted),
			Failed:  state.result.Failed,
		}
		return state.result, s.wrapError(state, partial)
	}

	state.step = StepGrantComplete

	if len(state.result.Granted) > 0 {
		log.Info("achievements granted", logger.Count("granted", len(state.result.Granted)))
		s.finish(OutcomeGranted)
	} else {
		s.finish(OutcomeNoop)
	}
	return state.result, nil
}

// CheckAndGrant grants every newly achieved achievement of userID at the
// saga clock's current time and returns the granted definitions.
func (s *AchievementFlowSaga) CheckAndGrant(ctx context.Context, userID string) ([]achievement.Definition, error) {
	res, err := s.Execute(ctx, GrantInput{UserID: userID, Trigger: "check"})
	if res == nil {
		return nil, err
	}
	return res.Granted, err
}

// ══════════════════════════════════════════════════════════════════════════════
// SAGA STEPS
// ══════════════════════════════════════════════════════════════════════════════

func (s *AchievementFlowSaga) acquireLock(ctx context.Context, userID string) (func(context.Context) error, error) {
	if s.lock == nil {
		return nil, nil
	}

	return retry.DoWithData(ctx, s.lockRetrier, func(ctx context.Context) (func(context.Context) error, error) {
		release, err := s.lock.Acquire(ctx, userID)
		if errors.Is(err, shared.ErrLockNotAcquired) {
			return nil, retry.Retryable(shared.ErrGrantInProgress)
		}
		return release, err
	})
}

// stepLoadEarned never treats a failed read as "nothing earned".
func (s *AchievementFlowSaga) stepLoadEarned(ctx context.Context, state *grantFlowState) error {
	earned, err := s.earned.GetEarnedAchievements(ctx, state.input.UserID)
	if err != nil {
		return shared.WrapError("achievement", "LoadEarned", shared.ErrEarnedFetch, "failed to load earned achievements", err)
	}
	if earned == nil {
		earned = achievement.EarnedSet{}
	}
	state.earned = earned
	return nil
}

func (s *AchievementFlowSaga) stepEvaluate(ctx context.Context, state *grantFlowState) error {
	progress, err := s.evaluator.Evaluate(ctx, state.input.UserID)
	if err != nil {
		return err
	}
	state.progress = progress
	state.candidates = achievement.NewlyAchieved(progress, state.earned)
	return nil
}

// stepGrant writes candidates one at a time. A failed write does not stop
// the remaining candidates, except when ctx is done.
func (s *AchievementFlowSaga) stepGrant(ctx context.Context, state *grantFlowState, log *logger.Logger) {
	userID := state.input.UserID
	at := state.input.At

	for _, def := range state.candidates {
		if err := ctx.Err(); err != nil {
			state.result.Failed[def.ID] = err
			s.observeFailed(def.ID)
			continue
		}

		attempts := 0
		res, err := retry.DoWithData(ctx, s.writeRetrier, func(ctx context.Context) (achievement.AppendResult, error) {
			attempts++
			return s.earned.AppendEarnedAchievement(ctx, userID, def.ID, at)
		})
		if err != nil {
			state.result.Failed[def.ID] = shared.WrapError("achievement", "Grant", shared.ErrGrantWrite, "failed to persist "+string(def.ID), err)
			s.observeFailed(def.ID)
			log.Error("achievement grant failed", logger.AchievementID(string(def.ID)), logger.Err(err))
			continue
		}

		// After a failed attempt the row may be this run's own write whose
		// acknowledgement was lost; the stored time identifies it.
		owned := res.Inserted || (attempts > 1 && res.EarnedAt.Equal(at))
		if !owned {
			state.result.Skipped = append(state.result.Skipped, def.ID)
			log.Debug("achievement already recorded by another writer", logger.AchievementID(string(def.ID)))
			continue
		}

		state.earned.Add(def.ID, at)
		state.result.Granted = append(state.result.Granted, def)
		if s.observer != nil {
			s.observer.GrantSucceeded(def.ID)
		}
	}
}

// stepPublishEvents is best effort: a publish failure is logged, the grant
// itself is already persisted.
func (s *AchievementFlowSaga) stepPublishEvents(state *grantFlowState, log *logger.Logger) {
	if s.events == nil {
		return
	}
	for _, def := range state.result.Granted {
		ev := achievement.NewGrantedEvent(state.input.UserID, def, state.input.At)
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(state.input.CorrelationID)
		if err := s.events.Publish(ev); err != nil {
			log.Warn("failed to publish achievement event", logger.AchievementID(string(def.ID)), logger.Err(err))
		}
	}
}

func (s *AchievementFlowSaga) observeFailed(id achievement.ID) {
	if s.observer != nil {
		s.observer.GrantFailed(id)
	}
}

func (s *AchievementFlowSaga) finish(outcome string) {
	if s.observer != nil {
		s.observer.RunFinished(outcome)
	}
}

func (s *AchievementFlowSaga) fail(state *grantFlowState, err error) error {
	s.finish(OutcomeFailed)
	return s.wrapError(state, err)
}

func (s *AchievementFlowSaga) wrapError(state *grantFlowState, err error) error {
	return &AchievementFlowError{
		Step:   state.step,
		UserID: state.input.UserID,
		Cause:  err,
	}
}

func definitionIDs(defs []achievement.Definition) []achievement.ID {
	ids := make([]achievement.ID, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	return ids
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// AchievementFlowError represents an error during the grant flow.
type AchievementFlowError struct {
	Step   GrantFlowStep
	UserID string
	Cause  error
}

// Error implements the error interface.
func (e *AchievementFlowError) Error() string {
	return fmt.Sprintf("achievement_flow: step %s for user %s: %v", e.Step, e.UserID, e.Cause)
}

// Unwrap returns the underlying error.
func (e *AchievementFlowError) Unwrap() error {
	return e.Cause
}

// PartialGrantError reports candidates whose write failed. Ids in Granted
// were persisted and are not rolled back; a caller may retry just Failed.
type PartialGrantError struct {
	Granted []achievement.ID
	Failed  map[achievement.ID]error
}

// Error implements the error interface.
func (e *PartialGrantError) Error() string {
	return fmt.Sprintf("%d of %d achievement grants failed: %s",
		len(e.Failed), len(e.Failed)+len(e.Granted), strings.Join(idStrings(e.FailedIDs()), ", "))
}

// FailedIDs returns the failed ids sorted.
func (e *PartialGrantError) FailedIDs() []achievement.ID {
	ids := make([]achievement.ID, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Unwrap exposes every per-candidate cause to errors.Is.
func (e *PartialGrantError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, id := range e.FailedIDs() {
		errs = append(errs, e.Failed[id])
	}
	return errs
}

func idStrings(ids []achievement.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT FLOW SAGA BUILDER (Fluent API)
// ══════════════════════════════════════════════════════════════════════════════

// AchievementFlowSagaBuilder provides a fluent API for building AchievementFlowSaga.
type AchievementFlowSagaBuilder struct {
	evaluator ProgressEvaluator
	earned    achievement.EarnedRepository
	lock      GrantLock
	events    shared.EventPublisher
	observer  GrantObserver
	clock     timeutil.Clock
	log       *logger.Logger
	config    AchievementFlowConfig
}

// NewAchievementFlowSagaBuilder creates a new builder.
func NewAchievementFlowSagaBuilder() *AchievementFlowSagaBuilder {
	return &AchievementFlowSagaBuilder{
		config: DefaultAchievementFlowConfig(),
	}
}

// WithEvaluator sets the progress evaluator.
func (b *AchievementFlowSagaBuilder) WithEvaluator(e ProgressEvaluator) *AchievementFlowSagaBuilder {
	b.evaluator = e
	return b
}

// WithEarnedRepo sets the earned-achievement repository.
func (b *AchievementFlowSagaBuilder) WithEarnedRepo(repo achievement.EarnedRepository) *AchievementFlowSagaBuilder {
	b.earned = repo
	return b
}

// WithLock sets the optional per-user lock.
func (b *AchievementFlowSagaBuilder) WithLock(lock GrantLock) *AchievementFlowSagaBuilder {
	b.lock = lock
	return b
}

// WithEventBus sets the event publisher.
func (b *AchievementFlowSagaBuilder) WithEventBus(bus shared.EventPublisher) *AchievementFlowSagaBuilder {
	b.events = bus
	return b
}

// WithObserver sets the metrics observer.
func (b *AchievementFlowSagaBuilder) WithObserver(o GrantObserver) *AchievementFlowSagaBuilder {
	b.observer = o
	return b
}

// WithClock sets the clock used when GrantInput.At is zero.
func (b *AchievementFlowSagaBuilder) WithClock(c timeutil.Clock) *AchievementFlowSagaBuilder {
	b.clock = c
	return b
}

// WithLogger sets the logger.
func (b *AchievementFlowSagaBuilder) WithLogger(l *logger.Logger) *AchievementFlowSagaBuilder {
	b.log = l
	return b
}

// WithConfig sets the configuration.
func (b *AchievementFlowSagaBuilder) WithConfig(config AchievementFlowConfig) *AchievementFlowSagaBuilder {
	b.config = config
	return b
}

// Build creates the AchievementFlowSaga instance.
func (b *AchievementFlowSagaBuilder) Build() (*AchievementFlowSaga, error) {
	if b.evaluator == nil {
		return nil, errors.New("progress evaluator is required")
	}
	if b.earned == nil {
		return nil, errors.New("earned achievement repository is required")
	}

	clock := b.clock
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	log := b.log
	if log == nil {
		log = logger.Nop()
	}

	writeRetrier := retry.DatabaseRetrier().With(
		retry.WithMaxAttempts(b.config.WriteAttempts),
		retry.WithRetryIf(isTransientWriteError),
	)
	lockRetrier := retry.LockRetrier().With(retry.WithMaxAttempts(b.config.LockAttempts))

	return &AchievementFlowSaga{
		evaluator:    b.evaluator,
		earned:       b.earned,
		lock:         b.lock,
		events:       b.events,
		observer:     b.observer,
		clock:        clock,
		log:          log.With(logger.Component("achievement_flow")),
		writeRetrier: writeRetrier,
		lockRetrier:  lockRetrier,
	}, nil
}

// isTransientWriteError retries everything except cancellation and
// validation problems. Appends are idempotent per (user, id).
func isTransientWriteError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !shared.IsValidation(err)
}
