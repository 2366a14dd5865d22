package query

import (
	"context"
	"time"

	"github.com/coursehub/course-tracker/internal/domain/achievement"
	"github.com/coursehub/course-tracker/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATE PROGRESS
// Full recompute of every catalog entry for one user. Read-only: nothing is
// persisted and the earned set is not consulted.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluationObserver receives evaluation timings.
type EvaluationObserver interface {
	ObserveEvaluation(d time.Duration)
}

// ProgressService loads a snapshot and evaluates the catalog against it.
type ProgressService struct {
	loader    *SnapshotLoader
	evaluator *achievement.Evaluator
	observer  EvaluationObserver
	log       *logger.Logger
}

// NewProgressService creates a ProgressService. observer may be nil.
func NewProgressService(
	loader *SnapshotLoader,
	evaluator *achievement.Evaluator,
	observer EvaluationObserver,
	log *logger.Logger,
) *ProgressService {
	if log == nil {
		log = logger.Nop()
	}
	return &ProgressService{
		loader:    loader,
		evaluator: evaluator,
		observer:  observer,
		log:       log.With(logger.Component("progress")),
	}
}

// Evaluator returns the underlying evaluator.
func (s *ProgressService) Evaluator() *achievement.Evaluator {
	return s.evaluator
}

// Evaluate returns catalog-ordered progress for userID.
// A failed read of any record collection is returned as an error.
func (s *ProgressService) Evaluate(ctx context.Context, userID string) ([]achievement.Progress, error) {
	snap, err := s.loader.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, metrics, err := s.evaluator.Evaluate(snap)
	if s.observer != nil {
		s.observer.ObserveEvaluation(time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	for _, m := range metrics.Malformed {
		s.log.Warn("record ignored by achievement metrics",
			logger.UserID(userID),
			logger.String("record_kind", m.Kind),
			logger.RecordID(m.ID),
			logger.String("reason", m.Reason),
		)
	}

	return results, nil
}
