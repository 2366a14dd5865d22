// Package jobs contains the scheduled jobs of the tracker worker.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coursehub/course-tracker/internal/application/saga"
	"github.com/coursehub/course-tracker/internal/domain/tracker"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRANT ACHIEVEMENTS JOB
// Re-runs the grant engine for every user. Catches grants whose run failed
// after the record was written, and grants that depend on data imported
// outside the command handlers.
// ══════════════════════════════════════════════════════════════════════════════

// Granter runs the grant engine for one user.
type Granter interface {
	Execute(ctx context.Context, input saga.GrantInput) (*saga.GrantResult, error)
}

// GrantAchievementsConfig contains configuration for the job.
type GrantAchievementsConfig struct {
	// Concurrency is the number of users processed in parallel.
	Concurrency int

	// PerUserTimeout bounds one user's grant run.
	PerUserTimeout time.Duration

	// MaxFailureRate above which the run is reported as failed, in [0,1].
	MaxFailureRate float64
}

// DefaultGrantAchievementsConfig returns sensible defaults.
func DefaultGrantAchievementsConfig() GrantAchievementsConfig {
	return GrantAchievementsConfig{
		Concurrency:    4,
		PerUserTimeout: 10 * time.Second,
		MaxFailureRate: 0.5,
	}
}

// SweepStats summarises one run.
type SweepStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Users       int
	Granted     int
	Failed      int
	FailedUsers []string
}

// GrantAchievementsJob implements scheduler.Job.
type GrantAchievementsJob struct {
	users   tracker.UserLister
	granter Granter
	logger  *slog.Logger
	config  GrantAchievementsConfig

	lastStats atomic.Pointer[SweepStats]
}

// NewGrantAchievementsJob creates a new job.
func NewGrantAchievementsJob(users tracker.UserLister, granter Granter, logger *slog.Logger, config GrantAchievementsConfig) *GrantAchievementsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &GrantAchievementsJob{users: users, granter: granter, logger: logger, config: config}
}

// Name returns the job name.
func (j *GrantAchievementsJob) Name() string {
	return "grant_achievements"
}

// Description returns a human-readable description.
func (j *GrantAchievementsJob) Description() string {
	return "Grants newly earned achievements for every user"
}

// LastStats returns the stats of the last completed run, or nil.
func (j *GrantAchievementsJob) LastStats() *SweepStats {
	return j.lastStats.Load()
}

// Run sweeps all users. A failing user is logged and counted; the sweep
// goes on. The run fails when the user list cannot be read, the context
// ends, or the failure rate exceeds MaxFailureRate.
func (j *GrantAchievementsJob) Run(ctx context.Context) error {
	stats := &SweepStats{StartedAt: time.Now()}

	ids, err := j.users.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("grant_achievements: list users: %w", err)
	}
	stats.Users = len(ids)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)

	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		userID := id
		g.Go(func() error {
			granted, err := j.grantOne(gctx, userID)

			mu.Lock()
			defer mu.Unlock()
			stats.Granted += granted
			if err != nil {
				stats.Failed++
				stats.FailedUsers = append(stats.FailedUsers, userID)
				j.logger.Error("grant failed for user", "user_id", userID, "granted", granted, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.CompletedAt = time.Now()
	j.lastStats.Store(stats)

	j.logger.Info("grant sweep completed",
		"users", stats.Users,
		"granted", stats.Granted,
		"failed", stats.Failed,
		"duration", stats.CompletedAt.Sub(stats.StartedAt).String(),
	)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("grant_achievements: sweep interrupted: %w", err)
	}
	if stats.Users > 0 && float64(stats.Failed)/float64(stats.Users) > j.config.MaxFailureRate {
		return fmt.Errorf("grant_achievements: %d of %d users failed", stats.Failed, stats.Users)
	}
	return nil
}

func (j *GrantAchievementsJob) grantOne(ctx context.Context, userID string) (int, error) {
	if j.config.PerUserTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.PerUserTimeout)
		defer cancel()
	}

	res, err := j.granter.Execute(ctx, saga.GrantInput{
		UserID:        userID,
		Trigger:       "scheduler",
		CorrelationID: uuid.NewString(),
	})
	if res == nil {
		return 0, err
	}
	return len(res.Granted), err
}
