package sqlite

import (
	"context"
	"time"

	"github.com/coursehub/course-tracker/internal/domain/achievement"
	"github.com/coursehub/course-tracker/internal/domain/tracker"
)

// AchievementRepository implements achievement.EarnedRepository.
type AchievementRepository struct {
	store *Store
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(store *Store) *AchievementRepository {
	return &AchievementRepository{store: store}
}

var _ achievement.EarnedRepository = (*AchievementRepository)(nil)

type earnedRow struct {
	AchievementID string `db:"achievement_id"`
	EarnedAt      string `db:"earned_at"`
}

// GetEarnedAchievements returns the earned set of userID.
func (r *AchievementRepository) GetEarnedAchievements(ctx context.Context, userID string) (achievement.EarnedSet, error) {
	var rows []earnedRow
	if err := r.store.db.SelectContext(ctx, &rows, `
		SELECT achievement_id, earned_at FROM earned_achievements WHERE user_id = ?
	`, userID); err != nil {
		return nil, mapError("GetEarnedAchievements", err)
	}

	set := achievement.EarnedSet{}
	for _, row := range rows {
		set.Add(achievement.ID(row.AchievementID), parseStored(row.EarnedAt))
	}
	return set, nil
}

// AppendEarnedAchievement inserts (userID, id) unless present and returns
// the earned_at stored for the pair.
func (r *AchievementRepository) AppendEarnedAchievement(ctx context.Context, userID string, id achievement.ID, earnedAt time.Time) (achievement.AppendResult, error) {
	res, err := r.store.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO earned_achievements (user_id, achievement_id, earned_at) VALUES (?, ?, ?)
	`, userID, string(id), tracker.FormatTimestamp(earnedAt))
	if err != nil {
		return achievement.AppendResult{}, mapError("AppendEarnedAchievement", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return achievement.AppendResult{}, mapError("AppendEarnedAchievement", err)
	}

	var stored string
	if err := r.store.db.GetContext(ctx, &stored, `
		SELECT earned_at FROM earned_achievements WHERE user_id = ? AND achievement_id = ?
	`, userID, string(id)); err != nil {
		return achievement.AppendResult{}, mapError("AppendEarnedAchievement", err)
	}
	return achievement.AppendResult{Inserted: n == 1, EarnedAt: parseStored(stored)}, nil
}
