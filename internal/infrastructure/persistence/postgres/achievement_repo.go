package postgres

import (
	"context"
	"time"

	"github.com/coursehub/course-tracker/internal/domain/achievement"
)

// AchievementRepository implements achievement.EarnedRepository.
type AchievementRepository struct {
	conn *Connection
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{conn: conn}
}

var _ achievement.EarnedRepository = (*AchievementRepository)(nil)

// GetEarnedAchievements returns the earned set of userID. A user with no
// grants yields an empty, non-nil set.
func (r *AchievementRepository) GetEarnedAchievements(ctx context.Context, userID string) (achievement.EarnedSet, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `
		SELECT achievement_id, earned_at FROM earned_achievements WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, mapError("GetEarnedAchievements", err)
	}
	defer rows.Close()

	set := achievement.EarnedSet{}
	for rows.Next() {
		var id string
		var earnedAt time.Time
		if err := rows.Scan(&id, &earnedAt); err != nil {
			return nil, mapError("GetEarnedAchievements", err)
		}
		set.Add(achievement.ID(id), earnedAt.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("GetEarnedAchievements", err)
	}
	return set, nil
}

// AppendEarnedAchievement inserts (userID, id) unless it already exists and
// returns the earned_at stored for the pair. The CTE snapshot does not see
// the row it inserts, so exactly one branch of the union yields a row.
func (r *AchievementRepository) AppendEarnedAchievement(ctx context.Context, userID string, id achievement.ID, earnedAt time.Time) (achievement.AppendResult, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var res achievement.AppendResult
	err := r.conn.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO earned_achievements (user_id, achievement_id, earned_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, achievement_id) DO NOTHING
			RETURNING earned_at
		)
		SELECT earned_at, true FROM ins
		UNION ALL
		SELECT earned_at, false FROM earned_achievements WHERE user_id = $1 AND achievement_id = $2
		LIMIT 1
	`, userID, string(id), earnedAt.UTC()).Scan(&res.EarnedAt, &res.Inserted)
	if err != nil {
		return achievement.AppendResult{}, mapError("AppendEarnedAchievement", err)
	}
	res.EarnedAt = res.EarnedAt.UTC()
	return res, nil
}
