package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/course-tracker/internal/domain/achievement"
	"github.com/coursehub/course-tracker/internal/domain/tracker"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")

	first, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer second.Close()
	assert.NoError(t, second.Ping(context.Background()))
}

func TestRecordRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestStore(t))

	p, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, p, "missing profile must be nil, not an error")

	require.NoError(t, repo.SaveProfile(ctx, "u1", tracker.Profile{Username: "first", City: "Almaty"}))
	require.NoError(t, repo.SaveProfile(ctx, "u1", tracker.Profile{Username: "second", Bio: "hello"}))

	p, err = repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "second", p.Username)
	assert.Empty(t, p.City)
	assert.Equal(t, "hello", p.Bio)

	late := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	early := time.Date(2024, 1, 1, 3, 15, 0, 123, time.UTC)
	require.NoError(t, repo.AddAction(ctx, "u1", tracker.Action{ID: "a2", Type: tracker.ActionTablet, Timestamp: late}))
	require.NoError(t, repo.AddAction(ctx, "u1", tracker.Action{ID: "a1", Type: tracker.ActionInjection, Timestamp: early, Note: "left"}))

	actions, err := repo.GetActions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "a1", actions[0].ID)
	assert.True(t, actions[0].Timestamp.Equal(early))
	assert.Equal(t, "left", actions[0].Note)
	assert.Equal(t, tracker.ActionTablet, actions[1].Type)

	require.NoError(t, repo.AddCourse(ctx, "u1", tracker.Course{ID: "c1", Type: "bulking", CreatedAt: early}))
	courses, err := repo.GetCourses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, tracker.CourseType("bulking"), courses[0].Type)

	require.NoError(t, repo.AddLab(ctx, "u2", tracker.Lab{ID: "l1", Name: "blood"}))
	labs, err := repo.GetLabs(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, labs, 1)
	assert.True(t, labs[0].TakenAt.IsZero())

	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, ids)
}

func TestRecordRepository_EmptyCollectionsAreNotErrors(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestStore(t))

	courses, err := repo.GetCourses(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, courses)

	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRecordRepository_MalformedTimestampReadsAsZero(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	repo := NewRecordRepository(store)

	_, err := store.DB().ExecContext(ctx, `
		INSERT INTO actions (id, user_id, action_type, occurred_at) VALUES ('bad', 'u1', 'injection', 'yesterday-ish')
	`)
	require.NoError(t, err)

	actions, err := repo.GetActions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.True(t, actions[0].Timestamp.IsZero())
}

func TestRecordRepository_DuplicateIDIsConstraintError(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestStore(t))

	lab := tracker.Lab{ID: "l1"}
	require.NoError(t, repo.AddLab(ctx, "u1", lab))
	assert.Error(t, repo.AddLab(ctx, "u1", lab))
}

func TestAchievementRepository_AppendIsDeduplicated(t *testing.T) {
	ctx := context.Background()
	repo := NewAchievementRepository(openTestStore(t))
	at := time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC)

	set, err := repo.GetEarnedAchievements(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, set)
	assert.Empty(t, set)

	res, err := repo.AppendEarnedAchievement(ctx, "u1", achievement.WeekStreak, at)
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.True(t, res.EarnedAt.Equal(at))

	res, err = repo.AppendEarnedAchievement(ctx, "u1", achievement.WeekStreak, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Inserted)
	assert.True(t, res.EarnedAt.Equal(at), "reports the stored time")

	set, err = repo.GetEarnedAchievements(ctx, "u1")
	require.NoError(t, err)
	earnedAt, ok := set.EarnedAt(achievement.WeekStreak)
	require.True(t, ok)
	assert.True(t, earnedAt.Equal(at), "first write wins")

	other, err := repo.GetEarnedAchievements(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestAchievementRepository_ConcurrentAppendsInsertOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewAchievementRepository(openTestStore(t))

	const writers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	inserts := 0

	base := time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(at time.Time) {
			defer wg.Done()
			res, err := repo.AppendEarnedAchievement(ctx, "u1", achievement.FirstLab, at)
			assert.NoError(t, err)
			if res.Inserted {
				mu.Lock()
				inserts++
				mu.Unlock()
			}
		}(base.Add(time.Duration(i) * time.Microsecond))
	}
	wg.Wait()

	assert.Equal(t, 1, inserts)
}
