package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/course-tracker/internal/application/saga"
	"github.com/coursehub/course-tracker/internal/domain/achievement"
)

type staticUsers struct {
	ids []string
	err error
}

func (u staticUsers) ListUserIDs(context.Context) ([]string, error) { return u.ids, u.err }

type scriptedGranter struct {
	mu     sync.Mutex
	inputs []saga.GrantInput
	fail   map[string]bool
}

func (g *scriptedGranter) Execute(_ context.Context, in saga.GrantInput) (*saga.GrantResult, error) {
	g.mu.Lock()
	g.inputs = append(g.inputs, in)
	g.mu.Unlock()

	if g.fail[in.UserID] {
		return nil, errors.New("store down")
	}
	def, _ := achievement.Lookup(achievement.FirstLab)
	return &saga.GrantResult{UserID: in.UserID, Granted: []achievement.Definition{def}}, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestGrantAchievementsJob_SweepsEveryUser(t *testing.T) {
	g := &scriptedGranter{}
	job := NewGrantAchievementsJob(staticUsers{ids: []string{"a", "b", "c"}}, g, quiet(), DefaultGrantAchievementsConfig())

	require.NoError(t, job.Run(context.Background()))

	var users []string
	for _, in := range g.inputs {
		users = append(users, in.UserID)
		assert.Equal(t, "scheduler", in.Trigger)
		assert.NotEmpty(t, in.CorrelationID)
	}
	sort.Strings(users)
	assert.Equal(t, []string{"a", "b", "c"}, users)

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.Users)
	assert.Equal(t, 3, stats.Granted)
	assert.Zero(t, stats.Failed)
}

func TestGrantAchievementsJob_UserFailureDoesNotStopSweep(t *testing.T) {
	g := &scriptedGranter{fail: map[string]bool{"b": true}}
	job := NewGrantAchievementsJob(staticUsers{ids: []string{"a", "b", "c"}}, g, quiet(), DefaultGrantAchievementsConfig())

	require.NoError(t, job.Run(context.Background()))

	stats := job.LastStats()
	assert.Len(t, g.inputs, 3)
	assert.Equal(t, 2, stats.Granted)
	assert.Equal(t, []string{"b"}, stats.FailedUsers)
}

func TestGrantAchievementsJob_TooManyFailures(t *testing.T) {
	g := &scriptedGranter{fail: map[string]bool{"a": true, "b": true}}
	job := NewGrantAchievementsJob(staticUsers{ids: []string{"a", "b", "c"}}, g, quiet(), DefaultGrantAchievementsConfig())

	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "2 of 3 users failed")
}

func TestGrantAchievementsJob_ListFailure(t *testing.T) {
	g := &scriptedGranter{}
	job := NewGrantAchievementsJob(staticUsers{err: errors.New("no db")}, g, quiet(), GrantAchievementsConfig{})

	assert.ErrorContains(t, job.Run(context.Background()), "list users")
	assert.Empty(t, g.inputs)
	assert.Nil(t, job.LastStats())
}

func TestGrantAchievementsJob_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := NewGrantAchievementsJob(staticUsers{ids: []string{"a"}}, &scriptedGranter{}, quiet(), DefaultGrantAchievementsConfig())

	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
}

func TestGrantAchievementsJob_NoUsers(t *testing.T) {
	job := NewGrantAchievementsJob(staticUsers{}, &scriptedGranter{}, nil, DefaultGrantAchievementsConfig())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0, job.LastStats().Users)
	assert.Equal(t, "grant_achievements", job.Name())
}
