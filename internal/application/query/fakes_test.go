package query

import (
	"context"
	"sync"
	"time"

	"github.com/coursehub/course-tracker/internal/domain/achievement"
	"github.com/coursehub/course-tracker/internal/domain/tracker"
)

type fakeRecords struct {
	profile *tracker.Profile
	courses []tracker.Course
	actions []tracker.Action
	labs    []tracker.Lab

	profileErr error
	coursesErr error
	actionsErr error
	labsErr    error
}

func (f *fakeRecords) GetProfile(context.Context, string) (*tracker.Profile, error) {
	return f.profile, f.profileErr
}

func (f *fakeRecords) GetCourses(context.Context, string) ([]tracker.Course, error) {
	return f.courses, f.coursesErr
}

func (f *fakeRecords) GetActions(context.Context, string) ([]tracker.Action, error) {
	return f.actions, f.actionsErr
}

func (f *fakeRecords) GetLabs(context.Context, string) ([]tracker.Lab, error) {
	return f.labs, f.labsErr
}

type fakeEarned struct {
	mu     sync.Mutex
	set    achievement.EarnedSet
	getErr error
}

func (f *fakeEarned) GetEarnedAchievements(context.Context, string) (achievement.EarnedSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make(achievement.EarnedSet, len(f.set))
	for id, at := range f.set {
		out[id] = at
	}
	return out, nil
}

func (f *fakeEarned) AppendEarnedAchievement(_ context.Context, _ string, id achievement.ID, at time.Time) (achievement.AppendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.set == nil {
		f.set = achievement.EarnedSet{}
	}
	return f.set.Claim(id, at), nil
}

type countingObserver struct {
	calls int
}

func (o *countingObserver) ObserveEvaluation(time.Duration) { o.calls++ }
