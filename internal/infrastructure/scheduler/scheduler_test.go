package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name  string
	runs  atomic.Int32
	err   error
	panic bool
}

func (j *fakeJob) Name() string        { return j.name }
func (j *fakeJob) Description() string { return "test job" }

func (j *fakeJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
	return j.err
}

type deadlineJob struct{ sawDeadline atomic.Bool }

func (j *deadlineJob) Name() string        { return "deadline" }
func (j *deadlineJob) Description() string { return "checks for a deadline" }

func (j *deadlineJob) Run(ctx context.Context) error {
	_, ok := ctx.Deadline()
	j.sawDeadline.Store(ok)
	return nil
}

func newTestScheduler(cfg Config) *Scheduler {
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg)
}

func TestScheduler_RegisterValidation(t *testing.T) {
	s := newTestScheduler(Config{})

	assert.ErrorIs(t, s.Register(nil, time.Minute, false), ErrNilJob)
	assert.ErrorIs(t, s.Register(&fakeJob{name: "a"}, 0, false), ErrInvalidInterval)

	require.NoError(t, s.Register(&fakeJob{name: "a"}, time.Minute, false))
	assert.ErrorIs(t, s.Register(&fakeJob{name: "a"}, time.Minute, false), ErrJobAlreadyExists)
}

func TestScheduler_RunNowRecordsResult(t *testing.T) {
	var completed []JobResult
	s := newTestScheduler(Config{OnJobComplete: func(r JobResult) { completed = append(completed, r) }})
	job := &fakeJob{name: "sweep", err: errors.New("partial")}
	require.NoError(t, s.Register(job, time.Hour, false))

	res, err := s.RunNow(context.Background(), "sweep")
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.EqualError(t, res.Error, "partial")
	assert.Equal(t, int32(1), job.runs.Load())
	last, ok := s.LastRun("sweep")
	require.True(t, ok)
	assert.Equal(t, res, last)
	assert.Len(t, completed, 1)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_PanicBecomesFailure(t *testing.T) {
	s := newTestScheduler(Config{})
	require.NoError(t, s.Register(&fakeJob{name: "p", panic: true}, time.Hour, false))

	res, err := s.RunNow(context.Background(), "p")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ErrorContains(t, res.Error, "job panic")
}

func TestScheduler_JobTimeoutApplied(t *testing.T) {
	s := newTestScheduler(Config{JobTimeout: time.Second})
	job := &deadlineJob{}
	require.NoError(t, s.Register(job, time.Hour, false))

	_, err := s.RunNow(context.Background(), "deadline")
	require.NoError(t, err)
	assert.True(t, job.sawDeadline.Load())
}

func TestScheduler_RunsAtStart(t *testing.T) {
	s := newTestScheduler(Config{})
	job := &fakeJob{name: "startup"}
	require.NoError(t, s.Register(job, time.Hour, true))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, ok := s.LastRun("startup")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}
