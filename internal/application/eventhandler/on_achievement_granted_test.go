package eventhandler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/course-tracker/internal/domain/achievement"
	"github.com/coursehub/course-tracker/internal/domain/shared"
)

type recordingSink struct {
	got []Announcement
	err error
}

func (s *recordingSink) Announce(_ context.Context, a Announcement) error {
	s.got = append(s.got, a)
	return s.err
}

func grantedEvent(t *testing.T, id achievement.ID) achievement.GrantedEvent {
	t.Helper()
	def, ok := achievement.Lookup(id)
	require.True(t, ok)
	return achievement.NewGrantedEvent("u1", def, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func TestOnAchievementGranted_AnnouncesToSink(t *testing.T) {
	sink := &recordingSink{}
	var buf bytes.Buffer
	h := NewOnAchievementGrantedHandler(sink, bufferLogger(&buf), DefaultAchievementGrantedConfig())

	require.NoError(t, h.Handle(grantedEvent(t, achievement.FiveCourses)))

	require.Len(t, sink.got, 1)
	a := sink.got[0]
	assert.Equal(t, "u1", a.UserID)
	assert.Equal(t, achievement.FiveCourses, a.AchievementID)
	assert.True(t, a.Highlight)
	assert.Equal(t, "Achievement unlocked: Veteran (+50 pts)", a.Text)
	assert.Contains(t, buf.String(), "achievement unlocked")
	assert.Equal(t, int64(1), h.Handled())
}

func TestOnAchievementGranted_CommonIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	h := NewOnAchievementGrantedHandler(nil, bufferLogger(&buf), DefaultAchievementGrantedConfig())

	require.NoError(t, h.Handle(grantedEvent(t, achievement.FirstCourse)))
	assert.Empty(t, buf.String())
	assert.Equal(t, int64(1), h.Handled())
}

func TestOnAchievementGranted_SinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("webhook down")}
	var buf bytes.Buffer
	h := NewOnAchievementGrantedHandler(sink, bufferLogger(&buf), DefaultAchievementGrantedConfig())

	err := h.Handle(grantedEvent(t, achievement.FirstCourse))
	assert.ErrorContains(t, err, "webhook down")
	assert.Contains(t, buf.String(), "failed to announce achievement")
}

func TestOnAchievementGranted_IgnoresOtherEvents(t *testing.T) {
	var buf bytes.Buffer
	h := NewOnAchievementGrantedHandler(nil, bufferLogger(&buf), DefaultAchievementGrantedConfig())

	other := shared.NewRecordAddedEvent(shared.EventLabAdded, "u1", "l1", "lab", time.Now())
	assert.NoError(t, h.Handle(other))
	assert.Zero(t, h.Handled())
	assert.Contains(t, buf.String(), "non-GrantedEvent")
}

func TestFormatAnnouncement(t *testing.T) {
	e := achievement.GrantedEvent{Name: "Legend", Points: 500, Rarity: achievement.RarityLegendary}
	assert.Equal(t, "🌟 Achievement unlocked: Legend (+500 pts) Legendary!", FormatAnnouncement(e))

	e.Rarity = achievement.RarityEpic
	assert.Equal(t, "✨ Achievement unlocked: Legend (+500 pts)", FormatAnnouncement(e))
}
