package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = LoadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestIsWeekend(t *testing.T) {
	plus5 := time.FixedZone("UTC+5", 5*60*60)
	lateFriday := time.Date(2024, 1, 5, 21, 0, 0, 0, time.UTC) // Sat 02:00 at UTC+5

	assert.False(t, IsWeekend(lateFriday, time.UTC))
	assert.True(t, IsWeekend(lateFriday, plus5))
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", FormatRelative(now.Add(-10*time.Second), now))
	assert.Equal(t, "1 minute ago", FormatRelative(now.Add(-time.Minute), now))
	assert.Equal(t, "5 hours ago", FormatRelative(now.Add(-5*time.Hour), now))
	assert.Equal(t, "yesterday", FormatRelative(now.Add(-30*time.Hour), now))
	assert.Equal(t, "3 days ago", FormatRelative(now.AddDate(0, 0, -3), now))
	assert.Equal(t, "2 years ago", FormatRelative(now.AddDate(-2, 0, 0), now))
	assert.Equal(t, "in the future", FormatRelative(now.Add(time.Hour), now))
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)

	assert.Equal(t, start, c.Now())
	c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), c.Now())
	c.Set(start)
	assert.Equal(t, start, c.Now())

	var _ Clock = SystemClock{}
	assert.Equal(t, time.UTC, SystemClock{}.Now().Location())
}
