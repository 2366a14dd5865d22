package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func TestLongestStreak(t *testing.T) {
	tests := []struct {
		name     string
		instants []time.Time
		want     int
	}{
		{name: "no actions", instants: nil, want: 0},
		{name: "only zero timestamps", instants: []time.Time{{}, {}}, want: 0},
		{
			name:     "single day many actions",
			instants: []time.Time{day(2024, 1, 1, 8), day(2024, 1, 1, 12), day(2024, 1, 1, 23)},
			want:     1,
		},
		{
			name:     "unsorted consecutive",
			instants: []time.Time{day(2024, 1, 3, 9), day(2024, 1, 1, 9), day(2024, 1, 2, 9)},
			want:     3,
		},
		{
			name: "gap resets run",
			instants: []time.Time{
				day(2024, 1, 1, 9), day(2024, 1, 2, 9),
				day(2024, 1, 4, 9), day(2024, 1, 5, 9), day(2024, 1, 6, 9),
			},
			want: 3,
		},
		{
			name:     "month boundary",
			instants: []time.Time{day(2024, 1, 31, 9), day(2024, 2, 1, 9), day(2024, 2, 2, 9)},
			want:     3,
		},
		{
			name:     "leap day",
			instants: []time.Time{day(2024, 2, 28, 9), day(2024, 2, 29, 9), day(2024, 3, 1, 9)},
			want:     3,
		},
		{
			name:     "year boundary",
			instants: []time.Time{day(2023, 12, 31, 9), day(2024, 1, 1, 9)},
			want:     2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LongestStreak(tt.instants, time.UTC))
		})
	}
}

func TestLongestStreak_UsesLocation(t *testing.T) {
	plus5 := time.FixedZone("UTC+5", 5*60*60)

	// 20:00 UTC on Jan 1 is 01:00 on Jan 2 at UTC+5.
	instants := []time.Time{day(2024, 1, 1, 10), day(2024, 1, 1, 20)}

	assert.Equal(t, 1, LongestStreak(instants, time.UTC))
	assert.Equal(t, 2, LongestStreak(instants, plus5))
}

func TestLongestStreak_ExtendingLongestRunAddsOne(t *testing.T) {
	var instants []time.Time
	for d := 1; d <= 5; d++ {
		instants = append(instants, day(2024, 1, d, 9))
	}
	instants = append(instants, day(2024, 1, 10, 9), day(2024, 1, 11, 9))

	before := LongestStreak(instants, time.UTC)
	after := LongestStreak(append(instants, day(2024, 1, 6, 7)), time.UTC)

	assert.Equal(t, 5, before)
	assert.Equal(t, before+1, after)
}

func TestLongestStreak_DoesNotMutateInput(t *testing.T) {
	instants := []time.Time{day(2024, 1, 3, 9), day(2024, 1, 1, 9)}
	cp := append([]time.Time(nil), instants...)

	LongestStreak(instants, time.UTC)

	assert.Equal(t, cp, instants)
}
