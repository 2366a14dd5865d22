package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*60*60)

	tests := []struct {
		name string
		raw  string
		loc  *time.Location
		want time.Time
		ok   bool
	}{
		{
			name: "rfc3339 with zone",
			raw:  "2024-01-06T03:15:00Z",
			want: time.Date(2024, 1, 6, 3, 15, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "rfc3339 nano",
			raw:  "2024-01-06T03:15:00.123456789+05:00",
			want: time.Date(2024, 1, 6, 3, 15, 0, 123456789, almaty),
			ok:   true,
		},
		{
			name: "naive datetime uses location",
			raw:  "2024-01-06 03:15:00",
			loc:  almaty,
			want: time.Date(2024, 1, 6, 3, 15, 0, 0, almaty),
			ok:   true,
		},
		{
			name: "date only",
			raw:  "2024-01-06",
			want: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{name: "blank", raw: "   "},
		{name: "garbage", raw: "yesterday-ish"},
		{name: "invalid month", raw: "2024-13-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.raw, tt.loc)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.True(t, got.IsZero())
				return
			}
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestFormatTimestamp_RoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 9, 22, 1, 2, 500, time.UTC)

	raw := FormatTimestamp(at)
	got, ok := ParseTimestamp(raw, nil)

	require.True(t, ok)
	assert.True(t, at.Equal(got))
	assert.Empty(t, FormatTimestamp(time.Time{}))
}

func TestCourseType_Normalize(t *testing.T) {
	assert.Equal(t, CourseType("bulking"), CourseType("  Bulking ").Normalize())
	assert.False(t, CourseType("  ").IsValid())
	assert.True(t, CourseType("cutting").IsValid())
}

func TestParseActionType(t *testing.T) {
	at, ok := ParseActionType(" Injection ")
	assert.True(t, ok)
	assert.Equal(t, ActionInjection, at)

	_, ok = ParseActionType("teleport")
	assert.False(t, ok)
}

func TestSnapshot_ProfileOrEmpty(t *testing.T) {
	var s Snapshot
	assert.True(t, s.IsEmpty())
	assert.Equal(t, Profile{}, s.ProfileOrEmpty())

	s.Profile = &Profile{Username: "ivan"}
	assert.Equal(t, "ivan", s.ProfileOrEmpty().Username)
	assert.False(t, s.IsEmpty())
}
