package achievement

import (
	"sort"
	"time"
)

// LongestStreak returns the longest run of consecutive calendar days in loc
// that contain at least one of the given instants. Zero instants are ignored.
// No instants yields 0.
func LongestStreak(instants []time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}

	seen := make(map[int64]struct{}, len(instants))
	days := make([]int64, 0, len(instants))
	for _, t := range instants {
		if t.IsZero() {
			continue
		}
		d := dayNumber(t.In(loc))
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}

	if len(days) == 0 {
		return 0
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	best, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

// dayNumber maps the calendar date of t (in t's own location) to a day count
// since the Unix epoch, so that consecutive dates differ by exactly one.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
