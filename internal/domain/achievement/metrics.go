package achievement

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coursehub/course-tracker/internal/domain/tracker"
	"github.com/coursehub/course-tracker/pkg/timeutil"
)

// Time-of-day windows for course creation, half-open [from, to).
const (
	nightFromHour = 2
	nightToHour   = 6
	earlyFromHour = 5
	earlyToHour   = 7

	adminUsername = "admin"
	longBioRunes  = 100
)

// Metrics are the scalar values derived from a snapshot.
// Every achievement rule reads only from Metrics.
type Metrics struct {
	CourseCount          int
	DistinctCourseTypes  int
	InjectionActionCount int
	HasTabletAction      bool
	LabCount             int
	ProfileComplete      bool
	UsernameIsAdmin      bool
	BioLongerThan100     bool
	HasNightCourse       bool
	HasEarlyCourse       bool
	HasWeekendCourse     bool
	TotalActionCount     int
	LongestActionStreak  int

	// Malformed lists courses and actions whose timestamp or type could not
	// be used. They contribute nothing to any metric. Labs carry no date
	// predicate and are always counted.
	Malformed []MalformedRecord
}

// MalformedRecord identifies a record that was left out of every metric.
type MalformedRecord struct {
	Kind   string
	ID     string
	Reason string
}

// Extract computes Metrics from a snapshot. Day boundaries, hours and
// weekdays are taken in loc (UTC when nil). The snapshot is not modified.
func Extract(snap tracker.Snapshot, loc *time.Location) Metrics {
	if loc == nil {
		loc = time.UTC
	}

	var m Metrics
	extractProfile(&m, snap.ProfileOrEmpty())
	extractCourses(&m, snap.Courses, loc)
	extractActions(&m, snap.Actions, loc)
	m.LabCount = len(snap.Labs)

	return m
}

func extractProfile(m *Metrics, p tracker.Profile) {
	complete := true
	for _, f := range p.Fields() {
		if !f.Filled() {
			complete = false
			break
		}
	}
	m.ProfileComplete = complete

	m.UsernameIsAdmin = strings.ToLower(p.Username) == adminUsername
	m.BioLongerThan100 = utf8.RuneCountInString(p.Bio) > longBioRunes
}

func extractCourses(m *Metrics, courses []tracker.Course, loc *time.Location) {
	types := make(map[tracker.CourseType]struct{}, len(courses))
	for _, c := range courses {
		switch {
		case !c.Type.IsValid():
			m.Malformed = append(m.Malformed, MalformedRecord{Kind: "course", ID: c.ID, Reason: "empty type"})
			continue
		case c.CreatedAt.IsZero():
			m.Malformed = append(m.Malformed, MalformedRecord{Kind: "course", ID: c.ID, Reason: "missing created_at"})
			continue
		}

		m.CourseCount++
		types[c.Type] = struct{}{}

		local := c.CreatedAt.In(loc)
		hour := local.Hour()
		if hour >= nightFromHour && hour < nightToHour {
			m.HasNightCourse = true
		}
		if hour >= earlyFromHour && hour < earlyToHour {
			m.HasEarlyCourse = true
		}
		if timeutil.IsWeekend(c.CreatedAt, loc) {
			m.HasWeekendCourse = true
		}
	}
	m.DistinctCourseTypes = len(types)
}

func extractActions(m *Metrics, actions []tracker.Action, loc *time.Location) {
	stamps := make([]time.Time, 0, len(actions))
	for _, a := range actions {
		switch {
		case a.Type == "":
			m.Malformed = append(m.Malformed, MalformedRecord{Kind: "action", ID: a.ID, Reason: "empty type"})
			continue
		case a.Timestamp.IsZero():
			m.Malformed = append(m.Malformed, MalformedRecord{Kind: "action", ID: a.ID, Reason: "missing timestamp"})
			continue
		}

		m.TotalActionCount++
		switch a.Type {
		case tracker.ActionInjection:
			m.InjectionActionCount++
		case tracker.ActionTablet:
			m.HasTabletAction = true
		}
		stamps = append(stamps, a.Timestamp)
	}

	m.LongestActionStreak = LongestStreak(stamps, loc)
}
