package achievement

// perfectionistCourses is the course count required next to a complete profile.
const perfectionistCourses = 5

// Rule computes the raw, unclamped progress of one achievement.
type Rule func(m Metrics) int

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// defaultRules maps every catalog id to its evaluation rule.
var defaultRules = map[ID]Rule{
	FirstInjection:    func(m Metrics) int { return m.InjectionActionCount },
	TenInjections:     func(m Metrics) int { return m.InjectionActionCount },
	FiftyInjections:   func(m Metrics) int { return m.InjectionActionCount },
	HundredInjections: func(m Metrics) int { return m.InjectionActionCount },
	FirstTablet:       func(m Metrics) int { return flag(m.HasTabletAction) },

	FirstCourse:     func(m Metrics) int { return m.CourseCount },
	FiveCourses:     func(m Metrics) int { return m.CourseCount },
	CourseCollector: func(m Metrics) int { return m.DistinctCourseTypes },
	NightOwl:        func(m Metrics) int { return flag(m.HasNightCourse) },
	EarlyBird:       func(m Metrics) int { return flag(m.HasEarlyCourse) },
	WeekendWarrior:  func(m Metrics) int { return flag(m.HasWeekendCourse) },

	FirstLab: func(m Metrics) int { return m.LabCount },
	FiveLabs: func(m Metrics) int { return m.LabCount },
	LabRat:   func(m Metrics) int { return m.LabCount },

	PerfectProfile: func(m Metrics) int { return flag(m.ProfileComplete) },
	Storyteller:    func(m Metrics) int { return flag(m.BioLongerThan100) },

	AdminWannabe: func(m Metrics) int { return flag(m.UsernameIsAdmin) },

	WeekStreak:  func(m Metrics) int { return m.LongestActionStreak },
	MonthStreak: func(m Metrics) int { return m.LongestActionStreak },

	HundredActions: func(m Metrics) int { return m.TotalActionCount },
	Perfectionist: func(m Metrics) int {
		return flag(m.ProfileComplete && m.CourseCount >= perfectionistCourses)
	},
}

// Rules returns a copy of the rule table.
func Rules() map[ID]Rule {
	out := make(map[ID]Rule, len(defaultRules))
	for id, r := range defaultRules {
		out[id] = r
	}
	return out
}
