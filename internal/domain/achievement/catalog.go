package achievement

import (
	"errors"
	"fmt"

	"github.com/coursehub/course-tracker/internal/domain/shared"
)

// Achievement identifiers. The values are persisted and must never change.
const (
	FirstInjection    ID = "first_injection"
	TenInjections     ID = "ten_injections"
	FiftyInjections   ID = "fifty_injections"
	HundredInjections ID = "hundred_injections"
	FirstTablet       ID = "first_tablet"

	FirstCourse     ID = "first_course"
	FiveCourses     ID = "five_courses"
	CourseCollector ID = "course_collector"
	NightOwl        ID = "night_owl"
	EarlyBird       ID = "early_bird"
	WeekendWarrior  ID = "weekend_warrior"

	FirstLab ID = "first_lab"
	FiveLabs ID = "five_labs"
	LabRat   ID = "lab_rat"

	PerfectProfile ID = "perfect_profile"
	Storyteller    ID = "storyteller"

	AdminWannabe ID = "admin_wannabe"

	WeekStreak  ID = "week_streak"
	MonthStreak ID = "month_streak"

	HundredActions ID = "hundred_actions"
	Perfectionist  ID = "perfectionist"
)

// catalog is the ordered, process-wide list of definitions.
// Order here is the order of every progress view and grant result.
var catalog = []Definition{
	// Injections
	{ID: FirstInjection, Name: "First Shot", Description: "Log your first injection", Category: CategoryInjection, Icon: "💉", Rarity: RarityCommon, Points: 10},
	{ID: TenInjections, Name: "Getting Used To It", Description: "Log 10 injections", Category: CategoryInjection, Icon: "🎯", Rarity: RarityCommon, Points: 25, Required: 10},
	{ID: FiftyInjections, Name: "Steady Hand", Description: "Log 50 injections", Category: CategoryInjection, Icon: "🩺", Rarity: RarityRare, Points: 50, Required: 50},
	{ID: HundredInjections, Name: "Pincushion", Description: "Log 100 injections", Category: CategoryInjection, Icon: "🏅", Rarity: RarityEpic, Points: 100, Required: 100},
	{ID: FirstTablet, Name: "Oral Route", Description: "Log your first tablet", Category: CategoryInjection, Icon: "💊", Rarity: RarityCommon, Points: 10},

	// Courses
	{ID: FirstCourse, Name: "Day One", Description: "Create your first course", Category: CategoryCourse, Icon: "📋", Rarity: RarityCommon, Points: 10},
	{ID: FiveCourses, Name: "Veteran", Description: "Create 5 courses", Category: CategoryCourse, Icon: "📚", Rarity: RarityRare, Points: 50, Required: 5},
	{ID: CourseCollector, Name: "Collector", Description: "Run courses of 3 different types", Category: CategoryCourse, Icon: "🧩", Rarity: RarityRare, Points: 40, Required: 3},
	{ID: NightOwl, Name: "Night Owl", Description: "Create a course between 2 and 6 AM", Category: CategoryCourse, Icon: "🦉", Rarity: RarityRare, Points: 20},
	{ID: EarlyBird, Name: "Early Bird", Description: "Create a course between 5 and 7 AM", Category: CategoryCourse, Icon: "🐦", Rarity: RarityRare, Points: 20},
	{ID: WeekendWarrior, Name: "Weekend Warrior", Description: "Create a course on a weekend", Category: CategoryCourse, Icon: "🏖️", Rarity: RarityCommon, Points: 15},

	// Labs
	{ID: FirstLab, Name: "Know Your Numbers", Description: "Record your first lab result", Category: CategoryLabs, Icon: "🧪", Rarity: RarityCommon, Points: 15},
	{ID: FiveLabs, Name: "Regular Checkups", Description: "Record 5 lab results", Category: CategoryLabs, Icon: "📈", Rarity: RarityRare, Points: 40, Required: 5},
	{ID: LabRat, Name: "Lab Rat", Description: "Record 10 lab results", Category: CategoryLabs, Icon: "🐀", Rarity: RarityEpic, Points: 80, Required: 10},

	// Profile
	{ID: PerfectProfile, Name: "Perfect Profile", Description: "Fill in every profile field", Category: CategoryProfile, Icon: "🪪", Rarity: RarityCommon, Points: 20},
	{ID: Storyteller, Name: "Storyteller", Description: "Write a bio longer than 100 characters", Category: CategoryProfile, Icon: "✍️", Rarity: RarityCommon, Points: 15},

	// Meme
	{ID: AdminWannabe, Name: "I Am The Admin", Description: "Call yourself admin", Category: CategoryMeme, Icon: "👑", Rarity: RarityLegendary, Points: 5, Secret: true, Meme: true},

	// Streaks
	{ID: WeekStreak, Name: "Week Of Discipline", Description: "Log actions 7 days in a row", Category: CategoryStreak, Icon: "🔥", Rarity: RarityRare, Points: 50, Required: 7},
	{ID: MonthStreak, Name: "Iron Will", Description: "Log actions 30 days in a row", Category: CategoryStreak, Icon: "💪", Rarity: RarityLegendary, Points: 200, Required: 30},

	// Milestones
	{ID: HundredActions, Name: "Centurion", Description: "Log 100 actions of any kind", Category: CategoryMilestone, Icon: "💯", Rarity: RarityEpic, Points: 100, Required: 100},
	{ID: Perfectionist, Name: "Perfectionist", Description: "Complete your profile and create 5 courses", Category: CategoryMilestone, Icon: "🏆", Rarity: RarityEpic, Points: 75},
}

// catalogIndex maps id to position in catalog.
var catalogIndex = func() map[ID]int {
	idx := make(map[ID]int, len(catalog))
	for i, d := range catalog {
		idx[d.ID] = i
	}
	return idx
}()

// Catalog returns a copy of the ordered achievement definitions.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the definition with the given id.
func Lookup(id ID) (Definition, bool) {
	i, ok := catalogIndex[id]
	if !ok {
		return Definition{}, false
	}
	return catalog[i], true
}

// TotalPoints sums the points of every earned achievement that is still in
// the catalog. Unknown ids contribute nothing.
func TotalPoints(earned EarnedSet) int {
	total := 0
	for id := range earned {
		if def, ok := Lookup(id); ok {
			total += def.Points
		}
	}
	return total
}

// ValidateCatalog checks every definition, id uniqueness, and that each id
// has an evaluation rule in rules. All problems are reported together.
func ValidateCatalog(defs []Definition, rules map[ID]Rule) error {
	var errs []error
	seen := make(map[ID]struct{}, len(defs))

	for _, d := range defs {
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
		}
		if _, dup := seen[d.ID]; dup {
			errs = append(errs, fmt.Errorf("achievement %s: duplicate id", d.ID))
		}
		seen[d.ID] = struct{}{}

		if _, ok := rules[d.ID]; !ok {
			errs = append(errs, fmt.Errorf("achievement %s: %w", d.ID, shared.ErrUnmappedAchievement))
		}
	}

	return errors.Join(errs...)
}
