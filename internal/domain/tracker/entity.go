package tracker

import (
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// ActionType is the kind of a logged dosing action.
type ActionType string

const (
	// ActionInjection - an injection was administered.
	ActionInjection ActionType = "injection"
	// ActionTablet - an oral tablet was taken.
	ActionTablet ActionType = "tablet"
	// ActionOther - any other logged action (topical, note, ...).
	ActionOther ActionType = "other"
)

// IsValid reports whether the action type is one of the known kinds.
func (t ActionType) IsValid() bool {
	switch t {
	case ActionInjection, ActionTablet, ActionOther:
		return true
	default:
		return false
	}
}

// ParseActionType normalises user input into an ActionType.
func ParseActionType(s string) (ActionType, bool) {
	t := ActionType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.IsValid()
}

// CourseType is a free-form course category such as "bulking" or "cutting".
type CourseType string

// Normalize trims and lower-cases a course type entered by a user. Stored
// types are compared verbatim.
func (t CourseType) Normalize() CourseType {
	return CourseType(strings.ToLower(strings.TrimSpace(string(t))))
}

// IsValid reports whether the course type is not blank.
func (t CourseType) IsValid() bool {
	return t.Normalize() != ""
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// Profile holds optional personal details. Empty strings mean "not filled".
type Profile struct {
	FullName    string `json:"full_name,omitempty" db:"full_name"`
	Username    string `json:"username,omitempty" db:"username"`
	AvatarURL   string `json:"avatar_url,omitempty" db:"avatar_url"`
	DateOfBirth string `json:"date_of_birth,omitempty" db:"date_of_birth"`
	City        string `json:"city,omitempty" db:"city"`
	Bio         string `json:"bio,omitempty" db:"bio"`
	Gender      string `json:"gender,omitempty" db:"gender"`
}

// Fields returns the profile fields in a stable order, keyed by name.
func (p Profile) Fields() []ProfileField {
	return []ProfileField{
		{Name: "full_name", Value: p.FullName},
		{Name: "username", Value: p.Username},
		{Name: "avatar_url", Value: p.AvatarURL},
		{Name: "date_of_birth", Value: p.DateOfBirth},
		{Name: "city", Value: p.City},
		{Name: "bio", Value: p.Bio},
		{Name: "gender", Value: p.Gender},
	}
}

// ProfileField is a single named profile value.
type ProfileField struct {
	Name  string
	Value string
}

// Filled reports whether the field carries a non-blank value.
func (f ProfileField) Filled() bool {
	return strings.TrimSpace(f.Value) != ""
}

// Course is one tracked course (cycle) of a user.
type Course struct {
	ID        string     `json:"id"`
	Type      CourseType `json:"type"`
	Name      string     `json:"name,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Action is one logged dosing action.
type Action struct {
	ID        string     `json:"id"`
	CourseID  string     `json:"course_id,omitempty"`
	Type      ActionType `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
	Note      string     `json:"note,omitempty"`
}

// Lab is one recorded lab result.
type Lab struct {
	ID      string    `json:"id"`
	Name    string    `json:"name,omitempty"`
	TakenAt time.Time `json:"taken_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot is the full set of a user's raw records at evaluation time.
// Profile is nil when the user never filled one in.
type Snapshot struct {
	UserID  string
	Profile *Profile
	Courses []Course
	Actions []Action
	Labs    []Lab
}

// ProfileOrEmpty returns the profile, or a zero profile when none exists.
func (s Snapshot) ProfileOrEmpty() Profile {
	if s.Profile == nil {
		return Profile{}
	}
	return *s.Profile
}

// IsEmpty reports whether the user has no records at all.
func (s Snapshot) IsEmpty() bool {
	return s.Profile == nil && len(s.Courses) == 0 && len(s.Actions) == 0 && len(s.Labs) == 0
}
