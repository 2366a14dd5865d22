package tracker

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These ports define the persistence contract for user records.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// RecordReader reads the four record collections of a user.
// An empty slice (or nil profile) is a valid state and must be
// distinguishable from a failed read, which is reported as an error.
type RecordReader interface {
	// GetProfile returns the user's profile, or nil if none was saved.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// GetCourses returns the user's courses ordered by creation.
	GetCourses(ctx context.Context, userID string) ([]Course, error)

	// GetActions returns the user's actions ordered by timestamp.
	GetActions(ctx context.Context, userID string) ([]Action, error)

	// GetLabs returns the user's lab entries ordered by insertion.
	GetLabs(ctx context.Context, userID string) ([]Lab, error)
}

// RecordWriter appends to and updates the record collections.
type RecordWriter interface {
	// SaveProfile creates or replaces the user's profile.
	SaveProfile(ctx context.Context, userID string, profile Profile) error

	// AddCourse appends a course.
	AddCourse(ctx context.Context, userID string, course Course) error

	// AddAction appends an action.
	AddAction(ctx context.Context, userID string, action Action) error

	// AddLab appends a lab entry.
	AddLab(ctx context.Context, userID string, lab Lab) error
}

// UserLister enumerates users that own at least one record.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Repository combines all record operations.
type Repository interface {
	RecordReader
	RecordWriter
	UserLister
}
