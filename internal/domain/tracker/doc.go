// Package tracker contains the domain model of a user's health-tracking
// records: profile, courses, logged dosing actions and lab entries.
//
// The package has zero external dependencies. It defines:
//
//   - Records: Profile, Course, Action, Lab
//   - Snapshot: every record of one user at the moment of evaluation
//   - Repository ports: RecordReader, RecordWriter (implemented in
//     infrastructure/persistence)
//
// Timestamps that are missing or could not be parsed are carried as the zero
// time.Time. Consumers treat a zero timestamp as absent data.
//
// A Snapshot is rebuilt for every evaluation and never cached:
//
//	snap := tracker.Snapshot{
//	    UserID:  userID,
//	    Profile: profile,
//	    Courses: courses,
//	    Actions: actions,
//	    Labs:    labs,
//	}
package tracker
