// Package achievement contains the achievement catalog and the pure progress
// computation built on top of a tracker.Snapshot.
//
// The flow is strictly one-directional:
//
//	tracker.Snapshot -> Extract -> Metrics -> rule table -> []Progress
//
// Every catalog entry must have an entry in the rule table. ValidateCatalog
// checks this at startup; the Evaluator either fails (strict mode) or reports
// zero progress and warns once per id.
//
// Nothing in this package performs I/O. Persistence of earned achievements is
// described by the EarnedRepository port.
package achievement
