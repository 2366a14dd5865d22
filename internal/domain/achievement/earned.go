package achievement

import (
	"context"
	"sort"
	"time"
)

// EarnedSet is the set of achievement ids already recorded for a user,
// with the time each was earned (zero when unknown).
type EarnedSet map[ID]time.Time

// NewEarnedSet builds a set from ids.
func NewEarnedSet(ids ...ID) EarnedSet {
	s := make(EarnedSet, len(ids))
	for _, id := range ids {
		s[id] = time.Time{}
	}
	return s
}

// Has reports whether id is in the set. A nil set is empty.
func (s EarnedSet) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id if absent and reports whether it was inserted.
// An existing earned time is never overwritten.
func (s EarnedSet) Add(id ID, at time.Time) bool {
	if s.Has(id) {
		return false
	}
	s[id] = at
	return true
}

// Claim records id at at unless it is already present.
func (s EarnedSet) Claim(id ID, at time.Time) AppendResult {
	inserted := s.Add(id, at)
	return AppendResult{Inserted: inserted, EarnedAt: s[id]}
}

// AppendResult is the outcome of one AppendEarnedAchievement call.
type AppendResult struct {
	// Inserted is true when this call wrote the row.
	Inserted bool
	// EarnedAt is the time stored for the pair after the call.
	EarnedAt time.Time
}

// EarnedAt returns the recorded time for id.
func (s EarnedSet) EarnedAt(id ID) (time.Time, bool) {
	at, ok := s[id]
	return at, ok
}

// IDs returns the ids sorted lexicographically.
func (s EarnedSet) IDs() []ID {
	ids := make([]ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EarnedRepository persists earned achievements.
//
// AppendEarnedAchievement must be idempotent per (userID, id): the first
// write wins, and every call reports whether it inserted the row together
// with the earned time stored for the pair. The stored time lets a retried
// write recognise a row committed by its own earlier attempt whose
// acknowledgement was lost.
type EarnedRepository interface {
	// GetEarnedAchievements returns every earned id of the user.
	// A failure must be reported, never turned into an empty set.
	GetEarnedAchievements(ctx context.Context, userID string) (EarnedSet, error)

	// AppendEarnedAchievement records id as earned at earnedAt.
	AppendEarnedAchievement(ctx context.Context, userID string, id ID, earnedAt time.Time) (AppendResult, error)
}
