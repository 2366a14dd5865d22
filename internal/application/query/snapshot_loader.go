// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/coursehub/course-tracker/internal/domain/shared"
	"github.com/coursehub/course-tracker/internal/domain/tracker"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT LOADER
// Reads the four record collections of a user concurrently.
// The collections are independent inputs, so fetch order does not matter.
// Any single failure fails the whole load: an empty collection is a valid
// state and must never stand in for a failed read.
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotLoader builds tracker.Snapshot values from a RecordReader.
type SnapshotLoader struct {
	reader tracker.RecordReader
}

// NewSnapshotLoader creates a SnapshotLoader.
func NewSnapshotLoader(reader tracker.RecordReader) *SnapshotLoader {
	return &SnapshotLoader{reader: reader}
}

// Load fetches a fresh snapshot of userID. Nothing is cached between calls.
func (l *SnapshotLoader) Load(ctx context.Context, userID string) (tracker.Snapshot, error) {
	if userID == "" {
		return tracker.Snapshot{}, shared.ErrInvalidUserID
	}

	snap := tracker.Snapshot{UserID: userID}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := l.reader.GetProfile(gctx, userID)
		if err != nil {
			return shared.WrapError("tracker", "GetProfile", shared.ErrExternalService, "failed to load profile", err)
		}
		snap.Profile = p
		return nil
	})
	g.Go(func() error {
		c, err := l.reader.GetCourses(gctx, userID)
		if err != nil {
			return shared.WrapError("tracker", "GetCourses", shared.ErrExternalService, "failed to load courses", err)
		}
		snap.Courses = c
		return nil
	})
	g.Go(func() error {
		a, err := l.reader.GetActions(gctx, userID)
		if err != nil {
			return shared.WrapError("tracker", "GetActions", shared.ErrExternalService, "failed to load actions", err)
		}
		snap.Actions = a
		return nil
	})
	g.Go(func() error {
		lb, err := l.reader.GetLabs(gctx, userID)
		if err != nil {
			return shared.WrapError("tracker", "GetLabs", shared.ErrExternalService, "failed to load labs", err)
		}
		snap.Labs = lb
		return nil
	})

	if err := g.Wait(); err != nil {
		return tracker.Snapshot{}, shared.WrapError("tracker", "LoadSnapshot", shared.ErrSnapshotFetch, "failed to load user records", err)
	}
	return snap, nil
}
