package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/coursehub/course-tracker/internal/domain/tracker"
)

// Timestamps are stored as RFC3339 text. A value that no longer parses is
// read back as the zero time so the record counts as malformed instead of
// failing the whole read.

// RecordRepository implements tracker.Repository.
type RecordRepository struct {
	store *Store
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(store *Store) *RecordRepository {
	return &RecordRepository{store: store}
}

var _ tracker.Repository = (*RecordRepository)(nil)

type courseRow struct {
	ID        string `db:"id"`
	Type      string `db:"course_type"`
	Name      string `db:"name"`
	CreatedAt string `db:"created_at"`
}

type actionRow struct {
	ID         string `db:"id"`
	CourseID   string `db:"course_id"`
	Type       string `db:"action_type"`
	OccurredAt string `db:"occurred_at"`
	Note       string `db:"note"`
}

type labRow struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	TakenAt string `db:"taken_at"`
}

func parseStored(raw string) time.Time {
	t, _ := tracker.ParseTimestamp(raw, time.UTC)
	return t
}

// GetProfile returns the profile of userID, or nil if none was saved.
func (r *RecordRepository) GetProfile(ctx context.Context, userID string) (*tracker.Profile, error) {
	var p tracker.Profile
	err := r.store.db.GetContext(ctx, &p, `
		SELECT full_name, username, avatar_url, date_of_birth, city, bio, gender
		FROM profiles WHERE user_id = ?
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("GetProfile", err)
	}
	return &p, nil
}

// GetCourses returns courses ordered by creation time.
func (r *RecordRepository) GetCourses(ctx context.Context, userID string) ([]tracker.Course, error) {
	var rows []courseRow
	if err := r.store.db.SelectContext(ctx, &rows, `
		SELECT id, course_type, name, created_at FROM courses WHERE user_id = ? ORDER BY seq
	`, userID); err != nil {
		return nil, mapError("GetCourses", err)
	}

	courses := make([]tracker.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, tracker.Course{
			ID:        row.ID,
			Type:      tracker.CourseType(row.Type),
			Name:      row.Name,
			CreatedAt: parseStored(row.CreatedAt),
		})
	}
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].CreatedAt.Before(courses[j].CreatedAt) })
	return courses, nil
}

// GetActions returns actions ordered by timestamp.
func (r *RecordRepository) GetActions(ctx context.Context, userID string) ([]tracker.Action, error) {
	var rows []actionRow
	if err := r.store.db.SelectContext(ctx, &rows, `
		SELECT id, course_id, action_type, occurred_at, note FROM actions WHERE user_id = ? ORDER BY seq
	`, userID); err != nil {
		return nil, mapError("GetActions", err)
	}

	actions := make([]tracker.Action, 0, len(rows))
	for _, row := range rows {
		actions = append(actions, tracker.Action{
			ID:        row.ID,
			CourseID:  row.CourseID,
			Type:      tracker.ActionType(row.Type),
			Timestamp: parseStored(row.OccurredAt),
			Note:      row.Note,
		})
	}
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Timestamp.Before(actions[j].Timestamp) })
	return actions, nil
}

// GetLabs returns lab entries in insertion order.
func (r *RecordRepository) GetLabs(ctx context.Context, userID string) ([]tracker.Lab, error) {
	var rows []labRow
	if err := r.store.db.SelectContext(ctx, &rows, `
		SELECT id, name, taken_at FROM labs WHERE user_id = ? ORDER BY seq
	`, userID); err != nil {
		return nil, mapError("GetLabs", err)
	}

	labs := make([]tracker.Lab, 0, len(rows))
	for _, row := range rows {
		labs = append(labs, tracker.Lab{ID: row.ID, Name: row.Name, TakenAt: parseStored(row.TakenAt)})
	}
	return labs, nil
}

// ListUserIDs returns every user owning at least one record.
func (r *RecordRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := r.store.db.SelectContext(ctx, &ids, `
		SELECT user_id FROM profiles
		UNION SELECT user_id FROM courses
		UNION SELECT user_id FROM actions
		UNION SELECT user_id FROM labs
		ORDER BY user_id
	`); err != nil {
		return nil, mapError("ListUserIDs", err)
	}
	return ids, nil
}

// SaveProfile creates or replaces the profile of userID.
func (r *RecordRepository) SaveProfile(ctx context.Context, userID string, p tracker.Profile) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, full_name, username, avatar_url, date_of_birth, city, bio, gender)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = excluded.full_name,
			username = excluded.username,
			avatar_url = excluded.avatar_url,
			date_of_birth = excluded.date_of_birth,
			city = excluded.city,
			bio = excluded.bio,
			gender = excluded.gender
	`, userID, p.FullName, p.Username, p.AvatarURL, p.DateOfBirth, p.City, p.Bio, p.Gender)
	return mapError("SaveProfile", err)
}

// AddCourse appends a course.
func (r *RecordRepository) AddCourse(ctx context.Context, userID string, c tracker.Course) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO courses (id, user_id, course_type, name, created_at) VALUES (?, ?, ?, ?, ?)
	`, c.ID, userID, string(c.Type), c.Name, tracker.FormatTimestamp(c.CreatedAt))
	return mapError("AddCourse", err)
}

// AddAction appends an action.
func (r *RecordRepository) AddAction(ctx context.Context, userID string, a tracker.Action) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO actions (id, user_id, course_id, action_type, occurred_at, note) VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, userID, a.CourseID, string(a.Type), tracker.FormatTimestamp(a.Timestamp), a.Note)
	return mapError("AddAction", err)
}

// AddLab appends a lab entry.
func (r *RecordRepository) AddLab(ctx context.Context, userID string, l tracker.Lab) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO labs (id, user_id, name, taken_at) VALUES (?, ?, ?, ?)
	`, l.ID, userID, l.Name, tracker.FormatTimestamp(l.TakenAt))
	return mapError("AddLab", err)
}
