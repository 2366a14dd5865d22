package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coursehub/course-tracker/internal/domain/tracker"
)

// RecordRepository implements tracker.Repository.
type RecordRepository struct {
	conn *Connection
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(conn *Connection) *RecordRepository {
	return &RecordRepository{conn: conn}
}

var _ tracker.Repository = (*RecordRepository)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// READS
// ══════════════════════════════════════════════════════════════════════════════

// GetProfile returns the profile of userID, or nil if none was saved.
func (r *RecordRepository) GetProfile(ctx context.Context, userID string) (*tracker.Profile, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var p tracker.Profile
	err := r.conn.QueryRow(ctx, `
		SELECT full_name, username, avatar_url, date_of_birth, city, bio, gender
		FROM profiles WHERE user_id = $1
	`, userID).Scan(&p.FullName, &p.Username, &p.AvatarURL, &p.DateOfBirth, &p.City, &p.Bio, &p.Gender)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("GetProfile", err)
	}
	return &p, nil
}

// GetCourses returns courses ordered by creation. A NULL created_at is
// returned as the zero time.
func (r *RecordRepository) GetCourses(ctx context.Context, userID string) ([]tracker.Course, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `
		SELECT id, course_type, name, created_at
		FROM courses WHERE user_id = $1
		ORDER BY created_at NULLS FIRST, id
	`, userID)
	if err != nil {
		return nil, mapError("GetCourses", err)
	}

	courses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tracker.Course, error) {
		var c tracker.Course
		var courseType string
		var createdAt *time.Time
		if err := row.Scan(&c.ID, &courseType, &c.Name, &createdAt); err != nil {
			return c, err
		}
		c.Type = tracker.CourseType(courseType)
		c.CreatedAt = derefTime(createdAt)
		return c, nil
	})
	if err != nil {
		return nil, mapError("GetCourses", err)
	}
	return courses, nil
}

// GetActions returns actions ordered by timestamp.
func (r *RecordRepository) GetActions(ctx context.Context, userID string) ([]tracker.Action, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `
		SELECT id, course_id, action_type, occurred_at, note
		FROM actions WHERE user_id = $1
		ORDER BY occurred_at NULLS FIRST, id
	`, userID)
	if err != nil {
		return nil, mapError("GetActions", err)
	}

	actions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tracker.Action, error) {
		var a tracker.Action
		var actionType string
		var occurredAt *time.Time
		if err := row.Scan(&a.ID, &a.CourseID, &actionType, &occurredAt, &a.Note); err != nil {
			return a, err
		}
		a.Type = tracker.ActionType(actionType)
		a.Timestamp = derefTime(occurredAt)
		return a, nil
	})
	if err != nil {
		return nil, mapError("GetActions", err)
	}
	return actions, nil
}

// GetLabs returns lab entries in insertion order.
func (r *RecordRepository) GetLabs(ctx context.Context, userID string) ([]tracker.Lab, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `
		SELECT id, name, taken_at FROM labs WHERE user_id = $1 ORDER BY seq
	`, userID)
	if err != nil {
		return nil, mapError("GetLabs", err)
	}

	labs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tracker.Lab, error) {
		var l tracker.Lab
		var takenAt *time.Time
		if err := row.Scan(&l.ID, &l.Name, &takenAt); err != nil {
			return l, err
		}
		l.TakenAt = derefTime(takenAt)
		return l, nil
	})
	if err != nil {
		return nil, mapError("GetLabs", err)
	}
	return labs, nil
}

// ListUserIDs returns every user owning at least one record.
func (r *RecordRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `
		SELECT user_id FROM profiles
		UNION SELECT user_id FROM courses
		UNION SELECT user_id FROM actions
		UNION SELECT user_id FROM labs
		ORDER BY user_id
	`)
	if err != nil {
		return nil, mapError("ListUserIDs", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError("ListUserIDs", err)
	}
	return ids, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITES
// ══════════════════════════════════════════════════════════════════════════════

// SaveProfile creates or replaces the profile of userID.
func (r *RecordRepository) SaveProfile(ctx context.Context, userID string, p tracker.Profile) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Exec(ctx, `
		INSERT INTO profiles (user_id, full_name, username, avatar_url, date_of_birth, city, bio, gender, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			username = EXCLUDED.username,
			avatar_url = EXCLUDED.avatar_url,
			date_of_birth = EXCLUDED.date_of_birth,
			city = EXCLUDED.city,
			bio = EXCLUDED.bio,
			gender = EXCLUDED.gender,
			updated_at = NOW()
	`, userID, p.FullName, p.Username, p.AvatarURL, p.DateOfBirth, p.City, p.Bio, p.Gender)
	return mapError("SaveProfile", err)
}

// AddCourse appends a course.
func (r *RecordRepository) AddCourse(ctx context.Context, userID string, c tracker.Course) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Exec(ctx, `
		INSERT INTO courses (id, user_id, course_type, name, created_at) VALUES ($1, $2, $3, $4, $5)
	`, c.ID, userID, string(c.Type), c.Name, nullTime(c.CreatedAt))
	return mapError("AddCourse", err)
}

// AddAction appends an action.
func (r *RecordRepository) AddAction(ctx context.Context, userID string, a tracker.Action) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Exec(ctx, `
		INSERT INTO actions (id, user_id, course_id, action_type, occurred_at, note) VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, userID, a.CourseID, string(a.Type), nullTime(a.Timestamp), a.Note)
	return mapError("AddAction", err)
}

// AddLab appends a lab entry.
func (r *RecordRepository) AddLab(ctx context.Context, userID string, l tracker.Lab) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Exec(ctx, `
		INSERT INTO labs (id, user_id, name, taken_at) VALUES ($1, $2, $3, $4)
	`, l.ID, userID, l.Name, nullTime(l.TakenAt))
	return mapError("AddLab", err)
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
