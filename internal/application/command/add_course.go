package command

import (
	"context"
	"strings"
	"time"

	"github.com/coursehub/course-tracker/internal/domain/shared"
	"github.com/coursehub/course-tracker/internal/domain/tracker"
)

// AddCourseCommand contains the data to start a course.
type AddCourseCommand struct {
	UserID string `validate:"required"`

	// Type is a free-form category, normalised to lower case.
	Type string `validate:"required,max=64"`

	Name string `validate:"max=200"`

	// CreatedAt defaults to now when zero. Its local hour and weekday drive
	// the night owl, early bird and weekend achievements.
	CreatedAt time.Time

	CorrelationID string
}

// AddCourseResult contains the persisted course and grant outcome.
type AddCourseResult struct {
	Course tracker.Course
	GrantOutcome
}

// AddCourseHandler handles AddCourseCommand.
type AddCourseHandler struct {
	deps Dependencies
}

// NewAddCourseHandler creates a new AddCourseHandler.
func NewAddCourseHandler(deps Dependencies) *AddCourseHandler {
	return &AddCourseHandler{deps: deps.withDefaults()}
}

// Handle validates and stores the course, then runs the grant engine.
func (h *AddCourseHandler) Handle(ctx context.Context, cmd AddCourseCommand) (*AddCourseResult, error) {
	if err := validateCommand("AddCourse", cmd); err != nil {
		return nil, err
	}
	courseType := tracker.CourseType(cmd.Type).Normalize()
	if !courseType.IsValid() {
		return nil, shared.ErrInvalidCourseType
	}
	createdAt, err := resolveTimestamp("AddCourse", cmd.CreatedAt, h.deps.Clock.Now())
	if err != nil {
		return nil, err
	}

	course := tracker.Course{
		ID:        h.deps.IDs.NewID(),
		Type:      courseType,
		Name:      strings.TrimSpace(cmd.Name),
		CreatedAt: createdAt,
	}
	if err := h.deps.Records.AddCourse(ctx, cmd.UserID, course); err != nil {
		return nil, shared.WrapError("tracker", "AddCourse", shared.ErrExternalService, "failed to store course", err)
	}

	ev := shared.NewRecordAddedEvent(shared.EventCourseAdded, cmd.UserID, course.ID, "course", createdAt)
	return &AddCourseResult{
		Course:       course,
		GrantOutcome: afterWrite(ctx, h.deps, ev, cmd.CorrelationID),
	}, nil
}
