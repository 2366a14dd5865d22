package command

import (
	"context"
	"strings"
	"time"

	"github.com/coursehub/course-tracker/internal/domain/shared"
	"github.com/coursehub/course-tracker/internal/domain/tracker"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ACTION COMMAND
// Appends a dosing action and grants whatever it unlocked (first injection,
// streaks, action milestones).
// ══════════════════════════════════════════════════════════════════════════════

// RecordActionCommand contains the data to log an action.
type RecordActionCommand struct {
	UserID string `validate:"required"`

	// Type is one of injection, tablet, other (case-insensitive).
	Type string `validate:"required"`

	// CourseID optionally links the action to a course.
	CourseID string `validate:"max=128"`

	// Timestamp defaults to now when zero.
	Timestamp time.Time

	Note string `validate:"max=1000"`

	CorrelationID string
}

// RecordActionResult contains the persisted action and grant outcome.
type RecordActionResult struct {
	Action tracker.Action
	GrantOutcome
}

// RecordActionHandler handles RecordActionCommand.
type RecordActionHandler struct {
	deps Dependencies
}

// NewRecordActionHandler creates a new RecordActionHandler.
func NewRecordActionHandler(deps Dependencies) *RecordActionHandler {
	return &RecordActionHandler{deps: deps.withDefaults()}
}

// Handle validates and stores the action, then runs the grant engine.
// The returned error covers validation and the write only.
func (h *RecordActionHandler) Handle(ctx context.Context, cmd RecordActionCommand) (*RecordActionResult, error) {
	if err := validateCommand("RecordAction", cmd); err != nil {
		return nil, err
	}
	actionType, ok := tracker.ParseActionType(cmd.Type)
	if !ok {
		return nil, shared.ErrInvalidActionType
	}
	ts, err := resolveTimestamp("RecordAction", cmd.Timestamp, h.deps.Clock.Now())
	if err != nil {
		return nil, err
	}

	action := tracker.Action{
		ID:        h.deps.IDs.NewID(),
		CourseID:  strings.TrimSpace(cmd.CourseID),
		Type:      actionType,
		Timestamp: ts,
		Note:      cmd.Note,
	}
	if err := h.deps.Records.AddAction(ctx, cmd.UserID, action); err != nil {
		return nil, shared.WrapError("tracker", "AddAction", shared.ErrExternalService, "failed to store action", err)
	}

	ev := shared.NewRecordAddedEvent(shared.EventActionLogged, cmd.UserID, action.ID, "action", ts)
	return &RecordActionResult{
		Action:       action,
		GrantOutcome: afterWrite(ctx, h.deps, ev, cmd.CorrelationID),
	}, nil
}
