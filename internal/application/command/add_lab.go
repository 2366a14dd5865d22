package command

import (
	"context"
	"strings"
	"time"

	"github.com/coursehub/course-tracker/internal/domain/shared"
	"github.com/coursehub/course-tracker/internal/domain/tracker"
)

// AddLabCommand contains the data to record a lab result.
type AddLabCommand struct {
	UserID        string `validate:"required"`
	Name          string `validate:"max=200"`
	TakenAt       time.Time
	CorrelationID string
}

// AddLabResult contains the persisted lab and grant outcome.
type AddLabResult struct {
	Lab tracker.Lab
	GrantOutcome
}

// AddLabHandler handles AddLabCommand.
type AddLabHandler struct {
	deps Dependencies
}

// NewAddLabHandler creates a new AddLabHandler.
func NewAddLabHandler(deps Dependencies) *AddLabHandler {
	return &AddLabHandler{deps: deps.withDefaults()}
}

// Handle stores the lab entry and runs the grant engine.
func (h *AddLabHandler) Handle(ctx context.Context, cmd AddLabCommand) (*AddLabResult, error) {
	if err := validateCommand("AddLab", cmd); err != nil {
		return nil, err
	}
	takenAt, err := resolveTimestamp("AddLab", cmd.TakenAt, h.deps.Clock.Now())
	if err != nil {
		return nil, err
	}

	lab := tracker.Lab{
		ID:      h.deps.IDs.NewID(),
		Name:    strings.TrimSpace(cmd.Name),
		TakenAt: takenAt,
	}
	if err := h.deps.Records.AddLab(ctx, cmd.UserID, lab); err != nil {
		return nil, shared.WrapError("tracker", "AddLab", shared.ErrExternalService, "failed to store lab", err)
	}

	ev := shared.NewRecordAddedEvent(shared.EventLabAdded, cmd.UserID, lab.ID, "lab", takenAt)
	return &AddLabResult{
		Lab:          lab,
		GrantOutcome: afterWrite(ctx, h.deps, ev, cmd.CorrelationID),
	}, nil
}
