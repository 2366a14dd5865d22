package command

import (
	"context"
	"strings"

	"github.com/coursehub/course-tracker/internal/domain/shared"
	"github.com/coursehub/course-tracker/internal/domain/tracker"
)

// UpdateProfileCommand replaces the user's profile. Empty fields clear the
// stored value.
type UpdateProfileCommand struct {
	UserID      string `validate:"required"`
	FullName    string `validate:"max=200"`
	Username    string `validate:"max=64"`
	AvatarURL   string `validate:"omitempty,url"`
	DateOfBirth string `validate:"omitempty,datetime=2006-01-02"`
	City        string `validate:"max=100"`
	Bio         string `validate:"max=4000"`
	Gender      string `validate:"max=32"`

	CorrelationID string
}

func (c UpdateProfileCommand) profile() tracker.Profile {
	return tracker.Profile{
		FullName:    strings.TrimSpace(c.FullName),
		Username:    strings.TrimSpace(c.Username),
		AvatarURL:   strings.TrimSpace(c.AvatarURL),
		DateOfBirth: strings.TrimSpace(c.DateOfBirth),
		City:        strings.TrimSpace(c.City),
		Bio:         c.Bio,
		Gender:      strings.TrimSpace(c.Gender),
	}
}

// UpdateProfileResult contains the stored profile and grant outcome.
type UpdateProfileResult struct {
	Profile tracker.Profile
	GrantOutcome
}

// UpdateProfileHandler handles UpdateProfileCommand.
type UpdateProfileHandler struct {
	deps Dependencies
}

// NewUpdateProfileHandler creates a new UpdateProfileHandler.
func NewUpdateProfileHandler(deps Dependencies) *UpdateProfileHandler {
	return &UpdateProfileHandler{deps: deps.withDefaults()}
}

// Handle saves the profile and runs the grant engine.
func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (*UpdateProfileResult, error) {
	if err := validateCommand("UpdateProfile", cmd); err != nil {
		return nil, err
	}

	profile := cmd.profile()
	if err := h.deps.Records.SaveProfile(ctx, cmd.UserID, profile); err != nil {
		return nil, shared.WrapError("tracker", "SaveProfile", shared.ErrExternalService, "failed to store profile", err)
	}

	ev := shared.NewRecordAddedEvent(shared.EventProfileUpdated, cmd.UserID, cmd.UserID, "profile", h.deps.Clock.Now())
	return &UpdateProfileResult{
		Profile:      profile,
		GrantOutcome: afterWrite(ctx, h.deps, ev, cmd.CorrelationID),
	}, nil
}
