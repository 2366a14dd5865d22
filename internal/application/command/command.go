// Package command contains write operations (CQRS - Commands).
//
// Every command appends to one record collection and then runs the grant
// engine for the same user, so newly earned achievements are persisted
// right after the data that earned them.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/coursehub/course-tracker/internal/application/saga"
	"github.com/coursehub/course-tracker/internal/domain/achievement"
	"github.com/coursehub/course-tracker/internal/domain/shared"
	"github.com/coursehub/course-tracker/internal/domain/tracker"
	"github.com/coursehub/course-tracker/pkg/logger"
	"github.com/coursehub/course-tracker/pkg/timeutil"
)

// MaxClockSkew is how far into the future a client timestamp may lie
// before it is rejected.
const MaxClockSkew = time.Minute

// Granter runs the grant engine for one user.
type Granter interface {
	Execute(ctx context.Context, input saga.GrantInput) (*saga.GrantResult, error)
}

// IDGenerator generates unique record identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random UUIDv4 identifiers.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Dependencies are shared by every command handler.
type Dependencies struct {
	Records tracker.RecordWriter
	Granter Granter
	Events  shared.EventPublisher
	IDs     IDGenerator
	Clock   timeutil.Clock
	Log     *logger.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.IDs == nil {
		d.IDs = UUIDGenerator{}
	}
	if d.Clock == nil {
		d.Clock = timeutil.SystemClock{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

// GrantOutcome is the grant part of every command result. The record write
// has already succeeded when GrantErr is set; the grant can be retried
// later (the scheduler does) without re-submitting the record.
type GrantOutcome struct {
	// Granted - achievements newly granted by this command, in catalog order.
	Granted []achievement.Definition

	// GrantErr - grant engine failure, if any.
	GrantErr error
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateCommand runs struct tag validation and maps failures onto
// shared.ErrValidation.
func validateCommand(op string, cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.WrapError("tracker", op, shared.ErrValidation, "invalid command", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			problems = append(problems, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return shared.WrapError("tracker", op, shared.ErrValidation, strings.Join(problems, "; "), err)
}

// resolveTimestamp defaults a zero timestamp to now and rejects timestamps
// beyond MaxClockSkew in the future.
func resolveTimestamp(op string, ts time.Time, now time.Time) (time.Time, error) {
	if ts.IsZero() {
		return now.UTC(), nil
	}
	if ts.After(now.Add(MaxClockSkew)) {
		return time.Time{}, shared.WrapError("tracker", op, shared.ErrFutureTimestamp,
			"timestamp "+ts.Format(time.RFC3339)+" is in the future", nil)
	}
	return ts.UTC(), nil
}

// afterWrite publishes the record event and runs the grant engine. Neither
// failure undoes the write.
func afterWrite(ctx context.Context, deps Dependencies, ev shared.RecordAddedEvent, correlationID string) GrantOutcome {
	log := deps.Log.With(logger.UserID(ev.AggregateID()), logger.RecordID(ev.RecordID))

	if correlationID == "" {
		correlationID = deps.IDs.NewID()
	}

	ev.BaseEvent = ev.BaseEvent.WithCorrelationID(correlationID)
	if deps.Events != nil {
		if err := deps.Events.Publish(ev); err != nil {
			log.Warn("failed to publish record event", logger.Err(err))
		}
	}

	if deps.Granter == nil {
		return GrantOutcome{Granted: []achievement.Definition{}}
	}

	res, err := deps.Granter.Execute(ctx, saga.GrantInput{
		UserID:        ev.AggregateID(),
		Trigger:       string(ev.EventType()),
		CorrelationID: correlationID,
	})

	out := GrantOutcome{Granted: []achievement.Definition{}, GrantErr: err}
	if res != nil {
		out.Granted = res.Granted
	}
	if err != nil {
		log.Error("achievement grant after write failed", logger.Err(err),
			logger.Count("granted", len(out.Granted)))
	}
	return out
}
