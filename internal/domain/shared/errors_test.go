package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError("tracker", "GetLabs", ErrExternalService, "failed to load labs", cause)

	assert.ErrorIs(t, err, ErrExternalService)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "tracker.GetLabs: failed to load labs: connection reset", err.Error())
	assert.False(t, IsNotFound(err))
}

func TestDomainError_WrappedSentinel(t *testing.T) {
	err := fmt.Errorf("add lab: %w", ErrInvalidUserID)

	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, ErrInvalidUserID)
	assert.Equal(t, "tracker.Validate: invalid user ID", ErrInvalidUserID.Error())
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsValidation(ErrFutureTimestamp))
	assert.True(t, IsValidation(NewDomainError("x", "y", ErrEmptyValue, "empty")))
	assert.True(t, IsNotFound(WrapError("sqlite", "Get", ErrNotFound, "no rows", errors.New("sql: no rows"))))
	assert.True(t, IsAlreadyExists(WrapError("postgres", "Insert", ErrAlreadyExists, "duplicate key", nil)))
	assert.False(t, IsValidation(ErrGrantInProgress))
	assert.ErrorIs(t, ErrGrantInProgress, ErrLockNotAcquired)
}
