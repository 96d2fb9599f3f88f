package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMatches(t *testing.T) {
	err := fmt.Errorf("add comment: %w", Validation("content", "must not be empty"))

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrUnsupportedType)
	assert.Equal(t, "add comment: content: must not be empty", err.Error())

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "content", ve.Field)
}

func TestUnsupportedTypeErrorMatchesValidation(t *testing.T) {
	err := &UnsupportedTypeError{Extension: ".txt", Allowed: []string{".png", ".jpg"}}

	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), ".txt")
	assert.Contains(t, err.Error(), ".png, .jpg")
}

func TestWrappers(t *testing.T) {
	assert.ErrorIs(t, NotFound("application"), ErrNotFound)
	assert.Equal(t, "application not found", NotFound("application").Error())
	assert.ErrorIs(t, Forbidden("delete this comment"), ErrForbidden)
	assert.ErrorIs(t, Conflict("email already in use"), ErrConflict)

	cause := errors.New("disk full")
	ioErr := IO("write blob", cause)
	assert.ErrorIs(t, ioErr, ErrIO)
	assert.ErrorIs(t, ioErr, cause)
}
