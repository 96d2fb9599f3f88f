// Package apperr holds the error taxonomy shared by the repository, service
// and handler layers. Handlers map these onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrConflict        = errors.New("conflict")
	ErrIO              = errors.New("i/o failure")
)

// ValidationError reports bad caller input. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation builds a ValidationError.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UnsupportedTypeError is returned when an upload's extension is not on the
// allow-list. It matches both ErrUnsupportedType and ErrValidation.
type UnsupportedTypeError struct {
	Extension string
	Allowed   []string
}

func (e *UnsupportedTypeError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("file type %s is not allowed, expected one of: %s", ext, strings.Join(e.Allowed, ", "))
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType || target == ErrValidation
}

// NotFound wraps ErrNotFound with the missing entity name.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// Forbidden wraps ErrForbidden with the attempted action.
func Forbidden(action string) error {
	return fmt.Errorf("%w: you don't have permission to %s", ErrForbidden, action)
}

// Conflict wraps ErrConflict.
func Conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

// IO wraps a storage or stream failure.
func IO(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}
