package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no button has the requested id.
var ErrNotFound = errors.New("resource not found")

// ValidationError reports a rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
