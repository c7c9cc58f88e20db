package slo

import (
	"errors"
	"fmt"
)

var ErrMalformedSpec = errors.New("malformed spec")

// MalformedSpecError reports a document that passed the schema but cannot be
// mapped onto the domain model.
type MalformedSpecError struct {
	Field  string
	Reason string
}

func (e *MalformedSpecError) Error() string {
	return fmt.Sprintf("malformed spec: %s: %s", e.Field, e.Reason)
}

func (e *MalformedSpecError) Is(target error) bool {
	return target == ErrMalformedSpec
}

func malformed(field, format string, args ...any) error {
	return &MalformedSpecError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
