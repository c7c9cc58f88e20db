package validate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDanglingIndicatorReference = errors.New("dangling indicator reference")
	ErrDuplicateObjective         = errors.New("duplicate objective")
	ErrInvalidObjective           = errors.New("invalid objective")
	ErrInvalidIndicator           = errors.New("invalid indicator")
)

// Error is a semantic violation. Kind is one of the Err* sentinels above and
// is what errors.Is matches against.
type Error struct {
	Kind   error
	SLO    string
	Field  string
	Value  string
	Reason string
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "slo %q: %v", e.SLO, e.Kind)
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
		if e.Value != "" {
			fmt.Fprintf(&b, " = %s", e.Value)
		}
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Kind
}
