// Package validate enforces the SLO invariants a JSON schema cannot express.
package validate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bayneri/slider/internal/alerting"
	"github.com/bayneri/slider/internal/slo"
)

// DuplicateKey selects which objective fields identify a duplicate.
type DuplicateKey string

const (
	DuplicateByIndicatorWindow     DuplicateKey = "indicator-window"
	DuplicateByIndicatorWindowName DuplicateKey = "indicator-window-name"
)

func ParseDuplicateKey(value string) (DuplicateKey, error) {
	switch DuplicateKey(value) {
	case "", DuplicateByIndicatorWindow:
		return DuplicateByIndicatorWindow, nil
	case DuplicateByIndicatorWindowName:
		return DuplicateByIndicatorWindowName, nil
	default:
		return "", fmt.Errorf("duplicate objective key must be %q or %q", DuplicateByIndicatorWindow, DuplicateByIndicatorWindowName)
	}
}

// sampleWindow is substituted into queries before they reach the checker.
const sampleWindow = 5 * time.Minute

// Validator is pure: the same SLO always yields the same verdict.
type Validator struct {
	Checker      QueryChecker
	DuplicateKey DuplicateKey
}

// Validate runs the checks in order and stops at the first violation.
func (v Validator) Validate(s slo.SLO) error {
	if err := checkReferences(s); err != nil {
		return err
	}
	if err := checkDuplicates(s, v.DuplicateKey); err != nil {
		return err
	}
	if err := checkObjectives(s); err != nil {
		return err
	}
	checker := v.Checker
	if checker == nil {
		checker = NopChecker
	}
	return checkIndicators(s, checker)
}

func checkReferences(s slo.SLO) error {
	for i, obj := range s.Objectives {
		if _, ok := s.Indicator(obj.IndicatorRef); !ok {
			return &Error{
				Kind:   ErrDanglingIndicatorReference,
				SLO:    s.Name,
				Field:  objectiveField(i, "indicatorRef"),
				Value:  obj.IndicatorRef,
				Reason: "no such indicator is declared",
			}
		}
	}
	return nil
}

type objectiveKey struct {
	indicator string
	window    time.Duration
	name      string
}

func checkDuplicates(s slo.SLO, key DuplicateKey) error {
	seen := map[objectiveKey]int{}
	for i, obj := range s.Objectives {
		k := objectiveKey{indicator: obj.IndicatorRef, window: obj.TimeWindow}
		if key == DuplicateByIndicatorWindowName {
			k.name = obj.DisplayName
		}
		if first, ok := seen[k]; ok {
			return &Error{
				Kind:   ErrDuplicateObjective,
				SLO:    s.Name,
				Field:  objectiveField(i, ""),
				Value:  fmt.Sprintf("%s/%s", obj.IndicatorRef, alerting.FormatWindow(obj.TimeWindow)),
				Reason: fmt.Sprintf("repeats spec.objectives[%d]", first),
			}
		}
		seen[k] = i
	}
	return nil
}

func checkObjectives(s slo.SLO) error {
	for i, obj := range s.Objectives {
		if !(obj.Target > 0 && obj.Target < 1) {
			return &Error{
				Kind:   ErrInvalidObjective,
				SLO:    s.Name,
				Field:  objectiveField(i, "target"),
				Value:  strconv.FormatFloat(obj.Target, 'f', -1, 64),
				Reason: "must be strictly between 0 and 1",
			}
		}
		if obj.TimeWindow <= 0 {
			return &Error{
				Kind:   ErrInvalidObjective,
				SLO:    s.Name,
				Field:  objectiveField(i, "timeWindow"),
				Value:  obj.TimeWindow.String(),
				Reason: "must be positive",
			}
		}
	}
	return nil
}

func checkIndicators(s slo.SLO, checker QueryChecker) error {
	for _, sli := range s.Indicators {
		queries := []struct {
			field string
			query string
		}{
			{"good", sli.GoodQuery},
			{"total", sli.TotalQuery},
		}
		for _, q := range queries {
			field := fmt.Sprintf("indicator %s %s query", sli.Name, q.field)
			if !slo.HasWindowPlaceholder(q.query) {
				return &Error{
					Kind:   ErrInvalidIndicator,
					SLO:    s.Name,
					Field:  field,
					Reason: fmt.Sprintf("must contain the %s substitution point", slo.WindowPlaceholder),
				}
			}
			rendered, err := slo.RenderQuery(q.query, alerting.FormatWindow(sampleWindow))
			if err != nil {
				return &Error{Kind: ErrInvalidIndicator, SLO: s.Name, Field: field, Reason: err.Error()}
			}
			if !checker.IsWellFormed(rendered) {
				reason := "is not a well-formed query"
				if ex, ok := checker.(explainer); ok {
					if err := ex.Check(rendered); err != nil {
						reason = fmt.Sprintf("%s: %v", reason, err)
					}
				}
				return &Error{Kind: ErrInvalidIndicator, SLO: s.Name, Field: field, Value: rendered, Reason: reason}
			}
		}
	}
	return nil
}

func objectiveField(i int, name string) string {
	if name == "" {
		return fmt.Sprintf("spec.objectives[%d]", i)
	}
	return fmt.Sprintf("spec.objectives[%d].%s", i, name)
}
