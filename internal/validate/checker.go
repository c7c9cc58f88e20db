package validate

import (
	"fmt"

	"github.com/prometheus/prometheus/promql/parser"
)

// QueryChecker decides whether a rendered indicator query is well formed.
type QueryChecker interface {
	IsWellFormed(expr string) bool
}

// QueryCheckerFunc adapts a predicate to QueryChecker.
type QueryCheckerFunc func(expr string) bool

func (f QueryCheckerFunc) IsWellFormed(expr string) bool { return f(expr) }

// NopChecker accepts every expression.
var NopChecker = QueryCheckerFunc(func(string) bool { return true })

// explainer is implemented by checkers able to say why an expression was rejected.
type explainer interface {
	Check(expr string) error
}

// PromQLChecker parses expressions with the Prometheus parser. Indicator
// queries must evaluate to an instant vector or a scalar to be usable in a ratio.
type PromQLChecker struct{}

func (c PromQLChecker) IsWellFormed(expr string) bool {
	return c.Check(expr) == nil
}

func (PromQLChecker) Check(expr string) error {
	parsed, err := parser.ParseExpr(expr)
	if err != nil {
		return err
	}
	switch parsed.Type() {
	case parser.ValueTypeVector, parser.ValueTypeScalar:
		return nil
	default:
		return fmt.Errorf("query evaluates to %s, expected an instant vector or scalar", parsed.Type())
	}
}
