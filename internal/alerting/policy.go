// Package alerting holds the multi-window, multi-burn-rate policy table and
// the error budget arithmetic behind it.
package alerting

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/common/model"
)

const (
	SeverityPage   = "page"
	SeverityTicket = "ticket"

	minWindow = time.Minute
)

// Row is one severity tier. Windows are expressed as fractions of the
// objective's time window so a single table serves every objective.
type Row struct {
	Severity string `yaml:"severity"`
	// LongWindowDivisor derives the detection window: long = timeWindow / divisor.
	LongWindowDivisor float64 `yaml:"longWindowDivisor"`
	// ShortWindowDivisor derives the confirmation window: short = long / divisor.
	ShortWindowDivisor float64 `yaml:"shortWindowDivisor"`
	// BudgetConsumed is the fraction of the whole error budget that, spent
	// within the long window, trips the alert.
	BudgetConsumed float64        `yaml:"budgetConsumed"`
	For            model.Duration `yaml:"for"`
}

type Policy struct {
	Rows []Row `yaml:"rows"`
}

// Window is a policy row resolved against a concrete objective window.
type Window struct {
	Severity   string
	Short      time.Duration
	Long       time.Duration
	Multiplier float64
	For        time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Rows: []Row{
		{
			Severity:           SeverityPage,
			LongWindowDivisor:  28,
			ShortWindowDivisor: 12,
			BudgetConsumed:     1,
			For:                model.Duration(2 * time.Minute),
		},
		{
			Severity:           SeverityTicket,
			LongWindowDivisor:  7,
			ShortWindowDivisor: 16,
			BudgetConsumed:     1,
			For:                model.Duration(30 * time.Minute),
		},
	}}
}

func (p Policy) Validate() error {
	if len(p.Rows) == 0 {
		return errors.New("policy must define at least one row")
	}
	var errs []string
	seen := map[string]bool{}
	for i, row := range p.Rows {
		prefix := fmt.Sprintf("rows[%d]", i)
		severity := strings.TrimSpace(row.Severity)
		if severity == "" {
			errs = append(errs, fmt.Sprintf("%s.severity is required", prefix))
		} else if seen[severity] {
			errs = append(errs, fmt.Sprintf("%s.severity %q is duplicated", prefix, severity))
		}
		seen[severity] = true
		if row.LongWindowDivisor < 1 {
			errs = append(errs, fmt.Sprintf("%s.longWindowDivisor must be at least 1", prefix))
		}
		if row.ShortWindowDivisor <= 1 {
			errs = append(errs, fmt.Sprintf("%s.shortWindowDivisor must be greater than 1", prefix))
		}
		if row.BudgetConsumed <= 0 || math.IsNaN(row.BudgetConsumed) {
			errs = append(errs, fmt.Sprintf("%s.budgetConsumed must be positive", prefix))
		}
		if row.For < 0 {
			errs = append(errs, fmt.Sprintf("%s.for must not be negative", prefix))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Windows resolves every row against timeWindow, in table order.
func (p Policy) Windows(timeWindow time.Duration) []Window {
	out := make([]Window, 0, len(p.Rows))
	for _, row := range p.Rows {
		long := divide(timeWindow, row.LongWindowDivisor)
		short := divide(long, row.ShortWindowDivisor)
		out = append(out, Window{
			Severity:   row.Severity,
			Short:      short,
			Long:       long,
			Multiplier: round4(row.BudgetConsumed * float64(timeWindow) / float64(long)),
			For:        time.Duration(row.For),
		})
	}
	return out
}

// Lookbacks returns the distinct windows referenced by ws, shortest first.
func Lookbacks(ws []Window) []time.Duration {
	seen := map[time.Duration]bool{}
	var out []time.Duration
	for _, w := range ws {
		for _, d := range []time.Duration{w.Long, w.Short} {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FormatWindow renders a duration the way PromQL range selectors expect it.
func FormatWindow(d time.Duration) string {
	return model.Duration(d).String()
}

func divide(d time.Duration, divisor float64) time.Duration {
	out := time.Duration(float64(d) / divisor).Truncate(minWindow)
	if out < minWindow {
		return minWindow
	}
	return out
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}
