// Package rules turns validated SLOs into Prometheus recording and alerting
// rules implementing multi-window, multi-burn-rate error budget alerts.
package rules

import (
	"errors"
	"time"
)

type Kind int

const (
	KindRecording Kind = iota + 1
	KindAlerting
)

func (k Kind) String() string {
	switch k {
	case KindRecording:
		return "recording"
	case KindAlerting:
		return "alerting"
	default:
		return "unknown"
	}
}

// For and Annotations are only set on alerting rules.
type MonitoringRule struct {
	Kind        Kind
	Name        string
	Expression  string
	Labels      map[string]string
	Annotations map[string]string
	For         time.Duration
}

type Group struct {
	Name    string
	SLO     string
	Service string
	Rules   []MonitoringRule
}

// ErrPreconditionViolation marks a programming error: the synthesizer was
// handed an SLO that never passed semantic validation.
var ErrPreconditionViolation = errors.New("precondition violation")

const (
	LabelSLO       = "slo"
	LabelSLOID     = "slo_id"
	LabelService   = "service"
	LabelObjective = "objective"
	LabelSeverity  = "severity"
)
