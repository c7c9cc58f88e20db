package planner

import (
	"fmt"
	"strings"

	"github.com/bayneri/slider/internal/rules"
)

type Stage string

const (
	StageLoad     Stage = "load"
	StageSchema   Stage = "schema"
	StageBuild    Stage = "build"
	StageValidate Stage = "validate"
)

type Diagnostic struct {
	Source   string   `json:"source"`
	SLO      string   `json:"slo,omitempty"`
	Stage    Stage    `json:"stage"`
	Messages []string `json:"messages"`
}

func (d Diagnostic) String() string {
	subject := d.Source
	if d.SLO != "" {
		subject = fmt.Sprintf("%s (%s)", d.Source, d.SLO)
	}
	return fmt.Sprintf("%s: %s failed: %s", subject, d.Stage, strings.Join(d.Messages, "; "))
}

// Name is set whenever the document built into a model, so duplicate names
// are caught even when validation failed.
type Outcome struct {
	Source string
	Name   string
	Group  rules.Group
	Skip   *Diagnostic
	Err    error
}

func skip(source, name string, stage Stage, messages ...string) Outcome {
	return Outcome{
		Source: source,
		Skip:   &Diagnostic{Source: source, SLO: name, Stage: stage, Messages: messages},
	}
}
