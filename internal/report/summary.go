// Package report writes machine and human readable summaries of a run.
package report

import (
	"github.com/bayneri/slider/internal/planner"
	"github.com/bayneri/slider/internal/rules"
)

const SchemaVersion = "slider.report/v1"

const (
	StatusOK      = "ok"
	StatusPartial = "partial"
)

type Summary struct {
	SchemaVersion string               `json:"schemaVersion"`
	Source        string               `json:"source"`
	Status        string               `json:"status"`
	Documents     int                  `json:"documents"`
	Rules         int                  `json:"rules"`
	Groups        []GroupSummary       `json:"groups"`
	Skipped       []planner.Diagnostic `json:"skipped"`
}

type GroupSummary struct {
	Name           string         `json:"name"`
	SLO            string         `json:"slo"`
	SLOID          string         `json:"sloId"`
	Service        string         `json:"service"`
	RecordingRules int            `json:"recordingRules"`
	AlertingRules  int            `json:"alertingRules"`
	Alerts         []AlertSummary `json:"alerts"`
}

type AlertSummary struct {
	Name      string `json:"name"`
	Objective string `json:"objective"`
	Severity  string `json:"severity"`
	Windows   string `json:"windows"`
	BurnRate  string `json:"burnRate"`
	For       string `json:"for"`
}

// Summarize describes plan. Status is partial whenever a document was skipped.
func Summarize(source string, plan planner.Plan) Summary {
	out := Summary{
		SchemaVersion: SchemaVersion,
		Source:        source,
		Status:        StatusOK,
		Documents:     plan.Documents,
		Groups:        []GroupSummary{},
		Skipped:       plan.Skipped,
	}
	if out.Skipped == nil {
		out.Skipped = []planner.Diagnostic{}
	}
	if len(plan.Skipped) > 0 {
		out.Status = StatusPartial
	}
	for _, g := range plan.Groups {
		item := GroupSummary{Name: g.Name, SLO: g.SLO, Service: g.Service, Alerts: []AlertSummary{}}
		for _, r := range g.Rules {
			item.SLOID = r.Labels[rules.LabelSLOID]
			switch r.Kind {
			case rules.KindRecording:
				item.RecordingRules++
			case rules.KindAlerting:
				item.AlertingRules++
				item.Alerts = append(item.Alerts, AlertSummary{
					Name:      r.Name,
					Objective: r.Labels[rules.LabelObjective],
					Severity:  r.Labels[rules.LabelSeverity],
					Windows:   r.Annotations["windows"],
					BurnRate:  r.Annotations["burn_rate_multiplier"],
					For:       r.For.String(),
				})
			}
		}
		out.Rules += len(g.Rules)
		out.Groups = append(out.Groups, item)
	}
	return out
}
