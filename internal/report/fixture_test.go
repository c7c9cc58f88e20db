package report

import "github.com/bayneri/slider/internal/planner"

func fixtureSummary() Summary {
	return Summary{
		SchemaVersion: SchemaVersion,
		Source:        "slos",
		Status:        StatusPartial,
		Documents:     2,
		Rules:         6,
		Groups: []GroupSummary{{
			Name:           "slo-checkout-latency",
			SLO:            "checkout-latency",
			SLOID:          "4c1a5c1e-0d6c-5b7e-9a52-1f0b8a7a9d10",
			Service:        "checkout",
			RecordingRules: 4,
			AlertingRules:  2,
			Alerts: []AlertSummary{
				{Name: "checkout_latency:p99:page_burn_rate", Objective: "p99", Severity: "page", Windows: "1d/2h", BurnRate: "28", For: "2m0s"},
				{Name: "checkout_latency:p99:ticket_burn_rate", Objective: "p99", Severity: "ticket", Windows: "4d/6h", BurnRate: "7", For: "30m0s"},
			},
		}},
		Skipped: []planner.Diagnostic{{
			Source:   "slos/perfect.yaml",
			SLO:      "perfect",
			Stage:    planner.StageValidate,
			Messages: []string{`slo "perfect": invalid objective: spec.objectives[0].target = 1: must be between 0 and 1 exclusive`},
		}},
	}
}
