package report

import (
	"fmt"
	"os"
	"strings"
)

type Options struct {
	Explain bool
}

func WriteMarkdownSummary(path string, summary Summary, opts Options) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# SLO rule generation\n\n")
	fmt.Fprintf(&b, "- Source: %s\n", summary.Source)
	fmt.Fprintf(&b, "- Status: %s\n", summary.Status)
	fmt.Fprintf(&b, "- Documents: %d\n", summary.Documents)
	fmt.Fprintf(&b, "- Rule groups: %d\n", len(summary.Groups))
	fmt.Fprintf(&b, "- Rules: %d\n\n", summary.Rules)

	for _, g := range summary.Groups {
		fmt.Fprintf(&b, "## %s (%s)\n\n", g.SLO, g.Service)
		fmt.Fprintf(&b, "- Group: %s\n", g.Name)
		fmt.Fprintf(&b, "- Recording rules: %d\n", g.RecordingRules)
		fmt.Fprintf(&b, "- Alerting rules: %d\n\n", g.AlertingRules)

		fmt.Fprintf(&b, "| Alert | Objective | Severity | Windows | Burn rate | For |\n")
		fmt.Fprintf(&b, "| --- | --- | --- | --- | --- | --- |\n")
		for _, a := range g.Alerts {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %sx | %s |\n", a.Name, a.Objective, a.Severity, a.Windows, a.BurnRate, a.For)
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(summary.Skipped) > 0 {
		fmt.Fprintf(&b, "## Skipped\n")
		for _, d := range summary.Skipped {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}

	if opts.Explain {
		fmt.Fprintf(&b, "\n## How alerts are computed\n")
		fmt.Fprintf(&b, "\nFormula: burnRate = (1 - good/total) / (1 - target); an alert fires when the burn rate exceeds its multiplier over both the long and the short window.\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}
