package planner

import (
	"fmt"
	"io"
	"strings"

	"github.com/bayneri/slider/internal/rules"
)

func Render(w io.Writer, plan Plan) {
	fmt.Fprintf(w, "Documents: %d\n", plan.Documents)
	fmt.Fprintf(w, "Rule groups: %d\n", len(plan.Groups))
	fmt.Fprintf(w, "Skipped: %d\n", len(plan.Skipped))

	for _, group := range plan.Groups {
		fmt.Fprintln(w, "")
		fmt.Fprintf(w, "%s (service %s)\n", group.Name, group.Service)
		if len(group.Rules) > 0 {
			fmt.Fprintf(w, "  labels: %s\n", strings.Join(SortedLabels(group.Rules[0].Labels), ", "))
		}
		for _, r := range group.Rules {
			switch r.Kind {
			case rules.KindRecording:
				fmt.Fprintf(w, "- record %s\n", r.Name)
			case rules.KindAlerting:
				fmt.Fprintf(w, "- alert  %s (%s, %sx over %s, for %s)\n",
					r.Name, r.Labels[rules.LabelSeverity], r.Annotations["burn_rate_multiplier"], r.Annotations["windows"], r.For)
			}
		}
	}

	if len(plan.Skipped) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Skipped documents:")
		for _, d := range plan.Skipped {
			fmt.Fprintf(w, "- %s\n", d)
		}
	}
}
