package alerting

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

// ExplainBurnRate describes the policy table resolved against timeWindow.
func ExplainBurnRate(policy Policy, timeWindow time.Duration) string {
	var b strings.Builder
	b.WriteString(`A burn rate is how fast an SLO consumes its error budget relative to the target window.
A burn rate of k spends the whole budget in window/k.

Each severity pairs a long detection window with a short confirmation window. An alert fires only
while the burn rate over both windows exceeds the multiplier: the long window alone keeps firing
long after recovery, the short window alone pages on brief spikes.

`)
	fmt.Fprintf(&b, "Resolved for a %s objective window:\n\n", FormatWindow(timeWindow))

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tLONG\tSHORT\tMULTIPLIER\tFOR\tEXHAUSTS BUDGET IN")
	for _, w := range policy.Windows(timeWindow) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%gx\t%s\t%s\n",
			w.Severity,
			FormatWindow(w.Long),
			FormatWindow(w.Short),
			w.Multiplier,
			FormatWindow(w.For),
			FormatWindow(TimeToExhaustion(timeWindow, w.Multiplier).Truncate(time.Minute)))
	}
	tw.Flush()

	b.WriteString(`
Override the table only with evidence that your service tolerates faster budget spend or needs
tighter paging, and that on-call can respond reliably to the added volume.`)
	return b.String()
}
