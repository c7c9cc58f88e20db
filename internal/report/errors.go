package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/bayneri/slider/internal/planner"
)

// WriteErrorsMarkdown lists the skipped documents and why.
func WriteErrorsMarkdown(path string, skipped []planner.Diagnostic) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Skipped documents\n\n")
	for _, d := range skipped {
		fmt.Fprintf(&b, "- %s\n", d)
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}
