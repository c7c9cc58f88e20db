package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bayneri/slider/internal/alerting"
	"github.com/bayneri/slider/internal/slo"
)

func GroupName(sloName string) string {
	return "slo-" + sloName
}

// Name parts are joined with ':', which Sanitize never produces.
func RecordingName(sloName, objectiveID string, window time.Duration) string {
	return fmt.Sprintf("slo:%s:%s:ratio_rate%s", Sanitize(sloName), objectiveID, alerting.FormatWindow(window))
}

func AlertName(sloName, objectiveID, severity string) string {
	return fmt.Sprintf("%s:%s:%s_burn_rate", Sanitize(sloName), objectiveID, Sanitize(severity))
}

// Selector matches the series recorded by r and nothing recorded for another
// SLO, even when both SLO names sanitize to the same string.
func Selector(r MonitoringRule) string {
	return fmt.Sprintf("%s{%s=%s, %s=%s}", r.Name,
		LabelSLO, strconv.Quote(r.Labels[LabelSLO]),
		LabelObjective, strconv.Quote(r.Labels[LabelObjective]))
}

func SLOID(s slo.SLO) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("openslo://"+s.Service+"/"+s.Name)).String()
}

// ObjectiveIDs falls back to the objective position and suffixes collisions.
func ObjectiveIDs(objectives []slo.Objective) []string {
	ids := make([]string, len(objectives))
	used := map[string]bool{}
	for i, obj := range objectives {
		id := Sanitize(obj.DisplayName)
		if id == "" {
			id = fmt.Sprintf("objective_%d", i+1)
		}
		base := id
		for n := 2; used[id]; n++ {
			id = fmt.Sprintf("%s_%d", base, n)
		}
		used[id] = true
		ids[i] = id
	}
	return ids
}

func Sanitize(input string) string {
	normalized := strings.ToLower(input)
	var out []rune
	lastUnderscore := false
	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			out = append(out, '_')
			lastUnderscore = true
		}
	}
	return strings.Trim(string(out), "_")
}

func labelName(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
