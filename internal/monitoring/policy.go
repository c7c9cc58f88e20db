// Package monitoring builds Google Cloud Monitoring alert policies whose
// conditions are the generated burn-rate alerts, evaluated as PromQL.
package monitoring

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bayneri/slider/internal/rules"
)

const ManagedByLabel = "managed-by"
const ManagedByValue = "slider"

type Options struct {
	// EvaluationInterval is how often Cloud Monitoring evaluates each query.
	EvaluationInterval time.Duration
}

// BuildAlertPolicies returns one policy per alerting rule, in group order.
func BuildAlertPolicies(groups []rules.Group, opts Options) []*monitoringpb.AlertPolicy {
	var out []*monitoringpb.AlertPolicy
	for _, g := range groups {
		inline := inliner(g)
		for _, r := range g.Rules {
			if r.Kind != rules.KindAlerting {
				continue
			}
			out = append(out, BuildAlertPolicy(g, r, inline.Replace(r.Expression), opts))
		}
	}
	return out
}

// BuildAlertPolicy wraps one alerting rule. query must be self-contained since
// Cloud Monitoring does not see the recording rules of the group.
func BuildAlertPolicy(group rules.Group, rule rules.MonitoringRule, query string, opts Options) *monitoringpb.AlertPolicy {
	condition := &monitoringpb.AlertPolicy_Condition_PrometheusQueryLanguageCondition{
		Query:     query,
		Duration:  durationpb.New(rule.For),
		Labels:    rule.Labels,
		RuleGroup: group.Name,
		AlertRule: rule.Name,
	}
	if opts.EvaluationInterval > 0 {
		condition.EvaluationInterval = durationpb.New(opts.EvaluationInterval)
	}

	return &monitoringpb.AlertPolicy{
		DisplayName: rule.Name,
		Documentation: &monitoringpb.AlertPolicy_Documentation{
			Content:  buildAlertDocumentation(group, rule),
			MimeType: "text/markdown",
		},
		Conditions: []*monitoringpb.AlertPolicy_Condition{{
			DisplayName: fmt.Sprintf("%s %s burn rate", group.SLO, rule.Labels[rules.LabelSeverity]),
			Condition: &monitoringpb.AlertPolicy_Condition_ConditionPrometheusQueryLanguage{
				ConditionPrometheusQueryLanguage: condition,
			},
		}},
		Combiner:   monitoringpb.AlertPolicy_OR,
		UserLabels: UserLabels(rule.Labels),
		Enabled:    wrapperspb.Bool(true),
		Severity:   severityFor(rule.Labels[rules.LabelSeverity]),
	}
}

// UserLabels keeps the identity labels Cloud Monitoring can hold and marks
// the policy as generated.
func UserLabels(labels map[string]string) map[string]string {
	out := map[string]string{ManagedByLabel: ManagedByValue}
	for _, key := range []string{rules.LabelSLO, rules.LabelService, rules.LabelSeverity} {
		if v := userLabelValue(labels[key]); v != "" {
			out[key] = v
		}
	}
	return out
}

func buildAlertDocumentation(group rules.Group, rule rules.MonitoringRule) string {
	lines := []string{
		fmt.Sprintf("SLO: %s", group.SLO),
		fmt.Sprintf("Service: %s", group.Service),
		fmt.Sprintf("Objective: %s", rule.Labels[rules.LabelObjective]),
		fmt.Sprintf("Burn rate: %sx", rule.Annotations["burn_rate_multiplier"]),
		fmt.Sprintf("Windows: %s", rule.Annotations["windows"]),
	}
	if d := rule.Annotations["description"]; d != "" {
		lines = append(lines, "", d)
	}
	return strings.Join(lines, "\n")
}

func severityFor(value string) monitoringpb.AlertPolicy_Severity {
	switch strings.ToLower(value) {
	case "page":
		return monitoringpb.AlertPolicy_CRITICAL
	case "ticket":
		return monitoringpb.AlertPolicy_WARNING
	default:
		return monitoringpb.AlertPolicy_SEVERITY_UNSPECIFIED
	}
}

// inliner replaces every recorded series selector of g with its expression.
// Longer selectors go first.
func inliner(g rules.Group) *strings.Replacer {
	var recorded []rules.MonitoringRule
	for _, r := range g.Rules {
		if r.Kind == rules.KindRecording {
			recorded = append(recorded, r)
		}
	}
	sort.SliceStable(recorded, func(i, j int) bool { return len(rules.Selector(recorded[i])) > len(rules.Selector(recorded[j])) })
	pairs := make([]string, 0, 2*len(recorded))
	for _, r := range recorded {
		pairs = append(pairs, rules.Selector(r), "("+r.Expression+")")
	}
	return strings.NewReplacer(pairs...)
}

// userLabelValue lowercases and drops characters Cloud Monitoring rejects in
// label values.
func userLabelValue(value string) string {
	normalized := strings.ToLower(value)
	var out []rune
	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			out = append(out, r)
		}
	}
	if len(out) > 63 {
		out = out[:63]
	}
	return string(out)
}
