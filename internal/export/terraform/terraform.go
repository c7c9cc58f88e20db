package terraform

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bayneri/slider/internal/monitoring"
	"github.com/bayneri/slider/internal/rules"
)

type Options struct {
	Project string
	monitoring.Options
}

// Write renders every alerting rule as a google_monitoring_alert_policy with a
// PromQL condition.
func Write(w io.Writer, groups []rules.Group, opts Options) error {
	provider := map[string]interface{}{}
	if opts.Project != "" {
		provider["project"] = opts.Project
	}
	cfg := map[string]interface{}{
		"terraform": map[string]interface{}{
			"required_providers": map[string]interface{}{
				"google": map[string]interface{}{
					"source":  "hashicorp/google",
					"version": ">= 5.0",
				},
			},
		},
		"provider": map[string]interface{}{
			"google": provider,
		},
	}
	if resources := buildResources(groups, opts); len(resources) > 0 {
		cfg["resource"] = resources
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func buildResources(groups []rules.Group, opts Options) map[string]map[string]interface{} {
	resources := map[string]map[string]interface{}{}
	alertResources := map[string]interface{}{}
	for _, policy := range monitoring.BuildAlertPolicies(groups, opts.Options) {
		cond := policy.GetConditions()[0]
		promql := cond.GetConditionPrometheusQueryLanguage()
		condition := map[string]interface{}{
			"query":      promql.GetQuery(),
			"duration":   formatDuration(promql.GetDuration().AsDuration()),
			"labels":     promql.GetLabels(),
			"rule_group": promql.GetRuleGroup(),
			"alert_rule": promql.GetAlertRule(),
		}
		if promql.GetEvaluationInterval() != nil {
			condition["evaluation_interval"] = formatDuration(promql.GetEvaluationInterval().AsDuration())
		}

		resource := map[string]interface{}{
			"display_name": policy.GetDisplayName(),
			"combiner":     policy.GetCombiner().String(),
			"documentation": map[string]interface{}{
				"content":   policy.GetDocumentation().GetContent(),
				"mime_type": policy.GetDocumentation().GetMimeType(),
			},
			"conditions": []map[string]interface{}{{
				"display_name":                        cond.GetDisplayName(),
				"condition_prometheus_query_language": condition,
			}},
			"user_labels": policy.GetUserLabels(),
			"enabled":     true,
			"severity":    policy.GetSeverity().String(),
		}
		if opts.Project != "" {
			resource["project"] = opts.Project
		}
		name := tfName("alert", policy.GetDisplayName())
		// SLO names that only differ in punctuation map onto the same resource name.
		for n := 2; alertResources[name] != nil; n++ {
			name = fmt.Sprintf("%s_%d", tfName("alert", policy.GetDisplayName()), n)
		}
		alertResources[name] = resource
	}
	if len(alertResources) > 0 {
		resources["google_monitoring_alert_policy"] = alertResources
	}
	return resources
}

func formatDuration(duration time.Duration) string {
	seconds := int64(duration.Seconds())
	if seconds < 0 {
		seconds = -seconds
	}
	return fmt.Sprintf("%ds", seconds)
}

func tfName(prefix, value string) string {
	normalized := strings.ToLower(value)
	var out []rune
	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	if len(out) == 0 || (out[0] >= '0' && out[0] <= '9') {
		return fmt.Sprintf("%s_%s", prefix, string(out))
	}
	return string(out)
}
