package rules

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bayneri/slider/internal/alerting"
	"github.com/bayneri/slider/internal/slo"
)

// SLO labels and identity labels win over ExtraLabels.
type Synthesizer struct {
	Policy      alerting.Policy
	ExtraLabels map[string]string
}

func (s Synthesizer) Group(in slo.SLO) (Group, error) {
	rules, err := s.Synthesize(in)
	if err != nil {
		return Group{}, err
	}
	return Group{
		Name:    GroupName(in.Name),
		SLO:     in.Name,
		Service: in.Service,
		Rules:   rules,
	}, nil
}

// in must have passed semantic validation.
func (s Synthesizer) Synthesize(in slo.SLO) ([]MonitoringRule, error) {
	if err := s.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: burn-rate policy: %v", ErrPreconditionViolation, err)
	}
	if len(in.Objectives) == 0 {
		return nil, fmt.Errorf("%w: slo %q has no objectives", ErrPreconditionViolation, in.Name)
	}

	base := s.baseLabels(in)
	ids := ObjectiveIDs(in.Objectives)
	var out []MonitoringRule
	for i, obj := range in.Objectives {
		rules, err := s.objectiveRules(in, obj, ids[i], base)
		if err != nil {
			return nil, err
		}
		out = append(out, rules...)
	}
	return out, nil
}

func (s Synthesizer) objectiveRules(in slo.SLO, obj slo.Objective, objectiveID string, base map[string]string) ([]MonitoringRule, error) {
	sli, ok := in.Indicator(obj.IndicatorRef)
	if !ok {
		return nil, fmt.Errorf("%w: slo %q objective %q references unknown indicator %q", ErrPreconditionViolation, in.Name, objectiveID, obj.IndicatorRef)
	}
	if !(obj.Target > 0 && obj.Target < 1) || obj.TimeWindow <= 0 {
		return nil, fmt.Errorf("%w: slo %q objective %q has target %v and window %s", ErrPreconditionViolation, in.Name, objectiveID, obj.Target, obj.TimeWindow)
	}

	labels := copyLabels(base)
	objectiveLabel := obj.DisplayName
	if objectiveLabel == "" {
		objectiveLabel = objectiveID
	}
	labels[LabelObjective] = objectiveLabel

	windows := s.Policy.Windows(obj.TimeWindow)
	lookbacks := alerting.Lookbacks(windows)
	out := make([]MonitoringRule, 0, len(lookbacks)+len(windows))

	recorded := make(map[time.Duration]string, len(lookbacks))
	for _, lookback := range lookbacks {
		expr, err := ratioExpression(sli, lookback)
		if err != nil {
			return nil, fmt.Errorf("%w: slo %q indicator %q: %v", ErrPreconditionViolation, in.Name, sli.Name, err)
		}
		rule := MonitoringRule{
			Kind:       KindRecording,
			Name:       RecordingName(in.Name, objectiveID, lookback),
			Expression: expr,
			Labels:     copyLabels(labels),
		}
		recorded[lookback] = Selector(rule)
		out = append(out, rule)
	}

	for _, w := range windows {
		alertLabels := copyLabels(labels)
		alertLabels[LabelSeverity] = w.Severity
		out = append(out, MonitoringRule{
			Kind:        KindAlerting,
			Name:        AlertName(in.Name, objectiveID, w.Severity),
			Expression:  BurnRateExpression(recorded[w.Long], recorded[w.Short], obj.Target, w.Multiplier),
			Labels:      alertLabels,
			Annotations: annotations(in, obj, objectiveLabel, w),
			For:         w.For,
		})
	}
	return out, nil
}

func BurnRateExpression(longSeries, shortSeries string, target, multiplier float64) string {
	t := formatFloat(target)
	m := formatFloat(multiplier)
	return fmt.Sprintf("((1 - %s) / (1 - %s) > %s) and ((1 - %s) / (1 - %s) > %s)",
		longSeries, t, m, shortSeries, t, m)
}

func ratioExpression(sli slo.SLI, window time.Duration) (string, error) {
	w := alerting.FormatWindow(window)
	good, err := slo.RenderQuery(sli.GoodQuery, w)
	if err != nil {
		return "", err
	}
	total, err := slo.RenderQuery(sli.TotalQuery, w)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s) / (%s)", good, total), nil
}

func (s Synthesizer) baseLabels(in slo.SLO) map[string]string {
	labels := map[string]string{}
	for k, v := range s.ExtraLabels {
		labels[labelName(k)] = v
	}
	for k, v := range in.Labels {
		labels[labelName(k)] = v
	}
	labels[LabelSLO] = in.Name
	labels[LabelSLOID] = SLOID(in)
	labels[LabelService] = in.Service
	return labels
}

func annotations(in slo.SLO, obj slo.Objective, objectiveLabel string, w alerting.Window) map[string]string {
	long := alerting.FormatWindow(w.Long)
	short := alerting.FormatWindow(w.Short)
	exhaustion := alerting.TimeToExhaustion(obj.TimeWindow, w.Multiplier).Truncate(time.Minute)
	out := map[string]string{
		"summary": fmt.Sprintf("%s (%s) is burning its error budget at more than %sx", in.Title(), objectiveLabel, formatFloat(w.Multiplier)),
		"description": fmt.Sprintf(
			"Service %s, SLO %s, objective %q (target %s over %s): the error budget burned faster than %sx over both the last %s and the last %s. At this rate the budget is spent within %s.",
			in.Service, in.Name, objectiveLabel, formatFloat(obj.Target), alerting.FormatWindow(obj.TimeWindow),
			formatFloat(w.Multiplier), long, short, alerting.FormatWindow(exhaustion)),
		"burn_rate_multiplier": formatFloat(w.Multiplier),
		"windows":              long + "/" + short,
	}
	if in.Description != "" {
		out["slo_description"] = in.Description
	}
	return out
}

func copyLabels(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
