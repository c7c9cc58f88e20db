package slo

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/common/model"
)

func Build(raw map[string]any) (SLO, error) {
	if raw == nil {
		return SLO{}, malformed("document", "is empty")
	}
	kind, err := requiredString(raw, "kind")
	if err != nil {
		return SLO{}, err
	}
	if kind != KindSLO {
		return SLO{}, malformed("kind", "expected %q, got %q", KindSLO, kind)
	}

	metadata, err := requiredMap(raw, "metadata")
	if err != nil {
		return SLO{}, err
	}
	spec, err := requiredMap(raw, "spec")
	if err != nil {
		return SLO{}, err
	}

	out := SLO{}
	if out.Name, err = requiredString(metadata, "name", "metadata.name"); err != nil {
		return SLO{}, err
	}
	if out.DisplayName, err = optionalString(metadata, "displayName", "metadata.displayName"); err != nil {
		return SLO{}, err
	}
	if out.Labels, err = stringMap(metadata, "labels", "metadata.labels"); err != nil {
		return SLO{}, err
	}
	if out.Service, err = requiredString(spec, "service", "spec.service"); err != nil {
		return SLO{}, err
	}
	if out.Description, err = optionalString(spec, "description", "spec.description"); err != nil {
		return SLO{}, err
	}

	if out.Indicators, err = buildIndicators(spec); err != nil {
		return SLO{}, err
	}

	defaultWindow, err := sloTimeWindow(spec)
	if err != nil {
		return SLO{}, err
	}
	defaultRef, err := optionalString(spec, "indicatorRef", "spec.indicatorRef")
	if err != nil {
		return SLO{}, err
	}
	if defaultRef == "" && len(out.Indicators) == 1 {
		defaultRef = out.Indicators[0].Name
	}

	rawObjectives, ok := spec["objectives"].([]any)
	if !ok || len(rawObjectives) == 0 {
		return SLO{}, malformed("spec.objectives", "at least one objective is required")
	}
	for i, item := range rawObjectives {
		obj, err := buildObjective(item, fmt.Sprintf("spec.objectives[%d]", i), defaultWindow, defaultRef)
		if err != nil {
			return SLO{}, err
		}
		out.Objectives = append(out.Objectives, obj)
	}
	return out, nil
}

func buildIndicators(spec map[string]any) ([]SLI, error) {
	var out []SLI
	seen := map[string]bool{}
	add := func(item any, field string) error {
		sli, err := buildIndicator(item, field)
		if err != nil {
			return err
		}
		if seen[sli.Name] {
			return malformed(field+".metadata.name", "duplicate indicator %q", sli.Name)
		}
		seen[sli.Name] = true
		out = append(out, sli)
		return nil
	}

	if item, ok := spec["indicator"]; ok && item != nil {
		if err := add(item, "spec.indicator"); err != nil {
			return nil, err
		}
	}
	if items, ok := spec["indicators"]; ok && items != nil {
		list, ok := items.([]any)
		if !ok {
			return nil, malformed("spec.indicators", "must be a list")
		}
		for i, item := range list {
			if err := add(item, fmt.Sprintf("spec.indicators[%d]", i)); err != nil {
				return nil, err
			}
		}
	}
	if len(out) == 0 {
		return nil, malformed("spec.indicator", "at least one inline indicator is required")
	}
	return out, nil
}

func buildIndicator(item any, field string) (SLI, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return SLI{}, malformed(field, "must be a mapping")
	}
	metadata, err := requiredMap(m, "metadata", field+".metadata")
	if err != nil {
		return SLI{}, err
	}
	name, err := requiredString(metadata, "name", field+".metadata.name")
	if err != nil {
		return SLI{}, err
	}
	spec, err := requiredMap(m, "spec", field+".spec")
	if err != nil {
		return SLI{}, err
	}
	ratio, err := requiredMap(spec, "ratioMetric", field+".spec.ratioMetric")
	if err != nil {
		return SLI{}, err
	}
	good, err := metricQuery(ratio, "good", field+".spec.ratioMetric.good")
	if err != nil {
		return SLI{}, err
	}
	total, err := metricQuery(ratio, "total", field+".spec.ratioMetric.total")
	if err != nil {
		return SLI{}, err
	}
	return SLI{Name: name, GoodQuery: good, TotalQuery: total}, nil
}

// metricQuery accepts both the v1 metricSource shape and the v1alpha query shorthand.
func metricQuery(ratio map[string]any, key, field string) (string, error) {
	metric, err := requiredMap(ratio, key, field)
	if err != nil {
		return "", err
	}
	if _, ok := metric["query"]; ok {
		return requiredString(metric, "query", field+".query")
	}
	source, err := requiredMap(metric, "metricSource", field+".metricSource")
	if err != nil {
		return "", err
	}
	sourceSpec, err := requiredMap(source, "spec", field+".metricSource.spec")
	if err != nil {
		return "", err
	}
	return requiredString(sourceSpec, "query", field+".metricSource.spec.query")
}

func buildObjective(item any, field string, defaultWindow time.Duration, defaultRef string) (Objective, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return Objective{}, malformed(field, "must be a mapping")
	}
	var obj Objective
	var err error
	if obj.DisplayName, err = optionalString(m, "displayName", field+".displayName"); err != nil {
		return Objective{}, err
	}
	if obj.Target, err = requiredNumber(m, "target", field+".target"); err != nil {
		return Objective{}, err
	}

	window, err := optionalString(m, "timeWindow", field+".timeWindow")
	if err != nil {
		return Objective{}, err
	}
	if window == "" {
		if defaultWindow == 0 {
			return Objective{}, malformed(field+".timeWindow", "is required when spec.timeWindow is not set")
		}
		obj.TimeWindow = defaultWindow
	} else if obj.TimeWindow, err = parseWindow(window, field+".timeWindow"); err != nil {
		return Objective{}, err
	}

	if obj.IndicatorRef, err = optionalString(m, "indicatorRef", field+".indicatorRef"); err != nil {
		return Objective{}, err
	}
	if obj.IndicatorRef == "" {
		obj.IndicatorRef = defaultRef
	}
	if obj.IndicatorRef == "" {
		return Objective{}, malformed(field+".indicatorRef", "is required when the SLO declares several indicators")
	}
	return obj, nil
}

// Only the first spec.timeWindow entry is used.
func sloTimeWindow(spec map[string]any) (time.Duration, error) {
	value, ok := spec["timeWindow"]
	if !ok || value == nil {
		return 0, nil
	}
	list, ok := value.([]any)
	if !ok || len(list) == 0 {
		return 0, malformed("spec.timeWindow", "must be a non-empty list")
	}
	entry, ok := list[0].(map[string]any)
	if !ok {
		return 0, malformed("spec.timeWindow[0]", "must be a mapping")
	}
	duration, err := requiredString(entry, "duration", "spec.timeWindow[0].duration")
	if err != nil {
		return 0, err
	}
	return parseWindow(duration, "spec.timeWindow[0].duration")
}

func parseWindow(value, field string) (time.Duration, error) {
	d, err := model.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, malformed(field, "invalid duration %q", value)
	}
	return time.Duration(d), nil
}

func requiredMap(m map[string]any, key string, field ...string) (map[string]any, error) {
	name := fieldName(key, field)
	value, ok := m[key]
	if !ok || value == nil {
		return nil, malformed(name, "is required")
	}
	out, ok := value.(map[string]any)
	if !ok {
		return nil, malformed(name, "must be a mapping")
	}
	return out, nil
}

func requiredString(m map[string]any, key string, field ...string) (string, error) {
	name := fieldName(key, field)
	value, err := optionalString(m, key, name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return "", malformed(name, "is required")
	}
	return value, nil
}

func optionalString(m map[string]any, key string, field ...string) (string, error) {
	value, ok := m[key]
	if !ok || value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", malformed(fieldName(key, field), "must be a string")
	}
	return s, nil
}

func requiredNumber(m map[string]any, key string, field ...string) (float64, error) {
	name := fieldName(key, field)
	value, ok := m[key]
	if !ok || value == nil {
		return 0, malformed(name, "is required")
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, malformed(name, "must be a number")
	}
}

func stringMap(m map[string]any, key string, field ...string) (map[string]string, error) {
	value, ok := m[key]
	if !ok || value == nil {
		return nil, nil
	}
	raw, ok := value.(map[string]any)
	if !ok {
		return nil, malformed(fieldName(key, field), "must be a mapping")
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case []any:
			// OpenSLO v1 allows a list of values per label key.
			parts := make([]string, 0, len(val))
			for _, item := range val {
				s, ok := item.(string)
				if !ok {
					return nil, malformed(fieldName(key, field)+"."+k, "must be a string or a list of strings")
				}
				parts = append(parts, s)
			}
			out[k] = strings.Join(parts, ",")
		default:
			return nil, malformed(fieldName(key, field)+"."+k, "must be a string or a list of strings")
		}
	}
	return out, nil
}

func fieldName(key string, field []string) string {
	if len(field) > 0 && field[0] != "" {
		return field[0]
	}
	return key
}
