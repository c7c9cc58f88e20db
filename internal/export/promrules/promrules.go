// Package promrules writes rule groups as Prometheus rule files or as
// PrometheusRule custom resources.
package promrules

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/common/model"
	"github.com/prometheus/prometheus/model/rulefmt"
	"gopkg.in/yaml.v3"

	"github.com/bayneri/slider/internal/rules"
)

const (
	FormatPrometheus = "prometheus"
	FormatOperator   = "prometheus-operator"
)

type Options struct {
	Format string
	// Interval is the group evaluation interval; zero leaves it to Prometheus.
	Interval time.Duration
	// Verify parses the rule groups with the Prometheus rule loader before
	// anything is written.
	Verify bool
	// Name and Namespace identify the PrometheusRule resource.
	Name      string
	Namespace string
	Labels    map[string]string
}

type RuleFile struct {
	Groups []RuleGroup `yaml:"groups"`
}

type RuleGroup struct {
	Name     string `yaml:"name"`
	Interval string `yaml:"interval,omitempty"`
	Rules    []Rule `yaml:"rules"`
}

type Rule struct {
	Record      string            `yaml:"record,omitempty"`
	Alert       string            `yaml:"alert,omitempty"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

type PrometheusRule struct {
	APIVersion string     `yaml:"apiVersion"`
	Kind       string     `yaml:"kind"`
	Metadata   ObjectMeta `yaml:"metadata"`
	Spec       RuleFile   `yaml:"spec"`
}

type ObjectMeta struct {
	Name      string            `yaml:"name"`
	Namespace string            `yaml:"namespace,omitempty"`
	Labels    map[string]string `yaml:"labels,omitempty"`
}

// Build converts rule groups into the rule file layout.
func Build(groups []rules.Group, interval time.Duration) RuleFile {
	file := RuleFile{Groups: make([]RuleGroup, 0, len(groups))}
	for _, g := range groups {
		group := RuleGroup{Name: g.Name}
		if interval > 0 {
			group.Interval = model.Duration(interval).String()
		}
		for _, r := range g.Rules {
			rule := Rule{
				Expr:        r.Expression,
				Labels:      r.Labels,
				Annotations: r.Annotations,
			}
			switch r.Kind {
			case rules.KindRecording:
				rule.Record = r.Name
				rule.Annotations = nil
			case rules.KindAlerting:
				rule.Alert = r.Name
				if r.For > 0 {
					rule.For = model.Duration(r.For).String()
				}
			}
			group.Rules = append(group.Rules, rule)
		}
		file.Groups = append(file.Groups, group)
	}
	return file
}

// Write renders groups in the requested format.
func Write(w io.Writer, groups []rules.Group, opts Options) error {
	file := Build(groups, opts.Interval)
	body, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode rule groups: %w", err)
	}
	if opts.Verify {
		if err := Verify(body); err != nil {
			return err
		}
	}

	switch opts.Format {
	case "", FormatPrometheus:
	case FormatOperator:
		name := opts.Name
		if name == "" {
			name = "slo-rules"
		}
		body, err = yaml.Marshal(PrometheusRule{
			APIVersion: "monitoring.coreos.com/v1",
			Kind:       "PrometheusRule",
			Metadata:   ObjectMeta{Name: name, Namespace: opts.Namespace, Labels: opts.Labels},
			Spec:       file,
		})
		if err != nil {
			return fmt.Errorf("encode prometheus rule: %w", err)
		}
	default:
		return fmt.Errorf("unknown rule format %q", opts.Format)
	}

	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write rules: %w", err)
	}
	return nil
}

// Verify loads a rule file the way Prometheus does and joins every problem
// it reports.
func Verify(content []byte) error {
	_, errs := rulefmt.Parse(content)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return errors.New("invalid rule file: " + strings.Join(msgs, "; "))
}
