package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"

	"github.com/bayneri/slider/internal/alerting"
	"github.com/bayneri/slider/internal/export/promrules"
	"github.com/bayneri/slider/internal/logging"
	"github.com/bayneri/slider/internal/spec"
	"github.com/bayneri/slider/internal/validate"
)

const (
	FormatPrometheus     = promrules.FormatPrometheus
	FormatOperator       = promrules.FormatOperator
	FormatMonitoringJSON = "monitoring-json"
	FormatTerraform      = "terraform"
)

type Config struct {
	LogLevel           string            `json:"log_level" yaml:"log_level"`
	LogFormat          string            `json:"log_format" yaml:"log_format"`
	Schema             string            `json:"schema" yaml:"schema"`
	Extensions         []string          `json:"extensions" yaml:"extensions"`
	Workers            int               `json:"workers" yaml:"workers"`
	DuplicateObjective string            `json:"duplicate_objective" yaml:"duplicate_objective"`
	Labels             map[string]string `json:"labels" yaml:"labels"`
	Output             OutputConfig      `json:"output" yaml:"output"`
	Policy             alerting.Policy   `json:"policy" yaml:"policy"`
}

type OutputConfig struct {
	Format             string            `json:"format" yaml:"format"`
	Interval           model.Duration    `json:"interval" yaml:"interval"`
	Verify             bool              `json:"verify" yaml:"verify"`
	Name               string            `json:"name" yaml:"name"`
	Namespace          string            `json:"namespace" yaml:"namespace"`
	ResourceLabels     map[string]string `json:"resource_labels" yaml:"resource_labels"`
	Project            string            `json:"project" yaml:"project"`
	EvaluationInterval model.Duration    `json:"evaluation_interval" yaml:"evaluation_interval"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          logging.FormatText,
		Extensions:         append([]string(nil), spec.DefaultExtensions...),
		Workers:            1,
		DuplicateObjective: string(validate.DuplicateByIndicatorWindow),
		Labels:             map[string]string{},
		Output: OutputConfig{
			Format: FormatPrometheus,
			Verify: true,
		},
		Policy: alerting.DefaultPolicy(),
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, decodeErr)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = logging.FormatText
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = append([]string(nil), spec.DefaultExtensions...)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DuplicateObjective == "" {
		cfg.DuplicateObjective = string(validate.DuplicateByIndicatorWindow)
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = FormatPrometheus
	}
	if len(cfg.Policy.Rows) == 0 {
		cfg.Policy = alerting.DefaultPolicy()
	}
}

func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.LogFormat) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("log_format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, cfg.LogFormat)
	}
	if cfg.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if _, err := validate.ParseDuplicateKey(cfg.DuplicateObjective); err != nil {
		return fmt.Errorf("duplicate_objective: %w", err)
	}
	switch cfg.Output.Format {
	case FormatPrometheus, FormatOperator, FormatMonitoringJSON, FormatTerraform:
	default:
		return fmt.Errorf("output.format %q is not supported", cfg.Output.Format)
	}
	if cfg.Output.Interval < 0 || cfg.Output.EvaluationInterval < 0 {
		return errors.New("output intervals must not be negative")
	}
	for _, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	if err := cfg.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	return nil
}

// Set overrides one setting by its dotted key. Labels use labels.<name>;
// policy rows use policy.<severity>.<field> with the YAML field names.
func (c *Config) Set(key, value string) error {
	switch {
	case key == "log_level":
		c.LogLevel = value
	case key == "log_format":
		c.LogFormat = value
	case key == "schema":
		c.Schema = value
	case key == "extensions":
		c.Extensions = splitList(value)
	case key == "workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("workers: %w", err)
		}
		c.Workers = n
	case key == "duplicate_objective":
		c.DuplicateObjective = value
	case key == "output.format":
		c.Output.Format = value
	case key == "output.interval":
		return setDuration(&c.Output.Interval, key, value)
	case key == "output.evaluation_interval":
		return setDuration(&c.Output.EvaluationInterval, key, value)
	case key == "output.verify":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.Output.Verify = b
	case key == "output.name":
		c.Output.Name = value
	case key == "output.namespace":
		c.Output.Namespace = value
	case key == "output.project":
		c.Output.Project = value
	case strings.HasPrefix(key, "labels."):
		name := strings.TrimPrefix(key, "labels.")
		if name == "" {
			return fmt.Errorf("invalid key %q", key)
		}
		if c.Labels == nil {
			c.Labels = map[string]string{}
		}
		c.Labels[name] = value
	case strings.HasPrefix(key, "policy."):
		return c.setPolicy(key, value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func (c *Config) setPolicy(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 3 {
		return fmt.Errorf("invalid key %q, expected policy.<severity>.<field>", key)
	}
	index := -1
	for i, row := range c.Policy.Rows {
		if row.Severity == parts[1] {
			index = i
		}
	}
	if index < 0 {
		return fmt.Errorf("%s: no policy row for severity %q", key, parts[1])
	}
	row := &c.Policy.Rows[index]
	if parts[2] == "for" {
		return setDuration(&row.For, key, value)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	switch parts[2] {
	case "longWindowDivisor":
		row.LongWindowDivisor = f
	case "shortWindowDivisor":
		row.ShortWindowDivisor = f
	case "budgetConsumed":
		row.BudgetConsumed = f
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func setDuration(dst *model.Duration, key, value string) error {
	d, err := model.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
