package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bayneri/slider/internal/config"
	"github.com/bayneri/slider/internal/export/monitoringjson"
	"github.com/bayneri/slider/internal/export/promrules"
	"github.com/bayneri/slider/internal/export/terraform"
	"github.com/bayneri/slider/internal/monitoring"
	"github.com/bayneri/slider/internal/planner"
	"github.com/bayneri/slider/internal/report"
	"github.com/bayneri/slider/internal/rules"
	"github.com/bayneri/slider/internal/schema"
	"github.com/bayneri/slider/internal/spec"
	"github.com/bayneri/slider/internal/validate"
)

type generateOptions struct {
	out        string
	format     string
	reportDir  string
	labels     string
	failOnSkip bool
}

func newGenerateCommand(a *app) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate <file-or-dir>",
		Short: "Generate recording and alerting rules for every valid SLO",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&opts.format, "format", "", "output format: prometheus, prometheus-operator, monitoring-json or terraform")
	cmd.Flags().StringVar(&opts.reportDir, "report", "", "write summary.json and summary.md to this directory")
	cmd.Flags().StringVar(&opts.labels, "labels", "", "extra labels in key=value,key=value format")
	cmd.Flags().BoolVar(&opts.failOnSkip, "fail-on-skip", false, "exit 2 when any document was skipped")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, src string, opts *generateOptions) error {
	if opts.format != "" {
		if err := a.cfg.Set("output.format", opts.format); err != nil {
			return err
		}
		if err := config.Validate(a.cfg); err != nil {
			return err
		}
	}
	labels, err := spec.ParseLabels(opts.labels)
	if err != nil {
		return err
	}
	for k, v := range labels {
		a.cfg.Labels[k] = v
	}

	plan, err := a.buildPlan(cmd.Context(), src)
	if err != nil {
		return err
	}

	// Render fully before touching the destination so a failed export leaves nothing behind.
	var buf bytes.Buffer
	if err := writeRules(&buf, a.cfg, plan.Groups); err != nil {
		return err
	}
	if opts.out == "" || opts.out == "-" {
		if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
			return err
		}
	} else if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}

	if opts.reportDir != "" {
		if err := writeReports(opts.reportDir, src, plan, a.verbose); err != nil {
			return err
		}
	}

	a.logger.Info("generated rules",
		"documents", plan.Documents,
		"groups", len(plan.Groups),
		"rules", len(plan.Rules()),
		"skipped", len(plan.Skipped),
		"format", a.cfg.Output.Format)

	if opts.failOnSkip && len(plan.Skipped) > 0 {
		return exitError{code: exitSkipped, err: fmt.Errorf("%d of %d documents skipped", len(plan.Skipped), plan.Documents)}
	}
	return nil
}

// buildPlan runs discovery, loading and the batch planner over src.
func (a *app) buildPlan(ctx context.Context, src string) (planner.Plan, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	found, err := spec.Discover(src, a.cfg.Extensions)
	if err != nil {
		return planner.Plan{}, err
	}
	for _, path := range found.Ignored {
		a.logger.Debug("ignoring file", "path", path)
	}
	if len(found.Files) == 0 {
		a.logger.Warn("no SLO documents found", "source", src)
	}

	validator, err := schema.Load(a.cfg.Schema)
	if err != nil {
		return planner.Plan{}, err
	}
	a.logger.Debug("loaded schema", "source", validator.Source())

	dupKey, err := validate.ParseDuplicateKey(a.cfg.DuplicateObjective)
	if err != nil {
		return planner.Plan{}, err
	}

	return planner.Process(ctx, spec.Load(found.Files), planner.Options{
		Schema: validator,
		Validator: validate.Validator{
			Checker:      validate.PromQLChecker{},
			DuplicateKey: dupKey,
		},
		Synthesizer: rules.Synthesizer{
			Policy:      a.cfg.Policy,
			ExtraLabels: a.cfg.Labels,
		},
		Workers: a.cfg.Workers,
		Logger:  a.logger,
	})
}

func writeRules(w io.Writer, cfg *config.Config, groups []rules.Group) error {
	out := cfg.Output
	monitoringOpts := monitoring.Options{EvaluationInterval: time.Duration(out.EvaluationInterval)}
	switch out.Format {
	case config.FormatPrometheus, config.FormatOperator:
		return promrules.Write(w, groups, promrules.Options{
			Format:    out.Format,
			Interval:  time.Duration(out.Interval),
			Verify:    out.Verify,
			Name:      out.Name,
			Namespace: out.Namespace,
			Labels:    out.ResourceLabels,
		})
	case config.FormatMonitoringJSON:
		return monitoringjson.Write(w, groups, monitoringOpts)
	case config.FormatTerraform:
		return terraform.Write(w, groups, terraform.Options{Project: out.Project, Options: monitoringOpts})
	default:
		return fmt.Errorf("unsupported output format %q", out.Format)
	}
}

func writeReports(dir, src string, plan planner.Plan, explain bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	summary := report.Summarize(src, plan)
	if err := report.WriteSummaryJSON(filepath.Join(dir, "summary.json"), summary); err != nil {
		return err
	}
	if err := report.WriteMarkdownSummary(filepath.Join(dir, "summary.md"), summary, report.Options{Explain: explain}); err != nil {
		return err
	}
	if len(plan.Skipped) > 0 {
		return report.WriteErrorsMarkdown(filepath.Join(dir, "skipped.md"), plan.Skipped)
	}
	return nil
}
