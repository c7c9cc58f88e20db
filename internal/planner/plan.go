package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bayneri/slider/internal/rules"
	"github.com/bayneri/slider/internal/slo"
	"github.com/bayneri/slider/internal/spec"
	"github.com/bayneri/slider/internal/validate"
)

var (
	ErrDuplicateSloName = errors.New("duplicate slo name")
	ErrRuleNameConflict = errors.New("rule name conflict")
)

type DuplicateNameError struct {
	Name   string
	First  string
	Second string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%v %q: declared in %s and %s", ErrDuplicateSloName, e.Name, e.First, e.Second)
}

func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateSloName
}

type StructuralValidator interface {
	Validate(doc any) ([]string, error)
}

type Options struct {
	// Schema is optional; without it documents go straight to the model builder.
	Schema      StructuralValidator
	Validator   validate.Validator
	Synthesizer rules.Synthesizer
	// Output does not depend on Workers.
	Workers int
	Logger  *slog.Logger
}

type Plan struct {
	Documents int
	Groups    []rules.Group
	Skipped   []Diagnostic
}

func (p Plan) Rules() []rules.MonitoringRule {
	var out []rules.MonitoringRule
	for _, g := range p.Groups {
		out = append(out, g.Rules...)
	}
	return out
}

// Process returns no rules at all when the batch holds a duplicate SLO name
// or hits a synthesizer precondition violation.
func Process(ctx context.Context, docs []spec.Document, opts Options) (Plan, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]Outcome, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = evaluate(doc, opts)
			logger.Debug("document evaluated", "source", doc.ID(), "slo", outcomes[i].Name, "skipped", outcomes[i].Skip != nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Plan{}, err
	}

	return merge(outcomes, logger)
}

func merge(outcomes []Outcome, logger *slog.Logger) (Plan, error) {
	// Duplicate names win over every other fatal outcome, wherever they appear.
	names := map[string]string{}
	for _, o := range outcomes {
		if o.Name == "" {
			continue
		}
		if first, ok := names[o.Name]; ok {
			return Plan{}, &DuplicateNameError{Name: o.Name, First: first, Second: o.Source}
		}
		names[o.Name] = o.Source
	}

	plan := Plan{Documents: len(outcomes)}
	owners := map[ruleKey]string{}
	for _, o := range outcomes {
		if o.Err != nil {
			return Plan{}, fmt.Errorf("%s: %w", o.Source, o.Err)
		}
		if o.Skip != nil {
			logger.Warn("skipping document", "source", o.Skip.Source, "slo", o.Skip.SLO, "stage", string(o.Skip.Stage), "reason", strings.Join(o.Skip.Messages, "; "))
			plan.Skipped = append(plan.Skipped, *o.Skip)
			continue
		}
		for _, r := range o.Group.Rules {
			key := ruleKey{name: r.Name, slo: r.Labels[rules.LabelSLO]}
			if owner, ok := owners[key]; ok && owner != o.Name {
				return Plan{}, fmt.Errorf("%w: %q is generated for both %q and %q", ErrRuleNameConflict, r.Name, owner, o.Name)
			}
			owners[key] = o.Name
		}
		plan.Groups = append(plan.Groups, o.Group)
	}
	return plan, nil
}

// Rules of different SLOs may share a name; their slo label tells them apart.
type ruleKey struct {
	name string
	slo  string
}

func evaluate(doc spec.Document, opts Options) Outcome {
	source := doc.ID()
	if doc.Err != nil {
		return skip(source, "", StageLoad, doc.Err.Error())
	}
	if opts.Schema != nil {
		violations, err := opts.Schema.Validate(doc.Raw)
		if err != nil {
			return skip(source, rawName(doc.Raw), StageSchema, err.Error())
		}
		if len(violations) > 0 {
			return skip(source, rawName(doc.Raw), StageSchema, violations...)
		}
	}

	model, err := slo.Build(doc.Raw)
	if err != nil {
		return skip(source, rawName(doc.Raw), StageBuild, err.Error())
	}

	if err := opts.Validator.Validate(model); err != nil {
		out := skip(source, model.Name, StageValidate, err.Error())
		out.Name = model.Name
		return out
	}

	group, err := opts.Synthesizer.Group(model)
	if err != nil {
		return Outcome{Source: source, Name: model.Name, Err: err}
	}
	return Outcome{Source: source, Name: model.Name, Group: group}
}

func rawName(raw map[string]any) string {
	metadata, _ := raw["metadata"].(map[string]any)
	name, _ := metadata["name"].(string)
	return name
}

func SortedLabels(labels map[string]string) []string {
	var out []string
	for k, v := range labels {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}
