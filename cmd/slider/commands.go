package main

import (
	"fmt"
	"time"

	"github.com/prometheus/common/model"
	"github.com/spf13/cobra"

	"github.com/bayneri/slider/internal/alerting"
	"github.com/bayneri/slider/internal/planner"
)

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file-or-dir>",
		Short: "Check every document and report the ones that would be skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.buildPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range plan.Skipped {
				fmt.Fprintln(out, d.String())
			}
			if len(plan.Skipped) > 0 {
				return exitError{code: exitSkipped, err: fmt.Errorf("%d of %d documents are invalid", len(plan.Skipped), plan.Documents)}
			}
			fmt.Fprintf(out, "%d documents are valid.\n", plan.Documents)
			return nil
		},
	}
}

func newPlanCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <file-or-dir>",
		Short: "Show the rule groups that generate would emit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.buildPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			planner.Render(cmd.OutOrStdout(), plan)
			return nil
		},
	}
}

func newExplainCommand(a *app) *cobra.Command {
	var window string
	cmd := &cobra.Command{
		Use:       "explain burn-rate",
		Short:     "Explain the burn-rate policy",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"burn-rate"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "burn-rate" {
				return fmt.Errorf("unknown explain topic %q", args[0])
			}
			d, err := model.ParseDuration(window)
			if err != nil {
				return fmt.Errorf("--window: %w", err)
			}
			if d <= 0 {
				return fmt.Errorf("--window must be positive")
			}
			fmt.Fprintln(cmd.OutOrStdout(), alerting.ExplainBurnRate(a.cfg.Policy, time.Duration(d)))
			return nil
		},
	}
	cmd.Flags().StringVar(&window, "window", "28d", "objective time window to resolve the policy against")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
