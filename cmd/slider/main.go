package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bayneri/slider/internal/config"
	"github.com/bayneri/slider/internal/logging"
)

const version = "1.0.0"

// app carries the global flags and the configuration they resolve to.
type app struct {
	configPath string
	sets       []string
	verbose    bool
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fail(err)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "slider",
		Short:         "Generate multi-window burn-rate rules from OpenSLO documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML or JSON config file")
	flags.StringArrayVar(&a.sets, "set", nil, "override a config value, key=value (repeatable)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		newGenerateCommand(a),
		newValidateCommand(a),
		newPlanCommand(a),
		newExplainCommand(a),
		newVersionCommand(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return exitError{code: exitFatal, err: err}
		}
		cfg = loaded
	}
	for _, set := range a.sets {
		key, value, ok := strings.Cut(set, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return exitError{code: exitFatal, err: fmt.Errorf("invalid --set %q, expected key=value", set)}
		}
		if err := cfg.Set(strings.TrimSpace(key), value); err != nil {
			return exitError{code: exitFatal, err: err}
		}
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if err := config.Validate(cfg); err != nil {
		return exitError{code: exitFatal, err: err}
	}
	a.cfg = cfg
	a.logger = logging.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	return nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	type exitCoder interface {
		ExitCode() int
	}
	var coded exitCoder
	if errors.As(err, &coded) {
		os.Exit(coded.ExitCode())
	}
	os.Exit(exitFatal)
}
