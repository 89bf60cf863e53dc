// Package cli implements the hafiza command line: running scenarios,
// checking them against golden traces, and inspecting history and
// persisted snapshots.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/hafiza/internal/config"
	"github.com/roach88/hafiza/internal/harness"
)

// RootOptions holds global flags for all commands, and the configuration
// and logger resolved from them before any subcommand runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the hafiza CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "hafiza",
		Short: "hafiza - a reactive state container",
		Long: `Drive hafiza stores from YAML scenarios.

Scenarios dispatch actions against a fresh store and assert on the
resulting state, trace and history. Runs are deterministic, so traces
can be compared byte for byte against golden files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", config.DefaultPath, "path to config file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// prepare validates global flags, loads the config file and builds the
// logger. Diagnostics go to stderr so JSON on stdout stays clean.
func (o *RootOptions) prepare(stderr io.Writer) error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.Config = cfg

	level := cfg.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// loadScenario reads a scenario file, mapping failures to a command error.
func loadScenario(path string) (*harness.Scenario, error) {
	sc, err := harness.LoadScenario(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	return sc, nil
}
