package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hafiza/internal/harness"
	"github.com/roach88/hafiza/internal/persist"
	"github.com/roach88/hafiza/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DB      string // SQLite database receiving the final snapshot
	Key     string // storage key; defaults to persist.key from config
	Resume  bool   // start from the persisted snapshot when one exists
	Metrics bool   // include dispatch metrics in the output
}

// RunReport is the JSON payload of the run command.
type RunReport struct {
	Name     string             `json:"name"`
	Pass     bool               `json:"pass"`
	Failures []string           `json:"failures,omitempty"`
	Steps    []StepReport       `json:"steps"`
	Final    json.RawMessage    `json:"final"`
	Metrics  []telemetry.Sample `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario against a fresh store",
		Long: `Run a single scenario and print its trace and final state.

With --db the store persists its state to a SQLite database after every
committed dispatch; --resume starts from the snapshot already stored
under the key.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed
  2 - Command error (unreadable scenario, database error, etc.)

Examples:
  hafiza run scenarios/counter.yaml
  hafiza run scenarios/counter.yaml --db state.db --key counter --resume
  hafiza run scenarios/counter.yaml --metrics --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioCommand(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database to persist state into")
	cmd.Flags().StringVar(&opts.Key, "key", "", "storage key (default from config)")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "start from the persisted snapshot")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report dispatch metrics")

	return cmd
}

func runScenarioCommand(ctx context.Context, opts *RunOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)
	if ctx == nil {
		ctx = context.Background()
	}

	sc, err := loadScenario(path)
	if err != nil {
		return out.Fail(CodeScenario, err)
	}

	metrics := telemetry.NewMetrics(nil)
	runOpts := []harness.Option{
		harness.WithLogger(opts.Logger),
		harness.WithMiddleware(telemetry.Tracing(nil), metrics.Middleware()),
	}

	if opts.DB != "" {
		storage, err := persist.OpenSQLite(opts.DB)
		if err != nil {
			return out.Fail(CodeStorage, WrapExitError(ExitCommandError, "failed to open database", err))
		}
		defer storage.Close()

		pcfg, err := opts.persistConfig(storage)
		if err != nil {
			return out.Fail(CodeStorage, err)
		}
		if opts.Resume {
			if s, ok := persist.Load(pcfg); ok {
				out.VerboseLog("resuming from %q in %s", pcfg.Key, opts.DB)
				runOpts = append(runOpts, harness.WithInitial(s))
			}
		}
		runOpts = append(runOpts, harness.WithMiddleware(persist.Middleware(pcfg)))
	}

	result, err := harness.Run(ctx, sc, runOpts...)
	if err != nil {
		return out.Fail(CodeRun, WrapExitError(ExitCommandError, "scenario could not run", err))
	}

	report := RunReport{Name: sc.Name, Pass: result.Pass, Failures: result.Failures}
	if report.Steps, err = stepReports(result.Trace, false); err != nil {
		return out.Fail(CodeRun, WrapExitError(ExitCommandError, "failed to render trace", err))
	}
	if report.Final, err = canonicalRaw(result.Final); err != nil {
		return out.Fail(CodeRun, WrapExitError(ExitCommandError, "failed to render state", err))
	}
	if opts.Metrics {
		if report.Metrics, err = metrics.Snapshot(); err != nil {
			return out.Fail(CodeRun, WrapExitError(ExitCommandError, "failed to gather metrics", err))
		}
	}

	status := StatusOK
	if !result.Pass {
		status = StatusError
	}
	if err := out.Emit(status, report, func(w io.Writer) { writeRunText(w, report) }); err != nil {
		return err
	}

	if !result.Pass {
		return reported(NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", sc.Name)))
	}
	return nil
}

// persistConfig builds the persistence settings from flags and config.
func (o *RunOptions) persistConfig(storage persist.Storage) (persist.Config, error) {
	codec, err := persist.CodecByName(o.Config.Persist.Codec)
	if err != nil {
		return persist.Config{}, WrapExitError(ExitCommandError, "invalid persist codec", err)
	}
	key := o.Key
	if key == "" {
		key = o.Config.Persist.Key
	}
	return persist.Config{Key: key, Storage: storage, Logger: o.Logger}.WithCodec(codec), nil
}

func writeRunText(w io.Writer, r RunReport) {
	writeSteps(w, r.Steps)
	fmt.Fprintf(w, "final: %s\n", r.Final)
	for _, s := range r.Metrics {
		fmt.Fprintf(w, "%s%s %g\n", s.Name, formatLabels(s.Labels), s.Value)
	}
	writeVerdict(w, r.Name, r.Pass, r.Failures)
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}
