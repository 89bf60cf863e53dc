package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/hafiza/internal/devtools"
	"github.com/roach88/hafiza/internal/harness"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Raw bool // print the canonical JSON lines trace instead
}

// TraceReport is what a debugger connection observed during a run.
type TraceReport struct {
	Connection string          `json:"connection"`
	MaxAge     int             `json:"max_age"`
	Init       json.RawMessage `json:"init"`
	Sent       []StepReport    `json:"sent"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <scenario>",
		Short: "Show what a debugger would see for a scenario",
		Long: `Run a scenario with an in-process debugger attached and print the
initial state and every action it was sent, with the state after each.

Connection name and history size come from the [devtools] section of the
config file. With --raw the command prints the canonical JSON lines trace
used for golden files instead.

Examples:
  hafiza trace scenarios/counter.yaml
  hafiza trace scenarios/counter.yaml --raw > counter.golden`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "print the canonical trace lines")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)
	if ctx == nil {
		ctx = context.Background()
	}

	sc, err := loadScenario(path)
	if err != nil {
		return out.Fail(CodeScenario, err)
	}

	loopback := devtools.NewLoopback()
	devOpts := devtools.Options{Name: opts.Config.Devtools.Name, MaxAge: opts.Config.Devtools.MaxAge}
	result, err := harness.Run(ctx, sc,
		harness.WithLogger(opts.Logger),
		harness.WithMiddleware(devtools.Middleware(loopback, devOpts, opts.Logger)),
	)
	if err != nil {
		return out.Fail(CodeRun, WrapExitError(ExitCommandError, "scenario could not run", err))
	}

	if opts.Raw {
		trace, err := harness.FormatTrace(sc.Name, result)
		if err != nil {
			return out.Fail(CodeRun, WrapExitError(ExitCommandError, "failed to render trace", err))
		}
		_, err = cmd.OutOrStdout().Write(trace)
		return err
	}

	report, err := traceReport(loopback)
	if err != nil {
		return out.Fail(CodeRun, WrapExitError(ExitCommandError, "failed to render trace", err))
	}
	return out.Emit(StatusOK, report, func(w io.Writer) { writeTraceText(w, report) })
}

func traceReport(l *devtools.Loopback) (TraceReport, error) {
	connected, _ := l.Connected()
	report := TraceReport{Connection: connected.Name, MaxAge: connected.MaxAge, Sent: []StepReport{}}

	if inits := l.Inits(); len(inits) > 0 {
		raw, err := canonicalRaw(inits[0])
		if err != nil {
			return TraceReport{}, err
		}
		report.Init = raw
	}
	for i, s := range l.Sent() {
		raw, err := canonicalRaw(s.State)
		if err != nil {
			return TraceReport{}, fmt.Errorf("sent %d: %w", i, err)
		}
		report.Sent = append(report.Sent, StepReport{
			Seq:   int64(i + 1),
			ID:    s.Action.ID,
			Kind:  s.Action.Kind,
			State: raw,
		})
	}
	return report, nil
}

func writeTraceText(w io.Writer, r TraceReport) {
	fmt.Fprintf(w, "connection: %s (max age %d)\n", r.Connection, r.MaxAge)
	fmt.Fprintf(w, "init: %s\n", r.Init)
	for _, s := range r.Sent {
		fmt.Fprintf(w, "[%d] %s %s -> %s\n", s.Seq, s.Kind, s.ID, s.State)
	}
}
