package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/hafiza/internal/harness"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Index int // entry to show in full; negative lists all entries
}

// HistoryReport is the JSON payload of the history command.
type HistoryReport struct {
	Name    string        `json:"name"`
	Cursor  int           `json:"cursor"`
	Entries []EntryReport `json:"entries"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <scenario>",
		Short: "Show the undo history a scenario leaves behind",
		Long: `Run a scenario with history enabled and list the recorded entries.

Scenarios without a history setting use history.max_entries from the
config file. The entry under the cursor is marked with '*'. With
--index, only that entry is printed, including its state.

Examples:
  hafiza history scenarios/todo_undo.yaml
  hafiza history scenarios/todo_undo.yaml --index 2 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Index, "index", -1, "show a single entry with its state")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)
	if ctx == nil {
		ctx = context.Background()
	}

	sc, err := loadScenario(path)
	if err != nil {
		return out.Fail(CodeScenario, err)
	}
	if sc.History == 0 {
		sc.History = opts.Config.History.MaxEntries
	}

	result, err := harness.Run(ctx, sc, harness.WithLogger(opts.Logger))
	if err != nil {
		return out.Fail(CodeRun, WrapExitError(ExitCommandError, "scenario could not run", err))
	}

	if opts.Index >= len(result.History) {
		return out.Fail(CodeRun, NewExitError(ExitCommandError,
			fmt.Sprintf("index %d out of range: history has %d entries", opts.Index, len(result.History))))
	}

	report := HistoryReport{Name: sc.Name, Cursor: result.Cursor}
	for i, e := range result.History {
		if opts.Index >= 0 && i != opts.Index {
			continue
		}
		rep, err := entryReport(i, e, result.Cursor, opts.Index >= 0)
		if err != nil {
			return out.Fail(CodeRun, WrapExitError(ExitCommandError, "failed to render history", err))
		}
		report.Entries = append(report.Entries, rep)
	}

	return out.Emit(StatusOK, report, func(w io.Writer) { writeHistoryText(w, report) })
}

func writeHistoryText(w io.Writer, r HistoryReport) {
	for _, e := range r.Entries {
		mark := " "
		if e.Current {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %3d  seq=%-4d %-28s %-8s %s\n", mark, e.Index, e.Seq, e.Kind, e.ID, e.Timestamp)
		if e.State != nil {
			fmt.Fprintf(w, "      state: %s\n", e.State)
		}
	}
}
