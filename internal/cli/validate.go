package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hafiza/internal/schema"
	"github.com/roach88/hafiza/internal/state"
)

// ValidateReport is the outcome of checking a snapshot against a schema.
type ValidateReport struct {
	Valid   bool     `json:"valid"`
	Details []string `json:"details,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema> <state.json>",
		Short: "Check a state snapshot against a CUE schema",
		Long: `Validate a JSON state snapshot against a CUE schema.

The schema may be a single .cue file or a directory holding one CUE
package. When it defines #State, the snapshot is checked against that
definition; otherwise against the whole value.

Exit codes:
  0 - Snapshot is valid
  1 - Snapshot violates the schema
  2 - Command error (unreadable schema or snapshot)

Examples:
  hafiza validate schema/ state.json
  hafiza validate counter.cue snapshot.json --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, schemaPath, statePath string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts)

	sc, err := schema.Load(schemaPath)
	if err != nil {
		return out.Fail(CodeSchema, WrapExitError(ExitCommandError, "failed to load schema", err))
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		return out.Fail(CodeSchema, WrapExitError(ExitCommandError, "failed to read state", err))
	}
	snapshot, err := state.DecodeObject(data)
	if err != nil {
		return out.Fail(CodeSchema, WrapExitError(ExitCommandError, "failed to decode state", err))
	}

	report := ValidateReport{Valid: true}
	if err := sc.Validate(snapshot); err != nil {
		var verr *schema.ValidationError
		if !errors.As(err, &verr) {
			return out.Fail(CodeSchema, WrapExitError(ExitCommandError, "validation could not run", err))
		}
		report = ValidateReport{Details: verr.Details}
	}

	status := StatusOK
	if !report.Valid {
		status = StatusError
	}
	if err := out.Emit(status, report, func(w io.Writer) {
		writeVerdict(w, statePath, report.Valid, report.Details)
	}); err != nil {
		return err
	}
	if !report.Valid {
		return reported(NewExitError(ExitFailure, fmt.Sprintf("%s does not match schema", statePath)))
	}
	return nil
}
