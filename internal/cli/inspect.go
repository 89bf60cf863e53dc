package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hafiza/internal/persist"
	"github.com/roach88/hafiza/internal/state"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	DB  string
	Key string
}

// ItemReport describes one stored snapshot key.
type ItemReport struct {
	Key       string `json:"key"`
	Version   int64  `json:"version"`
	UpdatedAt string `json:"updated_at"`
	Size      int    `json:"size"`
}

// SnapshotReport is a decoded snapshot.
type SnapshotReport struct {
	Key         string          `json:"key"`
	Fingerprint string          `json:"fingerprint"`
	State       json.RawMessage `json:"state"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect persisted snapshots",
		Long: `List the keys stored in a persistence database, or decode one.

The database defaults to persist.database from the config file and the
snapshot is decoded with persist.codec.

Examples:
  hafiza inspect --db state.db
  hafiza inspect --db state.db --key counter --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Key, "key", "", "decode the snapshot stored under this key")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	dbPath := opts.DB
	if dbPath == "" {
		dbPath = opts.Config.Persist.Database
	}
	// OpenSQLite creates missing files; inspecting must not.
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return out.Fail(CodeStorage, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", dbPath)))
	}

	storage, err := persist.OpenSQLite(dbPath)
	if err != nil {
		return out.Fail(CodeStorage, WrapExitError(ExitCommandError, "failed to open database", err))
	}
	defer storage.Close()

	if opts.Key == "" {
		items, err := storage.Items()
		if err != nil {
			return out.Fail(CodeStorage, WrapExitError(ExitCommandError, "failed to list keys", err))
		}
		reports := make([]ItemReport, 0, len(items))
		for _, it := range items {
			reports = append(reports, ItemReport(it))
		}
		return out.Emit(StatusOK, reports, func(w io.Writer) { writeItemsText(w, reports) })
	}

	codec, err := persist.CodecByName(opts.Config.Persist.Codec)
	if err != nil {
		return out.Fail(CodeStorage, WrapExitError(ExitCommandError, "invalid persist codec", err))
	}
	raw, ok, err := storage.GetItem(opts.Key)
	if err != nil {
		return out.Fail(CodeStorage, WrapExitError(ExitCommandError, "failed to read key", err))
	}
	if !ok {
		return out.Fail(CodeStorage, NewExitError(ExitFailure, fmt.Sprintf("key not found: %s", opts.Key)))
	}
	snapshot, err := codec.Deserialize(raw)
	if err != nil {
		return out.Fail(CodeStorage, WrapExitError(ExitFailure, "failed to decode snapshot", err))
	}

	report := SnapshotReport{Key: opts.Key}
	if report.Fingerprint, err = state.Fingerprint(snapshot); err != nil {
		return out.Fail(CodeStorage, WrapExitError(ExitFailure, "failed to fingerprint snapshot", err))
	}
	if report.State, err = canonicalRaw(snapshot); err != nil {
		return out.Fail(CodeStorage, WrapExitError(ExitFailure, "failed to render snapshot", err))
	}
	return out.Emit(StatusOK, report, func(w io.Writer) {
		fmt.Fprintf(w, "key: %s\nfingerprint: %s\nstate: %s\n", report.Key, report.Fingerprint, report.State)
	})
}

func writeItemsText(w io.Writer, items []ItemReport) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No snapshots stored.")
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "%-24s v%-4d %6dB  %s\n", it.Key, it.Version, it.Size, it.UpdatedAt)
	}
}
