package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/roach88/hafiza/internal/harness"
	"github.com/roach88/hafiza/internal/history"
	"github.com/roach88/hafiza/internal/state"
)

// Status marks for text output.
const (
	markPass = "\u2713"
	markFail = "\u2717"
)

// StepReport is one trace event in JSON output.
type StepReport struct {
	Seq   int64           `json:"seq"`
	ID    string          `json:"id"`
	Kind  string          `json:"kind"`
	State json.RawMessage `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

// EntryReport is one history entry in JSON output.
type EntryReport struct {
	Index     int             `json:"index"`
	Seq       int64           `json:"seq"`
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Timestamp string          `json:"timestamp"`
	Current   bool            `json:"current"`
	State     json.RawMessage `json:"state,omitempty"`
}

// canonicalRaw renders v as canonical JSON for embedding in a response.
// A nil object renders as {}.
func canonicalRaw(v state.Value) (json.RawMessage, error) {
	if obj, ok := v.(*state.Object); ok && obj == nil {
		v = state.Empty()
	}
	data, err := state.MarshalCanonical(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func stepReports(trace []harness.TraceEvent, withState bool) ([]StepReport, error) {
	steps := make([]StepReport, 0, len(trace))
	for _, ev := range trace {
		step := StepReport{Seq: ev.Seq, ID: ev.ID, Kind: ev.Kind, Error: ev.Error}
		if withState && ev.State != nil {
			raw, err := canonicalRaw(ev.State)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", ev.Seq, err)
			}
			step.State = raw
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func entryReport(i int, e history.Entry[*state.Object], cursor int, withState bool) (EntryReport, error) {
	rep := EntryReport{
		Index:     i,
		Seq:       e.Seq,
		ID:        e.Action.ID,
		Kind:      e.Action.Kind,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		Current:   i == cursor,
	}
	if withState {
		raw, err := canonicalRaw(e.State)
		if err != nil {
			return EntryReport{}, fmt.Errorf("history entry %d: %w", i, err)
		}
		rep.State = raw
	}
	return rep, nil
}

func writeSteps(w io.Writer, steps []StepReport) {
	for _, s := range steps {
		if s.Error != "" {
			fmt.Fprintf(w, "[%d] %s %s error: %s\n", s.Seq, s.Kind, s.ID, s.Error)
			continue
		}
		fmt.Fprintf(w, "[%d] %s %s ok\n", s.Seq, s.Kind, s.ID)
	}
}

func writeVerdict(w io.Writer, name string, pass bool, failures []string) {
	if pass {
		fmt.Fprintf(w, "%s %s\n", markPass, name)
		return
	}
	fmt.Fprintf(w, "%s %s\n", markFail, name)
	for _, f := range failures {
		fmt.Fprintf(w, "  %s\n", f)
	}
}
