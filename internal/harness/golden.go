package harness

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/hafiza/internal/state"
)

// FormatTrace renders a run as canonical JSON lines: a header naming the
// scenario, one line per trace event, and a footer with the final state.
//
//	{"name":"counter"}
//	{"id":"act-1","kind":"increment","payload":{"path":"count"},"seq":1,"state":{"count":1}}
//	{"final":{"count":1}}
//
// Keys are sorted and absent fields are omitted, so equal runs render to
// identical bytes.
func FormatTrace(name string, result *Result) ([]byte, error) {
	var buf bytes.Buffer
	write := func(obj *state.Object) error {
		line, err := state.MarshalCanonical(obj)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
		return nil
	}

	if err := write(state.NewObject(state.P("name", state.String(name)))); err != nil {
		return nil, err
	}
	for _, ev := range result.Trace {
		if err := write(eventObject(ev)); err != nil {
			return nil, fmt.Errorf("trace event %d: %w", ev.Seq, err)
		}
	}
	final := result.Final
	if final == nil {
		final = state.Empty()
	}
	if err := write(state.NewObject(state.P("final", final))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func eventObject(ev TraceEvent) *state.Object {
	obj := state.NewObject(
		state.P("seq", state.Int(ev.Seq)),
		state.P("id", state.String(ev.ID)),
		state.P("kind", state.String(ev.Kind)),
	)
	if ev.Payload != nil {
		obj = obj.Set("payload", ev.Payload)
	}
	if ev.State != nil {
		obj = obj.Set("state", ev.State)
	}
	if ev.Error != "" {
		obj = obj.Set("error", state.String(ev.Error))
	}
	return obj
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	trace, err := FormatTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, trace)
	return nil
}
