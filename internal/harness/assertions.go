package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/state"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			outcome := "ok"
			if ev.Failed() {
				outcome = "error: " + ev.Error
			}
			fmt.Fprintf(&buf, "  [%d] %s %s (%s)\n", ev.Seq, ev.Kind, ev.ID, outcome)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against a finished run and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertState:
			err = assertState(result, a)
		case AssertDispatchCount:
			err = assertDispatchCount(result, a)
		case AssertFailureCount:
			err = assertFailureCount(result, a)
		case AssertHistoryLen:
			err = assertHistoryLen(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// assertState checks the value at a path of the final snapshot.
func assertState(result *Result, a Assertion) error {
	got, found := state.Lookup(result.Final, state.ParsePath(a.Path))
	where := a.Path
	if where == "" {
		where = "<root>"
	}

	if a.Absent {
		if found {
			return &AssertionError{
				Type:     AssertState,
				Expected: fmt.Sprintf("%s to be absent", where),
				Actual:   fmt.Sprintf("%s = %s", where, state.CanonicalString(got)),
			}
		}
		return nil
	}

	want, err := state.FromGo(a.Equals)
	if err != nil {
		return fmt.Errorf("expected value for %s: %w", where, err)
	}
	if !found {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("%s = %s", where, state.CanonicalString(want)),
			Actual:   fmt.Sprintf("%s is absent", where),
			Trace:    result.Trace,
		}
	}
	if !state.Equal(want, got) {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("%s = %s", where, state.CanonicalString(want)),
			Actual:   fmt.Sprintf("%s = %s", where, state.CanonicalString(got)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertDispatchCount counts committed application dispatches. Time-travel
// replacements are not counted.
func assertDispatchCount(result *Result, a Assertion) error {
	count := 0
	for _, ev := range result.Trace {
		if ev.Failed() || (action.Action{Kind: ev.Kind}).IsReserved() {
			continue
		}
		if a.Kind != "" && ev.Kind != a.Kind {
			continue
		}
		count++
	}
	if count != a.Count {
		what := "dispatches"
		if a.Kind != "" {
			what = a.Kind + " dispatches"
		}
		return &AssertionError{
			Type:     AssertDispatchCount,
			Expected: fmt.Sprintf("%d committed %s", a.Count, what),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertFailureCount(result *Result, a Assertion) error {
	count := 0
	for _, ev := range result.Trace {
		if ev.Failed() {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertFailureCount,
			Expected: fmt.Sprintf("%d failed dispatches", a.Count),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertHistoryLen(result *Result, a Assertion) error {
	if len(result.History) != a.Count {
		return &AssertionError{
			Type:     AssertHistoryLen,
			Expected: fmt.Sprintf("%d history entries", a.Count),
			Actual:   fmt.Sprintf("%d", len(result.History)),
		}
	}
	return nil
}
