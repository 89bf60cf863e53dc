package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hafiza/internal/action"
)

// Scenario describes one store run and its expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Initial is the starting snapshot. Empty means {}.
	Initial map[string]any `yaml:"initial,omitempty"`

	// Schema is an optional CUE schema path. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Schema string `yaml:"schema,omitempty"`

	// History is the history capacity. 0 disables history.
	History int `yaml:"history,omitempty"`

	// Actions are dispatched in order.
	Actions []Step `yaml:"actions"`

	// Undo is the number of Undo calls made after the actions.
	Undo int `yaml:"undo,omitempty"`

	// Assertions validate the final state and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one dispatched action.
type Step struct {
	// Kind is the action kind (set, unset, increment, append, merge, or any
	// other kind, which leaves the state unchanged).
	Kind string `yaml:"kind"`

	// Payload is plain YAML data, typically {path, value, by}.
	Payload any `yaml:"payload,omitempty"`

	// Delay makes the payload resolve asynchronously after this long.
	Delay time.Duration `yaml:"delay,omitempty"`

	// Reject makes the payload reject with this message.
	Reject string `yaml:"reject,omitempty"`

	// ExpectError marks the dispatch as expected to fail.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path is the dot-joined location checked by state assertions. Empty
	// means the whole snapshot.
	Path string `yaml:"path,omitempty"`

	// Equals is the expected value (state).
	Equals any `yaml:"equals,omitempty"`

	// Absent asserts that Path does not exist (state).
	Absent bool `yaml:"absent,omitempty"`

	// Kind filters dispatch_count to one action kind.
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number (dispatch_count, failure_count,
	// history_len).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertState         = "state"
	AssertDispatchCount = "dispatch_count"
	AssertFailureCount  = "failure_count"
	AssertHistoryLen    = "history_len"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. baseDir resolves a relative schema
// path; pass "" to leave it as is.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && baseDir != "" {
		scenario.Schema = filepath.Join(baseDir, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every .yaml and .yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	scenarios := make([]*Scenario, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		sc, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if prev, dup := seen[sc.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", name, sc.Name, prev)
		}
		seen[sc.Name] = name
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Actions) == 0 {
		return fmt.Errorf("actions list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.History < 0 {
		return fmt.Errorf("history must be non-negative")
	}
	if s.Undo < 0 {
		return fmt.Errorf("undo must be non-negative")
	}
	if s.Undo > 0 && s.History == 0 {
		return fmt.Errorf("undo requires history to be enabled")
	}

	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", s.Schema)
		}
	}

	for i, step := range s.Actions {
		if step.Kind == "" {
			return fmt.Errorf("actions[%d]: kind is required", i)
		}
		if (action.Action{Kind: step.Kind}).IsReserved() {
			return fmt.Errorf("actions[%d]: kind %q is reserved", i, step.Kind)
		}
		if step.Delay < 0 {
			return fmt.Errorf("actions[%d]: delay must be non-negative", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertState:
		if a.Equals == nil && !a.Absent {
			return fmt.Errorf("assertions[%d]: equals or absent is required for state", index)
		}
		if a.Equals != nil && a.Absent {
			return fmt.Errorf("assertions[%d]: equals and absent are mutually exclusive", index)
		}
	case AssertDispatchCount, AssertFailureCount, AssertHistoryLen:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
