package harness

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hafiza/internal/testutil"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "state.cue", "#State: {count: int}\n")
	path := testutil.WriteFile(t, dir, "test.yaml", `
name: test_scenario
description: "Test scenario for validation"
initial:
  count: 0
schema: state.cue
history: 5
actions:
  - kind: increment
    payload: { path: count }
    delay: 5ms
undo: 1
assertions:
  - type: state
    path: count
    equals: 0
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, filepath.Join(dir, "state.cue"), scenario.Schema)
	assert.Equal(t, 5, scenario.History)
	assert.Equal(t, 1, scenario.Undo)
	require.Len(t, scenario.Actions, 1)
	assert.Equal(t, "increment", scenario.Actions[0].Kind)
	assert.Equal(t, 5*time.Millisecond, scenario.Actions[0].Delay)
	assert.Equal(t, map[string]any{"path": "count"}, scenario.Actions[0].Payload)
	assert.Equal(t, 0, scenario.Initial["count"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nactions: [{kind: x}]\nassertions: [{type: failure_count}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nactions: [{kind: x}]\nassertions: [{type: failure_count}]\n",
			want: "description is required",
		},
		{
			name: "no actions",
			yaml: "name: n\ndescription: d\nassertions: [{type: failure_count}]\n",
			want: "actions list is required",
		},
		{
			name: "no assertions",
			yaml: "name: n\ndescription: d\nactions: [{kind: x}]\n",
			want: "assertions list is required",
		},
		{
			name: "action without kind",
			yaml: "name: n\ndescription: d\nactions: [{payload: 1}]\nassertions: [{type: failure_count}]\n",
			want: "actions[0]: kind is required",
		},
		{
			name: "reserved kind",
			yaml: "name: n\ndescription: d\nactions: [{kind: \"@@hafiza/REPLACE_STATE\"}]\nassertions: [{type: failure_count}]\n",
			want: "is reserved",
		},
		{
			name: "undo without history",
			yaml: "name: n\ndescription: d\nundo: 1\nactions: [{kind: x}]\nassertions: [{type: failure_count}]\n",
			want: "undo requires history",
		},
		{
			name: "missing schema file",
			yaml: "name: n\ndescription: d\nschema: /does/not/exist.cue\nactions: [{kind: x}]\nassertions: [{type: failure_count}]\n",
			want: "schema file not found",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nactions: [{kind: x}]\nassertions: [{type: trace_order}]\n",
			want: "unknown assertion type",
		},
		{
			name: "state assertion without expectation",
			yaml: "name: n\ndescription: d\nactions: [{kind: x}]\nassertions: [{type: state, path: a}]\n",
			want: "equals or absent is required",
		},
		{
			name: "state assertion with both",
			yaml: "name: n\ndescription: d\nactions: [{kind: x}]\nassertions: [{type: state, path: a, equals: 1, absent: true}]\n",
			want: "mutually exclusive",
		},
		{
			name: "negative count",
			yaml: "name: n\ndescription: d\nactions: [{kind: x}]\nassertions: [{type: history_len, count: -1}]\n",
			want: "count must be non-negative",
		},
		{
			name: "unknown field",
			yaml: "name: n\ndescription: d\nactions: [{kind: x}]\nassertion: [{type: failure_count}]\n",
			want: "failed to parse YAML",
		},
		{
			name: "malformed",
			yaml: "name: [unclosed\n",
			want: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_ZeroCountAllowed(t *testing.T) {
	sc, err := ParseScenario([]byte("name: n\ndescription: d\nactions: [{kind: x}]\nassertions: [{type: failure_count, count: 0}]\n"), "")
	require.NoError(t, err)
	assert.Equal(t, 0, sc.Assertions[0].Count)
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	var names []string
	for _, sc := range scenarios {
		names = append(names, sc.Name)
	}
	assert.Equal(t, []string{"counter", "schema_guard", "todo_undo"}, names)
}

func TestLoadDir_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	body := "name: same\ndescription: d\nactions: [{kind: x}]\nassertions: [{type: failure_count}]\n"
	testutil.WriteFile(t, dir, "a.yaml", body)
	testutil.WriteFile(t, dir, "b.yml", body)
	testutil.WriteFile(t, dir, "notes.txt", "ignored")

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "same" already used by a.yaml`)
}

func TestAssertionConstants(t *testing.T) {
	assert.Equal(t, "state", AssertState)
	assert.Equal(t, "dispatch_count", AssertDispatchCount)
	assert.Equal(t, "failure_count", AssertFailureCount)
	assert.Equal(t, "history_len", AssertHistoryLen)
}
