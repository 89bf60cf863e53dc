// Package harness runs store scenarios described in YAML and checks their
// outcome.
//
// A scenario seeds a store with an initial snapshot, dispatches a list of
// patch actions through the generic patch reducer, optionally steps back
// through history, and then evaluates assertions against the final state
// and the recorded trace.
//
// # Scenario Format
//
//	name: todo_flow
//	description: "Adding and completing todos"
//	initial: { count: 0, todos: [] }
//	schema: todo.cue          # optional, relative to the scenario file
//	history: 10               # history capacity; 0 disables time travel
//	actions:
//	  - kind: append
//	    payload: { path: todos, value: { text: "write docs", done: false } }
//	  - kind: set
//	    payload: { path: todos.0.done, value: true }
//	    delay: 5ms            # payload resolves asynchronously
//	  - kind: set
//	    reject: "offline"     # payload rejects; the dispatch fails
//	    expect_error: true
//	undo: 1
//	assertions:
//	  - type: state
//	    path: todos.0.done
//	    equals: false
//	  - type: dispatch_count
//	    count: 2
//	  - type: failure_count
//	    count: 1
//	  - type: history_len
//	    count: 3
//
// # Assertion Types
//
//   - state: the value at path equals the expected value (absent: true
//     asserts the path does not exist)
//   - dispatch_count: number of committed application dispatches,
//     optionally filtered by kind
//   - failure_count: number of failed dispatches
//   - history_len: number of entries in the store history
//
// # Deterministic Testing
//
// Action IDs come from a fixed generator ("act-1", "act-2", ...), trace
// sequence numbers from a logical clock, and history timestamps from a
// step clock, so a scenario always produces the same trace. RunWithGolden
// compares that trace against testdata/golden/<name>.golden.
package harness
