// Package derive implements derived values over store snapshots.
//
// Two kinds of projection exist, told apart by an explicit Kind tag set at
// construction time:
//
//   - Selector: single-slot memoization keyed on snapshot identity. Any new
//     snapshot pointer invalidates it, relevant or not.
//   - Computed: a projection that records exactly which paths it read on its
//     last evaluation. ShouldRecompute re-resolves those paths against two
//     snapshots and reports whether any of them changed.
//
// # Dependency tracking
//
// A computation never sees raw state. It receives a Cursor, and every Get,
// Index, At or Len on a cursor records a dot-joined path ("todos.0.text",
// "todos.length") into the tracking frame of the evaluation that created the
// cursor. Frames are per-evaluation values carried by the cursors
// themselves, so there is no shared "current computation" pointer to
// corrupt. A nested Computed evaluated through Read pushes its own frame;
// its reads are mirrored into the enclosing frame under the cursor's prefix
// and the outer frame is otherwise untouched when the inner one returns.
//
// The dependency set is replaced, never merged, after every evaluation.
//
// # Change rule
//
// Scalars compare by value. Arrays differ when their lengths differ or any
// element differs under this same rule. Objects differ by identity only:
// two distinct objects with equal contents still count as changed. Absent
// vs absent is unchanged; absent vs present is changed. The check costs
// O(#dependencies), independent of snapshot size.
package derive
