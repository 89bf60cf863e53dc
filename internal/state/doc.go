// Package state provides the immutable snapshot tree held by a hafiza store.
//
// Every snapshot is a tree of Value nodes. Scalars (Null, String, Int, Bool)
// compare by value, Array compares element-wise, and *Object compares by
// pointer identity. Objects are never mutated in place: Set, Delete, SetIn and
// DeleteIn return a new *Object and share every untouched child with the
// original, so keeping many historical snapshots costs only the changed
// spine of each update.
//
// Key design constraints:
//   - NO float types anywhere - use Int for numbers (canonical JSON and
//     fingerprints must be deterministic)
//   - A nil *Object reads as an empty object
//   - All ordering of object keys uses RFC 8785 (UTF-16 code unit) order
//
// This package imports nothing internal. Everything else in the module
// builds on it.
package state
