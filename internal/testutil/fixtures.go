// Package testutil holds deterministic helpers shared by tests and the
// scenario harness.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/hafiza/internal/state"
)

// MustObject parses a JSON object literal or fails the test.
func MustObject(t testing.TB, src string) *state.Object {
	t.Helper()
	obj, err := state.DecodeObject([]byte(src))
	if err != nil {
		t.Fatalf("MustObject(%q): %v", src, err)
	}
	return obj
}

// IntAt returns the integer at a dot-joined path, or 0 when absent or not
// an integer.
func IntAt(s *state.Object, path string) int64 {
	v, ok := state.Lookup(s, state.ParsePath(path))
	if !ok {
		return 0
	}
	n, _ := v.(state.Int)
	return int64(n)
}

// WriteFile writes content to dir/name, creating parent directories, and
// returns the full path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
