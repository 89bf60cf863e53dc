package action

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator stamps dispatched actions.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 action IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so IDs sort by
// dispatch time. Handy when reading devtools transcripts.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined IDs for deterministic tests and
// golden traces. Once the list is exhausted it falls back to "<prefix>-N".
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	ids    []string
	prefix string
	idx    int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("act", "a", "b")
//	gen.Generate() // "a"
//	gen.Generate() // "b"
//	gen.Generate() // "act-3"
func NewFixedGenerator(prefix string, ids ...string) *FixedGenerator {
	if prefix == "" {
		prefix = "action"
	}
	return &FixedGenerator{ids: ids, prefix: prefix}
}

// Generate returns the next predetermined ID.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if g.idx <= len(g.ids) {
		return g.ids[g.idx-1]
	}
	return fmt.Sprintf("%s-%d", g.prefix, g.idx)
}
