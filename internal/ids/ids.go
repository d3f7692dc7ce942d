// Package ids issues identifiers for buffers and journal sessions.
package ids

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// UUIDv7 generates time-sortable UUIDv7 identifiers, so journal sessions
// list in creation order.
//
// Thread-safety: UUIDv7 is stateless and safe for concurrent use.
type UUIDv7 struct{}

// Generate returns a hyphenated UUIDv7. Panics if the random source fails.
func (UUIDv7) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Sequential returns prefix-0001, prefix-0002, ... for deterministic tests
// and golden transcripts.
//
// Thread-safety: Sequential is safe for concurrent use via internal mutex.
type Sequential struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequential creates a generator. An empty prefix defaults to "id".
func NewSequential(prefix string) *Sequential {
	if prefix == "" {
		prefix = "id"
	}
	return &Sequential{prefix: prefix}
}

// Generate returns the next identifier.
func (g *Sequential) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
