package testutil

import (
	"fmt"
	"sync"
)

// FixedOrigins hands out predictable tab origin identifiers.
//
// Production tabs are identified by UUIDv7 strings. Tests that compare
// traces against golden files need the same identifiers on every run, so
// FixedOrigins returns "tab-1", "tab-2", ... in call order, or the explicit
// names passed to NewFixedOrigins until they run out.
//
// Thread-safety: FixedOrigins is safe for concurrent use via internal mutex.
type FixedOrigins struct {
	mu    sync.Mutex
	names []string
	idx   int
}

// NewFixedOrigins creates a generator that returns names in order and then
// falls back to numbered "tab-N" identifiers.
func NewFixedOrigins(names ...string) *FixedOrigins {
	return &FixedOrigins{names: names}
}

// Generate returns the next origin identifier.
func (g *FixedOrigins) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if g.idx <= len(g.names) {
		return g.names[g.idx-1]
	}
	return fmt.Sprintf("tab-%d", g.idx)
}

// FixedRand is a deterministic stand-in for the random component of order
// identifiers.
type FixedRand struct {
	Value int
}

// Intn returns Value when it lies in [0, n), otherwise 0.
func (r FixedRand) Intn(n int) int {
	if r.Value < 0 || r.Value >= n {
		return 0
	}
	return r.Value
}
