package testutil

import (
	"strconv"
	"sync"
)

// SequenceGenerator yields "1", "2", "3", ... and can be reset, so the same
// scenario produces the same rule ids on every run.
//
// It satisfies filters.IDGenerator.
type SequenceGenerator struct {
	mu  sync.Mutex
	seq int64
}

// NewSequenceGenerator creates a generator whose first id is "1".
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return strconv.FormatInt(g.seq, 10)
}

// Current returns the last issued sequence number, 0 before the first.
func (g *SequenceGenerator) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence at "1".
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
