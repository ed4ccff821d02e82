package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryGuard is an in-memory Guard used by tests and local development.
type MemoryGuard struct {
	mu      sync.Mutex
	used    map[string]int
	Ceiling int
	Now     func() time.Time
}

// NewMemoryGuard constructs an in-memory guard with the given ceiling.
func NewMemoryGuard(ceiling int) *MemoryGuard {
	return &MemoryGuard{
		used:    make(map[string]int),
		Ceiling: ceiling,
		Now:     time.Now,
	}
}

// TryConsume increments the current period's counter if below the ceiling.
func (g *MemoryGuard) TryConsume(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	period := PeriodKey(g.Now())
	if g.used[period] >= g.Ceiling {
		return false, nil
	}
	g.used[period]++
	return true, nil
}

// Used reports the counter for the period containing t.
func (g *MemoryGuard) Used(t time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.used[PeriodKey(t)]
}

var _ Guard = (*MemoryGuard)(nil)
