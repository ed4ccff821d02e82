package artifacts

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repo for tests and local development.
type MemoryRepo struct {
	mu   sync.Mutex
	rows []Artifact
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Record appends a metadata row.
func (r *MemoryRepo) Record(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, a)
	return nil
}

// Prune evicts the oldest rows of a kind beyond keep.
func (r *MemoryRepo) Prune(ctx context.Context, kind string, keep int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var matching []Artifact
	var others []Artifact
	for _, a := range r.rows {
		if a.Kind == kind {
			matching = append(matching, a)
		} else {
			others = append(others, a)
		}
	}
	if len(matching) <= keep {
		return 0, nil
	}
	sort.Slice(matching, func(i, j int) bool {
		return matching[i].CreatedAt.After(matching[j].CreatedAt)
	})
	evicted := len(matching) - keep
	r.rows = append(others, matching[:keep]...)
	return evicted, nil
}

// List returns a snapshot of rows of a kind, oldest first.
func (r *MemoryRepo) List(kind string) []Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Artifact
	for _, a := range r.rows {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

var _ Repo = (*MemoryRepo)(nil)
