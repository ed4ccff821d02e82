package artifacts

import "context"

// Repo defines persistence for artifact metadata rows and the retention
// prune the storage collaborator runs on our trigger.
type Repo interface {
	Record(ctx context.Context, a Artifact) error

	// Prune evicts the oldest rows of a kind beyond keep, returning how
	// many were evicted.
	Prune(ctx context.Context, kind string, keep int) (int, error)
}
