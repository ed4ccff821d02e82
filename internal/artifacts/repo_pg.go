package artifacts

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Record inserts an artifact metadata row.
func (r *PGRepo) Record(ctx context.Context, a Artifact) error {
	const query = `
INSERT INTO debug_artifacts (id, user_id, file_name, kind, size_bytes, storage_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.FileName,
		a.Kind,
		a.SizeBytes,
		a.StorageKey,
		a.CreatedAt,
	)
	return err
}

// Prune deletes the oldest rows of a kind beyond the keep cap.
func (r *PGRepo) Prune(ctx context.Context, kind string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	const query = `
DELETE FROM debug_artifacts
WHERE kind = $1 AND id NOT IN (
    SELECT id FROM debug_artifacts
    WHERE kind = $1
    ORDER BY created_at DESC
    LIMIT $2
)`
	res, err := r.DB.ExecContext(ctx, query, kind, keep)
	if err != nil {
		return 0, err
	}
	evicted, _ := res.RowsAffected()
	return int(evicted), nil
}

var _ Repo = (*PGRepo)(nil)
