package jobs

import (
	"context"
	"database/sql"
	"sort"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// ClaimPending claims queued jobs with a single conditional update. The
// SKIP LOCKED subselect makes concurrent invocations partition the queue
// instead of blocking or double-claiming.
func (r *PGRepo) ClaimPending(ctx context.Context, fileTypes []string, limit int) ([]UploadJob, error) {
	if limit <= 0 {
		return nil, nil
	}
	const query = `
UPDATE upload_jobs
SET status = 'processing', updated_at = now()
WHERE id IN (
    SELECT id FROM upload_jobs
    WHERE status = 'queued' AND file_type = ANY($1)
    ORDER BY created_at ASC
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)
RETURNING id, user_id, file_name, file_content, file_type, created_at, updated_at`

	rows, err := r.DB.QueryContext(ctx, query, fileTypes, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UploadJob
	for rows.Next() {
		job := UploadJob{Status: StatusProcessing}
		if err := rows.Scan(
			&job.ID,
			&job.UserID,
			&job.FileName,
			&job.FileContent,
			&job.FileType,
			&job.CreatedAt,
			&job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// RETURNING order is not guaranteed to follow the subselect.
	sortByCreatedAt(out)
	return out, nil
}

// MarkCompleted finalizes a job with its extracted text.
func (r *PGRepo) MarkCompleted(ctx context.Context, id string, extractedText string) error {
	const query = `
UPDATE upload_jobs
SET status = 'completed', extracted_text = $1, error_message = NULL, updated_at = now()
WHERE id = $2 AND status = 'processing'`
	res, err := r.DB.ExecContext(ctx, query, extractedText, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// MarkFailed finalizes a job with a user-safe error message.
func (r *PGRepo) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	const query = `
UPDATE upload_jobs
SET status = 'failed', error_message = $1, extracted_text = NULL, updated_at = now()
WHERE id = $2 AND status = 'processing'`
	res, err := r.DB.ExecContext(ctx, query, errorMessage, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// ReclaimStale re-queues jobs whose claim never reached a terminal status.
func (r *PGRepo) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	const query = `
UPDATE upload_jobs
SET status = 'queued', updated_at = now()
WHERE status = 'processing' AND updated_at < $1`
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	reclaimed, _ := res.RowsAffected()
	return int(reclaimed), nil
}

func requireOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func sortByCreatedAt(list []UploadJob) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

var _ Repo = (*PGRepo)(nil)
