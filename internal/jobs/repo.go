package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no job matched the id and expected status. A terminal
// write that hits it means the job was already finalized elsewhere.
var ErrNotFound = errors.New("upload job not found")

// Repo defines persistence operations for upload jobs. Claim and the
// terminal writes must each be a single atomic conditional update so that
// concurrent batch invocations never double-process or double-finalize a job.
type Repo interface {
	// ClaimPending atomically moves up to limit queued jobs of the given
	// file types to processing and returns them oldest-first.
	ClaimPending(ctx context.Context, fileTypes []string, limit int) ([]UploadJob, error)

	// MarkCompleted finalizes a processing job with its extracted text.
	MarkCompleted(ctx context.Context, id string, extractedText string) error

	// MarkFailed finalizes a processing job with a user-safe error message.
	MarkFailed(ctx context.Context, id string, errorMessage string) error

	// ReclaimStale returns jobs stuck in processing longer than olderThan
	// back to queued and reports how many were reclaimed.
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error)
}
