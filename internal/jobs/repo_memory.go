package jobs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used by tests and local development.
type MemoryRepo struct {
	mu   sync.Mutex
	data map[string]UploadJob
	now  func() time.Time
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]UploadJob),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Put seeds a job, mirroring the out-of-scope upload intake.
func (r *MemoryRepo) Put(job UploadJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.Status == "" {
		job.Status = StatusQueued
	}
	r.data[job.ID] = job
}

// Get returns a snapshot of a job.
func (r *MemoryRepo) Get(id string) (UploadJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.data[id]
	return job, ok
}

// ClaimPending claims queued jobs of the given types, oldest first. The
// entire claim happens under one lock, matching the pg repo's atomicity.
func (r *MemoryRepo) ClaimPending(ctx context.Context, fileTypes []string, limit int) ([]UploadJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	supported := make(map[string]bool, len(fileTypes))
	for _, t := range fileTypes {
		supported[t] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []UploadJob
	for _, job := range r.data {
		if job.Status == StatusQueued && supported[job.FileType] {
			pending = append(pending, job)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}

	now := r.now()
	for i := range pending {
		pending[i].Status = StatusProcessing
		pending[i].UpdatedAt = now
		r.data[pending[i].ID] = pending[i]
	}
	return pending, nil
}

// MarkCompleted finalizes a processing job with its extracted text.
func (r *MemoryRepo) MarkCompleted(ctx context.Context, id string, extractedText string) error {
	return r.finalize(ctx, id, func(job *UploadJob) {
		job.Status = StatusCompleted
		job.ExtractedText = &extractedText
		job.ErrorMessage = nil
	})
}

// MarkFailed finalizes a processing job with an error message.
func (r *MemoryRepo) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	return r.finalize(ctx, id, func(job *UploadJob) {
		job.Status = StatusFailed
		job.ErrorMessage = &errorMessage
		job.ExtractedText = nil
	})
}

// ReclaimStale requeues processing jobs older than the threshold.
func (r *MemoryRepo) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-olderThan)
	reclaimed := 0
	for id, job := range r.data {
		if job.Status == StatusProcessing && job.UpdatedAt.Before(cutoff) {
			job.Status = StatusQueued
			job.UpdatedAt = r.now()
			r.data[id] = job
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (r *MemoryRepo) finalize(ctx context.Context, id string, apply func(*UploadJob)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.data[id]
	if !ok || job.Status != StatusProcessing {
		return ErrNotFound
	}
	apply(&job)
	job.UpdatedAt = r.now()
	r.data[id] = job
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
