package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cvextract-backend/internal/archive"
	"cvextract-backend/internal/artifacts"
	"cvextract-backend/internal/credentials"
	"cvextract-backend/internal/jobs"
	"cvextract-backend/internal/pdfservices"
	"cvextract-backend/internal/quota"
	"cvextract-backend/internal/shared/metrics"
	"cvextract-backend/internal/shared/telemetry"
)

// User-facing failure messages written to job records. Internal detail
// (status codes, service error bodies) goes to logs only.
const (
	MsgQuotaExceeded    = "usage limit exceeded"
	MsgProcessingFailed = "processing encountered an issue, try a different file format"
)

// Extractor produces the raw result archive for one document.
type Extractor interface {
	Extract(ctx context.Context, content []byte, fileName string, creds credentials.Credentials) ([]byte, error)
}

// JobResult is one job's terminal outcome within a batch.
type JobResult struct {
	ID     string      `json:"id"`
	Status jobs.Status `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// BatchResult summarizes one batch invocation.
type BatchResult struct {
	Message string      `json:"message"`
	Results []JobResult `json:"results"`
}

// Worker claims pending upload jobs and drives each through quota, the
// extraction protocol, validation, parsing, and artifact persistence. All
// collaborators are explicit dependencies.
type Worker struct {
	Jobs           jobs.Repo
	Quota          quota.Guard
	Extractor      Extractor
	Artifacts      *artifacts.Store
	StaleThreshold time.Duration
}

// RunBatch claims up to batchSize queued jobs of supported kinds, oldest
// first, and processes them sequentially. Per-job failures are recorded on
// the job and reported in the result list; they never abort the batch. The
// returned error covers claim-level failures only.
func (w *Worker) RunBatch(ctx context.Context, batchSize int, creds credentials.Credentials) (BatchResult, error) {
	metrics.IncBatchRun()

	if w.StaleThreshold > 0 {
		reclaimed, err := w.Jobs.ReclaimStale(ctx, w.StaleThreshold)
		if err != nil {
			telemetry.Error("worker.reclaim_failed", map[string]any{"error": err.Error()})
		} else if reclaimed > 0 {
			telemetry.Info("worker.reclaimed_stale", map[string]any{"count": reclaimed})
		}
	}

	claimed, err := w.Jobs.ClaimPending(ctx, jobs.SupportedFileTypes(), batchSize)
	if err != nil {
		return BatchResult{}, fmt.Errorf("claim pending jobs: %w", err)
	}
	metrics.IncJobsClaimed(len(claimed))

	if len(claimed) == 0 {
		return BatchResult{Message: "no pending uploads"}, nil
	}

	results := make([]JobResult, 0, len(claimed))
	for _, job := range claimed {
		results = append(results, w.processJob(ctx, job, creds))
	}
	return BatchResult{
		Message: fmt.Sprintf("processed %d upload(s)", len(results)),
		Results: results,
	}, nil
}

// processJob runs one claimed job to a terminal status. It never panics out:
// any escape from a component is converted into a recorded failure so
// sibling jobs keep processing.
func (w *Worker) processJob(ctx context.Context, job jobs.UploadJob, creds credentials.Credentials) (result JobResult) {
	start := time.Now()
	defer func() {
		metrics.ObserveExtractDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
		if rec := recover(); rec != nil {
			telemetry.Error("worker.job_panic", map[string]any{"job_id": job.ID, "panic": fmt.Sprint(rec)})
			result = w.fail(ctx, job, MsgProcessingFailed)
		}
	}()

	telemetry.Info("worker.job_started", map[string]any{
		"job_id":    job.ID,
		"user_id":   job.UserID,
		"file_type": job.FileType,
	})

	allowed, err := w.Quota.TryConsume(ctx)
	if err != nil {
		telemetry.Error("worker.quota_error", map[string]any{"job_id": job.ID, "error": err.Error()})
		return w.fail(ctx, job, MsgProcessingFailed)
	}
	if !allowed {
		metrics.IncJobQuotaDenied()
		telemetry.Info("worker.quota_denied", map[string]any{"job_id": job.ID})
		return w.fail(ctx, job, MsgQuotaExceeded)
	}

	raw, err := w.Extractor.Extract(ctx, job.FileContent, job.FileName, creds)
	if err != nil {
		w.logProtocolError(job, err)
		return w.fail(ctx, job, MsgProcessingFailed)
	}

	if !archive.IsValidArchive(raw) {
		key := w.Artifacts.SaveRaw(ctx, raw, job.FileName, job.UserID, artifacts.TagInvalidZip)
		telemetry.Error("worker.invalid_archive", map[string]any{
			"job_id":       job.ID,
			"size":         len(raw),
			"artifact_key": key,
		})
		return w.fail(ctx, job, MsgProcessingFailed)
	}

	text, err := archive.ExtractStructuredText(raw)
	if err != nil {
		key := w.Artifacts.SaveRaw(ctx, raw, job.FileName, job.UserID, artifacts.TagExtractionFailed)
		telemetry.Error("worker.extract_failed", map[string]any{
			"job_id":       job.ID,
			"error":        err.Error(),
			"artifact_key": key,
		})
		return w.fail(ctx, job, MsgProcessingFailed)
	}

	w.Artifacts.SaveRaw(ctx, raw, job.FileName, job.UserID, artifacts.TagDownloaded)
	w.Artifacts.SaveText(ctx, text, job.FileName, job.UserID)

	if err := w.Jobs.MarkCompleted(ctx, job.ID, text); err != nil {
		telemetry.Error("worker.finalize_failed", map[string]any{"job_id": job.ID, "error": err.Error()})
		return JobResult{ID: job.ID, Status: jobs.StatusFailed, Error: MsgProcessingFailed}
	}

	metrics.IncJobCompleted()
	telemetry.Info("worker.job_completed", map[string]any{
		"job_id":     job.ID,
		"text_chars": len(text),
	})
	return JobResult{ID: job.ID, Status: jobs.StatusCompleted}
}

// fail records the terminal failure with its user-safe message.
func (w *Worker) fail(ctx context.Context, job jobs.UploadJob, message string) JobResult {
	metrics.IncJobFailed()
	if err := w.Jobs.MarkFailed(ctx, job.ID, message); err != nil {
		telemetry.Error("worker.finalize_failed", map[string]any{"job_id": job.ID, "error": err.Error()})
	}
	return JobResult{ID: job.ID, Status: jobs.StatusFailed, Error: message}
}

func (w *Worker) logProtocolError(job jobs.UploadJob, err error) {
	fields := map[string]any{"job_id": job.ID, "error": err.Error()}
	var perr *pdfservices.ProtocolError
	if errors.As(err, &perr) {
		fields["kind"] = string(perr.Kind)
		fields["phase"] = perr.Phase
		if perr.StatusCode != 0 {
			fields["status_code"] = perr.StatusCode
		}
		if perr.Detail != "" {
			fields["detail"] = perr.Detail
		}
	}
	telemetry.Error("worker.protocol_error", fields)
}
