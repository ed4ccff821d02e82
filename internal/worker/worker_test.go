package worker

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"cvextract-backend/internal/artifacts"
	"cvextract-backend/internal/credentials"
	"cvextract-backend/internal/jobs"
	"cvextract-backend/internal/pdfservices"
	"cvextract-backend/internal/quota"
)

type memoryObjectStore struct {
	objects map[string][]byte
}

func newMemoryObjectStore() *memoryObjectStore {
	return &memoryObjectStore{objects: map[string][]byte{}}
}

func (m *memoryObjectStore) SaveWithKey(ctx context.Context, storageKey, contentType string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.objects[storageKey] = data
	return int64(len(data)), nil
}

func (m *memoryObjectStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	data, ok := m.objects[storageKey]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type stubExtractor struct {
	fn    func(fileName string) ([]byte, error)
	calls int
}

func (s *stubExtractor) Extract(ctx context.Context, content []byte, fileName string, creds credentials.Credentials) ([]byte, error) {
	s.calls++
	return s.fn(fileName)
}

func resultArchive(t *testing.T, structured string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("structuredData.json")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	w.Write([]byte(structured))
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func archiveWithout(t *testing.T, entry, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(entry)
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	w.Write([]byte(body))
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

type fixture struct {
	jobs      *jobs.MemoryRepo
	guard     *quota.MemoryGuard
	artifacts *artifacts.MemoryRepo
	objects   *memoryObjectStore
	worker    *Worker
}

func newFixture(t *testing.T, extractor Extractor) *fixture {
	t.Helper()
	jobRepo := jobs.NewMemoryRepo()
	guard := quota.NewMemoryGuard(100)
	artifactRepo := artifacts.NewMemoryRepo()
	objects := newMemoryObjectStore()
	return &fixture{
		jobs:      jobRepo,
		guard:     guard,
		artifacts: artifactRepo,
		objects:   objects,
		worker: &Worker{
			Jobs:      jobRepo,
			Quota:     guard,
			Extractor: extractor,
			Artifacts: artifacts.NewStore(objects, artifactRepo, 50),
		},
	}
}

func seedJob(f *fixture, id, fileName string, createdAt time.Time) {
	f.jobs.Put(jobs.UploadJob{
		ID:          id,
		UserID:      "user-1",
		FileName:    fileName,
		FileContent: []byte("%PDF-1.7"),
		FileType:    jobs.FileTypePDF,
		Status:      jobs.StatusQueued,
		CreatedAt:   createdAt,
	})
}

func TestRunBatchCompletesJobWithExtractedText(t *testing.T) {
	good := func(fileName string) ([]byte, error) {
		return resultArchive(t, `{"elements":[{"Text":"Hello"},{"Text":"world"}]}`), nil
	}
	f := newFixture(t, &stubExtractor{fn: good})
	seedJob(f, "job-1", "cv.pdf", time.Now().UTC())

	result, err := f.worker.RunBatch(context.Background(), 5, credentials.Credentials{})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(result.Results) != 1 || result.Results[0].Status != jobs.StatusCompleted {
		t.Fatalf("results = %+v", result.Results)
	}

	job, _ := f.jobs.Get("job-1")
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("job status = %s", job.Status)
	}
	if job.ExtractedText == nil || *job.ExtractedText != "Hello world" {
		t.Fatalf("extracted text = %v", job.ExtractedText)
	}
	if job.ErrorMessage != nil {
		t.Fatal("error message set on completed job")
	}

	if raws := f.artifacts.List(artifacts.KindRawArchive); len(raws) != 1 || !strings.Contains(raws[0].StorageKey, "_downloaded.zip") {
		t.Fatalf("raw artifacts = %+v", raws)
	}
	if texts := f.artifacts.List(artifacts.KindExtractedText); len(texts) != 1 || !strings.Contains(texts[0].StorageKey, "_extracted.txt") {
		t.Fatalf("text artifacts = %+v", texts)
	}
}

func TestRunBatchQuotaDenialFailsWithoutExtracting(t *testing.T) {
	ext := &stubExtractor{fn: func(string) ([]byte, error) {
		return resultArchive(t, `{"elements":[]}`), nil
	}}
	f := newFixture(t, ext)
	f.worker.Quota = quota.NewMemoryGuard(0)
	seedJob(f, "job-1", "cv.pdf", time.Now().UTC())

	result, err := f.worker.RunBatch(context.Background(), 5, credentials.Credentials{})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if result.Results[0].Error != MsgQuotaExceeded {
		t.Fatalf("error = %q, want %q", result.Results[0].Error, MsgQuotaExceeded)
	}
	if ext.calls != 0 {
		t.Fatal("extractor invoked despite quota denial")
	}
	job, _ := f.jobs.Get("job-1")
	if job.Status != jobs.StatusFailed || job.ErrorMessage == nil || *job.ErrorMessage != MsgQuotaExceeded {
		t.Fatalf("job = %+v", job)
	}
}

func TestRunBatchInvalidArchivePersistsForensicCopy(t *testing.T) {
	errorPage := []byte("<html>service error disguised as a 200 response</html>")
	f := newFixture(t, &stubExtractor{fn: func(string) ([]byte, error) { return errorPage, nil }})
	seedJob(f, "job-1", "cv.pdf", time.Now().UTC())

	result, err := f.worker.RunBatch(context.Background(), 5, credentials.Credentials{})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if result.Results[0].Error != MsgProcessingFailed {
		t.Fatalf("error = %q", result.Results[0].Error)
	}

	raws := f.artifacts.List(artifacts.KindRawArchive)
	if len(raws) != 1 || !strings.Contains(raws[0].StorageKey, "_invalid_zip.zip") {
		t.Fatalf("raw artifacts = %+v", raws)
	}
	if string(f.objects.objects[raws[0].StorageKey]) != string(errorPage) {
		t.Fatal("forensic copy does not match the downloaded bytes")
	}
}

func TestRunBatchMissingStructuredEntryPersistsRaw(t *testing.T) {
	noEntry := archiveWithout(t, "metadata.json", `{}`)
	f := newFixture(t, &stubExtractor{fn: func(string) ([]byte, error) { return noEntry, nil }})
	seedJob(f, "job-1", "cv.pdf", time.Now().UTC())

	result, err := f.worker.RunBatch(context.Background(), 5, credentials.Credentials{})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if result.Results[0].Status != jobs.StatusFailed {
		t.Fatalf("status = %s", result.Results[0].Status)
	}

	raws := f.artifacts.List(artifacts.KindRawArchive)
	if len(raws) != 1 || !strings.Contains(raws[0].StorageKey, "_extraction_failed.zip") {
		t.Fatalf("raw artifacts = %+v", raws)
	}
}

func TestRunBatchOneFailureDoesNotAbortSiblings(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ext := &stubExtractor{fn: func(fileName string) ([]byte, error) {
		if fileName == "bad.pdf" {
			return nil, &pdfservices.ProtocolError{Kind: pdfservices.KindPollTimeout, Phase: "poll"}
		}
		return resultArchive(t, `{"elements":[{"Text":"fine"}]}`), nil
	}}
	f := newFixture(t, ext)
	seedJob(f, "job-1", "bad.pdf", base)
	seedJob(f, "job-2", "good.pdf", base.Add(time.Minute))

	result, err := f.worker.RunBatch(context.Background(), 5, credentials.Credentials{})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(result.Results) != 2 {
		t.Fatalf("results = %+v", result.Results)
	}
	// Oldest first: the failing job runs first, the sibling still completes.
	if result.Results[0].ID != "job-1" || result.Results[0].Status != jobs.StatusFailed {
		t.Fatalf("first result = %+v", result.Results[0])
	}
	if result.Results[1].ID != "job-2" || result.Results[1].Status != jobs.StatusCompleted {
		t.Fatalf("second result = %+v", result.Results[1])
	}

	for _, id := range []string{"job-1", "job-2"} {
		job, _ := f.jobs.Get(id)
		completed := job.Status == jobs.StatusCompleted
		failed := job.Status == jobs.StatusFailed
		if completed == failed {
			t.Fatalf("job %s status = %s, want exactly one terminal state", id, job.Status)
		}
		if completed != (job.ExtractedText != nil) {
			t.Fatalf("job %s: extracted text set = %v with status %s", id, job.ExtractedText != nil, job.Status)
		}
		if failed != (job.ErrorMessage != nil) {
			t.Fatalf("job %s: error message set = %v with status %s", id, job.ErrorMessage != nil, job.Status)
		}
	}
}

func TestRunBatchNoPendingWork(t *testing.T) {
	f := newFixture(t, &stubExtractor{fn: func(string) ([]byte, error) { return nil, nil }})
	result, err := f.worker.RunBatch(context.Background(), 5, credentials.Credentials{})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if result.Message != "no pending uploads" || len(result.Results) != 0 {
		t.Fatalf("result = %+v", result)
	}
}

func TestRunBatchRecoversFromPanickingComponent(t *testing.T) {
	ext := &stubExtractor{fn: func(fileName string) ([]byte, error) {
		if fileName == "boom.pdf" {
			panic("extractor bug")
		}
		return resultArchive(t, `{"elements":[{"Text":"ok"}]}`), nil
	}}
	f := newFixture(t, ext)
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	seedJob(f, "job-1", "boom.pdf", base)
	seedJob(f, "job-2", "good.pdf", base.Add(time.Minute))

	result, err := f.worker.RunBatch(context.Background(), 5, credentials.Credentials{})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if result.Results[0].Status != jobs.StatusFailed || result.Results[1].Status != jobs.StatusCompleted {
		t.Fatalf("results = %+v", result.Results)
	}
}
