package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"cvextract-backend/internal/credentials"
	"cvextract-backend/internal/jobs"
	"cvextract-backend/internal/settings"
)

type failingSettings struct{}

func (failingSettings) Flags(ctx context.Context) (settings.Flags, error) {
	return settings.Flags{}, errors.New("db down")
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.POST("/api/v1/process-uploads", h.ProcessUploads)
	return r
}

func newTestHandler(t *testing.T, extractor Extractor) (*Handler, *fixture) {
	t.Helper()
	f := newFixture(t, extractor)
	sets := settings.NewMemoryStore()
	sets.Set(settings.Flags{ExtractionEnabled: true})
	creds := &credentials.MemoryStore{}
	creds.Set(credentials.Credentials{ClientID: "id", ClientSecret: "secret", OrgID: "org"})
	return &Handler{
		Worker:      f.worker,
		Settings:    sets,
		Credentials: creds,
		BatchSize:   5,
	}, f
}

func TestProcessUploadsReturnsBatchResults(t *testing.T) {
	h, f := newTestHandler(t, &stubExtractor{fn: func(string) ([]byte, error) {
		return resultArchive(t, `{"elements":[{"Text":"Hi"}]}`), nil
	}})
	seedJob(f, "job-1", "cv.pdf", time.Now().UTC())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process-uploads", nil)
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result BatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.Results) != 1 || result.Results[0].Status != jobs.StatusCompleted {
		t.Fatalf("results = %+v", result.Results)
	}
}

func TestProcessUploadsDisabledShortCircuits(t *testing.T) {
	ext := &stubExtractor{fn: func(string) ([]byte, error) { return nil, errors.New("unreachable") }}
	h, f := newTestHandler(t, ext)
	h.Settings.(*settings.MemoryStore).Set(settings.Flags{ExtractionEnabled: false})
	seedJob(f, "job-1", "cv.pdf", time.Now().UTC())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process-uploads", nil)
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result BatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Message != "processing disabled" {
		t.Fatalf("message = %q", result.Message)
	}
	if ext.calls != 0 {
		t.Fatal("extractor invoked with processing disabled")
	}
	job, _ := f.jobs.Get("job-1")
	if job.Status != jobs.StatusQueued {
		t.Fatalf("queued job touched: status = %s", job.Status)
	}
}

func TestProcessUploadsMissingCredentials(t *testing.T) {
	h, _ := newTestHandler(t, &stubExtractor{fn: func(string) ([]byte, error) { return nil, nil }})
	h.Credentials = &credentials.MemoryStore{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process-uploads", nil)
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error.Code != "credentials_missing" {
		t.Fatalf("code = %q", body.Error.Code)
	}
}

func TestProcessUploadsSettingsUnavailable(t *testing.T) {
	h, _ := newTestHandler(t, &stubExtractor{fn: func(string) ([]byte, error) { return nil, nil }})
	h.Settings = failingSettings{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process-uploads", nil)
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProcessUploadsRejectsNonPost(t *testing.T) {
	h, _ := newTestHandler(t, &stubExtractor{fn: func(string) ([]byte, error) { return nil, nil }})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/process-uploads", nil)
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
