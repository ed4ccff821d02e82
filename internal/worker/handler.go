package worker

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvextract-backend/internal/credentials"
	"cvextract-backend/internal/settings"
	"cvextract-backend/internal/shared/server/respond"
	"cvextract-backend/internal/shared/telemetry"
)

// Handler exposes the batch trigger over HTTP.
type Handler struct {
	Worker      *Worker
	Settings    settings.Store
	Credentials credentials.Store
	BatchSize   int
}

// ProcessUploads handles the inbound trigger. Setup failures (disabled
// feature, missing credentials) short-circuit the invocation; once a batch
// runs, the response is always 200 with per-job results.
func (h *Handler) ProcessUploads(c *gin.Context) {
	ctx := c.Request.Context()

	flags, err := h.Settings.Flags(ctx)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "settings_unavailable", "Could not read processing settings", nil)
		return
	}
	telemetry.SetVerbose(flags.DebugLogging)

	if !flags.ExtractionEnabled {
		respond.OK(c, BatchResult{Message: "processing disabled"})
		return
	}

	creds, err := h.Credentials.Active(ctx)
	if err != nil {
		if errors.Is(err, credentials.ErrNotConfigured) {
			respond.Error(c, http.StatusInternalServerError, "credentials_missing", "Extraction service credentials are not configured", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "credentials_unavailable", "Could not read extraction credentials", nil)
		return
	}

	result, err := h.Worker.RunBatch(ctx, h.BatchSize, creds)
	if err != nil {
		telemetry.Error("worker.batch_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "batch_failed", "Could not claim pending uploads", nil)
		return
	}
	respond.OK(c, result)
}
