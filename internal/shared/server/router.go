package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cvextract-backend/internal/services/health"
	"cvextract-backend/internal/shared/metrics"
	"cvextract-backend/internal/shared/server/middleware"
	"cvextract-backend/internal/shared/server/respond"
	"cvextract-backend/internal/worker"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Env           string
	Health        *health.Service
	WorkerHandler *worker.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, deps.Health.Status(c.Request.Context()))
	})
	api.POST("/process-uploads", deps.WorkerHandler.ProcessUploads)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
