package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"cvextract-backend/internal/artifacts"
	"cvextract-backend/internal/credentials"
	"cvextract-backend/internal/jobs"
	"cvextract-backend/internal/pdfservices"
	"cvextract-backend/internal/quota"
	"cvextract-backend/internal/services/health"
	"cvextract-backend/internal/settings"
	"cvextract-backend/internal/shared/config"
	"cvextract-backend/internal/shared/server"
	"cvextract-backend/internal/shared/storage/db"
	"cvextract-backend/internal/shared/storage/object"
	localstore "cvextract-backend/internal/shared/storage/object/local"
	s3store "cvextract-backend/internal/shared/storage/object/s3"
	"cvextract-backend/internal/worker"
)

// App holds shared dependencies.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Store       object.ObjectStore
	Jobs        jobs.Repo
	Quota       quota.Guard
	Credentials credentials.Store
	Settings    settings.Store
	Artifacts   *artifacts.Store
	Worker      *worker.Worker
	Handler     *worker.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Env:           cfg.Env,
		Health:        health.NewService(sqlDB),
		WorkerHandler: app.Handler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) {
	if app.DB != nil {
		app.Jobs = &jobs.PGRepo{DB: app.DB}
		app.Quota = quota.NewPGGuard(app.DB, app.Config.MonthlyQuota)
		app.Credentials = &credentials.PGStore{DB: app.DB}
		app.Settings = &settings.PGStore{DB: app.DB}
		app.Artifacts = artifacts.NewStore(app.Store, &artifacts.PGRepo{DB: app.DB}, app.Config.ArtifactRetention)
	} else {
		app.Jobs = jobs.NewMemoryRepo()
		app.Quota = quota.NewMemoryGuard(app.Config.MonthlyQuota)
		app.Credentials = &credentials.MemoryStore{}
		memSettings := settings.NewMemoryStore()
		memSettings.Set(settings.Flags{ExtractionEnabled: true})
		app.Settings = memSettings
		app.Artifacts = artifacts.NewStore(app.Store, artifacts.NewMemoryRepo(), app.Config.ArtifactRetention)
	}

	extractor := pdfservices.NewClient(pdfservices.Config{
		BaseURL:  app.Config.ExtractAPIBaseURL,
		TokenURL: app.Config.ExtractAPITokenURL,
	})

	app.Worker = &worker.Worker{
		Jobs:           app.Jobs,
		Quota:          app.Quota,
		Extractor:      extractor,
		Artifacts:      app.Artifacts,
		StaleThreshold: app.Config.StaleJobThreshold,
	}
	app.Handler = &worker.Handler{
		Worker:      app.Worker,
		Settings:    app.Settings,
		Credentials: app.Credentials,
		BatchSize:   app.Config.BatchSize,
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
