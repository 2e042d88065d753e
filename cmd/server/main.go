// @title           SiteSense Backend API
// @version         1.0.0
// @description     Upload images and videos, run object detection on them and review the results. Storage proxy endpoints front an S3-compatible object store.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey SessionCookie
// @in header
// @name Cookie
// @description Session cookie issued by the auth server; a Bearer token in Authorization is also accepted.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"sitesense-backend/docs"
	"sitesense-backend/internal/config"
	"sitesense-backend/internal/database"
	"sitesense-backend/internal/detection"
	"sitesense-backend/internal/logger"
	"sitesense-backend/internal/metacache"
	"sitesense-backend/internal/objectstore"
	"sitesense-backend/internal/server"
	"sitesense-backend/internal/services"
	"sitesense-backend/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.BaseURL != "" {
		if baseURL, err := url.Parse(cfg.BaseURL); err == nil {
			docs.SwaggerInfo.Host = baseURL.Host
			if baseURL.Scheme == "https" {
				docs.SwaggerInfo.Schemes = []string{"https", "http"}
			} else {
				docs.SwaggerInfo.Schemes = []string{"http", "https"}
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newObjectStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize object store", zap.Error(err))
	}
	for _, bucket := range []string{cfg.ObjectStore.UploadBucket, cfg.ObjectStore.ProcessedBucket} {
		if err := store.EnsureBucket(ctx, bucket); err != nil {
			log.Warn("Bucket not ready, will retry on first use", zap.String("bucket", bucket), zap.Error(err))
		}
	}

	kv, db, err := newMetadataKV(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize metadata cache", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}
	cache := metacache.New(kv, log)

	sessions, err := newSessionProvider(cfg)
	if err != nil {
		log.Fatal("Failed to initialize session provider", zap.Error(err))
	}

	detector := detection.NewClient(detection.DefaultRoutes(cfg.Detection), cfg.Detection.Timeout, log)
	orchestrator := services.NewOrchestrator(store, cache, detector, services.OrchestratorConfig{
		UploadBucket:    cfg.ObjectStore.UploadBucket,
		ProcessedBucket: cfg.ObjectStore.ProcessedBucket,
		MaxFileCount:    cfg.Limits.MaxFileCount,
		MaxTotalBytes:   cfg.Limits.MaxTotalBytes,
	}, log)

	router := server.NewRouter(server.Deps{
		Config:       cfg,
		Store:        store,
		Cache:        cache,
		Orchestrator: orchestrator,
		Sessions:     sessions,
		Log:          log,
	})
	srv := server.New(cfg.Port, router, log)

	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

func newObjectStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (objectstore.Store, error) {
	switch cfg.ObjectStore.Driver {
	case config.DriverSupabase:
		return objectstore.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.PublishableKey, log), nil
	case config.DriverMemory:
		log.Warn("Using in-memory object store; uploads are lost on restart")
		return objectstore.NewMemoryStore(cfg.ObjectStore.ObjectBaseURL()), nil
	default:
		return objectstore.NewS3Store(ctx, cfg.ObjectStore, log)
	}
}

// newMetadataKV returns the Postgres-backed store when DATABASE_URL is set,
// after applying migrations, and the in-memory one otherwise.
func newMetadataKV(ctx context.Context, cfg *config.Config, log *zap.Logger) (metacache.KV, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set; metadata cache is kept in memory")
		return metacache.NewMemoryKV(), nil, nil
	}

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.NewMigrator(db, log).Run(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}
	log.Info("Migrations completed successfully")

	return metacache.NewPostgresKV(db), db, nil
}

func newSessionProvider(cfg *config.Config) (session.Provider, error) {
	if cfg.Session.Provider == config.SessionSupabase {
		return session.NewSupabaseProvider(cfg.Supabase.URL, cfg.Supabase.PublishableKey)
	}
	return session.NewJWTProvider(cfg.Supabase.JWTSecret), nil
}
