// Package server wires handlers onto the gin router and owns the HTTP server
// lifecycle.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"sitesense-backend/internal/config"
	"sitesense-backend/internal/handlers"
	"sitesense-backend/internal/metacache"
	"sitesense-backend/internal/middleware"
	"sitesense-backend/internal/objectstore"
	"sitesense-backend/internal/services"
	"sitesense-backend/internal/session"
)

// Deps are the constructed components the router dispatches to.
type Deps struct {
	Config       *config.Config
	Store        objectstore.Store
	Cache        *metacache.Cache
	Orchestrator *services.Orchestrator
	Sessions     session.Provider
	Log          *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Log))

	storageHandler := handlers.NewStorageHandler(d.Store, d.Config.ObjectStore.UploadBucket, d.Log)
	processHandler := handlers.NewProcessHandler(d.Orchestrator, d.Log)
	cacheHandler := handlers.NewCacheHandler(d.Cache, d.Log)
	authHandler := handlers.NewAuthHandler(d.Sessions, d.Config.Session.CookieName, d.Log)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", handlers.HealthHandler)
	router.GET("/api/config/public", handlers.PublicConfig(d.Config.Public()))

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(d.Sessions, d.Config.Session.CookieName))

	api.POST("/storage/upload", storageHandler.Upload)
	api.GET("/storage/download", storageHandler.Download)
	api.GET("/minio/list", storageHandler.List)
	api.DELETE("/minio/delete", storageHandler.Delete)

	api.POST("/process/upload", processHandler.Upload)
	api.POST("/process/run", processHandler.Run)

	api.GET("/categories", handlers.ListCategories)
	api.POST("/categories/toggle", handlers.ToggleCategory)

	api.GET("/cache/files", cacheHandler.GetFiles)
	api.PUT("/cache/files", cacheHandler.PutFiles)
	api.GET("/cache/results", cacheHandler.GetResults)
	api.PUT("/cache/results", cacheHandler.PutResults)
	api.DELETE("/cache", cacheHandler.Clear)
	api.GET("/cache/video/:fileId", cacheHandler.Video)
	api.GET("/results/view", cacheHandler.ResultsView)

	api.POST("/auth/signout", authHandler.SignOut)

	return router
}

type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// New builds the HTTP server. Write timeout is left open because detection
// on video can run for minutes.
func New(port string, handler http.Handler, log *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		log: log,
	}
}

func (s *Server) Run() error {
	s.log.Info("Server is running", zap.String("address", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}
