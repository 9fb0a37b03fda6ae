// Package api wires the dashboard HTTP API.
package api

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"competitive-intel/internal/api/handlers"
	"competitive-intel/internal/api/middleware"
	"competitive-intel/internal/config"
	"competitive-intel/internal/session"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine. The returned store owns every session;
// close it on shutdown.
func NewRouter(cfg *config.Config, b session.Backend) (*gin.Engine, *handlers.SessionStore) {
	router := gin.New()

	// Apply middleware
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.Logger())

	store := handlers.NewSessionStore(cfg.Server.SessionTTL)
	sessionHandler := handlers.NewSessionHandler(store, b, cfg.Company, cfg.Timeouts())
	fieldHandler := handlers.NewFieldHandler(cfg.Company)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": store.Len()})
	})

	// API routes
	api := router.Group("/api/v1")
	{
		api.GET("/fields", fieldHandler.ListFields)
		api.GET("/dataset-kinds", handlers.ListDatasetKinds)

		api.POST("/sessions", sessionHandler.Create)
		api.GET("/sessions/:id", sessionHandler.Get)
		api.DELETE("/sessions/:id", sessionHandler.Delete)
		api.PUT("/sessions/:id/form", sessionHandler.UpdateForm)
		api.POST("/sessions/:id/dataset", sessionHandler.UploadDataset)
		api.POST("/sessions/:id/submit", sessionHandler.Submit)
		api.PUT("/sessions/:id/competitor", sessionHandler.SelectCompetitor)
		api.POST("/sessions/:id/insight/refresh", sessionHandler.RefreshInsight)
		api.POST("/sessions/:id/simulation", sessionHandler.Simulate)
		api.POST("/sessions/:id/reset", sessionHandler.Reset)
		api.GET("/sessions/:id/benchmark", sessionHandler.Benchmark)
		api.GET("/sessions/:id/report", sessionHandler.Report)
	}

	serveStatic(router, cfg.Server.StaticDir)
	return router, store
}

// serveStatic serves the built dashboard from dir, if it exists, with
// index.html as the fallback for client-side routes.
func serveStatic(router *gin.Engine, dir string) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Printf("Static directory %s not found, skipping static file serving", dir)
		return
	}
	router.Static("/assets", filepath.Join(dir, "assets"))
	router.StaticFile("/favicon.ico", filepath.Join(dir, "favicon.ico"))

	// Serve index.html for all non-API routes (SPA routing)
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	})
	log.Printf("Serving static files from %s", dir)
}
