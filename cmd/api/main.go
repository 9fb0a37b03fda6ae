package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"competitive-intel/internal/api"
	"competitive-intel/internal/backend"
	"competitive-intel/internal/config"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Log working directory and important paths for debugging
	if wd, err := os.Getwd(); err == nil {
		log.Printf("Working directory: %s", wd)
	}
	log.Printf("Analysis backend: %s (timeouts: metrics %v, insight %v, simulation %v)",
		cfg.Backend.BaseURL, cfg.Backend.Timeouts.Metrics, cfg.Backend.Timeouts.Insight, cfg.Backend.Timeouts.Simulation)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	client := backend.NewClient(cfg.Backend.BaseURL, 0)
	router, store := api.NewRouter(cfg, client)
	defer store.Close()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// Start server
	log.Printf("Starting API server on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
