package main

import (
	"flag"
	"fmt"
	"log"

	"competitive-intel/internal/config"
	"competitive-intel/internal/devbackend"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Without a key the server still runs; AI text is replaced by an error
	// note and insights fall back to canned advice.
	var analyst devbackend.Analyst
	if a, err := devbackend.NewAnthropicAnalystFromEnv(cfg.DevBackend.Model); err != nil {
		log.Printf("[DevBackend] AI disabled: %v", err)
	} else {
		analyst = a
	}

	router := devbackend.NewServer(analyst).Router(cfg.Server.AllowedOrigins)
	addr := fmt.Sprintf(":%s", cfg.DevBackend.Port)
	log.Printf("[DevBackend] Starting on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
