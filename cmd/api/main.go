// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/infrastructure/persistence"
	"github.com/your-org/storefront-backend/internal/infrastructure/recordstore"
	"github.com/your-org/storefront-backend/internal/interfaces/http"
	"github.com/your-org/storefront-backend/internal/lifecycle"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	logger := newLogger(cfg)

	// Connect to the backend record store. Missing credentials degrade the
	// client to an inert stub; the cart keeps working either way.
	records := recordstore.New(cfg, logger)
	defer records.Close()

	if err := records.Health(); err != nil {
		log.Printf("⚠️  Record store unavailable: %v", err)
	}

	// Client-local snapshot storage. Without it the client boundary stays
	// unmounted and the cart surface answers with a placeholder instead of
	// crashing.
	var snapshots persistence.Store
	if fileStore, err := persistence.NewFileStore(cfg.Storage.SnapshotDir); err != nil {
		log.Printf("⚠️  Snapshot storage unavailable: %v", err)
	} else {
		snapshots = fileStore
	}

	boundary := lifecycle.NewBoundary(logger)
	if boundary.Mount(func() bool { return snapshots != nil }) {
		log.Println("✅ Client boundary mounted, cart surface active")
	} else {
		log.Println("⚠️  Client boundary unmounted, cart surface inactive")
	}

	// Create and start HTTP server
	server := http.NewServer(cfg, records, snapshots, boundary, logger)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("👋 Shutting down gracefully...")

	// Give server 30 seconds to shutdown gracefully
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("Failed to shutdown HTTP server gracefully: %v", err)
	}

	log.Println("✅ Server shutdown completed")
}

// newLogger builds the application logger from config
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
