package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"upkeep/internal/config"
	"upkeep/internal/database"
	"upkeep/internal/logging"
	"upkeep/internal/server"
	"upkeep/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	files, err := storage.New(cfg, logger.With("component", "storage"))
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			log.Fatal("production requires S3 configuration: set UPKEEP_S3_BUCKET, UPKEEP_S3_ACCESS_KEY, and UPKEEP_S3_SECRET_KEY")
		}
		log.Fatalf("failed to init storage: %v", err)
	}

	srv := server.New(db, files, cfg, logger)

	if n, err := srv.SessionStore().DeleteExpired(); err != nil {
		logger.Warn("session cleanup", "error", err)
	} else if n > 0 {
		logger.Info("removed expired sessions", "count", n)
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
