package main

import (
	"context"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sir_venger/upload_lite/internal/config"
	"github.com/sir_venger/upload_lite/internal/logging"
	meta "github.com/sir_venger/upload_lite/internal/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(logging.Options{Mode: cfg.LogMode, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	dsn := strings.TrimSpace(cfg.MetaDSN)
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		logger.Info("non-postgres meta store selected, skipping migrations", zap.String("dsn", dsn))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := meta.ApplyMigrations(ctx, dsn, logger); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	logger.Info("migrations applied")
}
