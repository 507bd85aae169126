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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sir_venger/upload_lite/internal/app/uploadhttp"
	"github.com/sir_venger/upload_lite/internal/config"
	"github.com/sir_venger/upload_lite/internal/logging"
	"github.com/sir_venger/upload_lite/internal/metrics"
	meta "github.com/sir_venger/upload_lite/internal/repo"
	"github.com/sir_venger/upload_lite/internal/usecase/uploadsvc"
)

// main поднимает сервис загрузок и на остановке сбрасывает несохранённые снапшоты.
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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("uploads service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := meta.Open(ctx, cfg.MetaDSN)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := uploadsvc.New(uploadsvc.Deps{
		Store:            store,
		DataDir:          cfg.DataDir,
		DefaultChunkSize: cfg.DefaultChunkSize,
		MaxChunkSize:     cfg.MaxChunkSize,
		FlushDelay:       cfg.FlushDelay,
		FlushWorkers:     cfg.FlushWorkers,
		Logger:           logger,
		Metrics:          metrics.New(reg),
	})
	if err != nil {
		return err
	}

	// Фоновый GC брошенных загрузок.
	stopGC := svc.StartGC(cfg.GCTTL, cfg.GCInterval)
	defer stopGC()

	server := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: uploadhttp.New(svc, uploadhttp.Options{
			DataDir: cfg.DataDir,
			GCTTL:   cfg.GCTTL,
			Logger:  logger,
			Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("http shutdown error", zap.Error(err))
		}
	}()

	logger.Info("uploads listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("data_dir", cfg.DataDir),
		zap.Duration("gc_ttl", cfg.GCTTL),
		zap.Duration("gc_every", cfg.GCInterval))

	serveErr := server.ListenAndServe()
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}
	stop()

	// Запросы уже не принимаются: сохраняем всё, что накопил отложенный сброс.
	flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := svc.ShutdownFlush(flushCtx); err != nil {
		logger.Error("final snapshot flush failed", zap.Error(err))
		return errors.Join(serveErr, err)
	}
	logger.Info("snapshots flushed")

	return serveErr
}
