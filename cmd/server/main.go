package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	v1 "github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/controller/http/v1"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/cache"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/config"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/metrics"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/sqlite"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/tracing"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/video"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/usecase"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting video-frame-extractor")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(ctx)
		}
	}

	// Metadata store
	store, err := sqlite.NewStore(cfg.DatabaseDir)
	fatalOnErr(err, "open metadata store")
	defer store.Close()

	// Cache: one attempt at redis, permanent in-process fallback otherwise
	frameCache := cache.New(ctx, cache.Config{
		RedisAddr:  cfg.RedisAddr,
		RedisDB:    cfg.RedisDB,
		DefaultTTL: cfg.CacheTTL,
	}, log)

	sampler := video.NewSampler(log,
		video.NewFFmpegBackend(log),
		video.NewMJPEGBackend(),
	)

	orchestrator, err := usecase.NewOrchestrator(store, frameCache, sampler, log, usecase.OrchestratorConfig{
		FramesBasePath:    cfg.FramesBasePath,
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
	})
	fatalOnErr(err, "create orchestrator")

	dashboard := usecase.NewDashboardService(store, frameCache, log)

	// Metrics server
	metricsSrv := metrics.Serve(cfg.MetricsPort, log)

	// API server
	handler := v1.NewHandler(orchestrator, dashboard, frameCache.Backend())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: v1.NewRouter(handler),
	}

	go func() {
		log.Info("api server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api server error", zap.Error(err))
			cancel()
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	if err := orchestrator.Wait(shutdownCtx); err != nil {
		log.Warn("shutdown timeout with jobs still running", zap.Error(err))
	}

	log.Info("video-frame-extractor stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
