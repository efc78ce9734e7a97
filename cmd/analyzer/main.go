package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"aegismesh/internal/analyzer"
	"aegismesh/pkg/config"
	"aegismesh/pkg/logging"
	"aegismesh/pkg/observability"
)

func main() {
	config.Load()
	logger := logging.New("analyzer", config.Get("AEGIS_ENV", "development"), config.Get("AEGIS_LOG_LEVEL", "info"))
	defer logger.Sync()

	cfg := analyzer.DefaultConfig()
	cfg.Addr = config.Get("ANALYZER_ADDR", cfg.Addr)
	cfg.LogPath = config.Get("ANALYZER_LOG_PATH", cfg.LogPath)
	cfg.BufferCapacity = config.GetInt("ANALYZER_BUFFER_CAPACITY", cfg.BufferCapacity)
	cfg.ModelEnabled = config.GetBool("ANALYZER_MODEL_ENABLED", cfg.ModelEnabled)
	cfg.HighRiskThreshold = config.GetFloat("ANALYZER_HIGH_RISK_THRESHOLD", cfg.HighRiskThreshold)
	cfg.Manager.Interval = config.GetDuration("ANALYZER_RETRAIN_INTERVAL", cfg.Manager.Interval)
	cfg.Manager.MinTrainSamples = config.GetInt("ANALYZER_MIN_TRAIN_SAMPLES", cfg.Manager.MinTrainSamples)
	cfg.Manager.Contamination = config.GetFloat("ANALYZER_CONTAMINATION", cfg.Manager.Contamination)
	cfg.Manager.RetainOnFailure = config.GetBool("ANALYZER_RETAIN_MODEL_ON_FAILURE", cfg.Manager.RetainOnFailure)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if endpoint := config.Get("AEGIS_OTLP_ENDPOINT", ""); endpoint != "" {
		exporter, err := observability.NewOTelExporter(ctx, "aegismesh-analyzer", endpoint, time.Minute)
		if err != nil {
			logger.Warn("OTLP metrics export disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = exporter.Shutdown(shutdownCtx)
			}()
		}
	}

	srv, err := analyzer.New(cfg, logger)
	if err != nil {
		logger.Fatal("analyzer startup failed", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("analyzer stopped", zap.Error(err))
	}
	logger.Info("analyzer shut down")
}
