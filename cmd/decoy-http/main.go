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

	"aegismesh/internal/decoys/httpdecoy"
	"aegismesh/pkg/config"
	"aegismesh/pkg/logging"
	"aegismesh/pkg/meshclient"
)

func main() {
	config.Load()
	logger := logging.New("decoy-http", config.Get("AEGIS_ENV", "development"), config.Get("AEGIS_LOG_LEVEL", "info"))
	defer logger.Sync()

	reporter := meshclient.New(config.Get("ANALYZER_URL", "http://localhost:9000"), 3*time.Second)
	decoy := httpdecoy.New(config.Get("DECOY_HTTP_ADDR", ":8080"), reporter, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := decoy.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http decoy stopped", zap.Error(err))
	}
	logger.Info("http decoy shut down")
}
