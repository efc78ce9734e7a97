package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"aegismesh/internal/decoys/sshdecoy"
	"aegismesh/pkg/config"
	"aegismesh/pkg/logging"
	"aegismesh/pkg/meshclient"
)

func main() {
	config.Load()
	logger := logging.New("decoy-ssh", config.Get("AEGIS_ENV", "development"), config.Get("AEGIS_LOG_LEVEL", "info"))
	defer logger.Sync()

	reporter := meshclient.New(config.Get("ANALYZER_URL", "http://localhost:9000"), 3*time.Second)
	decoy, err := sshdecoy.New(config.Get("DECOY_SSH_ADDR", ":2222"), reporter, logger)
	if err != nil {
		logger.Fatal("ssh decoy startup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := decoy.Run(ctx); err != nil {
		logger.Fatal("ssh decoy stopped", zap.Error(err))
	}
	logger.Info("ssh decoy shut down")
}
