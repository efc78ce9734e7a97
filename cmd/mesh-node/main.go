// mesh-node simulates a deception-mesh member: it emits a mix of
// ordinary and suspicious traffic against the analyzer so the model
// has something to learn from.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"aegismesh/pkg/config"
	"aegismesh/pkg/logging"
	"aegismesh/pkg/meshclient"
	"aegismesh/pkg/telemetry"
)

var sampleNormal = []telemetry.Event{
	{Service: "http", Path: "/", Payload: "GET /"},
	{Service: "http", Path: "/about", Payload: "info_request"},
	{Service: "http", Path: "/api/status", Payload: "ping"},
}

var sampleSuspicious = []telemetry.Event{
	{Service: "http", Path: "/admin", Payload: "admin_login_attempt"},
	{Service: "ssh", Payload: "root"},
	{Service: "http", Path: "/wp-login.php", Payload: "wp-brute"},
	{Service: "ssh", Payload: "Password: rootpwd"},
}

func main() {
	config.Load()

	analyzerURL := flag.String("analyzer", config.Get("ANALYZER_URL", "http://localhost:9000"), "analyzer base URL")
	mode := flag.String("mode", "simulate", "simulate or oneshot")
	interval := flag.Duration("interval", 3*time.Second, "delay between simulated events")
	suspiciousChance := flag.Float64("suspicious-chance", 0.15, "probability of emitting a suspicious event")
	oneshotEvent := flag.String("event", "", "JSON event for oneshot mode")
	flag.Parse()

	logger := logging.New("mesh-node", config.Get("AEGIS_ENV", "development"), config.Get("AEGIS_LOG_LEVEL", "info"))
	defer logger.Sync()

	client := meshclient.New(*analyzerURL, 3*time.Second)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "simulate":
		simulate(ctx, client, logger, *interval, *suspiciousChance)
	case "oneshot":
		if *oneshotEvent == "" {
			logger.Fatal("oneshot mode requires -event")
		}
		var ev telemetry.Event
		if err := json.Unmarshal([]byte(*oneshotEvent), &ev); err != nil {
			logger.Fatal("invalid -event JSON", zap.Error(err))
		}
		send(ctx, client, logger, ev)
	default:
		logger.Fatal("unknown mode", zap.String("mode", *mode))
	}
}

func simulate(ctx context.Context, client *meshclient.Client, logger *zap.Logger, interval time.Duration, suspiciousChance float64) {
	logger.Info("starting mesh node simulator", zap.Duration("interval", interval), zap.Float64("suspicious_chance", suspiciousChance))

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("simulator stopped")
			return
		case <-ticker.C:
			var ev telemetry.Event
			if rng.Float64() < suspiciousChance {
				ev = sampleSuspicious[rng.Intn(len(sampleSuspicious))]
			} else {
				ev = sampleNormal[rng.Intn(len(sampleNormal))]
			}
			send(ctx, client, logger, ev)
		}
	}
}

func send(ctx context.Context, client *meshclient.Client, logger *zap.Logger, ev telemetry.Event) {
	ev.SourceIP = localIP()
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	resp, err := client.PostEvent(ctx, ev)
	if err != nil {
		logger.Warn("event send failed", zap.String("decoy_service", ev.Service), zap.Error(err))
		return
	}
	logger.Info("event sent",
		zap.String("decoy_service", ev.Service),
		zap.String("path", ev.Path),
		zap.Float64("risk_score", resp.RiskScore))
}

// localIP is a best-effort guess of the node's outbound address.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
