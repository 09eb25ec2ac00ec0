package main

// Run the signing worker:
//   go run ./cmd/worker

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"signing-engine/internal/bootstrap"
	"signing-engine/internal/server"
	"signing-engine/internal/shared/config"
	"signing-engine/internal/shared/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	var health *server.Server
	if port, ok := healthPort(cfg); ok {
		health = server.New(port, app.DB)
		health.Start()
	}

	err = app.Engine.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("engine stopped: %v", err)
	}

	if health != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := health.Shutdown(shutdownCtx); err != nil {
			telemetry.Error("health.shutdown_failed", map[string]any{"error": err.Error()})
		}
	}
}

func healthPort(cfg config.Config) (int, bool) {
	raw := strings.TrimSpace(cfg.HealthPort)
	if raw == "" {
		return 0, false
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 {
		log.Printf("invalid HEALTH_PORT %q; health server disabled", raw)
		return 0, false
	}
	return port, true
}
