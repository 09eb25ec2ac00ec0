package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"signing-engine/internal/shared/server/middleware"
	"signing-engine/internal/shared/telemetry"
)

// Server exposes liveness and metrics endpoints for the worker process.
type Server struct {
	httpServer *http.Server
}

// New builds the health server. A nil database skips the readiness ping.
func New(port int, sqlDB *sql.DB) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
	)
	registerRoutes(r, sqlDB)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background until Shutdown is called.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Error("health.listen_failed", map[string]any{
				"addr":  s.httpServer.Addr,
				"error": err.Error(),
			})
		}
	}()
	telemetry.Info("health.started", map[string]any{"addr": s.httpServer.Addr})
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
