package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"signing-engine/internal/shared/metrics"
	"signing-engine/internal/shared/server/respond"
)

func registerRoutes(r *gin.Engine, sqlDB *sql.DB) {
	r.GET("/healthz", healthHandler(sqlDB))
	r.GET("/metrics", metrics.Handler())
}

// healthHandler reports liveness, plus database reachability when wired.
func healthHandler(sqlDB *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sqlDB != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := sqlDB.PingContext(ctx); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "db_unreachable", "database ping failed", nil)
				return
			}
		}
		respond.OK(c, gin.H{"status": "ok"})
	}
}
