package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yaroing/feedback-platform/internal/config"
	infragin "github.com/yaroing/feedback-platform/infrastructure/gin"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

// HealthDeps are the pings behind /health. Redis may be nil when blobs are kept in
// memory; it is reported as degraded rather than unhealthy when it fails.
type HealthDeps struct {
	Database func(ctx context.Context) error
	Redis    func(ctx context.Context) error
}

// NewServer creates the ops HTTP server using the infrastructure gin package.
func NewServer(
	handler *Handler,
	cfg *config.Config,
	metrics http.Handler,
	health HealthDeps,
	log infralogger.Logger,
) *infragin.Server {
	checks := map[string]infragin.HealthChecker{}
	if health.Database != nil {
		checks["database"] = infragin.PingChecker("database", infragin.HealthStatusUnhealthy, health.Database)
	}
	if health.Redis != nil {
		checks["redis"] = infragin.PingChecker("redis", infragin.HealthStatusDegraded, health.Redis)
	}

	serverCfg := &infragin.Config{
		Port:           cfg.Service.Port,
		Debug:          cfg.Service.Debug,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
	}

	return infragin.NewServer(serverCfg, log, infragin.HealthOptions{Checks: checks}, func(router *gin.Engine) {
		SetupRoutes(router, handler, metrics)
	})
}
