package app

import (
	apphttp "github.com/yungbote/upwise-backend/internal/http"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *apphttp.Server {
	rc := apphttp.RouterConfig{
		Log:             log,
		CORSOrigins:     cfg.CORSOrigins,
		AuthMiddleware:  middleware.Auth,
		Heartbeats:      middleware.Heartbeats,
		HealthHandler:   handlers.Health,
		CatalogHandler:  handlers.Catalog,
		PurchaseHandler: handlers.Purchase,
		ProgressHandler: handlers.Progress,
		QuizHandler:     handlers.Quiz,
		RealtimeHandler: handlers.Realtime,
	}
	if cfg.MetricsEnabled {
		rc.Metrics = metrics
	}
	if cfg.Otel.Enabled {
		rc.ServiceName = cfg.Otel.ServiceName
	}
	return apphttp.NewServer(rc)
}
