package app

import (
	httpMW "github.com/yungbote/upwise-backend/internal/http/middleware"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

type Middleware struct {
	Auth       *httpMW.AuthMiddleware
	Heartbeats *httpMW.HeartbeatLimiter
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:       httpMW.NewAuthMiddleware(log, services.Auth),
		Heartbeats: httpMW.NewHeartbeatLimiter(cfg.HeartbeatsPerMinute),
	}
}
