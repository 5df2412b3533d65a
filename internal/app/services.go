package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/upwise-backend/internal/data/cache"
	"github.com/yungbote/upwise-backend/internal/data/repos"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/clock"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
	"github.com/yungbote/upwise-backend/internal/realtime"
	"github.com/yungbote/upwise-backend/internal/services"
)

type Services struct {
	Auth    services.AuthService
	Catalog services.CatalogService

	Ledger    *services.Ledger
	Purchase  services.PurchaseService
	Lesson    services.LessonService
	Heartbeat services.HeartbeatService
	Quiz      services.QuizService
	Summary   services.SummaryService
	Reconcile services.ReconcileService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, sseHub *realtime.SSEHub, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	var emitter services.SSEEmitter
	if clients.SSEBus != nil {
		// Publish to Redis; every replica's forwarder fans out to its own hub.
		emitter = &services.RedisEmitter{Bus: clients.SSEBus, Log: log, Metrics: metrics}
	} else {
		emitter = &services.HubEmitter{Hub: sseHub}
	}

	summaryCache := clients.SummaryCache
	if summaryCache == nil {
		summaryCache = cache.NewNoopSummaryCache()
	}

	repoSet := repos.NewSet(db, log)
	ledger := services.NewLedger(db, repoSet, services.NewLedgerNotifier(emitter), summaryCache, metrics, clock.System(), cfg.Ledger)

	return Services{
		Auth:      services.NewAuthService(log, cfg.JWTSecretKey, clock.System()),
		Catalog:   services.NewCatalogService(db, log, repoSet.Course),
		Ledger:    ledger,
		Purchase:  services.NewPurchaseService(log, ledger),
		Lesson:    services.NewLessonService(log, ledger),
		Heartbeat: services.NewHeartbeatService(log, ledger),
		Quiz:      services.NewQuizService(log, ledger),
		Summary:   services.NewSummaryService(log, ledger),
		Reconcile: services.NewReconcileService(log, ledger),
	}
}
