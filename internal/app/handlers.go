package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/upwise-backend/internal/http/handlers"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
	"github.com/yungbote/upwise-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Catalog  *httpH.CatalogHandler
	Purchase *httpH.PurchaseHandler
	Progress *httpH.ProgressHandler
	Quiz     *httpH.QuizHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Catalog:  httpH.NewCatalogHandler(log, services.Catalog),
		Purchase: httpH.NewPurchaseHandler(log, services.Purchase),
		Progress: httpH.NewProgressHandler(log, services.Lesson, services.Heartbeat, services.Summary, services.Reconcile),
		Quiz:     httpH.NewQuizHandler(log, services.Quiz),
		Realtime: httpH.NewRealtimeHandler(log, sseHub),
	}
}
