package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/upwise-backend/internal/http/handlers"
	httpMW "github.com/yungbote/upwise-backend/internal/http/middleware"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

// eventStreamRoute is the route template of the caller's SSE stream.
const eventStreamRoute = "/api/me/events"

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware
	Heartbeats     *httpMW.HeartbeatLimiter

	HealthHandler   *httpH.HealthHandler
	CatalogHandler  *httpH.CatalogHandler
	PurchaseHandler *httpH.PurchaseHandler
	ProgressHandler *httpH.ProgressHandler
	QuizHandler     *httpH.QuizHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics, eventStreamRoute))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Catalog (public)
		if cfg.CatalogHandler != nil {
			api.GET("/courses", cfg.CatalogHandler.ListCourses)
			api.GET("/courses/:courseId", cfg.CatalogHandler.GetCourse)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Purchases
		if cfg.PurchaseHandler != nil {
			protected.POST("/purchases", cfg.PurchaseHandler.Purchase)
			protected.DELETE("/purchases/:courseId", cfg.PurchaseHandler.Cancel)
			protected.POST("/purchases/:courseId/restore", cfg.PurchaseHandler.Restore)
			protected.GET("/me/purchases", cfg.PurchaseHandler.ListMine)
		}

		// Progress
		if cfg.ProgressHandler != nil {
			protected.POST("/me/progress/mark-lesson", cfg.ProgressHandler.MarkLesson)
			protected.POST("/me/heartbeat", cfg.Heartbeats.Middleware(), cfg.ProgressHandler.Heartbeat)
			protected.GET("/me/progress", cfg.ProgressHandler.Summary)
			protected.POST("/me/refresh-progress", cfg.ProgressHandler.Refresh)
			protected.GET("/me/certificates/:courseId", cfg.ProgressHandler.Certificate)
			protected.GET("/me/badges", cfg.ProgressHandler.Badges)
			protected.GET("/me/activity", cfg.ProgressHandler.Activity)
			protected.GET("/courses/:courseId/progress", cfg.ProgressHandler.CourseProgress)
			protected.GET("/courses/:courseId/module/:moduleId", cfg.ProgressHandler.Module)
		}

		// Quiz
		if cfg.QuizHandler != nil {
			protected.GET("/courses/:courseId/quiz", cfg.QuizHandler.GetQuiz)
			protected.POST("/me/quiz/:courseId", cfg.QuizHandler.Submit)
			protected.GET("/me/quiz/:courseId/submissions", cfg.QuizHandler.ListSubmissions)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/me/events", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
