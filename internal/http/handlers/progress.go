package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/http/response"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
	"github.com/yungbote/upwise-backend/internal/services"
)

const (
	defaultActivityLimit = 30
	maxActivityLimit     = 100
)

type ProgressHandler struct {
	log        *logger.Logger
	lessons    services.LessonService
	heartbeats services.HeartbeatService
	summary    services.SummaryService
	reconcile  services.ReconcileService
}

func NewProgressHandler(
	log *logger.Logger,
	lessons services.LessonService,
	heartbeats services.HeartbeatService,
	summary services.SummaryService,
	reconcile services.ReconcileService,
) *ProgressHandler {
	return &ProgressHandler{
		log:        log.With("handler", "ProgressHandler"),
		lessons:    lessons,
		heartbeats: heartbeats,
		summary:    summary,
		reconcile:  reconcile,
	}
}

type markLessonRequest struct {
	CourseID ref.Key `json:"courseId" validate:"required"`
	LessonID ref.Key `json:"lessonId" validate:"required"`
}

// Seconds is untrusted; the service clamps it.
type heartbeatRequest struct {
	CourseID ref.Key `json:"courseId" validate:"required"`
	Seconds  float64 `json:"seconds"`
}

// POST /api/me/progress/mark-lesson
func (h *ProgressHandler) MarkLesson(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	var req markLessonRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	rec, err := h.lessons.MarkLessonComplete(c.Request.Context(), userID, req.CourseID, req.LessonID)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": rec})
}

// POST /api/me/heartbeat
func (h *ProgressHandler) Heartbeat(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	var req heartbeatRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	res, err := h.heartbeats.RecordHeartbeat(c.Request.Context(), userID, req.CourseID, req.Seconds)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/me/progress
func (h *ProgressHandler) Summary(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	sum, err := h.summary.GetProgressSummary(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, sum)
}

// POST /api/me/refresh-progress
func (h *ProgressHandler) Refresh(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	records, err := h.reconcile.RefreshProgress(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": records})
}

// GET /api/courses/:courseId/progress
func (h *ProgressHandler) CourseProgress(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	cp, err := h.summary.CourseProgress(c.Request.Context(), userID, courseParam(c))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, cp)
}

// GET /api/courses/:courseId/module/:moduleId
func (h *ProgressHandler) Module(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	mv, err := h.lessons.GetModule(c.Request.Context(), userID, courseParam(c), ref.Normalize(c.Param("moduleId")))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, mv)
}

// GET /api/me/certificates/:courseId
func (h *ProgressHandler) Certificate(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	ce, err := h.summary.CertificateEligibility(c.Request.Context(), userID, courseParam(c))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, ce)
}

// GET /api/me/badges
func (h *ProgressHandler) Badges(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	badges, err := h.summary.Badges(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"badges": badges})
}

// GET /api/me/activity?limit=
func (h *ProgressHandler) Activity(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", defaultActivityLimit, maxActivityLimit)
	events, err := h.summary.Activity(c.Request.Context(), userID, limit)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"activity": events})
}
