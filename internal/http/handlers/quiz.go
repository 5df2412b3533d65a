package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/upwise-backend/internal/http/response"
	"github.com/yungbote/upwise-backend/internal/learning/quiz"
	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
	"github.com/yungbote/upwise-backend/internal/services"
)

type QuizHandler struct {
	log     *logger.Logger
	quizzes services.QuizService
}

func NewQuizHandler(log *logger.Logger, quizzes services.QuizService) *QuizHandler {
	return &QuizHandler{log: log.With("handler", "QuizHandler"), quizzes: quizzes}
}

// Answers stays a nil slice when the field is absent so the service can
// tell "no answers sent" from "empty answer sheet".
type submitQuizRequest struct {
	Answers          []quiz.Answer `json:"answers"`
	TimeTakenSeconds int           `json:"timeTakenSeconds" validate:"gte=0"`
}

// GET /api/courses/:courseId/quiz
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	q, err := h.quizzes.GetQuiz(c.Request.Context(), userID, courseParam(c))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"quiz": q})
}

// POST /api/me/quiz/:courseId
func (h *QuizHandler) Submit(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	var req submitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, h.log, apierr.InvalidInput("invalid request body: %v", err))
		return
	}
	// Negative durations are clamped by the service, not rejected.
	if req.TimeTakenSeconds < 0 {
		req.TimeTakenSeconds = 0
	}
	if err := validate.Struct(req); err != nil {
		response.RespondErr(c, h.log, apierr.InvalidInput("%s", describeValidation(err)))
		return
	}
	res, err := h.quizzes.SubmitQuiz(c.Request.Context(), userID, courseParam(c), req.Answers, req.TimeTakenSeconds)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/me/quiz/:courseId/submissions
func (h *QuizHandler) ListSubmissions(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	rows, err := h.quizzes.ListSubmissions(c.Request.Context(), userID, courseParam(c))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"submissions": rows})
}
