package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/http/response"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
	"github.com/yungbote/upwise-backend/internal/services"
)

type PurchaseHandler struct {
	log       *logger.Logger
	purchases services.PurchaseService
}

func NewPurchaseHandler(log *logger.Logger, purchases services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{log: log.With("handler", "PurchaseHandler"), purchases: purchases}
}

type purchaseRequest struct {
	CourseID ref.Key `json:"courseId" validate:"required"`
}

// POST /api/purchases
func (h *PurchaseHandler) Purchase(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	var req purchaseRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	res, err := h.purchases.Purchase(c.Request.Context(), userID, req.CourseID)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, res)
}

// DELETE /api/purchases/:courseId
func (h *PurchaseHandler) Cancel(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	res, err := h.purchases.Cancel(c.Request.Context(), userID, courseParam(c))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/purchases/:courseId/restore
func (h *PurchaseHandler) Restore(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	res, err := h.purchases.Restore(c.Request.Context(), userID, courseParam(c))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/me/purchases
func (h *PurchaseHandler) ListMine(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	rows, err := h.purchases.List(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"purchases": rows})
}
