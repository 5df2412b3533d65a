package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/http/response"
	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/platform/ctxutil"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// requireUser returns the authenticated caller or writes a 401.
func requireUser(c *gin.Context, log *logger.Logger) (uuid.UUID, bool) {
	userID := ctxutil.UserID(c.Request.Context())
	if userID == uuid.Nil {
		response.RespondErr(c, log, apierr.Unauthorized("not authenticated"))
		return uuid.Nil, false
	}
	return userID, true
}

// bindJSON decodes and validates the body into dst, writing a 400 on failure.
func bindJSON(c *gin.Context, log *logger.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondErr(c, log, apierr.InvalidInput("invalid request body: %v", err))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		response.RespondErr(c, log, apierr.InvalidInput("%s", describeValidation(err)))
		return false
	}
	return true
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fieldName(fe.Field())+" is "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func fieldName(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func courseParam(c *gin.Context) ref.Key {
	return ref.Normalize(c.Param("courseId"))
}

func intQuery(c *gin.Context, name string, def, max int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
