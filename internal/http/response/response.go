package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr maps a service error onto the envelope. Typed errors keep their
// status and code; anything else is logged and hidden behind a 500.
func RespondErr(c *gin.Context, log *logger.Logger, err error) {
	status := apierr.StatusOf(err)
	code := apierr.CodeOf(err)
	if status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed", "path", c.FullPath(), "error", err)
		}
		RespondError(c, status, code, nil)
		c.Abort()
		return
	}
	RespondError(c, status, code, err)
	c.Abort()
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
