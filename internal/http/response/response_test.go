package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

func respond(err error) (*httptest.ResponseRecorder, ErrorEnvelope) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondErr(c, logger.NewNop(), err)
	var env ErrorEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestRespondErrKeepsTypedStatus(t *testing.T) {
	rec, env := respond(fmt.Errorf("wrap: %w", apierr.NotPurchased("course 7 is not purchased")))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: want=403 got=%d", rec.Code)
	}
	if env.Error.Code != apierr.CodeNotPurchased {
		t.Fatalf("code: want=%q got=%q", apierr.CodeNotPurchased, env.Error.Code)
	}
	if env.Error.Message == "" {
		t.Fatalf("message should describe the failure")
	}
}

func TestRespondErrHidesInternalDetail(t *testing.T) {
	rec, env := respond(errors.New("pq: connection refused to 10.0.0.3"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", rec.Code)
	}
	if env.Error.Code != apierr.CodeInternal {
		t.Fatalf("code: want=%q got=%q", apierr.CodeInternal, env.Error.Code)
	}
	if env.Error.Message != "unknown error" {
		t.Fatalf("message leaked: %q", env.Error.Message)
	}
}
