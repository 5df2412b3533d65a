package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"

	attrCourseID = attribute.Key("upwise.course_id")
	attrModuleID = attribute.Key("upwise.module_id")
)

// AttachTraceContext stamps every request with trace and request ids and,
// on course-scoped routes, the canonical course id. The ids are echoed in
// response headers and the course id is added to the active span.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		span := trace.SpanFromContext(c.Request.Context())
		traceID := strings.TrimSpace(c.GetHeader(headerTraceID))
		if traceID == "" && span.SpanContext().HasTraceID() {
			traceID = span.SpanContext().TraceID().String()
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}

		td := &ctxutil.TraceData{TraceID: traceID, RequestID: reqID}
		// Param values are the raw path segment; "007" and "7" are one course.
		if courseID := ref.Normalize(c.Param("courseId")); !courseID.IsZero() {
			td.CourseID = courseID.String()
			span.SetAttributes(attrCourseID.String(td.CourseID))
			c.Set("course_id", td.CourseID)
		}
		if moduleID := ref.Normalize(c.Param("moduleId")); !moduleID.IsZero() {
			span.SetAttributes(attrModuleID.String(moduleID.String()))
		}

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}
