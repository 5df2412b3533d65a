package ctxutil

import "context"

type traceDataKey struct{}

// TraceData identifies one request. CourseID is the normalized :courseId
// route parameter, empty on routes without one.
type TraceData struct {
	TraceID   string
	RequestID string
	CourseID  string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}
