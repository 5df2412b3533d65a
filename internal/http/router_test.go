package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/upwise-backend/internal/data/repos"
	"github.com/yungbote/upwise-backend/internal/data/repos/testutil"
	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	httpH "github.com/yungbote/upwise-backend/internal/http/handlers"
	httpMW "github.com/yungbote/upwise-backend/internal/http/middleware"
	"github.com/yungbote/upwise-backend/internal/http/response"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/clock"
	"github.com/yungbote/upwise-backend/internal/realtime"
	"github.com/yungbote/upwise-backend/internal/services"
)

type apiFixture struct {
	t      *testing.T
	ctx    context.Context
	router *gin.Engine
	auth   services.AuthService
	hub    *realtime.SSEHub
	course *types.Course
}

func newAPIFixture(t *testing.T, heartbeatsPerMinute int) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	log := testutil.Logger(t)
	clk := clock.NewFake(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	hub := realtime.NewSSEHub(log)

	ledger := services.NewLedger(db, repos.NewSet(db, log), services.NewLedgerNotifier(&services.HubEmitter{Hub: hub}), nil, metrics, clk, services.LedgerConfig{})
	auth := services.NewAuthService(log, "test-secret", clk)
	summary := services.NewSummaryService(log, ledger)

	router := NewRouter(RouterConfig{
		Log:             log,
		Metrics:         metrics,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, auth),
		Heartbeats:      httpMW.NewHeartbeatLimiter(heartbeatsPerMinute),
		HealthHandler:   httpH.NewHealthHandler(db),
		CatalogHandler:  httpH.NewCatalogHandler(log, services.NewCatalogService(db, log, repos.NewCourseRepo(db, log))),
		PurchaseHandler: httpH.NewPurchaseHandler(log, services.NewPurchaseService(log, ledger)),
		ProgressHandler: httpH.NewProgressHandler(
			log,
			services.NewLessonService(log, ledger),
			services.NewHeartbeatService(log, ledger),
			summary,
			services.NewReconcileService(log, ledger),
		),
		QuizHandler:     httpH.NewQuizHandler(log, services.NewQuizService(log, ledger)),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
	})

	ctx := context.Background()
	id := ref.Key("c-" + uuid.NewString()[:8])
	course := testutil.SeedCourse(t, ctx, db, testutil.CourseFixture(id, 3))
	return &apiFixture{t: t, ctx: ctx, router: router, auth: auth, hub: hub, course: course}
}

func (f *apiFixture) token(userID uuid.UUID) string {
	f.t.Helper()
	tok, err := f.auth.IssueToken(userID, time.Hour)
	require.NoError(f.t, err)
	return tok
}

func (f *apiFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[response.ErrorEnvelope](t, w).Error.Code
}

func correctAnswers() []map[string]string {
	return []map[string]string{
		{"questionId": "q1", "selectedOptionId": "b"},
		{"questionId": "q2", "selectedOptionId": "b"},
		{"questionId": "q3", "selectedOptionId": "b"},
		{"questionId": "q4", "selectedOptionId": "b"},
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t, 0)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthcheck", "", nil).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz", "", nil).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/metrics", "", nil).Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t, 0)

	w := f.do(http.MethodGet, "/api/me/progress", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "unauthorized", errorCode(t, w))

	w = f.do(http.MethodGet, "/api/me/progress", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCatalogIsPublic(t *testing.T) {
	f := newAPIFixture(t, 0)

	w := f.do(http.MethodGet, "/api/courses/"+f.course.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		Course services.CourseView `json:"course"`
	}](t, w)
	require.Equal(t, f.course.ID, got.Course.ID)

	w = f.do(http.MethodGet, "/api/courses/does-not-exist", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "course_not_found", errorCode(t, w))
}

func TestPurchaseMarkAndPassQuiz(t *testing.T) {
	f := newAPIFixture(t, 0)
	tok := f.token(uuid.New())
	cid := f.course.ID.String()

	w := f.do(http.MethodPost, "/api/purchases", tok, map[string]any{"courseId": cid})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/api/purchases", tok, map[string]any{"courseId": cid})
	require.Equal(t, http.StatusConflict, w.Code)

	for i := 1; i <= 3; i++ {
		w = f.do(http.MethodPost, "/api/me/progress/mark-lesson", tok, map[string]any{
			"courseId": cid,
			"lessonId": testutil.LessonID(i).String(),
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	sum := decode[services.ProgressSummary](t, f.do(http.MethodGet, "/api/me/progress", tok, nil))
	require.Len(t, sum.Progress, 1)
	require.Equal(t, 99, sum.Progress[0].DisplayPercent)
	require.Zero(t, sum.CompletedCount)

	w = f.do(http.MethodPost, "/api/me/quiz/"+cid, tok, map[string]any{
		"answers":          correctAnswers(),
		"timeTakenSeconds": 90,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[services.QuizSubmissionResult](t, w)
	require.True(t, res.CompletedNow)

	sum = decode[services.ProgressSummary](t, f.do(http.MethodGet, "/api/me/progress", tok, nil))
	require.Equal(t, 1, sum.CompletedCount)
	require.Equal(t, 100, sum.Progress[0].DisplayPercent)

	cert := decode[services.CertificateEligibility](t, f.do(http.MethodGet, "/api/me/certificates/"+cid, tok, nil))
	require.True(t, cert.Eligible)
}

func TestMarkLessonRejections(t *testing.T) {
	f := newAPIFixture(t, 0)
	tok := f.token(uuid.New())
	cid := f.course.ID.String()

	w := f.do(http.MethodPost, "/api/me/progress/mark-lesson", tok, map[string]any{"courseId": cid, "lessonId": "lesson-1"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "not_purchased", errorCode(t, w))

	w = f.do(http.MethodPost, "/api/me/progress/mark-lesson", tok, map[string]any{"courseId": cid})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_input", errorCode(t, w))
}

func TestQuizSubmitWithoutAnswersIsInvalid(t *testing.T) {
	f := newAPIFixture(t, 0)
	tok := f.token(uuid.New())
	cid := f.course.ID.String()
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/purchases", tok, map[string]any{"courseId": cid}).Code)

	w := f.do(http.MethodPost, "/api/me/quiz/"+cid, tok, map[string]any{"timeTakenSeconds": 10})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_input", errorCode(t, w))
}

func TestHeartbeatRouteIsRateLimited(t *testing.T) {
	f := newAPIFixture(t, 1)
	tok := f.token(uuid.New())
	cid := f.course.ID.String()
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/purchases", tok, map[string]any{"courseId": cid}).Code)

	w := f.do(http.MethodPost, "/api/me/heartbeat", tok, map[string]any{"courseId": cid, "seconds": 60})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, decode[services.HeartbeatResult](t, w).Accrued)

	w = f.do(http.MethodPost, "/api/me/heartbeat", tok, map[string]any{"courseId": cid, "seconds": 60})
	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestActivityAndBadges(t *testing.T) {
	f := newAPIFixture(t, 0)
	tok := f.token(uuid.New())
	cid := f.course.ID.String()
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/purchases", tok, map[string]any{"courseId": cid}).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/me/quiz/"+cid, tok, map[string]any{"answers": correctAnswers()}).Code)

	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/me/activity?limit=5", tok, nil).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/me/badges", tok, nil).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/courses/"+cid+"/progress", tok, nil).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/me/purchases", tok, nil).Code)
}

func TestEventStreamDeliversUserEvents(t *testing.T) {
	f := newAPIFixture(t, 0)
	userID := uuid.New()
	tok := f.token(userID)
	cid := f.course.ID.String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/me/events?token="+tok, nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.router.ServeHTTP(w, req)
	}()

	channel := realtime.UserChannel(userID)
	require.Eventually(t, func() bool { return f.hub.Subscribers(channel) == 1 }, 2*time.Second, 10*time.Millisecond)

	// The purchase publishes through the same hub the stream listens on.
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/purchases", tok, map[string]any{"courseId": cid}).Code)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	require.True(t, strings.Contains(w.Body.String(), "event: purchase.updated"), w.Body.String())
	require.Zero(t, f.hub.Subscribers(channel))
}
