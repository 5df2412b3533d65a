package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/upwise-backend/internal/data/cache"
	"github.com/yungbote/upwise-backend/internal/data/repos"
	"github.com/yungbote/upwise-backend/internal/data/repos/testutil"
	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/learning/quiz"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/clock"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/realtime"
)

var testStart = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	e.msgs = append(e.msgs, msg)
	e.mu.Unlock()
}

func (e *recordingEmitter) events() []realtime.SSEEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]realtime.SSEEvent, 0, len(e.msgs))
	for _, m := range e.msgs {
		out = append(out, m.Event)
	}
	return out
}

type memSummaryCache struct {
	mu            sync.Mutex
	data          map[uuid.UUID][]byte
	gens          map[uuid.UUID]int64
	hits          int
	invalidations int
	// beforeSet runs once, ahead of the next Set, outside the lock.
	beforeSet func()
}

func newMemSummaryCache() *memSummaryCache {
	return &memSummaryCache{data: map[uuid.UUID][]byte{}, gens: map[uuid.UUID]int64{}}
}

func (c *memSummaryCache) Get(_ context.Context, userID uuid.UUID) (cache.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[userID]
	if ok {
		c.hits++
	}
	return cache.Entry{Raw: raw, Generation: c.gens[userID]}, nil
}

func (c *memSummaryCache) Set(_ context.Context, userID uuid.UUID, generation int64, raw []byte) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] == generation {
		c.data[userID] = raw
	}
	return nil
}

func (c *memSummaryCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	delete(c.data, userID)
	c.gens[userID]++
	c.invalidations++
	c.mu.Unlock()
	return nil
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	clock *clock.Fake
	emit  *recordingEmitter
	cache *memSummaryCache

	ledger     *Ledger
	purchases  PurchaseService
	lessons    LessonService
	heartbeats HeartbeatService
	quizzes    QuizService
	summary    SummaryService
	reconcile  ReconcileService
}

func newHarness(t *testing.T, cfg LedgerConfig) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		clock: clock.NewFake(testStart),
		emit:  &recordingEmitter{},
		cache: newMemSummaryCache(),
	}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	h.ledger = NewLedger(db, repos.NewSet(db, log), NewLedgerNotifier(h.emit), h.cache, metrics, h.clock, cfg)
	h.purchases = NewPurchaseService(log, h.ledger)
	h.lessons = NewLessonService(log, h.ledger)
	h.heartbeats = NewHeartbeatService(log, h.ledger)
	h.quizzes = NewQuizService(log, h.ledger)
	h.summary = NewSummaryService(log, h.ledger)
	h.reconcile = NewReconcileService(log, h.ledger)
	return h
}

// course seeds a fixture course with a unique id so tests can share a
// Postgres database.
func (h *harness) course(lessons int) *types.Course {
	h.t.Helper()
	id := ref.Key("c-" + uuid.NewString()[:8])
	return testutil.SeedCourse(h.t, h.ctx, h.db, testutil.CourseFixture(id, lessons))
}

func (h *harness) buy(userID uuid.UUID, courseID ref.Key) *PurchaseResult {
	h.t.Helper()
	res, err := h.purchases.Purchase(h.ctx, userID, courseID)
	require.NoError(h.t, err)
	return res
}

func (h *harness) markAll(userID uuid.UUID, c *types.Course) *types.ProgressRecord {
	h.t.Helper()
	var rec *types.ProgressRecord
	for _, id := range c.LessonIDs() {
		var err error
		rec, err = h.lessons.MarkLessonComplete(h.ctx, userID, c.ID, id)
		require.NoError(h.t, err)
	}
	return rec
}

func (h *harness) record(userID uuid.UUID, courseID ref.Key) *types.ProgressRecord {
	h.t.Helper()
	rec, err := h.ledger.Records.Get(dbctx.Context{Ctx: h.ctx}, userID, courseID)
	require.NoError(h.t, err)
	return rec
}

// answers builds a submission for the fixture quiz with the first `correct`
// questions answered right and the rest wrong.
func answers(correct int) []quiz.Answer {
	out := make([]quiz.Answer, 0, 4)
	for i, qid := range []ref.Key{"q1", "q2", "q3", "q4"} {
		opt := ref.Key("a")
		if i < correct {
			opt = "b"
		}
		out = append(out, quiz.Answer{QuestionID: qid, SelectedOptionID: opt})
	}
	return out
}
