package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/upwise-backend/internal/data/cache"
	"github.com/yungbote/upwise-backend/internal/data/db"
	"github.com/yungbote/upwise-backend/internal/data/repos"
	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/learning/progress"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/platform/clock"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

const (
	DefaultHeartbeatMaxSeconds = 3600.0
	DefaultMaxWriteRetries     = 5
)

type LedgerConfig struct {
	MaxHoursPerCourse   float64
	HeartbeatMaxSeconds float64
	StreakLocation      *time.Location
	MaxWriteRetries     int
}

func (c LedgerConfig) withDefaults() LedgerConfig {
	if c.MaxHoursPerCourse <= 0 {
		c.MaxHoursPerCourse = progress.DefaultMaxHoursPerCourse
	}
	if c.HeartbeatMaxSeconds <= 0 {
		c.HeartbeatMaxSeconds = DefaultHeartbeatMaxSeconds
	}
	if c.StreakLocation == nil {
		c.StreakLocation = time.UTC
	}
	if c.MaxWriteRetries <= 0 {
		c.MaxWriteRetries = DefaultMaxWriteRetries
	}
	return c
}

// Ledger bundles the collaborators shared by every service that reads or
// writes progress. Nil Notifier, Cache and Metrics are allowed.
type Ledger struct {
	DB          *gorm.DB
	Courses     repos.CourseRepo
	Purchases   repos.PurchaseRepo
	Records     repos.ProgressRecordRepo
	Submissions repos.QuizSubmissionRepo
	Activity    repos.ActivityRepo
	Notifier    LedgerNotifier
	Cache       cache.SummaryCache
	Metrics     *observability.Metrics
	Clock       clock.Clock
	Config      LedgerConfig
}

func NewLedger(db *gorm.DB, r repos.Set, notifier LedgerNotifier, summaryCache cache.SummaryCache, metrics *observability.Metrics, clk clock.Clock, cfg LedgerConfig) *Ledger {
	if notifier == nil {
		notifier = NewLedgerNotifier(nil)
	}
	if summaryCache == nil {
		summaryCache = cache.NewNoopSummaryCache()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Ledger{
		DB:          db,
		Courses:     r.Course,
		Purchases:   r.Purchase,
		Records:     r.ProgressRecord,
		Submissions: r.QuizSubmission,
		Activity:    r.Activity,
		Notifier:    notifier,
		Cache:       summaryCache,
		Metrics:     metrics,
		Clock:       clk,
		Config:      cfg.withDefaults(),
	}
}

func (l *Ledger) now() time.Time { return l.Clock.Now().UTC() }

// inTx runs fn inside dbc's transaction, opening one when dbc has none.
// fn may run twice, so it must not leak side effects outside the transaction.
func (l *Ledger) inTx(dbc dbctx.Context, fn func(inner dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	run := func() error {
		return l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbc.Inner(tx))
		})
	}
	// Serialization failures and deadlocks get one more attempt.
	err := run()
	if db.IsRetryable(err) && ctx.Err() == nil {
		err = run()
	}
	return err
}

func (l *Ledger) course(dbc dbctx.Context, courseID ref.Key) (*types.Course, error) {
	if courseID.IsZero() {
		return nil, apierr.InvalidInput("courseId is required")
	}
	c, err := l.Courses.GetByID(dbc, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if c == nil {
		return nil, apierr.NotFound(apierr.CodeCourseNotFound, "course %s not found", courseID)
	}
	return c, nil
}

// activePurchase returns the caller's active purchase or a not_purchased error.
func (l *Ledger) activePurchase(dbc dbctx.Context, userID uuid.UUID, courseID ref.Key) (*types.Purchase, error) {
	p, err := l.Purchases.Get(dbc, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	if p == nil || !p.Active() {
		return nil, apierr.NotPurchased("course %s is not purchased", courseID)
	}
	return p, nil
}

// mutate applies fn to the stored record for the pair and writes it back with
// a version check, re-reading and re-applying on a lost race. fn must be one
// of the commutative ledger rules so a retry converges on the same state.
func (l *Ledger) mutate(dbc dbctx.Context, userID uuid.UUID, courseID ref.Key, name string, fn func(rec *types.ProgressRecord)) (*types.ProgressRecord, error) {
	if err := l.Records.EnsureExists(dbc, progress.New(userID, courseID, l.now())); err != nil {
		return nil, fmt.Errorf("%s: ensure record: %w", name, err)
	}
	for attempt := 0; attempt < l.Config.MaxWriteRetries; attempt++ {
		rec, err := l.Records.Get(dbc, userID, courseID)
		if err != nil {
			return nil, fmt.Errorf("%s: load record: %w", name, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("%s: record missing after ensure", name)
		}
		expected := rec.Version
		fn(rec)
		ok, err := l.Records.UpdateIfVersion(dbc, rec, expected)
		if err != nil {
			return nil, fmt.Errorf("%s: write record: %w", name, err)
		}
		if ok {
			return rec, nil
		}
		l.Metrics.IncVersionConflict(name)
	}
	return nil, apierr.Conflict("%s: too many concurrent updates for course %s", name, courseID)
}

// changed drops the cached summary for userID. Failures only cost freshness
// until the cache TTL expires.
func (l *Ledger) changed(ctx context.Context, log *logger.Logger, userID uuid.UUID) {
	if err := l.Cache.Invalidate(ctx, userID); err != nil {
		log.Warn("summary cache invalidate failed", "user_id", userID, "error", err)
	}
}

func lessonIDs(c *types.Course) []ref.Key {
	if c == nil {
		return nil
	}
	return c.LessonIDs()
}
