package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/learning/progress"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

// legacyUserNamespace derives stable user ids for legacy documents that only
// carry a document id.
var legacyUserNamespace = uuid.MustParse("6b1f8f0e-6c1a-4a53-9d57-3f4b0c1d2e7a")

// LegacyTime accepts RFC 3339 strings, epoch milliseconds and {"$date": ...}
// wrappers as found in document-store exports.
type LegacyTime struct {
	time.Time
}

func (t *LegacyTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("legacy time %q: %w", s, err)
		}
		t.Time = parsed.UTC()
		return nil
	case '{':
		var wrapped struct {
			Date json.RawMessage `json:"$date"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		return t.UnmarshalJSON(wrapped.Date)
	default:
		var ms int64
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("legacy time %s: %w", data, err)
		}
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
}

func (t *LegacyTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type LegacyPurchase struct {
	CourseID    ref.Key     `json:"courseId"`
	Price       float64     `json:"price"`
	Status      string      `json:"status"`
	PurchasedAt *LegacyTime `json:"purchasedAt"`
	CancelledAt *LegacyTime `json:"cancelledAt"`
}

type LegacyProgress struct {
	CourseID         ref.Key     `json:"courseId"`
	Percent          float64     `json:"percent"`
	HoursLearned     float64     `json:"hoursLearned"`
	CompletedLessons []ref.Key   `json:"completedLessons"`
	QuizPassed       bool        `json:"quizPassed"`
	CompletedAt      *LegacyTime `json:"completedAt"`
	LastSeenAt       *LegacyTime `json:"lastSeenAt"`
}

// LegacyUser is one user document of the legacy export.
type LegacyUser struct {
	DocID            ref.Key          `json:"_id"`
	UserID           string           `json:"userId"`
	PurchasedCourses []LegacyPurchase `json:"purchasedCourses"`
	Progress         []LegacyProgress `json:"progress"`
}

func (u LegacyUser) resolveID() (uuid.UUID, error) {
	if s := strings.TrimSpace(u.UserID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return uuid.Nil, fmt.Errorf("userId %q: %w", s, err)
		}
		return id, nil
	}
	if u.DocID.IsZero() {
		return uuid.Nil, fmt.Errorf("document has neither userId nor _id")
	}
	return uuid.NewSHA1(legacyUserNamespace, []byte(u.DocID)), nil
}

type ImportReport struct {
	Users              int      `json:"users"`
	RecordsMerged      int      `json:"recordsMerged"`
	PurchasesCreated   int      `json:"purchasesCreated"`
	DuplicateEntries   int      `json:"duplicateEntries"`
	SkippedUnknownIDs  []string `json:"skippedUnknownIds,omitempty"`
	SkippedUserReasons []string `json:"skippedUsers,omitempty"`
}

type ReconcileService interface {
	// RefreshProgress rebuilds each of the user's records from the quiz
	// submission log and the current curriculum.
	RefreshProgress(ctx context.Context, userID uuid.UUID) ([]*types.ProgressRecord, error)
	RefreshAll(ctx context.Context) (int, error)
	ImportLegacy(ctx context.Context, r io.Reader) (*ImportReport, error)
}

type reconcileService struct {
	*Ledger
	log *logger.Logger
}

func NewReconcileService(baseLog *logger.Logger, ledger *Ledger) ReconcileService {
	return &reconcileService{Ledger: ledger, log: baseLog.With("service", "ReconcileService")}
}

func (s *reconcileService) RefreshProgress(ctx context.Context, userID uuid.UUID) ([]*types.ProgressRecord, error) {
	ctx, span := observability.StartSpan(ctx, "reconcile.refresh")
	defer span.End()

	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("missing user")
	}
	dbc := dbctx.Context{Ctx: ctx}
	records, err := s.Records.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	subs, err := s.Submissions.ListByUser(dbc, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	firstPass := map[ref.Key]time.Time{}
	for _, sub := range subs {
		if !sub.Passed {
			continue
		}
		if at, ok := firstPass[sub.CourseID]; !ok || sub.SubmittedAt.Before(at) {
			firstPass[sub.CourseID] = sub.SubmittedAt
		}
	}

	ids := make([]ref.Key, 0, len(records)+len(firstPass))
	for _, r := range records {
		ids = append(ids, r.CourseID)
	}
	for id := range firstPass {
		ids = append(ids, id)
	}
	ids = ref.Set(ids...)
	courses, err := s.Courses.GetByIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	byID := make(map[ref.Key]*types.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}

	out := make([]*types.ProgressRecord, 0, len(ids))
	err = s.inTx(dbc, func(inner dbctx.Context) error {
		out = out[:0]
		for _, id := range ids {
			passedAt, passed := firstPass[id]
			curriculum := lessonIDs(byID[id])
			rec, err := s.mutate(inner, userID, id, "refresh", func(rec *types.ProgressRecord) {
				if passed {
					rec.QuizPassed = true
					if rec.CompletedAt == nil {
						at := passedAt.UTC()
						rec.CompletedAt = &at
					}
				}
				rec.HoursLearned = progress.SanitizeHours(rec.HoursLearned, s.Config.MaxHoursPerCourse)
				rec.CompletedLessons = datatypes.JSONSlice[ref.Key](ref.Set(rec.CompletedLessons...))
				rec.Percent = progress.Rederive(rec.Percent, rec, curriculum)
			})
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, s.log, userID)
	for _, rec := range out {
		s.Notifier.ProgressUpdated(ctx, userID, rec)
	}
	s.log.Info("progress refreshed", "user_id", userID, "records", len(out))
	return out, nil
}

func (s *reconcileService) RefreshAll(ctx context.Context) (int, error) {
	userIDs, err := s.Records.ListUserIDs(dbctx.Context{Ctx: ctx})
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	n := 0
	for _, id := range userIDs {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := s.RefreshProgress(ctx, id); err != nil {
			return n, fmt.Errorf("refresh user %s: %w", id, err)
		}
		n++
	}
	return n, nil
}

func (s *reconcileService) ImportLegacy(ctx context.Context, r io.Reader) (*ImportReport, error) {
	ctx, span := observability.StartSpan(ctx, "reconcile.import_legacy")
	defer span.End()

	var docs []LegacyUser
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, apierr.InvalidInput("decode legacy export: %v", err)
	}
	report := &ImportReport{}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		userID, err := doc.resolveID()
		if err != nil {
			report.SkippedUserReasons = append(report.SkippedUserReasons, err.Error())
			continue
		}
		if err := s.importUser(ctx, userID, doc, report); err != nil {
			return report, fmt.Errorf("import user %s: %w", userID, err)
		}
		report.Users++
		s.changed(ctx, s.log, userID)
	}
	s.log.Info("legacy import finished",
		"users", report.Users,
		"records", report.RecordsMerged,
		"purchases", report.PurchasesCreated,
		"duplicates", report.DuplicateEntries,
	)
	return report, nil
}

func (s *reconcileService) importUser(ctx context.Context, userID uuid.UUID, doc LegacyUser, report *ImportReport) error {
	dbc := dbctx.Context{Ctx: ctx}
	grouped := map[ref.Key][]*types.ProgressRecord{}
	var order []ref.Key
	for _, e := range doc.Progress {
		id := ref.Normalize(e.CourseID)
		if id.IsZero() {
			continue
		}
		if _, ok := grouped[id]; !ok {
			order = append(order, id)
		} else {
			report.DuplicateEntries++
		}
		grouped[id] = append(grouped[id], legacyRecord(userID, id, e))
	}

	// Counts are staged per attempt and folded into report only on commit.
	var tally ImportReport
	err := s.inTx(dbc, func(inner dbctx.Context) error {
		tally = ImportReport{}
		for _, p := range doc.PurchasedCourses {
			created, err := s.importPurchase(inner, userID, p, &tally)
			if err != nil {
				return err
			}
			if created {
				tally.PurchasesCreated++
			}
		}
		for _, id := range order {
			course, err := s.Courses.GetByID(inner, id)
			if err != nil {
				return fmt.Errorf("load course: %w", err)
			}
			if course == nil {
				tally.SkippedUnknownIDs = append(tally.SkippedUnknownIDs, id.String())
				continue
			}
			curriculum := course.LessonIDs()
			legacy := progress.Reconcile(curriculum, s.Config.MaxHoursPerCourse, grouped[id]...)
			_, err = s.mutate(inner, userID, id, "import", func(rec *types.ProgressRecord) {
				merged := progress.Reconcile(curriculum, s.Config.MaxHoursPerCourse, rec, legacy)
				rec.Percent = merged.Percent
				rec.HoursLearned = merged.HoursLearned
				rec.CompletedLessons = merged.CompletedLessons
				rec.QuizPassed = merged.QuizPassed
				rec.CompletedAt = merged.CompletedAt
				rec.LastSeenAt = merged.LastSeenAt
				// A record created just now for the import carries no history of its own.
				if rec.Version == 0 && !legacy.LastSeenAt.IsZero() {
					rec.LastSeenAt = legacy.LastSeenAt
				}
			})
			if err != nil {
				return err
			}
			tally.RecordsMerged++
		}
		return nil
	})
	if err != nil {
		return err
	}
	report.PurchasesCreated += tally.PurchasesCreated
	report.RecordsMerged += tally.RecordsMerged
	report.SkippedUnknownIDs = append(report.SkippedUnknownIDs, tally.SkippedUnknownIDs...)
	return nil
}

// importPurchase creates the purchase row when none exists. Existing rows are
// authoritative and left alone.
func (s *reconcileService) importPurchase(dbc dbctx.Context, userID uuid.UUID, p LegacyPurchase, report *ImportReport) (bool, error) {
	id := ref.Normalize(p.CourseID)
	if id.IsZero() {
		return false, nil
	}
	course, err := s.Courses.GetByID(dbc, id)
	if err != nil {
		return false, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		report.SkippedUnknownIDs = append(report.SkippedUnknownIDs, id.String())
		return false, nil
	}
	existing, err := s.Purchases.Get(dbc, userID, id)
	if err != nil {
		return false, fmt.Errorf("load purchase: %w", err)
	}
	if existing != nil {
		return false, nil
	}
	row := &types.Purchase{
		UserID:   userID,
		CourseID: id,
		Price:    p.Price,
		Status:   types.PurchaseActive,
	}
	if strings.EqualFold(strings.TrimSpace(p.Status), types.PurchaseCancelled) {
		row.Status = types.PurchaseCancelled
		row.CancelledAt = p.CancelledAt.ptr()
	}
	if at := p.PurchasedAt.ptr(); at != nil {
		row.PurchasedAt = *at
	} else {
		row.PurchasedAt = s.now()
	}
	if err := s.Purchases.Create(dbc, row); err != nil {
		return false, fmt.Errorf("create purchase: %w", err)
	}
	return true, nil
}

func legacyRecord(userID uuid.UUID, courseID ref.Key, e LegacyProgress) *types.ProgressRecord {
	rec := &types.ProgressRecord{
		UserID:           userID,
		CourseID:         courseID,
		Percent:          int(e.Percent + 0.5),
		HoursLearned:     e.HoursLearned,
		CompletedLessons: datatypes.JSONSlice[ref.Key](ref.Set(e.CompletedLessons...)),
		QuizPassed:       e.QuizPassed,
		CompletedAt:      e.CompletedAt.ptr(),
	}
	if at := e.LastSeenAt.ptr(); at != nil {
		rec.LastSeenAt = *at
	}
	return rec
}
