package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/learning/achievements"
	"github.com/yungbote/upwise-backend/internal/learning/progress"
	"github.com/yungbote/upwise-backend/internal/learning/streak"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

// streakLookbackDays bounds how far back activity days are read. Longer
// streaks are capped at this length.
const streakLookbackDays = 366

// ProgressView exposes the stored percent alongside the 99% display rule so
// clients can pick either.
type ProgressView struct {
	CourseID            ref.Key    `json:"courseId"`
	Percent             int        `json:"percent"`
	DisplayPercent      int        `json:"displayPercent"`
	HoursLearned        float64    `json:"hoursLearned"`
	CompletedLessons    []ref.Key  `json:"completedLessons"`
	QuizPassed          bool       `json:"quizPassed"`
	CompletedAt         *time.Time `json:"completedAt"`
	LastSeenAt          time.Time  `json:"lastSeenAt"`
	PurchaseStatus      string     `json:"purchaseStatus"`
	CertificateEligible bool       `json:"certificateEligible"`
}

type ProgressSummary struct {
	PurchasedCourses []PurchaseView `json:"purchasedCourses"`
	Progress         []ProgressView `json:"progress"`
	CompletedCount   int            `json:"completedCount"`
	HoursLearned     float64        `json:"hoursLearned"`
	StreakDays       int            `json:"streakDays"`
	ActiveCourses    int            `json:"activeCourses"`
}

type CertificateEligibility struct {
	CourseID       ref.Key    `json:"courseId"`
	CourseTitle    string     `json:"courseTitle"`
	Eligible       bool       `json:"eligible"`
	Percent        int        `json:"percent"`
	QuizPassed     bool       `json:"quizPassed"`
	PurchaseActive bool       `json:"purchaseActive"`
	CompletedAt    *time.Time `json:"completedAt"`
}

type CourseProgress struct {
	Progress   ProgressView        `json:"progress"`
	Curriculum []progress.ItemView `json:"curriculum"`
}

type SummaryService interface {
	// GetProgressSummary builds the dashboard read model. Totals count only
	// courses whose purchase is active.
	GetProgressSummary(ctx context.Context, userID uuid.UUID) (*ProgressSummary, error)
	CertificateEligibility(ctx context.Context, userID uuid.UUID, courseID ref.Key) (*CertificateEligibility, error)
	CourseProgress(ctx context.Context, userID uuid.UUID, courseID ref.Key) (*CourseProgress, error)
	Badges(ctx context.Context, userID uuid.UUID) ([]achievements.Badge, error)
	Activity(ctx context.Context, userID uuid.UUID, limit int) ([]achievements.Event, error)
}

type summaryService struct {
	*Ledger
	log   *logger.Logger
	group singleflight.Group
}

func NewSummaryService(baseLog *logger.Logger, ledger *Ledger) SummaryService {
	return &summaryService{Ledger: ledger, log: baseLog.With("service", "SummaryService")}
}

func (s *summaryService) GetProgressSummary(ctx context.Context, userID uuid.UUID) (*ProgressSummary, error) {
	ctx, span := observability.StartSpan(ctx, "summary.get")
	defer span.End()

	entry, err := s.Cache.Get(ctx, userID)
	cacheable := err == nil
	switch {
	case err != nil:
		s.Metrics.IncSummaryCache("error")
		s.log.Warn("summary cache get failed", "user_id", userID, "error", err)
	case entry.Hit():
		var cached ProgressSummary
		if err := json.Unmarshal(entry.Raw, &cached); err == nil {
			s.Metrics.IncSummaryCache("hit")
			return &cached, nil
		}
		s.Metrics.IncSummaryCache("error")
	default:
		s.Metrics.IncSummaryCache("miss")
	}

	v, err, _ := s.group.Do(userID.String(), func() (interface{}, error) {
		sum, err := s.build(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !cacheable {
			return sum, nil
		}
		// A mutation that invalidated after entry was read bumps the
		// generation, and the cache refuses this summary.
		if raw, err := json.Marshal(sum); err == nil {
			if err := s.Cache.Set(ctx, userID, entry.Generation, raw); err != nil {
				s.log.Warn("summary cache set failed", "user_id", userID, "error", err)
			}
		}
		return sum, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ProgressSummary), nil
}

type userLedger struct {
	purchases []*types.Purchase
	records   []*types.ProgressRecord
	days      []string
	status    map[ref.Key]string
}

func (u *userLedger) active(courseID ref.Key) bool {
	return u.status[courseID] == types.PurchaseActive
}

// activeRecords are the records that count toward totals and badges.
func (u *userLedger) activeRecords() []*types.ProgressRecord {
	out := make([]*types.ProgressRecord, 0, len(u.records))
	for _, r := range u.records {
		if u.active(r.CourseID) {
			out = append(out, r)
		}
	}
	return out
}

func (s *summaryService) load(ctx context.Context, userID uuid.UUID) (*userLedger, error) {
	var u userLedger
	since := streak.Day(s.now().AddDate(0, 0, -streakLookbackDays), s.Config.StreakLocation)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.Purchases.ListByUser(dbctx.Context{Ctx: gctx}, userID)
		if err != nil {
			return fmt.Errorf("list purchases: %w", err)
		}
		u.purchases = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.Records.ListByUser(dbctx.Context{Ctx: gctx}, userID)
		if err != nil {
			return fmt.Errorf("list progress: %w", err)
		}
		u.records = rows
		return nil
	})
	g.Go(func() error {
		days, err := s.Ledger.Activity.ListDaysSince(dbctx.Context{Ctx: gctx}, userID, since)
		if err != nil {
			return fmt.Errorf("list activity days: %w", err)
		}
		u.days = days
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	u.status = make(map[ref.Key]string, len(u.purchases))
	for _, p := range u.purchases {
		u.status[p.CourseID] = p.Status
	}
	return &u, nil
}

func (s *summaryService) build(ctx context.Context, userID uuid.UUID) (*ProgressSummary, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	purchased, err := purchaseViews(dbctx.Context{Ctx: ctx}, s.Ledger, u.purchases)
	if err != nil {
		return nil, err
	}

	sum := &ProgressSummary{
		PurchasedCourses: purchased,
		Progress:         make([]ProgressView, 0, len(u.records)),
	}
	for _, p := range u.purchases {
		if p.Active() {
			sum.ActiveCourses++
		}
	}
	for _, r := range u.records {
		sum.Progress = append(sum.Progress, s.view(r, u.status[r.CourseID]))
	}
	for _, r := range u.activeRecords() {
		sum.HoursLearned += progress.SanitizeHours(r.HoursLearned, s.Config.MaxHoursPerCourse)
		if progress.Completed(r) {
			sum.CompletedCount++
		}
	}
	sum.StreakDays = s.streakDays(u)
	return sum, nil
}

// streakDays counts consecutive days ending today across recorded activity
// days and every record's last-seen and completion instants.
func (s *summaryService) streakDays(u *userLedger) int {
	loc := s.Config.StreakLocation
	days := append([]string{}, u.days...)
	for _, r := range u.records {
		if !r.LastSeenAt.IsZero() {
			days = append(days, streak.Day(r.LastSeenAt, loc))
		}
		if r.CompletedAt != nil {
			days = append(days, streak.Day(*r.CompletedAt, loc))
		}
	}
	return streak.Compute(days, s.now(), loc)
}

func (s *summaryService) view(r *types.ProgressRecord, purchaseStatus string) ProgressView {
	lessons := []ref.Key(r.CompletedLessons)
	if lessons == nil {
		lessons = []ref.Key{}
	}
	return ProgressView{
		CourseID:            r.CourseID,
		Percent:             r.Percent,
		DisplayPercent:      progress.DisplayPercent(r.Percent, r.QuizPassed),
		HoursLearned:        progress.SanitizeHours(r.HoursLearned, s.Config.MaxHoursPerCourse),
		CompletedLessons:    lessons,
		QuizPassed:          r.QuizPassed,
		CompletedAt:         r.CompletedAt,
		LastSeenAt:          r.LastSeenAt,
		PurchaseStatus:      purchaseStatus,
		CertificateEligible: progress.CertificateEligible(r, purchaseStatus == types.PurchaseActive),
	}
}

func (s *summaryService) CertificateEligibility(ctx context.Context, userID uuid.UUID, courseID ref.Key) (*CertificateEligibility, error) {
	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.course(dbc, ref.Normalize(courseID))
	if err != nil {
		return nil, err
	}
	p, err := s.Purchases.Get(dbc, userID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	rec, err := s.Records.Get(dbc, userID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	out := &CertificateEligibility{
		CourseID:       course.ID,
		CourseTitle:    course.Title,
		PurchaseActive: p.Active(),
	}
	if rec != nil {
		out.Percent = rec.Percent
		out.QuizPassed = rec.QuizPassed
		out.CompletedAt = rec.CompletedAt
		out.Eligible = progress.CertificateEligible(rec, out.PurchaseActive)
	}
	return out, nil
}

func (s *summaryService) CourseProgress(ctx context.Context, userID uuid.UUID, courseID ref.Key) (*CourseProgress, error) {
	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.course(dbc, ref.Normalize(courseID))
	if err != nil {
		return nil, err
	}
	p, err := s.Purchases.Get(dbc, userID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	rec, err := s.Records.Get(dbc, userID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	status := ""
	if p != nil {
		status = p.Status
	}
	// Records of cancelled purchases are stale and must not unlock anything.
	visible := rec
	if status != types.PurchaseActive {
		visible = nil
	}
	out := &CourseProgress{Curriculum: progress.CurriculumView(course.Items(), visible)}
	if rec != nil {
		out.Progress = s.view(rec, status)
	} else {
		out.Progress = s.view(progress.New(userID, course.ID, s.now()), status)
	}
	return out, nil
}

func (s *summaryService) Badges(ctx context.Context, userID uuid.UUID) ([]achievements.Badge, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return achievements.Badges(u.activeRecords(), s.now()), nil
}

func (s *summaryService) Activity(ctx context.Context, userID uuid.UUID, limit int) ([]achievements.Event, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	subs, err := s.Submissions.ListByUser(dbctx.Context{Ctx: ctx}, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	ids := make([]ref.Key, 0, len(u.purchases)+len(u.records))
	for _, p := range u.purchases {
		ids = append(ids, p.CourseID)
	}
	for _, r := range u.records {
		ids = append(ids, r.CourseID)
	}
	courses, err := s.Courses.GetByIDs(dbctx.Context{Ctx: ctx}, ref.Set(ids...))
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	titles := make(map[ref.Key]string, len(courses))
	for _, c := range courses {
		titles[c.ID] = c.Title
	}
	return achievements.ActivityFeed(achievements.FeedInput{
		Purchases:    u.purchases,
		Records:      u.records,
		Submissions:  subs,
		CourseTitles: titles,
	}, limit), nil
}
