package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/upwise-backend/internal/data/db"
	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/learning/progress"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

// PurchaseView is a ledger row joined with the course metadata shown in
// purchase history.
type PurchaseView struct {
	CourseID    ref.Key    `json:"courseId"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Img         string     `json:"img"`
	Price       float64    `json:"price"`
	Status      string     `json:"status"`
	PurchasedAt time.Time  `json:"purchasedAt"`
	CancelledAt *time.Time `json:"cancelledAt"`
}

type PurchaseResult struct {
	Purchase *types.Purchase       `json:"purchase"`
	Progress *types.ProgressRecord `json:"progress,omitempty"`
}

type PurchaseService interface {
	// Purchase buys a course, or restores a cancelled purchase of it. Either
	// way the learner's progress for the course starts clean.
	Purchase(ctx context.Context, userID uuid.UUID, courseID ref.Key) (*PurchaseResult, error)
	// Cancel soft-cancels. The progress record stays but no longer counts.
	Cancel(ctx context.Context, userID uuid.UUID, courseID ref.Key) (*PurchaseResult, error)
	Restore(ctx context.Context, userID uuid.UUID, courseID ref.Key) (*PurchaseResult, error)
	List(ctx context.Context, userID uuid.UUID) ([]PurchaseView, error)
	ResetProgressOnPurchase(ctx context.Context, userID uuid.UUID, courseID ref.Key) (*types.ProgressRecord, error)
}

type purchaseService struct {
	*Ledger
	log *logger.Logger
}

func NewPurchaseService(baseLog *logger.Logger, ledger *Ledger) PurchaseService {
	return &purchaseService{Ledger: ledger, log: baseLog.With("service", "PurchaseService")}
}

func (s *purchaseService) Purchase(ctx context.Context, userID uuid.UUID, courseID ref.Key) (*PurchaseResult, error) {
	ctx, span := observability.StartSpan(ctx, "purchase.create")
	defer span.End()

	courseID = ref.Normalize(courseID)
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("missing user")
	}
	action := "purchase"
	var out PurchaseResult
	err := s.inTx(dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		course, err := s.course(dbc, courseID)
		if err != nil {
			return err
		}
		existing, err := s.Purchases.Get(dbc, userID, course.ID)
		if err != nil {
			return fmt.Errorf("load purchase: %w", err)
		}
		now := s.now()
		switch {
		case existing == nil:
			p := &types.Purchase{
				ID:          uuid.New(),
				UserID:      userID,
				CourseID:    course.ID,
				Price:       course.PriceNumber,
				Status:      types.PurchaseActive,
				PurchasedAt: now,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.Purchases.Create(dbc, p); err != nil {
				if db.IsUniqueViolation(err) {
					return apierr.Conflict("course %s is already purchased", course.ID)
				}
				return fmt.Errorf("create purchase: %w", err)
			}
			out.Purchase = p
		case existing.Active():
			return apierr.Conflict("course %s is already purchased", course.ID)
		default:
			action = "restore"
			if err := s.reactivate(dbc, existing, course.PriceNumber, now); err != nil {
				return err
			}
			out.Purchase = existing
		}
		rec, err := s.reset(dbc, userID, course.ID)
		if err != nil {
			return err
		}
		out.Progress = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, userID, action, &out)
	return &out, nil
}

func (s *purchaseService) Cancel(ctx context.Context, userID uuid.UUID, courseID ref.Key) (*PurchaseResult, error) {
	ctx, span := observability.StartSpan(ctx, "purchase.cancel")
	defer span.End()

	courseID = ref.Normalize(courseID)
	if courseID.IsZero() {
		return nil, apierr.InvalidInput("courseId is required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	p, err := s.Purchases.Get(dbc, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	if p == nil {
		return nil, apierr.NotFound(apierr.CodePurchaseNotFound, "no purchase of course %s", courseID)
	}
	out := &PurchaseResult{Purchase: p}
	if !p.Active() {
		return out, nil
	}
	now := s.now()
	if err := s.Purchases.UpdateFields(dbc, p.ID, map[string]interface{}{
		"status":       types.PurchaseCancelled,
		"cancelled_at": now,
	}); err != nil {
		return nil, fmt.Errorf("cancel purchase: %w", err)
	}
	p.Status = types.PurchaseCancelled
	p.CancelledAt = &now
	p.UpdatedAt = now
	s.finish(ctx, userID, "cancel", out)
	return out, nil
}

func (s *purchaseService) Restore(ctx context.Context, userID uuid.UUID, courseID ref.Key) (*PurchaseResult, error) {
	ctx, span := observability.StartSpan(ctx, "purchase.restore")
	defer span.End()

	courseID = ref.Normalize(courseID)
	if courseID.IsZero() {
		return nil, apierr.InvalidInput("courseId is required")
	}
	var out PurchaseResult
	err := s.inTx(dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		p, err := s.Purchases.Get(dbc, userID, courseID)
		if err != nil {
			return fmt.Errorf("load purchase: %w", err)
		}
		if p == nil {
			return apierr.NotFound(apierr.CodePurchaseNotFound, "no purchase of course %s", courseID)
		}
		if p.Active() {
			return apierr.Conflict("purchase of course %s is already active", courseID)
		}
		if err := s.reactivate(dbc, p, p.Price, s.now()); err != nil {
			return err
		}
		rec, err := s.reset(dbc, userID, courseID)
		if err != nil {
			return err
		}
		out = PurchaseResult{Purchase: p, Progress: rec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, userID, "restore", &out)
	return &out, nil
}

func (s *purchaseService) List(ctx context.Context, userID uuid.UUID) ([]PurchaseView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.Purchases.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return purchaseViews(dbc, s.Ledger, rows)
}

func (s *purchaseService) ResetProgressOnPurchase(ctx context.Context, userID uuid.UUID, courseID ref.Key) (*types.ProgressRecord, error) {
	courseID = ref.Normalize(courseID)
	if courseID.IsZero() {
		return nil, apierr.InvalidInput("courseId is required")
	}
	rec, err := s.reset(dbctx.Context{Ctx: ctx}, userID, courseID)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, s.log, userID)
	s.Notifier.ProgressUpdated(ctx, userID, rec)
	return rec, nil
}

func (s *purchaseService) reset(dbc dbctx.Context, userID uuid.UUID, courseID ref.Key) (*types.ProgressRecord, error) {
	now := s.now()
	return s.mutate(dbc, userID, courseID, "reset", func(rec *types.ProgressRecord) {
		progress.Reset(rec, now)
	})
}

func (s *purchaseService) reactivate(dbc dbctx.Context, p *types.Purchase, price float64, now time.Time) error {
	if err := s.Purchases.UpdateFields(dbc, p.ID, map[string]interface{}{
		"status":       types.PurchaseActive,
		"purchased_at": now,
		"cancelled_at": nil,
		"price":        price,
	}); err != nil {
		return fmt.Errorf("reactivate purchase: %w", err)
	}
	p.Status = types.PurchaseActive
	p.PurchasedAt = now
	p.CancelledAt = nil
	p.Price = price
	p.UpdatedAt = now
	return nil
}

func (s *purchaseService) finish(ctx context.Context, userID uuid.UUID, action string, out *PurchaseResult) {
	s.Metrics.IncPurchaseAction(action)
	s.changed(ctx, s.log, userID)
	s.Notifier.PurchaseUpdated(ctx, userID, out.Purchase, out.Progress)
	s.log.Info("purchase ledger updated", "user_id", userID, "course_id", out.Purchase.CourseID, "action", action)
}

// purchaseViews joins rows with course metadata. Purchases of courses that no
// longer exist in the catalog are skipped.
func purchaseViews(dbc dbctx.Context, l *Ledger, rows []*types.Purchase) ([]PurchaseView, error) {
	ids := make([]ref.Key, 0, len(rows))
	for _, p := range rows {
		ids = append(ids, p.CourseID)
	}
	courses, err := l.Courses.GetByIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load purchased courses: %w", err)
	}
	byID := make(map[ref.Key]*types.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}
	out := make([]PurchaseView, 0, len(rows))
	for _, p := range rows {
		c, ok := byID[p.CourseID]
		if !ok {
			continue
		}
		out = append(out, PurchaseView{
			CourseID:    p.CourseID,
			Title:       c.Title,
			Author:      c.Author,
			Img:         c.Img,
			Price:       p.Price,
			Status:      p.Status,
			PurchasedAt: p.PurchasedAt,
			CancelledAt: p.CancelledAt,
		})
	}
	return out, nil
}
