package services

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/learning/progress"
	"github.com/yungbote/upwise-backend/internal/learning/streak"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

type HeartbeatResult struct {
	Progress      *types.ProgressRecord `json:"progress"`
	StreakDays    int                   `json:"streakDays"`
	Accrued       bool                  `json:"accrued"`
	CreditedHours float64               `json:"creditedHours"`
}

type HeartbeatService interface {
	// RecordHeartbeat accrues activeSeconds of study time. Reports are
	// untrusted: bad values are clamped, never rejected, and a report for a
	// course without an active purchase is accepted but not credited.
	RecordHeartbeat(ctx context.Context, userID uuid.UUID, courseID ref.Key, activeSeconds float64) (*HeartbeatResult, error)
}

type heartbeatService struct {
	*Ledger
	log *logger.Logger
}

func NewHeartbeatService(baseLog *logger.Logger, ledger *Ledger) HeartbeatService {
	return &heartbeatService{Ledger: ledger, log: baseLog.With("service", "HeartbeatService")}
}

func (s *heartbeatService) RecordHeartbeat(ctx context.Context, userID uuid.UUID, courseID ref.Key, activeSeconds float64) (*HeartbeatResult, error) {
	ctx, span := observability.StartSpan(ctx, "heartbeat.record")
	defer span.End()

	courseID = ref.Normalize(courseID)
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("missing user")
	}
	reported := activeSeconds
	if math.IsNaN(reported) || math.IsInf(reported, 0) || reported < 0 {
		reported = 0
	}
	seconds := math.Min(reported, s.Config.HeartbeatMaxSeconds)

	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.course(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if _, err := s.activePurchase(dbc, userID, course.ID); err != nil {
		if !apierr.IsCode(err, apierr.CodeNotPurchased) {
			return nil, err
		}
		return s.ignored(dbc, userID, course.ID, reported)
	}

	now := s.now()
	var out HeartbeatResult
	err = s.inTx(dbc, func(inner dbctx.Context) error {
		var credited float64
		rec, err := s.mutate(inner, userID, course.ID, "heartbeat", func(rec *types.ProgressRecord) {
			credited = progress.AddStudyTime(rec, seconds, s.Config.MaxHoursPerCourse, now)
		})
		if err != nil {
			return err
		}
		days, err := s.advanceStreak(inner, userID)
		if err != nil {
			return err
		}
		out = HeartbeatResult{Progress: rec, StreakDays: days, Accrued: true, CreditedHours: credited}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.ObserveHeartbeat("accrued", reported, out.CreditedHours*3600)
	s.changed(ctx, s.log, userID)
	s.Notifier.ProgressUpdated(ctx, userID, out.Progress)
	return &out, nil
}

// advanceStreak records today as an activity day and advances the stored
// counter with the incremental same-day / next-day / gap rule.
func (s *heartbeatService) advanceStreak(dbc dbctx.Context, userID uuid.UUID) (int, error) {
	now := s.now()
	loc := s.Config.StreakLocation
	if err := s.Activity.TouchDay(dbc, userID, streak.Day(now, loc)); err != nil {
		return 0, fmt.Errorf("touch activity day: %w", err)
	}
	row, err := s.Activity.GetForUpdate(dbc, userID)
	if err != nil {
		return 0, fmt.Errorf("load streak: %w", err)
	}
	if row == nil {
		row = &types.UserActivity{UserID: userID}
	}
	days, last := streak.Advance(row.StreakDays, row.LastActiveAt, now, loc)
	row.StreakDays = days
	row.LastActiveAt = &last
	row.UpdatedAt = now
	if err := s.Activity.Save(dbc, row); err != nil {
		return 0, fmt.Errorf("save streak: %w", err)
	}
	return days, nil
}

func (s *heartbeatService) ignored(dbc dbctx.Context, userID uuid.UUID, courseID ref.Key, reported float64) (*HeartbeatResult, error) {
	s.Metrics.ObserveHeartbeat("ignored", reported, 0)
	rec, err := s.Records.Get(dbc, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	out := &HeartbeatResult{Progress: rec}
	row, err := s.Activity.Get(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load streak: %w", err)
	}
	if row != nil {
		out.StreakDays = row.StreakDays
	}
	return out, nil
}
