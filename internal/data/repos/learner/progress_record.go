package learner

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

type ProgressRecordRepo interface {
	// EnsureExists inserts rec unless a row for the pair already exists.
	EnsureExists(dbc dbctx.Context, rec *types.ProgressRecord) error
	Get(dbc dbctx.Context, userID uuid.UUID, courseID ref.Key) (*types.ProgressRecord, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.ProgressRecord, error)
	ListUserIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	// UpdateIfVersion writes rec's ledger fields only if the stored version
	// still equals expected. On success rec.Version is advanced.
	UpdateIfVersion(dbc dbctx.Context, rec *types.ProgressRecord, expected int64) (bool, error)
}

type progressRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRecordRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRecordRepo {
	return &progressRecordRepo{db: db, log: baseLog.With("repo", "ProgressRecordRepo")}
}

func (r *progressRecordRepo) EnsureExists(dbc dbctx.Context, rec *types.ProgressRecord) error {
	if rec == nil {
		return nil
	}
	rec.CourseID = ref.Normalize(rec.CourseID)
	if rec.UserID == uuid.Nil || rec.CourseID.IsZero() {
		return nil
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	if rec.LastSeenAt.IsZero() {
		rec.LastSeenAt = now
	}
	if rec.CompletedLessons == nil {
		rec.CompletedLessons = []ref.Key{}
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(rec).Error
}

func (r *progressRecordRepo) Get(dbc dbctx.Context, userID uuid.UUID, courseID ref.Key) (*types.ProgressRecord, error) {
	courseID = ref.Normalize(courseID)
	if userID == uuid.Nil || courseID.IsZero() {
		return nil, nil
	}
	var row types.ProgressRecord
	err := dbc.DB(r.db).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *progressRecordRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.ProgressRecord, error) {
	var out []*types.ProgressRecord
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("last_seen_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *progressRecordRepo) ListUserIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	var out []uuid.UUID
	if err := dbc.DB(r.db).
		Model(&types.ProgressRecord{}).
		Distinct("user_id").
		Pluck("user_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *progressRecordRepo) UpdateIfVersion(dbc dbctx.Context, rec *types.ProgressRecord, expected int64) (bool, error) {
	if rec == nil || rec.ID == uuid.Nil {
		return false, nil
	}
	lessons := rec.CompletedLessons
	if lessons == nil {
		lessons = []ref.Key{}
	}
	now := time.Now().UTC()
	res := dbc.DB(r.db).
		Model(&types.ProgressRecord{}).
		Where("id = ? AND version = ?", rec.ID, expected).
		Updates(map[string]interface{}{
			"percent":           rec.Percent,
			"hours_learned":     rec.HoursLearned,
			"completed_lessons": lessons,
			"quiz_passed":       rec.QuizPassed,
			"completed_at":      rec.CompletedAt,
			"last_seen_at":      rec.LastSeenAt,
			"version":           expected + 1,
			"updated_at":        now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	rec.Version = expected + 1
	rec.UpdatedAt = now
	return true, nil
}
