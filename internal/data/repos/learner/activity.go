package learner

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

type ActivityRepo interface {
	// TouchDay records activity on day (YYYY-MM-DD); repeated calls are no-ops.
	TouchDay(dbc dbctx.Context, userID uuid.UUID, day string) error
	ListDaysSince(dbc dbctx.Context, userID uuid.UUID, since string) ([]string, error)
	// GetForUpdate loads the streak counter, locking the row on Postgres.
	GetForUpdate(dbc dbctx.Context, userID uuid.UUID) (*types.UserActivity, error)
	Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserActivity, error)
	Save(dbc dbctx.Context, row *types.UserActivity) error
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) TouchDay(dbc dbctx.Context, userID uuid.UUID, day string) error {
	if userID == uuid.Nil || day == "" {
		return nil
	}
	row := &types.ActivityDay{UserID: userID, Day: day, CreatedAt: time.Now().UTC()}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "day"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *activityRepo) ListDaysSince(dbc dbctx.Context, userID uuid.UUID, since string) ([]string, error) {
	var out []string
	if userID == uuid.Nil {
		return out, nil
	}
	q := dbc.DB(r.db).
		Model(&types.ActivityDay{}).
		Where("user_id = ?", userID)
	if since != "" {
		q = q.Where("day >= ?", since)
	}
	if err := q.Order("day DESC").Pluck("day", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) GetForUpdate(dbc dbctx.Context, userID uuid.UUID) (*types.UserActivity, error) {
	return r.get(dbc, userID, true)
}

func (r *activityRepo) Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserActivity, error) {
	return r.get(dbc, userID, false)
}

func (r *activityRepo) get(dbc dbctx.Context, userID uuid.UUID, lock bool) (*types.UserActivity, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	q := dbc.DB(r.db)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row types.UserActivity
	if err := q.Where("user_id = ?", userID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.UserID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *activityRepo) Save(dbc dbctx.Context, row *types.UserActivity) error {
	if row == nil || row.UserID == uuid.Nil {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"streak_days", "last_active_at", "updated_at"}),
		}).
		Create(row).Error
}
