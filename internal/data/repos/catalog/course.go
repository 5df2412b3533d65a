package catalog

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

type CourseRepo interface {
	List(dbc dbctx.Context) ([]*types.Course, error)
	GetByID(dbc dbctx.Context, id ref.Key) (*types.Course, error)
	GetByIDs(dbc dbctx.Context, ids []ref.Key) ([]*types.Course, error)
	Upsert(dbc dbctx.Context, courses []*types.Course) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) List(dbc dbctx.Context) ([]*types.Course, error) {
	var out []*types.Course
	if err := dbc.DB(r.db).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) GetByID(dbc dbctx.Context, id ref.Key) (*types.Course, error) {
	id = ref.Normalize(id)
	if id.IsZero() {
		return nil, nil
	}
	var row types.Course
	err := dbc.DB(r.db).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID.IsZero() {
		return nil, nil
	}
	return &row, nil
}

func (r *courseRepo) GetByIDs(dbc dbctx.Context, ids []ref.Key) ([]*types.Course, error) {
	var out []*types.Course
	ids = ref.Set(ids...)
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) Upsert(dbc dbctx.Context, courses []*types.Course) error {
	if len(courses) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, c := range courses {
		c.ID = ref.Normalize(c.ID)
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title",
				"author",
				"level",
				"price_number",
				"img",
				"description",
				"curriculum",
				"quiz",
				"updated_at",
			}),
		}).
		Create(&courses).Error
}
