package commerce

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

type PurchaseRepo interface {
	Create(dbc dbctx.Context, p *types.Purchase) error
	Get(dbc dbctx.Context, userID uuid.UUID, courseID ref.Key) (*types.Purchase, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Purchase, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type purchaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPurchaseRepo(db *gorm.DB, baseLog *logger.Logger) PurchaseRepo {
	return &purchaseRepo{db: db, log: baseLog.With("repo", "PurchaseRepo")}
}

func (r *purchaseRepo) Create(dbc dbctx.Context, p *types.Purchase) error {
	if p == nil {
		return nil
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CourseID = ref.Normalize(p.CourseID)
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return dbc.DB(r.db).Create(p).Error
}

func (r *purchaseRepo) Get(dbc dbctx.Context, userID uuid.UUID, courseID ref.Key) (*types.Purchase, error) {
	courseID = ref.Normalize(courseID)
	if userID == uuid.Nil || courseID.IsZero() {
		return nil, nil
	}
	var row types.Purchase
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

func (r *purchaseRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Purchase, error) {
	var out []*types.Purchase
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("purchased_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *purchaseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&types.Purchase{}).
		Where("id = ?", id).
		Updates(updates).Error
}
