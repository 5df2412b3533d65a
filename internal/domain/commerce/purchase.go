package commerce

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
)

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// Purchase is one ledger row per (user, course); cancel and restore flip Status in place.
type Purchase struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_purchase_user_course,priority:1" json:"userId"`
	CourseID    ref.Key    `gorm:"column:course_id;not null;uniqueIndex:idx_purchase_user_course,priority:2;index" json:"courseId"`
	Price       float64    `gorm:"column:price;not null;default:0" json:"price"`
	Status      string     `gorm:"column:status;not null;index" json:"status"`
	PurchasedAt time.Time  `gorm:"column:purchased_at;not null" json:"purchasedAt"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt"`
}

func (Purchase) TableName() string { return "purchase" }

func (p *Purchase) Active() bool { return p != nil && p.Status == StatusActive }
