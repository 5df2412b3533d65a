package learner

import (
	"time"

	"github.com/google/uuid"
)

// DayLayout is the storage format of ActivityDay.Day.
const DayLayout = "2006-01-02"

// ActivityDay marks a calendar day (in the streak timezone) with learning activity.
type ActivityDay struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	Day       string    `gorm:"column:day;primaryKey" json:"day"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

func (ActivityDay) TableName() string { return "user_activity_day" }

// UserActivity is the incremental streak counter advanced by heartbeats.
type UserActivity struct {
	UserID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"userId"`
	StreakDays   int        `gorm:"column:streak_days;not null;default:0" json:"streakDays"`
	LastActiveAt *time.Time `gorm:"column:last_active_at" json:"lastActiveAt"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updatedAt"`
}

func (UserActivity) TableName() string { return "user_activity" }
