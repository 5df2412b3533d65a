package learner

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"gorm.io/datatypes"
)

// ProgressRecord aggregates completion signals for one (user, course) pair.
// Version guards conditional writes; every mutation bumps it.
type ProgressRecord struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_course,priority:1" json:"userId"`
	CourseID ref.Key   `gorm:"column:course_id;not null;uniqueIndex:idx_progress_user_course,priority:2" json:"courseId"`

	Percent          int                           `gorm:"column:percent;not null;default:0" json:"percent"`
	HoursLearned     float64                       `gorm:"column:hours_learned;not null;default:0" json:"hoursLearned"`
	CompletedLessons datatypes.JSONSlice[ref.Key] `gorm:"column:completed_lessons" json:"completedLessons"`
	QuizPassed       bool                          `gorm:"column:quiz_passed;not null;default:false" json:"quizPassed"`
	CompletedAt      *time.Time                    `gorm:"column:completed_at" json:"completedAt"`
	LastSeenAt       time.Time                     `gorm:"column:last_seen_at;not null;index" json:"lastSeenAt"`

	Version   int64     `gorm:"column:version;not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (ProgressRecord) TableName() string { return "progress_record" }

// Clone returns a deep copy so rules can be applied without aliasing the lesson slice.
func (r *ProgressRecord) Clone() *ProgressRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.CompletedLessons = append(datatypes.JSONSlice[ref.Key]{}, r.CompletedLessons...)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
