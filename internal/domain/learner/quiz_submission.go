package learner

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"gorm.io/datatypes"
)

type GradedAnswer struct {
	QuestionID       ref.Key `json:"questionId"`
	SelectedOptionID ref.Key `json:"selectedOptionId"`
	Correct          bool    `json:"correct"`
	PointsAwarded    int     `json:"pointsAwarded"`
}

// QuizSubmission is append-only; rows are never updated.
type QuizSubmission struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index:idx_quiz_submission_user_course,priority:1" json:"userId"`
	CourseID ref.Key   `gorm:"column:course_id;not null;index:idx_quiz_submission_user_course,priority:2" json:"courseId"`
	QuizID   ref.Key   `gorm:"column:quiz_id;not null" json:"quizId"`

	Answers          datatypes.JSONSlice[GradedAnswer] `gorm:"column:answers" json:"answers"`
	PointsScored     int                                `gorm:"column:points_scored;not null" json:"pointsScored"`
	PointsTotal      int                                `gorm:"column:points_total;not null" json:"pointsTotal"`
	Percentage       int                                `gorm:"column:percentage;not null" json:"percentage"`
	Passed           bool                               `gorm:"column:passed;not null" json:"passed"`
	TimeTakenSeconds int                                `gorm:"column:time_taken_seconds;not null;default:0" json:"timeTakenSeconds"`
	SubmittedAt      time.Time                          `gorm:"column:submitted_at;not null;index" json:"submittedAt"`
}

func (QuizSubmission) TableName() string { return "quiz_submission" }
