package domain

import (
	"github.com/yungbote/upwise-backend/internal/domain/catalog"
	"github.com/yungbote/upwise-backend/internal/domain/commerce"
	"github.com/yungbote/upwise-backend/internal/domain/learner"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
)

const (
	PurchaseActive    = commerce.StatusActive
	PurchaseCancelled = commerce.StatusCancelled
)

type Key = ref.Key

type Course = catalog.Course
type CurriculumItem = catalog.CurriculumItem
type Quiz = catalog.Quiz
type Question = catalog.Question
type Option = catalog.Option

type Purchase = commerce.Purchase

type ProgressRecord = learner.ProgressRecord
type QuizSubmission = learner.QuizSubmission
type GradedAnswer = learner.GradedAnswer
type ActivityDay = learner.ActivityDay
type UserActivity = learner.UserActivity

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&Course{},
		&Purchase{},
		&ProgressRecord{},
		&QuizSubmission{},
		&ActivityDay{},
		&UserActivity{},
	}
}
