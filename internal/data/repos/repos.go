package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/upwise-backend/internal/data/repos/catalog"
	"github.com/yungbote/upwise-backend/internal/data/repos/commerce"
	"github.com/yungbote/upwise-backend/internal/data/repos/learner"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

type CourseRepo = catalog.CourseRepo
type PurchaseRepo = commerce.PurchaseRepo
type ProgressRecordRepo = learner.ProgressRecordRepo
type QuizSubmissionRepo = learner.QuizSubmissionRepo
type ActivityRepo = learner.ActivityRepo

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return catalog.NewCourseRepo(db, baseLog)
}
func NewPurchaseRepo(db *gorm.DB, baseLog *logger.Logger) PurchaseRepo {
	return commerce.NewPurchaseRepo(db, baseLog)
}
func NewProgressRecordRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRecordRepo {
	return learner.NewProgressRecordRepo(db, baseLog)
}
func NewQuizSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) QuizSubmissionRepo {
	return learner.NewQuizSubmissionRepo(db, baseLog)
}
func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return learner.NewActivityRepo(db, baseLog)
}

// Set is every ledger repository built over one connection.
type Set struct {
	Course         CourseRepo
	Purchase       PurchaseRepo
	ProgressRecord ProgressRecordRepo
	QuizSubmission QuizSubmissionRepo
	Activity       ActivityRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Course:         NewCourseRepo(db, baseLog),
		Purchase:       NewPurchaseRepo(db, baseLog),
		ProgressRecord: NewProgressRecordRepo(db, baseLog),
		QuizSubmission: NewQuizSubmissionRepo(db, baseLog),
		Activity:       NewActivityRepo(db, baseLog),
	}
}
