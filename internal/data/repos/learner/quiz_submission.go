package learner

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

// QuizSubmissionRepo is append-only: there is no update or delete.
type QuizSubmissionRepo interface {
	Create(dbc dbctx.Context, s *types.QuizSubmission) error
	ListByUserCourse(dbc dbctx.Context, userID uuid.UUID, courseID ref.Key, limit int) ([]*types.QuizSubmission, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.QuizSubmission, error)
}

type quizSubmissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) QuizSubmissionRepo {
	return &quizSubmissionRepo{db: db, log: baseLog.With("repo", "QuizSubmissionRepo")}
}

func (r *quizSubmissionRepo) Create(dbc dbctx.Context, s *types.QuizSubmission) error {
	if s == nil {
		return nil
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	if s.Answers == nil {
		s.Answers = []types.GradedAnswer{}
	}
	return dbc.DB(r.db).Create(s).Error
}

func (r *quizSubmissionRepo) ListByUserCourse(dbc dbctx.Context, userID uuid.UUID, courseID ref.Key, limit int) ([]*types.QuizSubmission, error) {
	var out []*types.QuizSubmission
	courseID = ref.Normalize(courseID)
	if userID == uuid.Nil || courseID.IsZero() {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("submitted_at DESC").
		Limit(clampLimit(limit)).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizSubmissionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.QuizSubmission, error) {
	var out []*types.QuizSubmission
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Limit(clampLimit(limit)).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		limit = 200
	}
	if limit > 2000 {
		limit = 2000
	}
	return limit
}
