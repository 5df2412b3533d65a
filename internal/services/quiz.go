package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/learning/progress"
	"github.com/yungbote/upwise-backend/internal/learning/quiz"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

const submissionHistoryLimit = 50

type QuizSubmissionResult struct {
	Submission *types.QuizSubmission `json:"submission"`
	Progress   *types.ProgressRecord `json:"progress"`
	// CompletedNow is true only on the attempt that first completed the course.
	CompletedNow bool `json:"completedNow"`
}

type QuizService interface {
	GetQuiz(ctx context.Context, userID uuid.UUID, courseID ref.Key) (quiz.PublicQuiz, error)
	// SubmitQuiz grades answers against the stored quiz, appends the attempt
	// to the submission log and, on a pass, completes the course.
	SubmitQuiz(ctx context.Context, userID uuid.UUID, courseID ref.Key, answers []quiz.Answer, timeTakenSeconds int) (*QuizSubmissionResult, error)
	ListSubmissions(ctx context.Context, userID uuid.UUID, courseID ref.Key) ([]*types.QuizSubmission, error)
}

type quizService struct {
	*Ledger
	log *logger.Logger
}

func NewQuizService(baseLog *logger.Logger, ledger *Ledger) QuizService {
	return &quizService{Ledger: ledger, log: baseLog.With("service", "QuizService")}
}

func (s *quizService) GetQuiz(ctx context.Context, userID uuid.UUID, courseID ref.Key) (quiz.PublicQuiz, error) {
	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.course(dbc, ref.Normalize(courseID))
	if err != nil {
		return quiz.PublicQuiz{}, err
	}
	if _, err := s.activePurchase(dbc, userID, course.ID); err != nil {
		return quiz.PublicQuiz{}, err
	}
	return redactedQuiz(course)
}

func (s *quizService) SubmitQuiz(ctx context.Context, userID uuid.UUID, courseID ref.Key, answers []quiz.Answer, timeTakenSeconds int) (*QuizSubmissionResult, error) {
	courseID = ref.Normalize(courseID)
	ctx, span := observability.StartSpan(ctx, "quiz.submit", attribute.String("course_id", courseID.String()))
	defer span.End()

	if answers == nil {
		return nil, apierr.InvalidInput("answers are required")
	}
	if timeTakenSeconds < 0 {
		timeTakenSeconds = 0
	}
	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.course(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if _, err := s.activePurchase(dbc, userID, course.ID); err != nil {
		return nil, err
	}
	def, ok := course.QuizDef()
	if !ok {
		return nil, apierr.NotFound(apierr.CodeQuizNotFound, "course %s has no quiz", course.ID)
	}

	graded := quiz.Grade(def, answers)
	now := s.now()
	sub := &types.QuizSubmission{
		ID:               uuid.New(),
		UserID:           userID,
		CourseID:         course.ID,
		QuizID:           def.ID,
		Answers:          datatypes.JSONSlice[types.GradedAnswer](graded.Answers),
		PointsScored:     graded.PointsScored,
		PointsTotal:      graded.PointsTotal,
		Percentage:       graded.Percentage,
		Passed:           graded.Passed,
		TimeTakenSeconds: timeTakenSeconds,
		SubmittedAt:      now,
	}

	out := QuizSubmissionResult{Submission: sub}
	err = s.inTx(dbc, func(inner dbctx.Context) error {
		if err := s.Submissions.Create(inner, sub); err != nil {
			return fmt.Errorf("append submission: %w", err)
		}
		rec, err := s.mutate(inner, userID, course.ID, "quiz_result", func(rec *types.ProgressRecord) {
			out.CompletedNow = progress.ApplyQuizResult(rec, graded.Passed, now)
		})
		if err != nil {
			return err
		}
		out.Progress = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.ObserveQuizSubmission(graded.Passed, graded.Percentage)
	s.changed(ctx, s.log, userID)
	s.Notifier.QuizSubmitted(ctx, userID, sub, out.Progress)
	if out.CompletedNow {
		s.log.Info("course completed", "user_id", userID, "course_id", course.ID, "percentage", graded.Percentage)
	}
	return &out, nil
}

func (s *quizService) ListSubmissions(ctx context.Context, userID uuid.UUID, courseID ref.Key) ([]*types.QuizSubmission, error) {
	courseID = ref.Normalize(courseID)
	if courseID.IsZero() {
		return nil, apierr.InvalidInput("courseId is required")
	}
	rows, err := s.Submissions.ListByUserCourse(dbctx.Context{Ctx: ctx}, userID, courseID, submissionHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return rows, nil
}
