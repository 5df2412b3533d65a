package services

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/learning/progress"
	"github.com/yungbote/upwise-backend/internal/observability"
	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

type ModuleView struct {
	Module      types.CurriculumItem `json:"module"`
	CourseTitle string               `json:"courseTitle"`
}

type LessonService interface {
	// MarkLessonComplete adds lessonID to the learner's completed set. Marking
	// never completes a course; only a passed quiz does.
	MarkLessonComplete(ctx context.Context, userID uuid.UUID, courseID, lessonID ref.Key) (*types.ProgressRecord, error)
	// GetModule returns one curriculum item to a purchaser.
	GetModule(ctx context.Context, userID uuid.UUID, courseID, itemID ref.Key) (*ModuleView, error)
}

type lessonService struct {
	*Ledger
	log *logger.Logger
}

func NewLessonService(baseLog *logger.Logger, ledger *Ledger) LessonService {
	return &lessonService{Ledger: ledger, log: baseLog.With("service", "LessonService")}
}

func (s *lessonService) MarkLessonComplete(ctx context.Context, userID uuid.UUID, courseID, lessonID ref.Key) (*types.ProgressRecord, error) {
	courseID, lessonID = ref.Normalize(courseID), ref.Normalize(lessonID)
	ctx, span := observability.StartSpan(ctx, "lesson.mark",
		attribute.String("course_id", courseID.String()),
		attribute.String("lesson_id", lessonID.String()),
	)
	defer span.End()

	if lessonID.IsZero() {
		return nil, apierr.InvalidInput("lessonId is required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.course(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if _, err := s.activePurchase(dbc, userID, course.ID); err != nil {
		return nil, err
	}
	item, ok := course.Item(lessonID)
	if !ok {
		return nil, apierr.NotFound(apierr.CodeLessonNotFound, "lesson %s not in course %s", lessonID, course.ID)
	}
	if item.IsQuizItem {
		return nil, apierr.InvalidInput("curriculum item %s is a quiz; submit the quiz instead", lessonID)
	}

	lessons := lessonIDs(course)
	now := s.now()
	added := false
	rec, err := s.mutate(dbc, userID, course.ID, "mark_lesson", func(rec *types.ProgressRecord) {
		added = progress.MarkLesson(rec, lessonID, lessons, now)
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.IncLessonMark(added)
	s.changed(ctx, s.log, userID)
	s.Notifier.ProgressUpdated(ctx, userID, rec)
	return rec, nil
}

func (s *lessonService) GetModule(ctx context.Context, userID uuid.UUID, courseID, itemID ref.Key) (*ModuleView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.course(dbc, ref.Normalize(courseID))
	if err != nil {
		return nil, err
	}
	item, ok := course.Item(itemID)
	if !ok {
		return nil, apierr.NotFound(apierr.CodeLessonNotFound, "module %s not in course %s", ref.Normalize(itemID), course.ID)
	}
	if _, err := s.activePurchase(dbc, userID, course.ID); err != nil {
		return nil, err
	}
	return &ModuleView{Module: item, CourseTitle: course.Title}, nil
}
