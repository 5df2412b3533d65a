package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/upwise-backend/internal/data/repos"
	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/learning/quiz"
	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
	"github.com/yungbote/upwise-backend/internal/platform/logger"
)

// CourseView is the public shape of a course. Quiz answers are never included.
type CourseView struct {
	ID          ref.Key                `json:"id"`
	Title       string                 `json:"title"`
	Author      string                 `json:"author"`
	Level       string                 `json:"level"`
	PriceNumber float64                `json:"priceNumber"`
	Img         string                 `json:"img"`
	Description string                 `json:"description"`
	Curriculum  []types.CurriculumItem `json:"curriculum"`
	Quiz        *QuizSummary           `json:"quiz,omitempty"`
}

type QuizSummary struct {
	ID                ref.Key `json:"id"`
	Title             string  `json:"title"`
	EstimatedMins     int     `json:"estimatedMins"`
	PassingPercentage int     `json:"passingPercentage"`
	QuestionCount     int     `json:"questionCount"`
}

func NewCourseView(c *types.Course) CourseView {
	v := CourseView{
		ID:          c.ID,
		Title:       c.Title,
		Author:      c.Author,
		Level:       c.Level,
		PriceNumber: c.PriceNumber,
		Img:         c.Img,
		Description: c.Description,
		Curriculum:  append([]types.CurriculumItem{}, c.Items()...),
	}
	if q, ok := c.QuizDef(); ok {
		v.Quiz = &QuizSummary{
			ID:                q.ID,
			Title:             q.Title,
			EstimatedMins:     q.EstimatedMins,
			PassingPercentage: q.PassingPercentage,
			QuestionCount:     len(q.Questions),
		}
	}
	return v
}

type CatalogService interface {
	ListCourses(ctx context.Context) ([]CourseView, error)
	GetCourse(ctx context.Context, courseID ref.Key) (CourseView, error)
	// Seed validates and upserts courses by id. Nothing is written if any
	// course is invalid.
	Seed(ctx context.Context, courses []*types.Course) (int, error)
}

type catalogService struct {
	db      *gorm.DB
	log     *logger.Logger
	courses repos.CourseRepo
}

func NewCatalogService(db *gorm.DB, baseLog *logger.Logger, courses repos.CourseRepo) CatalogService {
	return &catalogService{
		db:      db,
		log:     baseLog.With("service", "CatalogService"),
		courses: courses,
	}
}

func (s *catalogService) ListCourses(ctx context.Context) ([]CourseView, error) {
	rows, err := s.courses.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	out := make([]CourseView, 0, len(rows))
	for _, c := range rows {
		out = append(out, NewCourseView(c))
	}
	return out, nil
}

func (s *catalogService) GetCourse(ctx context.Context, courseID ref.Key) (CourseView, error) {
	courseID = ref.Normalize(courseID)
	if courseID.IsZero() {
		return CourseView{}, apierr.InvalidInput("courseId is required")
	}
	c, err := s.courses.GetByID(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return CourseView{}, fmt.Errorf("get course: %w", err)
	}
	if c == nil {
		return CourseView{}, apierr.NotFound(apierr.CodeCourseNotFound, "course %s not found", courseID)
	}
	return NewCourseView(c), nil
}

func (s *catalogService) Seed(ctx context.Context, courses []*types.Course) (int, error) {
	for _, c := range courses {
		if err := c.Validate(); err != nil {
			return 0, apierr.InvalidInput("%v", err)
		}
	}
	if len(courses) == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.courses.Upsert(dbctx.Context{Ctx: ctx, Tx: tx}, courses)
	})
	if err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}
	s.log.Info("catalog seeded", "courses", len(courses))
	return len(courses), nil
}

// redactedQuiz returns the client view of the course quiz or quiz_not_found.
func redactedQuiz(c *types.Course) (quiz.PublicQuiz, error) {
	q, ok := c.QuizDef()
	if !ok {
		return quiz.PublicQuiz{}, apierr.NotFound(apierr.CodeQuizNotFound, "course %s has no quiz", c.ID)
	}
	return quiz.Redact(q), nil
}
