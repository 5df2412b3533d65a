package testutil

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
)

// CourseFixture builds a course with the given number of lessons followed by a
// quiz item, and a quiz of four 2-point questions passing at 60%.
func CourseFixture(id ref.Key, lessons int) *types.Course {
	c := &types.Course{
		ID:          ref.Normalize(id),
		Title:       "Course " + string(id),
		Author:      "Upwise",
		Level:       "beginner",
		PriceNumber: 19.99,
	}
	items := make(datatypes.JSONSlice[types.CurriculumItem], 0, lessons+1)
	for i := 1; i <= lessons; i++ {
		items = append(items, types.CurriculumItem{ID: LessonID(i), Title: "Lesson", Minutes: 10})
	}
	items = append(items, types.CurriculumItem{ID: "quiz", Title: "Final quiz", IsQuizItem: true})
	c.Curriculum = items

	quiz := types.Quiz{ID: ref.Key("quiz-" + string(id)), Title: "Final quiz", PassingPercentage: 60}
	for _, qid := range []ref.Key{"q1", "q2", "q3", "q4"} {
		quiz.Questions = append(quiz.Questions, types.Question{
			ID:              qid,
			Text:            "question " + string(qid),
			Options:         []types.Option{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}, {ID: "c", Text: "C"}},
			CorrectOptionID: "b",
			Points:          2,
		})
	}
	c.Quiz = datatypes.NewJSONType(quiz)
	return c
}

func LessonID(i int) ref.Key {
	return ref.Key("lesson-" + strconv.Itoa(i))
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, c *types.Course) *types.Course {
	tb.Helper()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedPurchase(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, courseID ref.Key, status string) *types.Purchase {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.Purchase{
		ID:          uuid.New(),
		UserID:      userID,
		CourseID:    ref.Normalize(courseID),
		Price:       19.99,
		Status:      status,
		PurchasedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if status == types.PurchaseCancelled {
		p.CancelledAt = &now
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed purchase: %v", err)
	}
	return p
}

func PtrTime(v time.Time) *time.Time { return &v }
