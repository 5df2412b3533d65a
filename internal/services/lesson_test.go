package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/learning/progress"
	"github.com/yungbote/upwise-backend/internal/platform/apierr"
	"github.com/yungbote/upwise-backend/internal/realtime"
)

func TestMarkLessonCompleteIsIdempotent(t *testing.T) {
	h := newHarness(t, LedgerConfig{})
	c := h.course(4)
	user := uuid.New()
	h.buy(user, c.ID)

	first, err := h.lessons.MarkLessonComplete(h.ctx, user, c.ID, "lesson-1")
	require.NoError(t, err)
	second, err := h.lessons.MarkLessonComplete(h.ctx, user, c.ID, "lesson-1")
	require.NoError(t, err)

	assert.Equal(t, 25, first.Percent)
	assert.Equal(t, 25, second.Percent)
	assert.Len(t, second.CompletedLessons, 1)
	assert.Nil(t, second.CompletedAt)
}

func TestMarkingEveryLessonDoesNotCompleteCourse(t *testing.T) {
	h := newHarness(t, LedgerConfig{})
	c := h.course(4)
	user := uuid.New()
	h.buy(user, c.ID)

	rec := h.markAll(user, c)
	require.Equal(t, 100, rec.Percent)
	assert.Nil(t, rec.CompletedAt)
	assert.False(t, rec.QuizPassed)
	assert.Equal(t, 99, progress.DisplayPercent(rec.Percent, rec.QuizPassed))
	assert.False(t, progress.CertificateEligible(rec, true))
}

func TestMarkLessonRejections(t *testing.T) {
	h := newHarness(t, LedgerConfig{})
	c := h.course(3)
	buyer, stranger := uuid.New(), uuid.New()
	h.buy(buyer, c.ID)

	cases := []struct {
		name     string
		user     uuid.UUID
		courseID string
		lessonID string
		code     string
	}{
		{"not purchased", stranger, string(c.ID), "lesson-1", apierr.CodeNotPurchased},
		{"unknown course", buyer, "missing-course", "lesson-1", apierr.CodeCourseNotFound},
		{"unknown lesson", buyer, string(c.ID), "lesson-9", apierr.CodeLessonNotFound},
		{"quiz item", buyer, string(c.ID), "quiz", apierr.CodeInvalidInput},
		{"empty lesson", buyer, string(c.ID), "", apierr.CodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.lessons.MarkLessonComplete(h.ctx, tc.user, ref.Key(tc.courseID), ref.Key(tc.lessonID))
			require.Error(t, err)
			assert.Equal(t, tc.code, apierr.CodeOf(err))
		})
	}

	assert.Nil(t, h.record(stranger, c.ID), "rejected mark must not create a record")
	rec := h.record(buyer, c.ID)
	require.NotNil(t, rec)
	assert.Empty(t, rec.CompletedLessons)
}

func TestMarkLessonAfterCancelIsRejected(t *testing.T) {
	h := newHarness(t, LedgerConfig{})
	c := h.course(2)
	user := uuid.New()
	h.buy(user, c.ID)
	_, err := h.purchases.Cancel(h.ctx, user, c.ID)
	require.NoError(t, err)

	_, err = h.lessons.MarkLessonComplete(h.ctx, user, c.ID, "lesson-1")
	assert.True(t, apierr.IsCode(err, apierr.CodeNotPurchased))
}

func TestConcurrentLessonMarksConverge(t *testing.T) {
	h := newHarness(t, LedgerConfig{})
	c := h.course(4)
	user := uuid.New()
	h.buy(user, c.ID)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for round := 0; round < 2; round++ {
		for _, id := range c.LessonIDs() {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := h.lessons.MarkLessonComplete(h.ctx, user, c.ID, ref.Key(id)); err != nil {
					errs <- err
				}
			}(string(id))
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rec := h.record(user, c.ID)
	require.NotNil(t, rec)
	assert.Equal(t, 100, rec.Percent)
	assert.Len(t, rec.CompletedLessons, 4)
}

func TestMarkLessonNotifiesLearner(t *testing.T) {
	h := newHarness(t, LedgerConfig{})
	c := h.course(2)
	user := uuid.New()
	h.buy(user, c.ID)

	_, err := h.lessons.MarkLessonComplete(h.ctx, user, c.ID, "lesson-2")
	require.NoError(t, err)

	events := h.emit.events()
	require.NotEmpty(t, events)
	assert.Equal(t, realtime.SSEEventProgressUpdated, events[len(events)-1])
	h.emit.mu.Lock()
	assert.Equal(t, realtime.UserChannel(user), h.emit.msgs[len(h.emit.msgs)-1].Channel)
	h.emit.mu.Unlock()
}

func TestGetModule(t *testing.T) {
	h := newHarness(t, LedgerConfig{})
	c := h.course(2)
	user := uuid.New()

	_, err := h.lessons.GetModule(h.ctx, user, c.ID, "lesson-1")
	assert.True(t, apierr.IsCode(err, apierr.CodeNotPurchased))

	h.buy(user, c.ID)
	mod, err := h.lessons.GetModule(h.ctx, user, c.ID, "lesson-1")
	require.NoError(t, err)
	assert.Equal(t, c.Title, mod.CourseTitle)
	assert.EqualValues(t, "lesson-1", mod.Module.ID)

	_, err = h.lessons.GetModule(h.ctx, user, c.ID, "nope")
	assert.True(t, apierr.IsCode(err, apierr.CodeLessonNotFound))
}
