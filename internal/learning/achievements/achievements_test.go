package achievements

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yungbote/upwise-backend/internal/domain/commerce"
	"github.com/yungbote/upwise-backend/internal/domain/learner"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"gorm.io/datatypes"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestBadges(t *testing.T) {
	done := now.Add(-48 * time.Hour)
	records := []*learner.ProgressRecord{
		{CourseID: "1", Percent: 50, HoursLearned: 2, CompletedLessons: datatypes.JSONSlice[ref.Key]{"a"}, LastSeenAt: now.Add(-time.Hour)},
		{CourseID: "2", Percent: 100, HoursLearned: 1, QuizPassed: true, CompletedAt: &done, LastSeenAt: done},
	}
	badges := Badges(records, now)
	require.Len(t, badges, 3)

	assert.Equal(t, BadgeFirstLesson, badges[0].ID)
	require.NotNil(t, badges[0].EarnedAt)
	assert.Equal(t, done, *badges[0].EarnedAt)

	assert.Equal(t, BadgeFiveHours, badges[1].ID)
	assert.Nil(t, badges[1].EarnedAt)
	assert.InDelta(t, 0.6, badges[1].Progress, 1e-9)

	assert.Equal(t, BadgeCompleteCourse, badges[2].ID)
	require.NotNil(t, badges[2].EarnedAt)
	assert.Equal(t, done, *badges[2].EarnedAt)
}

func TestBadgesEmpty(t *testing.T) {
	for _, b := range Badges(nil, now) {
		assert.Nil(t, b.EarnedAt, b.ID)
		assert.Zero(t, b.Progress, b.ID)
	}
}

func TestActivityFeedOrderingAndLimit(t *testing.T) {
	completed := now.Add(-time.Hour)
	in := FeedInput{
		Purchases: []*commerce.Purchase{
			{CourseID: "1", Status: commerce.StatusActive, PurchasedAt: now.Add(-72 * time.Hour)},
		},
		Records: []*learner.ProgressRecord{
			{CourseID: "1", LastSeenAt: now.Add(-2 * time.Hour)},
			{CourseID: "2", CompletedAt: &completed, LastSeenAt: completed},
		},
		Submissions: []*learner.QuizSubmission{
			{ID: uuid.New(), CourseID: "2", Passed: true, Percentage: 80, SubmittedAt: now.Add(-90 * time.Minute)},
		},
		CourseTitles: map[ref.Key]string{"1": "Go Basics"},
	}
	feed := ActivityFeed(in, 0)
	require.Len(t, feed, 4)
	assert.Equal(t, EventCourseCompleted, feed[0].Type)
	assert.Equal(t, EventQuizSubmitted, feed[1].Type)
	assert.Equal(t, EventCourseProgress, feed[2].Type)
	assert.Equal(t, "Viewed: Go Basics", feed[2].Title)
	assert.Equal(t, EventPurchase, feed[3].Type)

	assert.Len(t, ActivityFeed(in, 2), 2)
}
