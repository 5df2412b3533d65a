// Package achievements derives dashboard badges and the recent-activity feed
// from ledger rows. Nothing here is stored.
package achievements

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yungbote/upwise-backend/internal/domain/commerce"
	"github.com/yungbote/upwise-backend/internal/domain/learner"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
)

const (
	BadgeFirstLesson    = "first-lesson"
	BadgeFiveHours      = "5-hours"
	BadgeCompleteCourse = "complete-course"

	DefaultFeedLimit = 30

	fiveHours = 5.0
)

type Badge struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	EarnedAt    *time.Time `json:"earnedAt"`
	Progress    float64    `json:"progress"`
}

// Badges evaluates the fixed badge set over records. Callers pass only
// records backed by an active purchase.
func Badges(records []*learner.ProgressRecord, now time.Time) []Badge {
	var (
		started   *time.Time
		completed *time.Time
		hours     float64
	)
	for _, r := range records {
		if r == nil {
			continue
		}
		hours += r.HoursLearned
		if r.Percent > 0 || len(r.CompletedLessons) > 0 {
			started = earliest(started, r.LastSeenAt)
		}
		if r.CompletedAt != nil {
			completed = earliest(completed, *r.CompletedAt)
		}
	}

	first := Badge{ID: BadgeFirstLesson, Title: "First Lesson", Description: "Started your first lesson."}
	if started != nil {
		first.EarnedAt, first.Progress = started, 1
	}

	five := Badge{ID: BadgeFiveHours, Title: "5 Hours Learned", Description: "Learn for 5 hours to earn this."}
	five.Progress = math.Min(1, hours/fiveHours)
	if hours >= fiveHours {
		at := now.UTC()
		five.EarnedAt = &at
	}

	done := Badge{ID: BadgeCompleteCourse, Title: "Course Completed", Description: "Complete a course to unlock."}
	if completed != nil {
		done.EarnedAt, done.Progress = completed, 1
	}
	return []Badge{first, five, done}
}

type EventType string

const (
	EventPurchase        EventType = "purchase"
	EventCourseCompleted EventType = "course_completed"
	EventCourseProgress  EventType = "course_progress"
	EventQuizSubmitted   EventType = "quiz_submitted"
)

type Event struct {
	ID       string         `json:"id"`
	Type     EventType      `json:"type"`
	Title    string         `json:"title"`
	CourseID ref.Key        `json:"courseId,omitempty"`
	Time     time.Time      `json:"time"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// FeedInput is everything the activity feed reads for one user.
type FeedInput struct {
	Purchases    []*commerce.Purchase
	Records      []*learner.ProgressRecord
	Submissions  []*learner.QuizSubmission
	CourseTitles map[ref.Key]string
}

// ActivityFeed merges purchases, progress and quiz attempts into a single
// newest-first list of at most limit events.
func ActivityFeed(in FeedInput, limit int) []Event {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	title := func(id ref.Key) string {
		if t, ok := in.CourseTitles[id]; ok && t != "" {
			return t
		}
		return "Course"
	}

	events := make([]Event, 0, len(in.Purchases)+len(in.Records)+len(in.Submissions))
	for _, p := range in.Purchases {
		if p == nil {
			continue
		}
		events = append(events, Event{
			ID:       fmt.Sprintf("purchase_%s_%d", p.CourseID, p.PurchasedAt.UnixMilli()),
			Type:     EventPurchase,
			Title:    "Purchased: " + title(p.CourseID),
			CourseID: p.CourseID,
			Time:     p.PurchasedAt,
			Meta:     map[string]any{"price": p.Price, "status": p.Status, "courseTitle": title(p.CourseID)},
		})
	}
	for _, r := range in.Records {
		if r == nil {
			continue
		}
		if r.CompletedAt != nil {
			events = append(events, Event{
				ID:       fmt.Sprintf("completed_%s_%d", r.CourseID, r.CompletedAt.UnixMilli()),
				Type:     EventCourseCompleted,
				Title:    "Completed: " + title(r.CourseID),
				CourseID: r.CourseID,
				Time:     *r.CompletedAt,
				Meta:     map[string]any{"percent": r.Percent, "courseTitle": title(r.CourseID)},
			})
			continue
		}
		if r.LastSeenAt.IsZero() {
			continue
		}
		events = append(events, Event{
			ID:       fmt.Sprintf("progress_%s_%d", r.CourseID, r.LastSeenAt.UnixMilli()),
			Type:     EventCourseProgress,
			Title:    "Viewed: " + title(r.CourseID),
			CourseID: r.CourseID,
			Time:     r.LastSeenAt,
			Meta:     map[string]any{"percent": r.Percent, "courseTitle": title(r.CourseID)},
		})
	}
	for _, s := range in.Submissions {
		if s == nil {
			continue
		}
		outcome := "failed"
		if s.Passed {
			outcome = "passed"
		}
		events = append(events, Event{
			ID:       "quiz_" + s.ID.String(),
			Type:     EventQuizSubmitted,
			Title:    fmt.Sprintf("Quiz %s: %s", outcome, title(s.CourseID)),
			CourseID: s.CourseID,
			Time:     s.SubmittedAt,
			Meta:     map[string]any{"percentage": s.Percentage, "passed": s.Passed},
		})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Time.After(events[j].Time) })
	if len(events) > limit {
		events = events[:limit]
	}
	return events
}

func earliest(cur *time.Time, t time.Time) *time.Time {
	if t.IsZero() {
		return cur
	}
	if cur == nil || t.Before(*cur) {
		at := t
		return &at
	}
	return cur
}
