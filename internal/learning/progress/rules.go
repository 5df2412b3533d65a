// Package progress holds the ledger rules that fold lesson marks, study time and
// quiz results into a ProgressRecord.
//
// Every rule is commutative or idempotent (set union, additive-with-ceiling,
// monotonic flag, write-once timestamp), so re-applying a rule to a fresher row
// after a lost write race yields the same result as any serial order.
package progress

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/upwise-backend/internal/domain/learner"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"gorm.io/datatypes"
)

const DefaultMaxHoursPerCourse = 50.0

// New returns a fresh record for the pair.
func New(userID uuid.UUID, courseID ref.Key, now time.Time) *learner.ProgressRecord {
	return &learner.ProgressRecord{
		ID:               uuid.New(),
		UserID:           userID,
		CourseID:         ref.Normalize(courseID),
		CompletedLessons: datatypes.JSONSlice[ref.Key]{},
		LastSeenAt:       now.UTC(),
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}
}

// LessonPercent is round(100 * |completed ∩ lessons| / |lessons|) clamped to [0,100].
// lessonIDs must already exclude quiz items.
func LessonPercent(completed []ref.Key, lessonIDs []ref.Key) int {
	lessons := ref.Set(lessonIDs...)
	if len(lessons) == 0 {
		return 0
	}
	done := make(map[ref.Key]struct{}, len(completed))
	for _, k := range completed {
		done[ref.Normalize(k)] = struct{}{}
	}
	hit := 0
	for _, k := range lessons {
		if _, ok := done[k]; ok {
			hit++
		}
	}
	return clampPercent(int(math.Round(100 * float64(hit) / float64(len(lessons)))))
}

// MarkLesson adds lessonID to the completed set and recomputes percent.
// It reports whether the lesson was newly added. completedAt is never touched.
func MarkLesson(rec *learner.ProgressRecord, lessonID ref.Key, lessonIDs []ref.Key, now time.Time) bool {
	lessonID = ref.Normalize(lessonID)
	added := false
	if !lessonID.IsZero() && !ref.Contains(rec.CompletedLessons, lessonID) {
		rec.CompletedLessons = append(rec.CompletedLessons, lessonID)
		added = true
	}
	rec.CompletedLessons = datatypes.JSONSlice[ref.Key](ref.Set(rec.CompletedLessons...))
	rec.Percent = derivedPercent(rec, lessonIDs)
	touch(rec, now)
	return added
}

// AddStudyTime accrues seconds of study, capped at maxHours. Negative or
// non-finite input counts as zero. It returns the hours actually credited.
func AddStudyTime(rec *learner.ProgressRecord, seconds float64, maxHours float64, now time.Time) float64 {
	if maxHours <= 0 {
		maxHours = DefaultMaxHoursPerCourse
	}
	before := SanitizeHours(rec.HoursLearned, maxHours)
	add := 0.0
	if !math.IsNaN(seconds) && !math.IsInf(seconds, 0) && seconds > 0 {
		add = seconds / 3600
	}
	rec.HoursLearned = SanitizeHours(before+add, maxHours)
	touch(rec, now)
	return rec.HoursLearned - before
}

// ApplyQuizResult records a graded attempt. A pass sets quizPassed and percent
// 100 and stamps completedAt only if it was nil. It reports whether this call
// completed the course.
func ApplyQuizResult(rec *learner.ProgressRecord, passed bool, now time.Time) bool {
	touch(rec, now)
	if !passed {
		return false
	}
	rec.QuizPassed = true
	rec.Percent = 100
	if rec.CompletedAt == nil {
		at := now.UTC()
		rec.CompletedAt = &at
		return true
	}
	return false
}

// Reset returns the record to the state of a fresh purchase.
func Reset(rec *learner.ProgressRecord, now time.Time) {
	rec.Percent = 0
	rec.HoursLearned = 0
	rec.CompletedLessons = datatypes.JSONSlice[ref.Key]{}
	rec.QuizPassed = false
	rec.CompletedAt = nil
	touch(rec, now)
}

// Reconcile merges duplicate records for the same pair. Percent is the
// maximum of every stored percent and the percent derived from the merged
// lesson set, so a stored value never regresses. The first record's identity
// is kept.
func Reconcile(lessonIDs []ref.Key, maxHours float64, records ...*learner.ProgressRecord) *learner.ProgressRecord {
	var out *learner.ProgressRecord
	for _, r := range records {
		if r == nil {
			continue
		}
		if out == nil {
			out = r.Clone()
			out.HoursLearned = SanitizeHours(out.HoursLearned, maxHours)
			out.CompletedLessons = datatypes.JSONSlice[ref.Key](ref.Set(out.CompletedLessons...))
			out.Percent = clampPercent(out.Percent)
			continue
		}
		if p := clampPercent(r.Percent); p > out.Percent {
			out.Percent = p
		}
		if h := SanitizeHours(r.HoursLearned, maxHours); h > out.HoursLearned {
			out.HoursLearned = h
		}
		merged := append(append([]ref.Key{}, out.CompletedLessons...), r.CompletedLessons...)
		out.CompletedLessons = datatypes.JSONSlice[ref.Key](ref.Set(merged...))
		out.QuizPassed = out.QuizPassed || r.QuizPassed
		if r.CompletedAt != nil && (out.CompletedAt == nil || r.CompletedAt.Before(*out.CompletedAt)) {
			at := *r.CompletedAt
			out.CompletedAt = &at
		}
		if r.LastSeenAt.After(out.LastSeenAt) {
			out.LastSeenAt = r.LastSeenAt
		}
		if r.Version > out.Version {
			out.Version = r.Version
		}
	}
	if out == nil {
		return nil
	}
	out.Percent = Rederive(out.Percent, out, lessonIDs)
	return out
}

// Rederive returns the larger of stored and the percent rec's lessons and
// quiz state earn against lessonIDs.
func Rederive(stored int, rec *learner.ProgressRecord, lessonIDs []ref.Key) int {
	stored = clampPercent(stored)
	if d := derivedPercent(rec, lessonIDs); d > stored {
		return d
	}
	return stored
}

// SanitizeHours clamps hours into [0, maxHours]; non-finite values become 0.
func SanitizeHours(hours float64, maxHours float64) float64 {
	if maxHours <= 0 {
		maxHours = DefaultMaxHoursPerCourse
	}
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 {
		return 0
	}
	if hours > maxHours {
		return maxHours
	}
	return hours
}

// DisplayPercent applies the dashboard convention of showing 99 while lessons
// are done but the quiz is not yet passed. Stored percent is never changed.
func DisplayPercent(percent int, quizPassed bool) int {
	percent = clampPercent(percent)
	if percent >= 100 && !quizPassed {
		return 99
	}
	return percent
}

// Completed reports whether the record satisfies the completion policy.
func Completed(rec *learner.ProgressRecord) bool {
	return rec != nil && rec.Percent >= 100 && rec.QuizPassed
}

func CertificateEligible(rec *learner.ProgressRecord, purchaseActive bool) bool {
	return purchaseActive && Completed(rec)
}

func derivedPercent(rec *learner.ProgressRecord, lessonIDs []ref.Key) int {
	if rec.QuizPassed {
		return 100
	}
	return LessonPercent(rec.CompletedLessons, lessonIDs)
}

func touch(rec *learner.ProgressRecord, now time.Time) {
	now = now.UTC()
	if now.After(rec.LastSeenAt) {
		rec.LastSeenAt = now
	}
	rec.UpdatedAt = now
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
