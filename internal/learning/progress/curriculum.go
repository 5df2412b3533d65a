package progress

import (
	"github.com/yungbote/upwise-backend/internal/domain/catalog"
	"github.com/yungbote/upwise-backend/internal/domain/learner"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
)

type ItemStatus string

const (
	ItemCompleted ItemStatus = "completed"
	ItemUnlocked  ItemStatus = "unlocked"
	ItemLocked    ItemStatus = "locked"
)

type ItemView struct {
	ID         ref.Key    `json:"id"`
	Title      string     `json:"title"`
	Minutes    int        `json:"minutes"`
	IsQuizItem bool       `json:"isQuizItem"`
	Status     ItemStatus `json:"status"`
}

// CurriculumView computes the lock state of each curriculum item. The first
// lesson is always open; later lessons open once the previous lesson is done
// or they are flagged preview; quiz items open once every lesson is done.
// A passed quiz shows its quiz items as completed.
func CurriculumView(items []catalog.CurriculumItem, rec *learner.ProgressRecord) []ItemView {
	done := map[ref.Key]struct{}{}
	quizPassed := false
	if rec != nil {
		for _, k := range rec.CompletedLessons {
			done[ref.Normalize(k)] = struct{}{}
		}
		quizPassed = rec.QuizPassed
	}

	allLessonsDone := true
	for _, it := range items {
		if it.IsQuizItem {
			continue
		}
		if _, ok := done[ref.Normalize(it.ID)]; !ok {
			allLessonsDone = false
			break
		}
	}

	out := make([]ItemView, 0, len(items))
	prevLessonDone := true
	for _, it := range items {
		id := ref.Normalize(it.ID)
		v := ItemView{ID: id, Title: it.Title, Minutes: it.Minutes, IsQuizItem: it.IsQuizItem}
		if it.IsQuizItem {
			switch {
			case quizPassed:
				v.Status = ItemCompleted
			case allLessonsDone:
				v.Status = ItemUnlocked
			default:
				v.Status = ItemLocked
			}
			out = append(out, v)
			continue
		}
		_, isDone := done[id]
		switch {
		case isDone:
			v.Status = ItemCompleted
		case prevLessonDone || it.Preview:
			v.Status = ItemUnlocked
		default:
			v.Status = ItemLocked
		}
		prevLessonDone = isDone
		out = append(out, v)
	}
	return out
}
