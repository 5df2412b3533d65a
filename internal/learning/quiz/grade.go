// Package quiz grades submissions against the server-side quiz definition.
package quiz

import (
	"math"

	"github.com/yungbote/upwise-backend/internal/domain/catalog"
	"github.com/yungbote/upwise-backend/internal/domain/learner"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
)

// Answer is one client-submitted answer. SelectedIndex is only a fallback
// for clients that send option positions; it is mapped to an option id of the
// referenced question before scoring.
type Answer struct {
	QuestionID       ref.Key `json:"questionId" validate:"required"`
	SelectedOptionID ref.Key `json:"selectedOptionId,omitempty"`
	SelectedIndex    *int    `json:"selectedIndex,omitempty"`
}

type Result struct {
	Answers      []learner.GradedAnswer
	PointsScored int
	PointsTotal  int
	Percentage   int
	Passed       bool
}

// Grade scores answers question by question in quiz order. Unknown question
// ids and unknown options score zero. Only the first answer per question counts.
func Grade(q catalog.Quiz, answers []Answer) Result {
	byQuestion := make(map[ref.Key]Answer, len(answers))
	for _, a := range answers {
		qid := ref.Normalize(a.QuestionID)
		if qid.IsZero() {
			continue
		}
		if _, seen := byQuestion[qid]; seen {
			continue
		}
		byQuestion[qid] = a
	}

	res := Result{Answers: make([]learner.GradedAnswer, 0, len(q.Questions))}
	for _, question := range q.Questions {
		qid := ref.Normalize(question.ID)
		points := question.Points
		if points < 0 {
			points = 0
		}
		res.PointsTotal += points

		graded := learner.GradedAnswer{QuestionID: qid}
		if a, ok := byQuestion[qid]; ok {
			graded.SelectedOptionID = selectedOption(question, a)
			if !graded.SelectedOptionID.IsZero() && graded.SelectedOptionID == ref.Normalize(question.CorrectOptionID) {
				graded.Correct = true
				graded.PointsAwarded = points
				res.PointsScored += points
			}
		}
		res.Answers = append(res.Answers, graded)
	}

	if res.PointsTotal > 0 {
		res.Percentage = int(math.Round(100 * float64(res.PointsScored) / float64(res.PointsTotal)))
	}
	res.Passed = res.Percentage >= q.PassingPercentage
	return res
}

func selectedOption(question catalog.Question, a Answer) ref.Key {
	if id := ref.Normalize(a.SelectedOptionID); !id.IsZero() {
		for _, opt := range question.Options {
			if ref.Normalize(opt.ID) == id {
				return id
			}
		}
		return ""
	}
	if a.SelectedIndex != nil {
		i := *a.SelectedIndex
		if i >= 0 && i < len(question.Options) {
			return ref.Normalize(question.Options[i].ID)
		}
	}
	return ""
}

// PublicQuestion is the client view of a question, without the answer.
type PublicQuestion struct {
	ID      ref.Key          `json:"id"`
	Text    string           `json:"text"`
	Options []catalog.Option `json:"options"`
	Points  int              `json:"points"`
}

type PublicQuiz struct {
	ID                ref.Key          `json:"id"`
	Title             string           `json:"title"`
	EstimatedMins     int              `json:"estimatedMins"`
	PassingPercentage int              `json:"passingPercentage"`
	Questions         []PublicQuestion `json:"questions"`
}

// Redact strips correct answers from q.
func Redact(q catalog.Quiz) PublicQuiz {
	out := PublicQuiz{
		ID:                q.ID,
		Title:             q.Title,
		EstimatedMins:     q.EstimatedMins,
		PassingPercentage: q.PassingPercentage,
		Questions:         make([]PublicQuestion, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		opts := append([]catalog.Option{}, question.Options...)
		out.Questions = append(out.Questions, PublicQuestion{
			ID:      question.ID,
			Text:    question.Text,
			Options: opts,
			Points:  question.Points,
		})
	}
	return out
}
