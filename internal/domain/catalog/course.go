package catalog

import (
	"fmt"
	"time"

	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"gorm.io/datatypes"
)

type CurriculumItem struct {
	ID         ref.Key `json:"id"`
	Title      string  `json:"title"`
	Minutes    int     `json:"minutes"`
	IsQuizItem bool    `json:"isQuizItem"`
	Preview    bool    `json:"preview,omitempty"`
}

type Option struct {
	ID   ref.Key `json:"id"`
	Text string  `json:"text"`
}

type Question struct {
	ID              ref.Key  `json:"id"`
	Text            string   `json:"text"`
	Options         []Option `json:"options"`
	CorrectOptionID ref.Key  `json:"correctOptionId"`
	Points          int      `json:"points"`
}

type Quiz struct {
	ID                ref.Key    `json:"id"`
	Title             string     `json:"title"`
	EstimatedMins     int        `json:"estimatedMins"`
	PassingPercentage int        `json:"passingPercentage"`
	Questions         []Question `json:"questions"`
}

// Course is admin-managed catalog data. The service only reads it.
type Course struct {
	ID          ref.Key `gorm:"column:id;primaryKey" json:"id"`
	Title       string  `gorm:"column:title;not null" json:"title"`
	Author      string  `gorm:"column:author" json:"author"`
	Level       string  `gorm:"column:level" json:"level"`
	PriceNumber float64 `gorm:"column:price_number;not null" json:"priceNumber"`
	Img         string  `gorm:"column:img" json:"img"`
	Description string  `gorm:"column:description" json:"description"`

	Curriculum datatypes.JSONSlice[CurriculumItem] `gorm:"column:curriculum" json:"curriculum"`
	Quiz       datatypes.JSONType[Quiz]            `gorm:"column:quiz" json:"quiz"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Course) TableName() string { return "course" }

// QuizDef returns the embedded quiz, or false when the course has none.
func (c *Course) QuizDef() (Quiz, bool) {
	if c == nil {
		return Quiz{}, false
	}
	q := c.Quiz.Data()
	if q.ID.IsZero() && len(q.Questions) == 0 {
		return Quiz{}, false
	}
	return q, true
}

func (c *Course) Item(id ref.Key) (CurriculumItem, bool) {
	if c == nil {
		return CurriculumItem{}, false
	}
	id = ref.Normalize(id)
	for _, it := range c.Curriculum {
		if ref.Normalize(it.ID) == id {
			return it, true
		}
	}
	return CurriculumItem{}, false
}

// LessonIDs lists the non-quiz curriculum item ids in curriculum order.
func (c *Course) LessonIDs() []ref.Key {
	if c == nil {
		return nil
	}
	out := make([]ref.Key, 0, len(c.Curriculum))
	for _, it := range c.Curriculum {
		if !it.IsQuizItem {
			out = append(out, ref.Normalize(it.ID))
		}
	}
	return ref.Set(out...)
}

func (c *Course) Items() []CurriculumItem {
	if c == nil {
		return nil
	}
	return []CurriculumItem(c.Curriculum)
}

// Validate checks the structural invariants of catalog data: unique curriculum
// ids, unique question ids, and every correctOptionId naming an option of its
// own question.
func (c *Course) Validate() error {
	if c == nil {
		return fmt.Errorf("course is nil")
	}
	if c.ID.IsZero() {
		return fmt.Errorf("course id is empty")
	}
	seen := map[ref.Key]struct{}{}
	for i, it := range c.Curriculum {
		id := ref.Normalize(it.ID)
		if id.IsZero() {
			return fmt.Errorf("course %s: curriculum[%d] has empty id", c.ID, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("course %s: duplicate curriculum id %s", c.ID, id)
		}
		seen[id] = struct{}{}
	}
	q, ok := c.QuizDef()
	if !ok {
		return nil
	}
	if q.PassingPercentage < 0 || q.PassingPercentage > 100 {
		return fmt.Errorf("course %s: passingPercentage %d out of range", c.ID, q.PassingPercentage)
	}
	questions := map[ref.Key]struct{}{}
	for i, qu := range q.Questions {
		qid := ref.Normalize(qu.ID)
		if qid.IsZero() {
			return fmt.Errorf("course %s: question[%d] has empty id", c.ID, i)
		}
		if _, dup := questions[qid]; dup {
			return fmt.Errorf("course %s: duplicate question id %s", c.ID, qid)
		}
		questions[qid] = struct{}{}
		if qu.Points < 0 {
			return fmt.Errorf("course %s: question %s has negative points", c.ID, qid)
		}
		found := false
		for _, opt := range qu.Options {
			if ref.Normalize(opt.ID) == ref.Normalize(qu.CorrectOptionID) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("course %s: question %s correctOptionId %q is not one of its options", c.ID, qid, qu.CorrectOptionID)
		}
	}
	return nil
}
