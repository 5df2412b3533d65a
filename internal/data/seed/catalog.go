// Package seed loads catalog data from YAML files into domain courses.
package seed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
)

var catalogValidate *validator.Validate

func init() {
	catalogValidate = validator.New()
	_ = catalogValidate.RegisterValidation("refkey", validateRefKey)
}

// validateRefKey rejects ids that normalize to the empty key.
func validateRefKey(fl validator.FieldLevel) bool {
	return !ref.Normalize(fl.Field().String()).IsZero()
}

type CatalogFile struct {
	Courses []CourseSeed `yaml:"courses" validate:"required,min=1,dive"`
}

type CourseSeed struct {
	ID          ref.Key          `yaml:"id" validate:"refkey"`
	Title       string           `yaml:"title" validate:"required"`
	Author      string           `yaml:"author"`
	Level       string           `yaml:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	PriceNumber float64          `yaml:"priceNumber" validate:"gte=0"`
	Img         string           `yaml:"img"`
	Description string           `yaml:"description"`
	Curriculum  []CurriculumSeed `yaml:"curriculum" validate:"dive"`
	Quiz        *QuizSeed        `yaml:"quiz" validate:"omitempty"`
}

type CurriculumSeed struct {
	ID         ref.Key `yaml:"id" validate:"refkey"`
	Title      string  `yaml:"title" validate:"required"`
	Minutes    int     `yaml:"minutes" validate:"gte=0"`
	IsQuizItem bool    `yaml:"isQuizItem"`
	Preview    bool    `yaml:"preview"`
}

type QuizSeed struct {
	ID                ref.Key        `yaml:"id" validate:"refkey"`
	Title             string         `yaml:"title"`
	EstimatedMins     int            `yaml:"estimatedMins" validate:"gte=0"`
	PassingPercentage int            `yaml:"passingPercentage" validate:"gte=0,lte=100"`
	Questions         []QuestionSeed `yaml:"questions" validate:"required,min=1,dive"`
}

type QuestionSeed struct {
	ID              ref.Key      `yaml:"id" validate:"refkey"`
	Text            string       `yaml:"text" validate:"required"`
	Options         []OptionSeed `yaml:"options" validate:"required,min=2,dive"`
	CorrectOptionID ref.Key      `yaml:"correctOptionId" validate:"refkey"`
	// Points defaults to 1 when omitted.
	Points *int `yaml:"points" validate:"omitempty,gte=0"`
}

type OptionSeed struct {
	ID   ref.Key `yaml:"id" validate:"refkey"`
	Text string  `yaml:"text" validate:"required"`
}

func LoadCatalogFile(path string) ([]*types.Course, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog seed: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// LoadCatalog decodes, validates and converts a catalog seed document. Every
// course must also pass Course.Validate.
func LoadCatalog(r io.Reader) ([]*types.Course, error) {
	var file CatalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog seed is empty")
		}
		return nil, fmt.Errorf("decode catalog seed: %w", err)
	}
	if err := catalogValidate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid catalog seed: %w", describe(err))
	}

	out := make([]*types.Course, 0, len(file.Courses))
	seen := map[ref.Key]struct{}{}
	for _, cs := range file.Courses {
		c := cs.toCourse()
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("invalid catalog seed: duplicate course id %s", c.ID)
		}
		seen[c.ID] = struct{}{}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid catalog seed: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (cs CourseSeed) toCourse() *types.Course {
	c := &types.Course{
		ID:          ref.Normalize(cs.ID),
		Title:       strings.TrimSpace(cs.Title),
		Author:      strings.TrimSpace(cs.Author),
		Level:       cs.Level,
		PriceNumber: cs.PriceNumber,
		Img:         cs.Img,
		Description: cs.Description,
	}
	items := make(datatypes.JSONSlice[types.CurriculumItem], 0, len(cs.Curriculum))
	for _, it := range cs.Curriculum {
		items = append(items, types.CurriculumItem{
			ID:         ref.Normalize(it.ID),
			Title:      it.Title,
			Minutes:    it.Minutes,
			IsQuizItem: it.IsQuizItem,
			Preview:    it.Preview,
		})
	}
	c.Curriculum = items

	var quiz types.Quiz
	if cs.Quiz != nil {
		quiz = types.Quiz{
			ID:                ref.Normalize(cs.Quiz.ID),
			Title:             cs.Quiz.Title,
			EstimatedMins:     cs.Quiz.EstimatedMins,
			PassingPercentage: cs.Quiz.PassingPercentage,
		}
		for _, qs := range cs.Quiz.Questions {
			points := 1
			if qs.Points != nil {
				points = *qs.Points
			}
			q := types.Question{
				ID:              ref.Normalize(qs.ID),
				Text:            qs.Text,
				CorrectOptionID: ref.Normalize(qs.CorrectOptionID),
				Points:          points,
			}
			for _, o := range qs.Options {
				q.Options = append(q.Options, types.Option{ID: ref.Normalize(o.ID), Text: o.Text})
			}
			quiz.Questions = append(quiz.Questions, q)
		}
	}
	c.Quiz = datatypes.NewJSONType(quiz)
	return c
}

// describe flattens validator errors into one readable line.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}
