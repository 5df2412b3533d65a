package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/upwise-backend/internal/domain/ref"
)

const validCatalog = `
courses:
  - id: "007"
    title: Go Basics
    author: Ada
    level: beginner
    priceNumber: 19.99
    curriculum:
      - {id: l1, title: Intro, minutes: 5, preview: true}
      - {id: l2, title: Types, minutes: 12}
      - {id: quiz, title: Final quiz, isQuizItem: true}
    quiz:
      id: q-7
      passingPercentage: 60
      questions:
        - id: q1
          text: What is a goroutine?
          options: [{id: a, text: A thread}, {id: b, text: A lightweight thread}]
          correctOptionId: b
          points: 2
        - id: q2
          text: Zero value of int?
          options: [{id: a, text: "0"}, {id: b, text: nil}]
          correctOptionId: a
`

func TestLoadCatalogNormalizesAndDefaults(t *testing.T) {
	courses, err := LoadCatalog(strings.NewReader(validCatalog))
	require.NoError(t, err)
	require.Len(t, courses, 1)

	c := courses[0]
	require.Equal(t, ref.Key("7"), c.ID)
	require.Equal(t, []ref.Key{"l1", "l2"}, c.LessonIDs())

	q, ok := c.QuizDef()
	require.True(t, ok)
	require.Equal(t, 2, q.Questions[0].Points)
	require.Equal(t, 1, q.Questions[1].Points, "points default to 1")
}

func TestLoadCatalogRejectsUnknownCorrectOption(t *testing.T) {
	bad := strings.Replace(validCatalog, "correctOptionId: b", "correctOptionId: z", 1)
	_, err := LoadCatalog(strings.NewReader(bad))
	require.Error(t, err)
}

func TestLoadCatalogRejectsDuplicateCurriculumIDs(t *testing.T) {
	bad := strings.Replace(validCatalog, "{id: l2,", "{id: l1,", 1)
	_, err := LoadCatalog(strings.NewReader(bad))
	require.Error(t, err)
}

func TestLoadCatalogTagValidation(t *testing.T) {
	bad := strings.Replace(validCatalog, "passingPercentage: 60", "passingPercentage: 160", 1)
	_, err := LoadCatalog(strings.NewReader(bad))
	require.ErrorContains(t, err, "PassingPercentage")

	_, err = LoadCatalog(strings.NewReader("courses: []\n"))
	require.Error(t, err)

	_, err = LoadCatalog(strings.NewReader(""))
	require.Error(t, err)
}

func TestLoadCatalogRejectsUnknownFields(t *testing.T) {
	bad := strings.Replace(validCatalog, "author: Ada", "authr: Ada", 1)
	_, err := LoadCatalog(strings.NewReader(bad))
	require.Error(t, err)
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validCatalog), 0o600))
	courses, err := LoadCatalogFile(path)
	require.NoError(t, err)
	require.Len(t, courses, 1)

	_, err = LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSampleCatalogLoads(t *testing.T) {
	courses, err := LoadCatalogFile(filepath.Join("..", "..", "..", "config", "catalog.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, courses)
}
