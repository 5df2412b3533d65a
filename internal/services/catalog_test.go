package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/upwise-backend/internal/data/repos"
	"github.com/yungbote/upwise-backend/internal/data/repos/testutil"
	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/platform/apierr"
)

func TestCatalogSeedAndRead(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewCatalogService(db, log, repos.NewSet(db, log).Course)
	ctx := t.Context()

	id := ref.Key("cat-" + uuid.NewString()[:8])
	c := testutil.CourseFixture(id, 3)
	n, err := svc.Seed(ctx, []*types.Course{c})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c.Title = "Renamed"
	_, err = svc.Seed(ctx, []*types.Course{c})
	require.NoError(t, err, "seed upserts by id")

	view, err := svc.GetCourse(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", view.Title)
	require.NotNil(t, view.Quiz)
	assert.Equal(t, 4, view.Quiz.QuestionCount)
	assert.Len(t, view.Curriculum, 4)

	list, err := svc.ListCourses(ctx)
	require.NoError(t, err)
	found := false
	for _, v := range list {
		found = found || v.ID == id
	}
	assert.True(t, found)

	_, err = svc.GetCourse(ctx, "missing")
	assert.Equal(t, apierr.CodeCourseNotFound, apierr.CodeOf(err))
}

func TestCatalogSeedRejectsInvalidCourse(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewCatalogService(db, log, repos.NewSet(db, log).Course)

	bad := testutil.CourseFixture("bad-"+ref.Key(uuid.NewString()[:8]), 2)
	q, _ := bad.QuizDef()
	q.Questions[0].CorrectOptionID = "zzz"
	bad.Quiz = datatypes.NewJSONType(q)

	_, err := svc.Seed(t.Context(), []*types.Course{bad})
	assert.Equal(t, apierr.CodeInvalidInput, apierr.CodeOf(err))
	_, err = svc.GetCourse(t.Context(), bad.ID)
	assert.True(t, apierr.IsCode(err, apierr.CodeCourseNotFound), "nothing written")
}
