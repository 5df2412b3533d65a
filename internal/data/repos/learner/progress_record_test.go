package learner

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/upwise-backend/internal/data/repos/testutil"
	types "github.com/yungbote/upwise-backend/internal/domain"
	"github.com/yungbote/upwise-backend/internal/domain/ref"
	"github.com/yungbote/upwise-backend/internal/platform/dbctx"
)

func TestProgressRecordRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProgressRecordRepo(db, testutil.Logger(t))

	userID := uuid.New()
	first := &types.ProgressRecord{UserID: userID, CourseID: "9"}
	if err := repo.EnsureExists(dbc, first); err != nil {
		t.Fatalf("EnsureExists: %v", err)
	}
	second := &types.ProgressRecord{UserID: userID, CourseID: "009", Percent: 77}
	if err := repo.EnsureExists(dbc, second); err != nil {
		t.Fatalf("EnsureExists again: %v", err)
	}

	rec, err := repo.Get(dbc, userID, "9")
	if err != nil || rec == nil {
		t.Fatalf("Get: err=%v rec=%v", err, rec)
	}
	if rec.ID != first.ID || rec.Percent != 0 {
		t.Fatalf("EnsureExists must not overwrite: id=%v percent=%d", rec.ID, rec.Percent)
	}

	done := time.Now().UTC().Truncate(time.Second)
	rec.Percent = 50
	rec.CompletedLessons = []ref.Key{"a", "b"}
	rec.CompletedAt = &done
	ok, err := repo.UpdateIfVersion(dbc, rec, rec.Version)
	if err != nil || !ok {
		t.Fatalf("UpdateIfVersion: ok=%v err=%v", ok, err)
	}
	if rec.Version != 1 {
		t.Fatalf("version: want=1 got=%d", rec.Version)
	}

	stale := *rec
	stale.Percent = 10
	ok, err = repo.UpdateIfVersion(dbc, &stale, 0)
	if err != nil || ok {
		t.Fatalf("stale UpdateIfVersion: want ok=false, got ok=%v err=%v", ok, err)
	}

	rec, _ = repo.Get(dbc, userID, "9")
	if rec.Percent != 50 || len(rec.CompletedLessons) != 2 || rec.CompletedAt == nil {
		t.Fatalf("after update: %+v", rec)
	}

	rows, err := repo.ListByUser(dbc, userID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListByUser: err=%v len=%d", err, len(rows))
	}
	ids, err := repo.ListUserIDs(dbc)
	if err != nil || len(ids) < 1 {
		t.Fatalf("ListUserIDs: err=%v len=%d", err, len(ids))
	}
}

func TestQuizSubmissionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewQuizSubmissionRepo(db, testutil.Logger(t))

	userID := uuid.New()
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		s := &types.QuizSubmission{
			UserID:      userID,
			CourseID:    "3",
			QuizID:      "quiz",
			Answers:     []types.GradedAnswer{{QuestionID: "q1", SelectedOptionID: "b", Correct: true, PointsAwarded: 2}},
			Percentage:  i * 10,
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(dbc, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	rows, err := repo.ListByUserCourse(dbc, userID, "03", 0)
	if err != nil || len(rows) != 3 {
		t.Fatalf("ListByUserCourse: err=%v len=%d", err, len(rows))
	}
	if rows[0].Percentage != 20 {
		t.Fatalf("newest first: want=20 got=%d", rows[0].Percentage)
	}
	if len(rows[0].Answers) != 1 || !rows[0].Answers[0].Correct {
		t.Fatalf("answers round trip: %+v", rows[0].Answers)
	}
	if rows, err := repo.ListByUser(dbc, userID, 2); err != nil || len(rows) != 2 {
		t.Fatalf("ListByUser limit: err=%v len=%d", err, len(rows))
	}
}

func TestActivityRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewActivityRepo(db, testutil.Logger(t))

	userID := uuid.New()
	for _, d := range []string{"2026-05-01", "2026-05-02", "2026-05-02", "2026-04-01"} {
		if err := repo.TouchDay(dbc, userID, d); err != nil {
			t.Fatalf("TouchDay(%s): %v", d, err)
		}
	}
	days, err := repo.ListDaysSince(dbc, userID, "2026-04-15")
	if err != nil {
		t.Fatalf("ListDaysSince: %v", err)
	}
	if len(days) != 2 || days[0] != "2026-05-02" {
		t.Fatalf("ListDaysSince: want=[2026-05-02 2026-05-01] got=%v", days)
	}

	if row, err := repo.Get(dbc, userID); err != nil || row != nil {
		t.Fatalf("Get empty: err=%v row=%v", err, row)
	}
	at := time.Now().UTC()
	if err := repo.Save(dbc, &types.UserActivity{UserID: userID, StreakDays: 2, LastActiveAt: &at}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(dbc, &types.UserActivity{UserID: userID, StreakDays: 3, LastActiveAt: &at}); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	row, err := repo.GetForUpdate(dbc, userID)
	if err != nil || row == nil || row.StreakDays != 3 {
		t.Fatalf("GetForUpdate: err=%v row=%+v", err, row)
	}
}
