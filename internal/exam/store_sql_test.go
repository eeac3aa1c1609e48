package exam

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/ielts-listening/internal/db"
)

var sqliteSeq atomic.Int64

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name, sqliteSeq.Add(1))
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serializes writers
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { dbh.Close() })
	return NewSQLStore(dbh, string(db.DriverSQLite))
}

func TestSQLStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return newSQLiteStore(t) })
}

func TestSQLStorePutTestUpserts(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	tt := threeQuestionTest("t1")
	require.NoError(t, s.PutTest(ctx, tt))

	tt.Title = "Renamed"
	tt.IsActive = false
	tt.Parts[0].Questions = tt.Parts[0].Questions[:2]
	require.NoError(t, s.PutTest(ctx, tt))

	got, err := s.GetTest(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.False(t, got.IsActive)
	assert.Len(t, got.Parts[0].Questions, 2)

	list, err := s.ListTests(ctx, ListOpts{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].QuestionCount)
}

func TestSQLStoreOffsetWithoutLimit(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	seed(t, s, threeQuestionTest("t1"), threeQuestionTest("t2"))

	list, err := s.ListTests(ctx, ListOpts{Offset: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestServiceOnSQLStore(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	seed(t, s, fortyQuestionTest("full"))
	svc := NewService(s, WithClock(fixedClock))

	a, err := svc.Start(ctx, "full", "u1")
	require.NoError(t, err)
	_, err = svc.SaveProgress(ctx, a.ID, "u1", ProgressUpdate{Answers: answersFor(20), CurrentPart: intPtr(4)})
	require.NoError(t, err)

	res, err := svc.Submit(ctx, a.ID, "u1", SubmitRequest{Answers: answersFor(32), TimeRemaining: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, 32, res.CorrectCount)
	assert.Equal(t, 7.5, res.BandScore)
	assert.Equal(t, 40, res.TotalQuestions)

	_, err = svc.Submit(ctx, a.ID, "u1", SubmitRequest{Answers: answersFor(40)})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	got, err := s.GetAttempt(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 32, *got.CorrectCount)
	assert.Equal(t, 7.5, *got.BandScore)
	assert.Equal(t, 5, got.TimeRemaining)
	assert.Equal(t, 4, got.CurrentPart)
}

func TestSQLStoreOpenAttemptAfterRacingSubmit(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	seed(t, s, fortyQuestionTest("full"))
	first, created, err := s.OpenAttempt(ctx, newAttempt("a1", "full", "u1"))
	require.NoError(t, err)
	require.True(t, created)

	// the open attempt is submitted after the second start's insert was
	// skipped but before it reads the winner back
	calls := 0
	s.beforeReread = func() {
		calls++
		if calls == 1 {
			_, err := s.Finalize(ctx, first.ID, Finalization{Answers: answersFor(10), SubmittedAt: fixedNow})
			require.NoError(t, err)
		}
	}
	got, created, err := s.OpenAttempt(ctx, newAttempt("a2", "full", "u1"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "a2", got.ID)
	assert.False(t, got.Submitted())
	assert.Equal(t, 2, calls)
}
