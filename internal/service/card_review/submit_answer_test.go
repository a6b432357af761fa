//go:build test_without_external_deps

package card_review

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/recite-app/recite-api/internal/domain"
	"github.com/recite-app/recite-api/internal/domain/srs"
	"github.com/recite-app/recite-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Transactional paths: the fakes ignore the *sql.Tx, sqlmock just supplies
// the begin/commit/rollback lifecycle around them.

func TestSubmitAnswerUpdatesSchedule(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	userID := uuid.New()
	state := newDueState(t, userID)
	state.Interval = 10
	state.ConsecutiveCorrect = 2
	state.LastReviewedAt = time.Now().UTC().AddDate(0, 0, -10)

	var saved *domain.ReviewState
	reviews := &fakeReviewStore{
		GetForUpdateFunc: func(ctx context.Context, uid, nid uuid.UUID, cid uint) (*domain.ReviewState, error) {
			assert.Equal(t, userID, uid)
			assert.Equal(t, state.NoteID, nid)
			assert.Equal(t, state.ClozeID, cid)
			return state, nil
		},
		UpdateFunc: func(ctx context.Context, s *domain.ReviewState) error {
			saved = s
			return nil
		},
	}

	svc := newTestService(&fakeCardStore{}, reviews)
	svc.db = db
	svc.srsService = srs.NewDefaultService()

	mock.ExpectBegin()
	mock.ExpectCommit()

	updated, err := svc.SubmitAnswer(
		context.Background(), userID, state.NoteID, state.ClozeID,
		ReviewAnswer{Outcome: domain.ReviewOutcomeGood},
	)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, saved, updated)
	assert.Greater(t, updated.Interval, state.Interval)
	assert.Equal(t, state.ReviewCount+1, updated.ReviewCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitAnswerStateNotFound(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	reviews := &fakeReviewStore{
		GetForUpdateFunc: func(ctx context.Context, uid, nid uuid.UUID, cid uint) (*domain.ReviewState, error) {
			return nil, store.ErrReviewStateNotFound
		},
	}

	svc := newTestService(&fakeCardStore{}, reviews)
	svc.db = db

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = svc.SubmitAnswer(
		context.Background(), uuid.New(), uuid.New(), 1,
		ReviewAnswer{Outcome: domain.ReviewOutcomeGood},
	)
	assert.ErrorIs(t, err, ErrReviewStateNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostponeReviewPushesSchedule(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	userID := uuid.New()
	state := newDueState(t, userID)
	due := state.NextReviewAt

	reviews := &fakeReviewStore{
		GetForUpdateFunc: func(ctx context.Context, uid, nid uuid.UUID, cid uint) (*domain.ReviewState, error) {
			return state, nil
		},
		UpdateFunc: func(ctx context.Context, s *domain.ReviewState) error {
			return nil
		},
	}

	svc := newTestService(&fakeCardStore{}, reviews)
	svc.db = db

	mock.ExpectBegin()
	mock.ExpectCommit()

	updated, err := svc.PostponeReview(
		context.Background(), userID, state.NoteID, state.ClozeID, 3)
	require.NoError(t, err)
	assert.Equal(t, due.AddDate(0, 0, 3), updated.NextReviewAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
