package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReviewState(t *testing.T) {
	userID, noteID := uuid.New(), uuid.New()

	state, err := NewReviewState(userID, noteID, 3)

	require.NoError(t, err)
	assert.Equal(t, uint(3), state.ClozeID)
	assert.Equal(t, 2.5, state.EaseFactor)
	assert.Equal(t, 0, state.Interval)
	assert.True(t, state.LastReviewedAt.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), state.NextReviewAt, time.Minute,
		"new clozes are due immediately")
}

func TestReviewStateValidation(t *testing.T) {
	_, err := NewReviewState(uuid.Nil, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrEmptyReviewUserID)

	_, err = NewReviewState(uuid.New(), uuid.Nil, 1)
	assert.ErrorIs(t, err, ErrEmptyReviewNoteID)

	_, err = NewReviewState(uuid.New(), uuid.New(), 0)
	assert.ErrorIs(t, err, ErrZeroReviewClozeID)
}

func TestReviewStateClone(t *testing.T) {
	state, err := NewReviewState(uuid.New(), uuid.New(), 1)
	require.NoError(t, err)

	cp := state.Clone()
	cp.Interval = 42

	assert.Equal(t, 0, state.Interval, "clone must not share memory with the original")
}
