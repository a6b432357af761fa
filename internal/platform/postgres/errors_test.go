package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/recite-app/recite-api/internal/store"
)

func pgError(code, constraint string) error {
	return &pgconn.PgError{Code: code, ConstraintName: constraint}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"nil passes through", nil, nil},
		{"no rows maps to not found", sql.ErrNoRows, store.ErrNotFound},
		{"unique violation maps to duplicate", pgError("23505", "users_email_key"), store.ErrDuplicate},
		{"foreign key maps to invalid entity", pgError("23503", "cards_note_id_fkey"), store.ErrInvalidEntity},
		{"check violation maps to invalid entity", pgError("23514", "review_states_interval_check"), store.ErrInvalidEntity},
		{"not null maps to invalid entity", pgError("23502", ""), store.ErrInvalidEntity},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mapped := MapError(tc.err)
			if tc.wantErr == nil {
				assert.NoError(t, mapped)
				return
			}
			assert.ErrorIs(t, mapped, tc.wantErr)
		})
	}

	// Unrecognized errors pass through unchanged.
	plain := errors.New("connection refused")
	assert.Equal(t, plain, MapError(plain))
}

func TestViolationPredicates(t *testing.T) {
	t.Parallel()

	unique := pgError("23505", "")
	fk := pgError("23503", "")

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(unique))

	wrapped := fmt.Errorf("creating: %w", unique)
	assert.True(t, IsUniqueViolation(wrapped), "predicates see through wrapping")
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFoundError(sql.ErrNoRows))
	assert.True(t, IsNotFoundError(store.ErrReviewStateNotFound))
	assert.False(t, IsNotFoundError(errors.New("other")))
}

func TestMapUniqueViolation(t *testing.T) {
	t.Parallel()

	unique := pgError("23505", "users_email_key")

	err := MapUniqueViolation(unique, "user", "", store.ErrEmailExists)
	assert.ErrorIs(t, err, store.ErrEmailExists)

	err = MapUniqueViolation(unique, "user", "", nil)
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Contains(t, err.Error(), "user already exists")

	other := errors.New("not a violation")
	assert.Equal(t, other, MapUniqueViolation(other, "user", "", nil))
}
