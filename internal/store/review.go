package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/recite-app/recite-api/internal/domain"
)

// ReviewStateStore defines the interface for per-cloze review state
// persistence. State is keyed by (user, note, cloze ID) so it survives
// reparses: block boundaries may shift, but cloze IDs are stable.
type ReviewStateStore interface {
	// Create saves a new review state entry.
	// It handles domain validation internally.
	// Returns an error if an entry for the same (user, note, cloze ID) exists.
	Create(ctx context.Context, state *domain.ReviewState) error

	// CreateMissing inserts review state for any of the given cloze IDs that
	// do not yet have one, leaving existing entries untouched. Used when a
	// reparse discovers new clozes in a note.
	// This method MUST be run within a transaction.
	CreateMissing(ctx context.Context, userID, noteID uuid.UUID, clozeIDs []uint) error

	// Get retrieves review state by (user, note, cloze ID).
	// Returns ErrReviewStateNotFound if the entry does not exist.
	// NOTE: no row locking; do not use when you plan to update the row and
	// need concurrency protection.
	Get(ctx context.Context, userID, noteID uuid.UUID, clozeID uint) (*domain.ReviewState, error)

	// GetForUpdate retrieves review state with a row-level lock using
	// SELECT FOR UPDATE. Use within a transaction when you plan to update
	// the row. Returns ErrReviewStateNotFound if the entry does not exist.
	GetForUpdate(ctx context.Context, userID, noteID uuid.UUID, clozeID uint) (*domain.ReviewState, error)

	// Update modifies an existing review state entry, identified by the
	// (UserID, NoteID, ClozeID) fields of the given state.
	// Returns ErrReviewStateNotFound if the entry does not exist.
	Update(ctx context.Context, state *domain.ReviewState) error

	// GetNextDue retrieves the review state with the earliest NextReviewAt at
	// or before now for the given user.
	// Returns ErrReviewStateNotFound if nothing is due.
	GetNextDue(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.ReviewState, error)

	// CountDue returns how many of the user's clozes are due at or before now.
	CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)

	// DeleteStale removes review state for clozes of the given note whose IDs
	// are not in keep. Used after a reparse when clozes were removed from the
	// note, and after ID normalization rewrote the numbering.
	// This method MUST be run within a transaction.
	DeleteStale(ctx context.Context, noteID uuid.UUID, keep []uint) error

	// WithTx returns a new ReviewStateStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) ReviewStateStore
}
