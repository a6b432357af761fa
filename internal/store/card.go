package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/recite-app/recite-api/internal/domain"
)

// CardStore defines the interface for card data persistence. Cards are
// derived entities: each one is a block of a note, so writes happen in bulk
// when a note is (re)parsed rather than one card at a time.
type CardStore interface {
	// CreateMultiple saves multiple cards to the store.
	// This method MUST be run within a transaction for atomicity; use WithTx
	// together with store.RunInTransaction. All cards must be valid according
	// to domain validation rules.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// ReplaceForNote atomically swaps the card set for a note: existing cards
	// are deleted and the given ones inserted. This is the write path for
	// reparsing a note after an edit.
	// This method MUST be run within a transaction.
	ReplaceForNote(ctx context.Context, noteID uuid.UUID, cards []*domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// ListByNote retrieves all cards derived from the given note, in document
	// order. Returns an empty slice if the note has no cloze-bearing blocks.
	ListByNote(ctx context.Context, noteID uuid.UUID) ([]*domain.Card, error)

	// Delete removes a card from the store by its ID.
	// Returns ErrCardNotFound if the card does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new CardStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) CardStore
}
