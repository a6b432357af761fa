package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/recite-app/recite-api/internal/domain"
	"github.com/recite-app/recite-api/internal/platform/logger"
	"github.com/recite-app/recite-api/internal/store"
)

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
//
// Cards are a projection of parsed note blocks, so the write path is bulk
// replacement during a reparse rather than row-at-a-time mutation. The
// document order of blocks is preserved in a position column.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed
// by the caller. If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// insertCards writes a batch of cards starting at the given document
// position. Shared by CreateMultiple and ReplaceForNote.
func (s *PostgresCardStore) insertCards(
	ctx context.Context,
	cards []*domain.Card,
	startPosition int,
) error {
	query := `
		INSERT INTO cards (id, user_id, note_id, block_id, content_raw,
			section_path, tags, cloze_ids, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for i, card := range cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}

		sectionPath, err := marshalStringSlice(card.SectionPath)
		if err != nil {
			return fmt.Errorf("failed to encode section path: %w", err)
		}
		tags, err := marshalStringSlice(card.Tags)
		if err != nil {
			return fmt.Errorf("failed to encode card tags: %w", err)
		}
		clozeIDs, err := json.Marshal(card.ClozeIDs)
		if err != nil {
			return fmt.Errorf("failed to encode cloze ids: %w", err)
		}

		_, err = s.db.ExecContext(
			ctx,
			query,
			card.ID,
			card.UserID,
			card.NoteID,
			card.BlockID,
			card.ContentRaw,
			sectionPath,
			tags,
			clozeIDs,
			startPosition+i,
			card.CreatedAt,
			card.UpdatedAt,
		)
		if err != nil {
			if IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: note %s or user %s not found",
					store.ErrInvalidEntity, card.NoteID, card.UserID)
			}
			return err
		}
	}

	return nil
}

// CreateMultiple implements store.CardStore.CreateMultiple
// Callers must run this inside a transaction; partial inserts are not
// rolled back here.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(cards) == 0 {
		return nil
	}

	if err := s.insertCards(ctx, cards, 0); err != nil {
		log.Error("failed to create cards",
			slog.String("error", err.Error()),
			slog.Int("count", len(cards)))
		return err
	}

	log.Debug("cards created successfully", slog.Int("count", len(cards)))
	return nil
}

// ReplaceForNote implements store.CardStore.ReplaceForNote
// It deletes the note's existing cards and inserts the new projection in
// document order. Callers must run this inside a transaction.
func (s *PostgresCardStore) ReplaceForNote(
	ctx context.Context,
	noteID uuid.UUID,
	cards []*domain.Card,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE note_id = $1`, noteID)
	if err != nil {
		log.Error("failed to clear cards for note",
			slog.String("error", err.Error()),
			slog.String("note_id", noteID.String()))
		return err
	}

	if err := s.insertCards(ctx, cards, 0); err != nil {
		log.Error("failed to insert replacement cards",
			slog.String("error", err.Error()),
			slog.String("note_id", noteID.String()),
			slog.Int("count", len(cards)))
		return err
	}

	log.Debug("replaced cards for note",
		slog.String("note_id", noteID.String()),
		slog.Int("count", len(cards)))
	return nil
}

// GetByID implements store.CardStore.GetByID
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, note_id, block_id, content_raw,
			section_path, tags, cloze_ids, created_at, updated_at
		FROM cards
		WHERE id = $1
	`

	card, err := scanCard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found", slog.String("card_id", id.String()))
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card by ID",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, err
	}

	return card, nil
}

// ListByNote implements store.CardStore.ListByNote
// Cards come back in document order.
func (s *PostgresCardStore) ListByNote(
	ctx context.Context,
	noteID uuid.UUID,
) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, note_id, block_id, content_raw,
			section_path, tags, cloze_ids, created_at, updated_at
		FROM cards
		WHERE note_id = $1
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, noteID)
	if err != nil {
		log.Error("failed to list cards by note",
			slog.String("error", err.Error()),
			slog.String("note_id", noteID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	cards := []*domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			log.Error("failed to scan card row",
				slog.String("error", err.Error()))
			return nil, err
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning card rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return cards, nil
}

// Delete implements store.CardStore.Delete
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return err
	}

	if err := CheckRowsAffected(result, "card"); err != nil {
		log.Debug("card not found for delete",
			slog.String("card_id", id.String()))
		return store.ErrCardNotFound
	}

	return nil
}

// WithTx implements store.CardStore.WithTx
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var card domain.Card
	var sectionPath, tags, clozeIDs []byte

	err := row.Scan(
		&card.ID,
		&card.UserID,
		&card.NoteID,
		&card.BlockID,
		&card.ContentRaw,
		&sectionPath,
		&tags,
		&clozeIDs,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.SectionPath, err = unmarshalStringSlice(sectionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode section path: %w", err)
	}
	card.Tags, err = unmarshalStringSlice(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to decode card tags: %w", err)
	}
	if err := json.Unmarshal(clozeIDs, &card.ClozeIDs); err != nil {
		return nil, fmt.Errorf("failed to decode cloze ids: %w", err)
	}

	return &card, nil
}
