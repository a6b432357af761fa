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

// PostgresNoteStore implements the store.NoteStore interface
// using a PostgreSQL database as the storage backend.
type PostgresNoteStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNoteStore creates a new PostgreSQL implementation of the NoteStore interface.
// It accepts a database connection or transaction that should be initialized and managed
// by the caller. If logger is nil, a default logger will be used.
func NewPostgresNoteStore(db store.DBTX, logger *slog.Logger) *PostgresNoteStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNoteStore{
		db:     db,
		logger: logger.With(slog.String("component", "note_store")),
	}
}

// Ensure PostgresNoteStore implements store.NoteStore interface
var _ store.NoteStore = (*PostgresNoteStore)(nil)

// Create implements store.NoteStore.Create
// Returns store.ErrInvalidEntity if the owning user does not exist.
func (s *PostgresNoteStore) Create(ctx context.Context, note *domain.Note) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := note.Validate(); err != nil {
		log.Warn("note validation failed during create",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()))
		return err
	}

	tags, err := marshalStringSlice(note.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode note tags: %w", err)
	}

	query := `
		INSERT INTO notes (id, user_id, title, body, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		note.ID,
		note.UserID,
		note.Title,
		note.Body,
		tags,
		note.CreatedAt,
		note.UpdatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during note creation",
				slog.String("note_id", note.ID.String()),
				slog.String("user_id", note.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, note.UserID)
		}

		log.Error("failed to create note",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()),
			slog.String("user_id", note.UserID.String()))
		return err
	}

	log.Info("note created successfully",
		slog.String("note_id", note.ID.String()),
		slog.String("user_id", note.UserID.String()))
	return nil
}

// GetByID implements store.NoteStore.GetByID
// Returns store.ErrNoteNotFound if the note does not exist.
func (s *PostgresNoteStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, title, body, tags, created_at, updated_at
		FROM notes
		WHERE id = $1
	`

	note, err := scanNote(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("note not found", slog.String("note_id", id.String()))
			return nil, store.ErrNoteNotFound
		}
		log.Error("failed to get note by ID",
			slog.String("error", err.Error()),
			slog.String("note_id", id.String()))
		return nil, err
	}

	return note, nil
}

// ListByUser implements store.NoteStore.ListByUser
// Notes are ordered by most recently updated first.
func (s *PostgresNoteStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Note, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 20 // Default limit
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, user_id, title, body, tags, created_at, updated_at
		FROM notes
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to list notes by user",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	notes := []*domain.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			log.Error("failed to scan note row",
				slog.String("error", err.Error()))
			return nil, err
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning note rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed notes by user",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(notes)))
	return notes, nil
}

// Update implements store.NoteStore.Update
// Returns store.ErrNoteNotFound if the note does not exist.
func (s *PostgresNoteStore) Update(ctx context.Context, note *domain.Note) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := note.Validate(); err != nil {
		log.Warn("note validation failed during update",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()))
		return err
	}

	tags, err := marshalStringSlice(note.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode note tags: %w", err)
	}

	query := `
		UPDATE notes
		SET title = $1, body = $2, tags = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		note.Title,
		note.Body,
		tags,
		note.UpdatedAt,
		note.ID,
	)

	if err != nil {
		log.Error("failed to update note",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()))
		return err
	}

	if err := CheckRowsAffected(result, "note"); err != nil {
		log.Debug("note not found for update",
			slog.String("note_id", note.ID.String()))
		return store.ErrNoteNotFound
	}

	log.Debug("note updated successfully",
		slog.String("note_id", note.ID.String()))
	return nil
}

// Delete implements store.NoteStore.Delete
// Cards and review state hanging off the note go with it via ON DELETE CASCADE.
// Returns store.ErrNoteNotFound if the note does not exist.
func (s *PostgresNoteStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM notes WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete note",
			slog.String("error", err.Error()),
			slog.String("note_id", id.String()))
		return err
	}

	if err := CheckRowsAffected(result, "note"); err != nil {
		log.Debug("note not found for delete",
			slog.String("note_id", id.String()))
		return store.ErrNoteNotFound
	}

	log.Info("note deleted successfully",
		slog.String("note_id", id.String()))
	return nil
}

// WithTx implements store.NoteStore.WithTx
func (s *PostgresNoteStore) WithTx(tx *sql.Tx) store.NoteStore {
	return &PostgresNoteStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*domain.Note, error) {
	var note domain.Note
	var tags []byte

	err := row.Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&note.Body,
		&tags,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	note.Tags, err = unmarshalStringSlice(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to decode note tags: %w", err)
	}

	return &note, nil
}

// marshalStringSlice encodes a string slice for a JSONB column. A nil slice
// is stored as an empty JSON array so reads never see SQL NULL.
func marshalStringSlice(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func unmarshalStringSlice(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}
