package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/recite-app/recite-api/internal/domain"
	"github.com/recite-app/recite-api/internal/platform/logger"
	"github.com/recite-app/recite-api/internal/store"
)

// PostgresReviewStateStore implements the store.ReviewStateStore interface
// using a PostgreSQL database as the storage backend.
//
// Rows are keyed (user_id, note_id, cloze_id). Cloze ids are the only
// identity that survives reparses, so this is the one table that outlives
// the card projection.
type PostgresReviewStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewStateStore creates a new PostgreSQL implementation of the
// ReviewStateStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresReviewStateStore(db store.DBTX, logger *slog.Logger) *PostgresReviewStateStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_state_store")),
	}
}

// Ensure PostgresReviewStateStore implements store.ReviewStateStore interface
var _ store.ReviewStateStore = (*PostgresReviewStateStore)(nil)

const reviewStateColumns = `user_id, note_id, cloze_id, interval, ease_factor,
	consecutive_correct, last_reviewed_at, next_review_at, review_count,
	created_at, updated_at`

// Create implements store.ReviewStateStore.Create
// Returns store.ErrDuplicate if state already exists for the key and
// store.ErrInvalidEntity if the note or user does not exist.
func (s *PostgresReviewStateStore) Create(ctx context.Context, state *domain.ReviewState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("review state validation failed during create",
			slog.String("error", err.Error()),
			slog.String("note_id", state.NoteID.String()),
			slog.Uint64("cloze_id", uint64(state.ClozeID)))
		return err
	}

	query := `
		INSERT INTO review_states (` + reviewStateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		state.UserID,
		state.NoteID,
		state.ClozeID,
		state.Interval,
		state.EaseFactor,
		state.ConsecutiveCorrect,
		nullableTime(state.LastReviewedAt),
		state.NextReviewAt,
		state.ReviewCount,
		state.CreatedAt,
		state.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: review state for cloze %d",
				store.ErrDuplicate, state.ClozeID)
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: note %s or user %s not found",
				store.ErrInvalidEntity, state.NoteID, state.UserID)
		}
		log.Error("failed to create review state",
			slog.String("error", err.Error()),
			slog.String("note_id", state.NoteID.String()),
			slog.Uint64("cloze_id", uint64(state.ClozeID)))
		return err
	}

	return nil
}

// CreateMissing implements store.ReviewStateStore.CreateMissing
// New clozes get fresh state due immediately; existing rows are untouched.
// Callers must run this inside a transaction.
func (s *PostgresReviewStateStore) CreateMissing(
	ctx context.Context,
	userID, noteID uuid.UUID,
	clozeIDs []uint,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(clozeIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO review_states (` + reviewStateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, note_id, cloze_id) DO NOTHING
	`

	for _, clozeID := range clozeIDs {
		state, err := domain.NewReviewState(userID, noteID, clozeID)
		if err != nil {
			return err
		}

		_, err = s.db.ExecContext(
			ctx,
			query,
			state.UserID,
			state.NoteID,
			state.ClozeID,
			state.Interval,
			state.EaseFactor,
			state.ConsecutiveCorrect,
			nullableTime(state.LastReviewedAt),
			state.NextReviewAt,
			state.ReviewCount,
			state.CreatedAt,
			state.UpdatedAt,
		)
		if err != nil {
			if IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: note %s or user %s not found",
					store.ErrInvalidEntity, noteID, userID)
			}
			log.Error("failed to create missing review state",
				slog.String("error", err.Error()),
				slog.String("note_id", noteID.String()),
				slog.Uint64("cloze_id", uint64(clozeID)))
			return err
		}
	}

	log.Debug("ensured review state for clozes",
		slog.String("note_id", noteID.String()),
		slog.Int("count", len(clozeIDs)))
	return nil
}

// Get implements store.ReviewStateStore.Get
// Returns store.ErrReviewStateNotFound if the entry does not exist.
func (s *PostgresReviewStateStore) Get(
	ctx context.Context,
	userID, noteID uuid.UUID,
	clozeID uint,
) (*domain.ReviewState, error) {
	query := `
		SELECT ` + reviewStateColumns + `
		FROM review_states
		WHERE user_id = $1 AND note_id = $2 AND cloze_id = $3
	`
	return s.getOne(ctx, query, userID, noteID, clozeID)
}

// GetForUpdate implements store.ReviewStateStore.GetForUpdate
// Takes a row-level lock; only meaningful inside a transaction.
// Returns store.ErrReviewStateNotFound if the entry does not exist.
func (s *PostgresReviewStateStore) GetForUpdate(
	ctx context.Context,
	userID, noteID uuid.UUID,
	clozeID uint,
) (*domain.ReviewState, error) {
	query := `
		SELECT ` + reviewStateColumns + `
		FROM review_states
		WHERE user_id = $1 AND note_id = $2 AND cloze_id = $3
		FOR UPDATE
	`
	return s.getOne(ctx, query, userID, noteID, clozeID)
}

func (s *PostgresReviewStateStore) getOne(
	ctx context.Context,
	query string,
	args ...any,
) (*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	state, err := scanReviewState(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReviewStateNotFound
		}
		log.Error("failed to get review state",
			slog.String("error", err.Error()))
		return nil, err
	}

	return state, nil
}

// Update implements store.ReviewStateStore.Update
// Returns store.ErrReviewStateNotFound if the entry does not exist.
func (s *PostgresReviewStateStore) Update(ctx context.Context, state *domain.ReviewState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("review state validation failed during update",
			slog.String("error", err.Error()),
			slog.String("note_id", state.NoteID.String()),
			slog.Uint64("cloze_id", uint64(state.ClozeID)))
		return err
	}

	query := `
		UPDATE review_states
		SET interval = $1, ease_factor = $2, consecutive_correct = $3,
			last_reviewed_at = $4, next_review_at = $5, review_count = $6,
			updated_at = $7
		WHERE user_id = $8 AND note_id = $9 AND cloze_id = $10
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		state.Interval,
		state.EaseFactor,
		state.ConsecutiveCorrect,
		nullableTime(state.LastReviewedAt),
		state.NextReviewAt,
		state.ReviewCount,
		state.UpdatedAt,
		state.UserID,
		state.NoteID,
		state.ClozeID,
	)

	if err != nil {
		log.Error("failed to update review state",
			slog.String("error", err.Error()),
			slog.String("note_id", state.NoteID.String()),
			slog.Uint64("cloze_id", uint64(state.ClozeID)))
		return err
	}

	if err := CheckRowsAffected(result, "review state"); err != nil {
		return store.ErrReviewStateNotFound
	}

	return nil
}

// GetNextDue implements store.ReviewStateStore.GetNextDue
// Returns store.ErrReviewStateNotFound if nothing is due.
func (s *PostgresReviewStateStore) GetNextDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (*domain.ReviewState, error) {
	query := `
		SELECT ` + reviewStateColumns + `
		FROM review_states
		WHERE user_id = $1 AND next_review_at <= $2
		ORDER BY next_review_at ASC
		LIMIT 1
	`
	return s.getOne(ctx, query, userID, now)
}

// CountDue implements store.ReviewStateStore.CountDue
func (s *PostgresReviewStateStore) CountDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*)
		FROM review_states
		WHERE user_id = $1 AND next_review_at <= $2
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, userID, now).Scan(&count)
	if err != nil {
		log.Error("failed to count due review states",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, err
	}

	return count, nil
}

// DeleteStale implements store.ReviewStateStore.DeleteStale
// Removes state for clozes that no longer exist in the note. An empty keep
// list deletes everything for the note. Callers must run this inside a
// transaction.
func (s *PostgresReviewStateStore) DeleteStale(
	ctx context.Context,
	noteID uuid.UUID,
	keep []uint,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	keepIDs := make([]int64, len(keep))
	for i, id := range keep {
		keepIDs[i] = int64(id)
	}

	query := `
		DELETE FROM review_states
		WHERE note_id = $1 AND NOT (cloze_id = ANY($2))
	`

	result, err := s.db.ExecContext(ctx, query, noteID, keepIDs)
	if err != nil {
		log.Error("failed to delete stale review states",
			slog.String("error", err.Error()),
			slog.String("note_id", noteID.String()))
		return err
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		log.Debug("deleted stale review states",
			slog.String("note_id", noteID.String()),
			slog.Int64("count", rows))
	}

	return nil
}

// WithTx implements store.ReviewStateStore.WithTx
func (s *PostgresReviewStateStore) WithTx(tx *sql.Tx) store.ReviewStateStore {
	return &PostgresReviewStateStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanReviewState(row rowScanner) (*domain.ReviewState, error) {
	var state domain.ReviewState
	var lastReviewedAt sql.NullTime

	err := row.Scan(
		&state.UserID,
		&state.NoteID,
		&state.ClozeID,
		&state.Interval,
		&state.EaseFactor,
		&state.ConsecutiveCorrect,
		&lastReviewedAt,
		&state.NextReviewAt,
		&state.ReviewCount,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastReviewedAt.Valid {
		state.LastReviewedAt = lastReviewedAt.Time
	}

	return &state, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
