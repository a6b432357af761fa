package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/recite-app/recite-api/internal/cloze"
	"github.com/recite-app/recite-api/internal/domain"
	"github.com/recite-app/recite-api/internal/metadata"
	"github.com/recite-app/recite-api/internal/store"
)

// NoteService provides note management: CRUD, the editing pipeline
// (debounced reparsing, cloze mutations), and cloze id normalization.
type NoteService interface {
	// CreateNote creates a note and parses it into cards immediately.
	// When title is empty, the frontmatter title is used instead.
	CreateNote(ctx context.Context, userID uuid.UUID, title, body string) (*domain.Note, error)

	// GetNote retrieves a note owned by the user.
	// Returns ErrNoteNotFound or ErrNotOwned.
	GetNote(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, error)

	// ListNotes retrieves the user's notes, most recently updated first.
	ListNotes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Note, error)

	// DeleteNote removes a note along with its cards and review state.
	DeleteNote(ctx context.Context, userID, noteID uuid.UUID) error

	// ListCards retrieves the card projections for a note owned by the user,
	// in document order.
	ListCards(ctx context.Context, userID, noteID uuid.UUID) ([]*domain.Card, error)

	// UpdateBody replaces the note's markdown and schedules a debounced
	// background reparse.
	UpdateBody(ctx context.Context, userID, noteID uuid.UUID, body string) (*domain.Note, error)

	// SaveNote replaces the note's markdown and reparses synchronously,
	// suppressing any pending debounced reparse.
	SaveNote(ctx context.Context, userID, noteID uuid.UUID, body string) (*domain.Note, error)

	// ParseNote returns the document index for the note's current body:
	// occurrences, syntax issues and navigation offsets. Cached per note,
	// rebuilt only when the body changed.
	ParseNote(ctx context.Context, userID, noteID uuid.UUID) (*cloze.DocumentIndex, error)

	// InsertCloze wraps the selection in a new cloze annotation and returns
	// the updated note plus the selection covering the inserted answer text.
	InsertCloze(ctx context.Context, userID, noteID uuid.UUID, sel cloze.Selection, mode cloze.InsertMode) (*domain.Note, cloze.Selection, error)

	// Uncloze removes cloze wrappers under the selection, keeping the answer
	// text. Returns the updated note and how many wrappers were removed;
	// zero removals leave the note untouched.
	Uncloze(ctx context.Context, userID, noteID uuid.UUID, sel cloze.Selection) (*domain.Note, int, error)

	// DeleteOccurrence removes one occurrence's entire span, answer included.
	// Returns ErrOccurrenceNotFound when the (id, occurrence) reference is
	// stale.
	DeleteOccurrence(ctx context.Context, userID, noteID uuid.UUID, clozeID, occurrenceIndex uint) (*domain.Note, error)

	// CleanInvalid strips malformed cloze wrappers, preserving their inner
	// text. Returns the updated note and how many wrappers were removed.
	CleanInvalid(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, int, error)

	// PreviewNormalize reports how normalization would renumber the note's
	// cloze ids, without changing anything.
	PreviewNormalize(ctx context.Context, userID, noteID uuid.UUID) ([]cloze.IDMapping, error)

	// ApplyNormalize renumbers the note's cloze ids to remove gaps and
	// reparses synchronously. Review history for renumbered ids is
	// discarded, which is why callers confirm before invoking this.
	// Returns ErrNothingToNormalize when the ids are already contiguous.
	ApplyNormalize(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, []cloze.IDMapping, error)

	// ReparseNote rebuilds the note's card projections and reconciles review
	// state with the clozes currently present. This is the background task
	// entry point and therefore takes no user: the note record carries its
	// owner.
	ReparseNote(ctx context.Context, noteID uuid.UUID) error
}

// NoteServiceError wraps unexpected note service failures with the operation
// that produced them.
type NoteServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *NoteServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *NoteServiceError) Unwrap() error {
	return e.Err
}

// NewNoteServiceError creates a new NoteServiceError.
func NewNoteServiceError(operation, message string, err error) *NoteServiceError {
	return &NoteServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// noteServiceImpl implements the NoteService interface.
type noteServiceImpl struct {
	db          *sql.DB
	noteStore   store.NoteStore
	cardStore   store.CardStore
	reviewStore store.ReviewStateStore
	scheduler   *ReparseScheduler
	logger      *slog.Logger

	// indexers caches one Indexer per open note so repeated ParseNote calls
	// on an unchanged body are O(1).
	indexersMu sync.Mutex
	indexers   map[uuid.UUID]*cloze.Indexer
}

var _ NoteService = (*noteServiceImpl)(nil)

// NewNoteService creates a new NoteService.
func NewNoteService(
	db *sql.DB,
	noteStore store.NoteStore,
	cardStore store.CardStore,
	reviewStore store.ReviewStateStore,
	scheduler *ReparseScheduler,
	logger *slog.Logger,
) NoteService {
	if db == nil {
		panic("db cannot be nil")
	}
	if noteStore == nil {
		panic("noteStore cannot be nil")
	}
	if cardStore == nil {
		panic("cardStore cannot be nil")
	}
	if reviewStore == nil {
		panic("reviewStore cannot be nil")
	}
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &noteServiceImpl{
		db:          db,
		noteStore:   noteStore,
		cardStore:   cardStore,
		reviewStore: reviewStore,
		scheduler:   scheduler,
		logger:      logger.With("component", "note_service"),
		indexers:    make(map[uuid.UUID]*cloze.Indexer),
	}
}

// CreateNote creates a note and parses it into cards immediately.
func (s *noteServiceImpl) CreateNote(
	ctx context.Context,
	userID uuid.UUID,
	title, body string,
) (*domain.Note, error) {
	if title == "" {
		if meta, _, err := metadata.Parse(body); err == nil {
			title = meta.Title
		}
	}

	note, err := domain.NewNote(userID, title, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	note.Tags = metadata.Tags(body)

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.noteStore.WithTx(tx).Create(ctx, note)
	})
	if err != nil {
		s.logger.Error("failed to create note",
			"error", err,
			"user_id", userID)
		return nil, NewNoteServiceError("create_note", "failed to save note", err)
	}

	// The initial parse runs synchronously so a note with clozes is
	// reviewable as soon as creation returns.
	if err := s.ReparseNote(ctx, note.ID); err != nil {
		s.logger.Error("failed to parse new note",
			"error", err,
			"note_id", note.ID)
		return nil, NewNoteServiceError("create_note", "failed to parse note", err)
	}

	s.logger.Info("note created",
		"note_id", note.ID,
		"user_id", userID)
	return note, nil
}

// GetNote retrieves a note owned by the user.
func (s *noteServiceImpl) GetNote(
	ctx context.Context,
	userID, noteID uuid.UUID,
) (*domain.Note, error) {
	note, err := s.noteStore.GetByID(ctx, noteID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to retrieve note: %w", err)
	}
	if note.UserID != userID {
		return nil, ErrNotOwned
	}
	return note, nil
}

// ListNotes retrieves the user's notes, most recently updated first.
func (s *noteServiceImpl) ListNotes(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Note, error) {
	notes, err := s.noteStore.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list notes",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

// ListCards retrieves the card projections for a note owned by the user.
func (s *noteServiceImpl) ListCards(
	ctx context.Context,
	userID, noteID uuid.UUID,
) ([]*domain.Card, error) {
	if _, err := s.GetNote(ctx, userID, noteID); err != nil {
		return nil, err
	}

	cards, err := s.cardStore.ListByNote(ctx, noteID)
	if err != nil {
		s.logger.Error("failed to list cards",
			"error", err,
			"note_id", noteID)
		return nil, NewNoteServiceError("list_cards", "failed to list cards", err)
	}
	return cards, nil
}

// DeleteNote removes a note along with its cards and review state.
func (s *noteServiceImpl) DeleteNote(ctx context.Context, userID, noteID uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		notes := s.noteStore.WithTx(tx)

		note, err := notes.GetByID(ctx, noteID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrNoteNotFound
			}
			return fmt.Errorf("failed to retrieve note: %w", err)
		}
		if note.UserID != userID {
			return ErrNotOwned
		}

		// Cards and review state go with the note by cascade.
		return notes.Delete(ctx, noteID)
	})
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) || errors.Is(err, ErrNotOwned) {
			return err
		}
		s.logger.Error("failed to delete note",
			"error", err,
			"note_id", noteID,
			"user_id", userID)
		return NewNoteServiceError("delete_note", "failed to delete note", err)
	}

	s.scheduler.NoteRemoved(noteID)
	s.dropIndexer(noteID)

	s.logger.Info("note deleted",
		"note_id", noteID,
		"user_id", userID)
	return nil
}

// UpdateBody replaces the note's markdown and schedules a debounced reparse.
func (s *noteServiceImpl) UpdateBody(
	ctx context.Context,
	userID, noteID uuid.UUID,
	body string,
) (*domain.Note, error) {
	note, err := s.replaceBody(ctx, userID, noteID, body)
	if err != nil {
		return nil, err
	}

	s.scheduler.NoteEdited(noteID)
	return note, nil
}

// SaveNote replaces the note's markdown and reparses synchronously.
func (s *noteServiceImpl) SaveNote(
	ctx context.Context,
	userID, noteID uuid.UUID,
	body string,
) (*domain.Note, error) {
	note, err := s.replaceBody(ctx, userID, noteID, body)
	if err != nil {
		return nil, err
	}

	// Mark the save before reparsing so trailing edit notifications from the
	// editor fall inside the suppression window.
	s.scheduler.NoteSaved(noteID)

	if err := s.ReparseNote(ctx, noteID); err != nil {
		s.logger.Error("failed to reparse note on save",
			"error", err,
			"note_id", noteID)
		return nil, NewNoteServiceError("save_note", "failed to reparse note", err)
	}

	return note, nil
}

// replaceBody persists a new body for the note after an ownership check.
func (s *noteServiceImpl) replaceBody(
	ctx context.Context,
	userID, noteID uuid.UUID,
	body string,
) (*domain.Note, error) {
	var note *domain.Note
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		notes := s.noteStore.WithTx(tx)

		n, err := notes.GetByID(ctx, noteID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrNoteNotFound
			}
			return fmt.Errorf("failed to retrieve note: %w", err)
		}
		if n.UserID != userID {
			return ErrNotOwned
		}

		n.UpdateBody(body)
		if err := notes.Update(ctx, n); err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}

		note = n
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) || errors.Is(err, ErrNotOwned) {
			return nil, err
		}
		s.logger.Error("failed to replace note body",
			"error", err,
			"note_id", noteID,
			"user_id", userID)
		return nil, NewNoteServiceError("update_body", "failed to update note body", err)
	}
	return note, nil
}

// ParseNote returns the document index for the note's current body.
func (s *noteServiceImpl) ParseNote(
	ctx context.Context,
	userID, noteID uuid.UUID,
) (*cloze.DocumentIndex, error) {
	note, err := s.GetNote(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	return s.indexFor(noteID, note.Body), nil
}

// InsertCloze wraps the selection in a new cloze annotation.
func (s *noteServiceImpl) InsertCloze(
	ctx context.Context,
	userID, noteID uuid.UUID,
	sel cloze.Selection,
	mode cloze.InsertMode,
) (*domain.Note, cloze.Selection, error) {
	var answer cloze.Selection
	note, err := s.mutateBody(ctx, userID, noteID, func(body string) (string, error) {
		out, outSel := cloze.InsertCloze(body, sel, mode)
		answer = outSel
		return out, nil
	})
	if err != nil {
		return nil, cloze.Selection{}, err
	}
	return note, answer, nil
}

// Uncloze removes cloze wrappers under the selection.
func (s *noteServiceImpl) Uncloze(
	ctx context.Context,
	userID, noteID uuid.UUID,
	sel cloze.Selection,
) (*domain.Note, int, error) {
	var removed int
	note, err := s.mutateBody(ctx, userID, noteID, func(body string) (string, error) {
		out, n := cloze.Uncloze(body, sel)
		removed = n
		return out, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return note, removed, nil
}

// DeleteOccurrence removes one occurrence's entire span.
func (s *noteServiceImpl) DeleteOccurrence(
	ctx context.Context,
	userID, noteID uuid.UUID,
	clozeID, occurrenceIndex uint,
) (*domain.Note, error) {
	return s.mutateBody(ctx, userID, noteID, func(body string) (string, error) {
		out, ok := cloze.DeleteClozeAndText(body, clozeID, occurrenceIndex)
		if !ok {
			return "", ErrOccurrenceNotFound
		}
		return out, nil
	})
}

// CleanInvalid strips malformed cloze wrappers, preserving their inner text.
func (s *noteServiceImpl) CleanInvalid(
	ctx context.Context,
	userID, noteID uuid.UUID,
) (*domain.Note, int, error) {
	var removed int
	note, err := s.mutateBody(ctx, userID, noteID, func(body string) (string, error) {
		out, n := cloze.CleanInvalidClozes(body)
		removed = n
		return out, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return note, removed, nil
}

// mutateBody applies op to the note's body inside a transaction, persists
// the result and schedules a debounced reparse. Ops that leave the body
// unchanged still succeed but write and schedule nothing.
func (s *noteServiceImpl) mutateBody(
	ctx context.Context,
	userID, noteID uuid.UUID,
	op func(body string) (string, error),
) (*domain.Note, error) {
	var (
		note    *domain.Note
		changed bool
	)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		notes := s.noteStore.WithTx(tx)

		n, err := notes.GetByID(ctx, noteID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrNoteNotFound
			}
			return fmt.Errorf("failed to retrieve note: %w", err)
		}
		if n.UserID != userID {
			return ErrNotOwned
		}

		out, err := op(n.Body)
		if err != nil {
			return err
		}

		if out != n.Body {
			n.UpdateBody(out)
			if err := notes.Update(ctx, n); err != nil {
				return fmt.Errorf("failed to update note: %w", err)
			}
			changed = true
		}

		note = n
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) ||
			errors.Is(err, ErrNotOwned) ||
			errors.Is(err, ErrOccurrenceNotFound) {
			return nil, err
		}
		s.logger.Error("failed to mutate note body",
			"error", err,
			"note_id", noteID,
			"user_id", userID)
		return nil, NewNoteServiceError("mutate_body", "failed to mutate note body", err)
	}

	if changed {
		s.scheduler.NoteEdited(noteID)
	}
	return note, nil
}

// PreviewNormalize reports how normalization would renumber the note's ids.
func (s *noteServiceImpl) PreviewNormalize(
	ctx context.Context,
	userID, noteID uuid.UUID,
) ([]cloze.IDMapping, error) {
	note, err := s.GetNote(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	return cloze.NormalizeMapping(note.Body), nil
}

// ApplyNormalize renumbers the note's cloze ids and reparses synchronously.
func (s *noteServiceImpl) ApplyNormalize(
	ctx context.Context,
	userID, noteID uuid.UUID,
) (*domain.Note, []cloze.IDMapping, error) {
	var (
		note     *domain.Note
		mappings []cloze.IDMapping
	)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		notes := s.noteStore.WithTx(tx)

		n, err := notes.GetByID(ctx, noteID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrNoteNotFound
			}
			return fmt.Errorf("failed to retrieve note: %w", err)
		}
		if n.UserID != userID {
			return ErrNotOwned
		}

		mappings = cloze.NormalizeMapping(n.Body)
		normalized, changed := cloze.Normalize(n.Body)
		if !changed {
			return ErrNothingToNormalize
		}

		n.UpdateBody(normalized)
		if err := notes.Update(ctx, n); err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}

		note = n
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) ||
			errors.Is(err, ErrNotOwned) ||
			errors.Is(err, ErrNothingToNormalize) {
			return nil, nil, err
		}
		s.logger.Error("failed to normalize note",
			"error", err,
			"note_id", noteID,
			"user_id", userID)
		return nil, nil, NewNoteServiceError("apply_normalize", "failed to normalize note", err)
	}

	// Renumbering invalidated the id-keyed review state; the reparse below
	// rebuilds cards and prunes state for ids that no longer exist.
	s.scheduler.NoteSaved(noteID)
	if err := s.ReparseNote(ctx, noteID); err != nil {
		s.logger.Error("failed to reparse note after normalization",
			"error", err,
			"note_id", noteID)
		return nil, nil, NewNoteServiceError("apply_normalize", "failed to reparse note", err)
	}

	s.logger.Info("note normalized",
		"note_id", noteID,
		"user_id", userID,
		"id_count", len(mappings))
	return note, mappings, nil
}

// ReparseNote rebuilds card projections and reconciles review state.
func (s *noteServiceImpl) ReparseNote(ctx context.Context, noteID uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		notes := s.noteStore.WithTx(tx)
		cards := s.cardStore.WithTx(tx)
		reviews := s.reviewStore.WithTx(tx)

		note, err := notes.GetByID(ctx, noteID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrNoteNotFound
			}
			return fmt.Errorf("failed to retrieve note: %w", err)
		}

		tags := metadata.Tags(note.Body)
		blocks := cloze.Split(note.Body, tags)

		projected := make([]*domain.Card, 0, len(blocks))
		var clozeIDs []uint
		seen := make(map[uint]bool)
		for _, block := range blocks {
			card, err := domain.NewCard(
				note.UserID, note.ID,
				block.ID, block.ContentRaw,
				block.SectionPath, block.Tags, block.ClozeIDs,
			)
			if err != nil {
				return fmt.Errorf("failed to project card for block %s: %w", block.ID, err)
			}
			projected = append(projected, card)

			for _, id := range block.ClozeIDs {
				if !seen[id] {
					seen[id] = true
					clozeIDs = append(clozeIDs, id)
				}
			}
		}

		if err := cards.ReplaceForNote(ctx, noteID, projected); err != nil {
			return fmt.Errorf("failed to replace cards: %w", err)
		}

		// Schedules for new clozes start due immediately; schedules for
		// clozes no longer present are pruned. Everything else is untouched,
		// which is what lets review history survive reparses.
		if err := reviews.CreateMissing(ctx, note.UserID, noteID, clozeIDs); err != nil {
			return fmt.Errorf("failed to create review state: %w", err)
		}
		if err := reviews.DeleteStale(ctx, noteID, clozeIDs); err != nil {
			return fmt.Errorf("failed to prune review state: %w", err)
		}

		// Frontmatter tags live on the note record as well, so card lists
		// and note lists agree.
		if !equalStrings(note.Tags, tags) {
			note.Tags = tags
			if err := notes.Update(ctx, note); err != nil {
				return fmt.Errorf("failed to update note tags: %w", err)
			}
		}

		s.logger.Debug("note reparsed",
			"note_id", noteID,
			"card_count", len(projected),
			"cloze_count", len(clozeIDs))
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return err
		}
		return NewNoteServiceError("reparse_note", "failed to reparse note", err)
	}
	return nil
}

// indexFor resolves the note's cached Indexer and indexes body under the
// map lock; Indexer itself is not safe for concurrent use.
func (s *noteServiceImpl) indexFor(noteID uuid.UUID, body string) *cloze.DocumentIndex {
	s.indexersMu.Lock()
	defer s.indexersMu.Unlock()

	ix, ok := s.indexers[noteID]
	if !ok {
		ix = cloze.NewIndexer()
		s.indexers[noteID] = ix
	}
	return ix.Index(body)
}

// dropIndexer releases the cached Indexer for a deleted note.
func (s *noteServiceImpl) dropIndexer(noteID uuid.UUID) {
	s.indexersMu.Lock()
	defer s.indexersMu.Unlock()
	delete(s.indexers, noteID)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
