package card_review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/recite-app/recite-api/internal/domain"
	"github.com/recite-app/recite-api/internal/domain/srs"
	"github.com/recite-app/recite-api/internal/platform/logger"
	"github.com/recite-app/recite-api/internal/store"
)

// Verify interface compliance at compile time
var _ CardReviewService = (*cardReviewServiceImpl)(nil)

// cardReviewServiceImpl implements the CardReviewService interface.
type cardReviewServiceImpl struct {
	db          *sql.DB
	cardStore   store.CardStore
	reviewStore store.ReviewStateStore
	srsService  srs.Service
	logger      *slog.Logger
	timeFunc    func() time.Time // Injectable for testing
}

// NewCardReviewService creates a new CardReviewService implementation.
func NewCardReviewService(
	db *sql.DB,
	cardStore store.CardStore,
	reviewStore store.ReviewStateStore,
	srsService srs.Service,
	logger *slog.Logger,
) CardReviewService {
	if db == nil {
		panic("db cannot be nil")
	}
	if cardStore == nil {
		panic("cardStore cannot be nil")
	}
	if reviewStore == nil {
		panic("reviewStore cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &cardReviewServiceImpl{
		db:          db,
		cardStore:   cardStore,
		reviewStore: reviewStore,
		srsService:  srsService,
		logger:      logger.With(slog.String("component", "card_review_service")),
		timeFunc:    time.Now,
	}
}

// GetNextReview implements CardReviewService.GetNextReview.
func (s *cardReviewServiceImpl) GetNextReview(
	ctx context.Context,
	userID uuid.UUID,
) (*ReviewItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	state, err := s.reviewStore.GetNextDue(ctx, userID, s.timeFunc().UTC())
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("no clozes due for review", slog.String("user_id", userID.String()))
			return nil, ErrNoCardsDue
		}
		log.Error("failed to get next due review state",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, NewGetNextReviewError("failed to get next due review state", err)
	}

	card, err := s.findCardForCloze(ctx, state.NoteID, state.ClozeID)
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			// The schedule references a cloze no card projection contains.
			// DeleteStale should keep these in lockstep, so surface it loudly.
			log.Warn("due cloze has no card projection",
				slog.String("user_id", userID.String()),
				slog.String("note_id", state.NoteID.String()),
				slog.Uint64("cloze_id", uint64(state.ClozeID)))
			return nil, ErrCardNotFound
		}
		log.Error("failed to resolve card for due cloze",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("note_id", state.NoteID.String()))
		return nil, NewGetNextReviewError("failed to resolve card for due cloze", err)
	}

	log.Debug("retrieved next review item",
		slog.String("user_id", userID.String()),
		slog.String("card_id", card.ID.String()),
		slog.Uint64("cloze_id", uint64(state.ClozeID)))
	return &ReviewItem{Card: card, State: state}, nil
}

// findCardForCloze locates the card projection of the note's block that
// contains the given cloze id.
func (s *cardReviewServiceImpl) findCardForCloze(
	ctx context.Context,
	noteID uuid.UUID,
	clozeID uint,
) (*domain.Card, error) {
	cards, err := s.cardStore.ListByNote(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards for note: %w", err)
	}
	for _, card := range cards {
		for _, id := range card.ClozeIDs {
			if id == clozeID {
				return card, nil
			}
		}
	}
	return nil, ErrCardNotFound
}

// SubmitAnswer implements CardReviewService.SubmitAnswer.
func (s *cardReviewServiceImpl) SubmitAnswer(
	ctx context.Context,
	userID, noteID uuid.UUID,
	clozeID uint,
	answer ReviewAnswer,
) (*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("processing review answer",
		slog.String("user_id", userID.String()),
		slog.String("note_id", noteID.String()),
		slog.Uint64("cloze_id", uint64(clozeID)),
		slog.String("outcome", string(answer.Outcome)))

	if !isValidOutcome(answer.Outcome) {
		log.Warn("invalid review outcome",
			slog.String("user_id", userID.String()),
			slog.String("outcome", string(answer.Outcome)))
		return nil, ErrInvalidAnswer
	}

	var updated *domain.ReviewState
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		reviewStore := s.reviewStore.WithTx(tx)

		state, err := reviewStore.GetForUpdate(ctx, userID, noteID, clozeID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrReviewStateNotFound
			}
			return fmt.Errorf("failed to get review state: %w", err)
		}

		next, err := s.srsService.CalculateNextReview(state, answer.Outcome, s.timeFunc().UTC())
		if err != nil {
			return fmt.Errorf("failed to calculate next review: %w", err)
		}

		if err := reviewStore.Update(ctx, next); err != nil {
			return fmt.Errorf("failed to update review state: %w", err)
		}

		updated = next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrReviewStateNotFound) {
			log.Warn("review state not found for answer",
				slog.String("user_id", userID.String()),
				slog.String("note_id", noteID.String()),
				slog.Uint64("cloze_id", uint64(clozeID)))
			return nil, ErrReviewStateNotFound
		}
		log.Error("failed to submit answer",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("note_id", noteID.String()),
			slog.Uint64("cloze_id", uint64(clozeID)))
		return nil, NewSubmitAnswerError("failed to submit answer", err)
	}

	log.Debug("processed review answer",
		slog.String("user_id", userID.String()),
		slog.Uint64("cloze_id", uint64(clozeID)),
		slog.String("outcome", string(answer.Outcome)),
		slog.Float64("ease_factor", updated.EaseFactor),
		slog.Int("interval", updated.Interval),
		slog.Time("next_review_at", updated.NextReviewAt))

	return updated, nil
}

// PostponeReview implements CardReviewService.PostponeReview.
func (s *cardReviewServiceImpl) PostponeReview(
	ctx context.Context,
	userID, noteID uuid.UUID,
	clozeID uint,
	days int,
) (*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if days < 1 {
		return nil, ErrInvalidPostpone
	}

	var updated *domain.ReviewState
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		reviewStore := s.reviewStore.WithTx(tx)

		state, err := reviewStore.GetForUpdate(ctx, userID, noteID, clozeID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrReviewStateNotFound
			}
			return fmt.Errorf("failed to get review state: %w", err)
		}

		next, err := s.srsService.PostponeReview(state, days, s.timeFunc().UTC())
		if err != nil {
			return fmt.Errorf("failed to postpone review: %w", err)
		}

		if err := reviewStore.Update(ctx, next); err != nil {
			return fmt.Errorf("failed to update review state: %w", err)
		}

		updated = next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrReviewStateNotFound) {
			return nil, ErrReviewStateNotFound
		}
		log.Error("failed to postpone review",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("note_id", noteID.String()),
			slog.Uint64("cloze_id", uint64(clozeID)))
		return nil, fmt.Errorf("failed to postpone review: %w", err)
	}

	log.Debug("postponed review",
		slog.String("user_id", userID.String()),
		slog.Uint64("cloze_id", uint64(clozeID)),
		slog.Int("days", days),
		slog.Time("next_review_at", updated.NextReviewAt))

	return updated, nil
}

// DueCount implements CardReviewService.DueCount.
func (s *cardReviewServiceImpl) DueCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.reviewStore.CountDue(ctx, userID, s.timeFunc().UTC())
	if err != nil {
		s.logger.Error("failed to count due reviews",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, fmt.Errorf("failed to count due reviews: %w", err)
	}
	return count, nil
}

// isValidOutcome checks if the given outcome is valid
func isValidOutcome(outcome domain.ReviewOutcome) bool {
	switch outcome {
	case domain.ReviewOutcomeAgain,
		domain.ReviewOutcomeHard,
		domain.ReviewOutcomeGood,
		domain.ReviewOutcomeEasy:
		return true
	default:
		return false
	}
}
