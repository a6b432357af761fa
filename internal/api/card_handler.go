// Package api provides HTTP handlers for the API.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/recite-app/recite-api/internal/api/shared"
	"github.com/recite-app/recite-api/internal/domain"
	"github.com/recite-app/recite-api/internal/platform/logger"
	"github.com/recite-app/recite-api/internal/redact"
	"github.com/recite-app/recite-api/internal/service/card_review"
)

// CardResponse represents the response data for a card projection.
type CardResponse struct {
	ID          string    `json:"id"`
	NoteID      string    `json:"note_id"`
	BlockID     string    `json:"block_id"`
	ContentRaw  string    `json:"content_raw"`
	SectionPath []string  `json:"section_path"`
	Tags        []string  `json:"tags,omitempty"`
	ClozeIDs    []uint    `json:"cloze_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReviewStateResponse represents the response data for a review schedule entry.
type ReviewStateResponse struct {
	NoteID             string    `json:"note_id"`
	ClozeID            uint      `json:"cloze_id"`
	Interval           int       `json:"interval"`
	EaseFactor         float64   `json:"ease_factor"`
	ConsecutiveCorrect int       `json:"consecutive_correct"`
	LastReviewedAt     time.Time `json:"last_reviewed_at"`
	NextReviewAt       time.Time `json:"next_review_at"`
	ReviewCount        int       `json:"review_count"`
}

// ReviewItemResponse pairs the card to render with the schedule entry that
// made it due. ClozeID on the state identifies which deletion in the block is
// being asked.
type ReviewItemResponse struct {
	Card  CardResponse        `json:"card"`
	State ReviewStateResponse `json:"state"`
}

// DueCountResponse reports how many clozes are currently due for review.
type DueCountResponse struct {
	Due int `json:"due"`
}

// SubmitAnswerRequest represents the request body for submitting a review answer.
type SubmitAnswerRequest struct {
	NoteID  string `json:"note_id"  validate:"required,uuid"`
	ClozeID uint   `json:"cloze_id" validate:"required,gt=0"`
	Outcome string `json:"outcome"  validate:"required,oneof=again hard good easy"`
}

// PostponeReviewRequest represents the request body for postponing a review.
type PostponeReviewRequest struct {
	NoteID  string `json:"note_id"  validate:"required,uuid"`
	ClozeID uint   `json:"cloze_id" validate:"required,gt=0"`
	Days    int    `json:"days"     validate:"required,gt=0"`
}

// CardHandler handles review-related HTTP requests.
type CardHandler struct {
	cardReviewService card_review.CardReviewService
	logger            *slog.Logger
}

// NewCardHandler creates a new CardHandler
func NewCardHandler(
	cardReviewService card_review.CardReviewService,
	logger *slog.Logger,
) *CardHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for CardHandler")
	}

	return &CardHandler{
		cardReviewService: cardReviewService,
		logger:            logger.With(slog.String("component", "card_handler")),
	}
}

// GetNextReviewCard handles GET /cards/next requests.
// It retrieves the next cloze due for review for the authenticated user,
// together with the card that contains it.
func (h *CardHandler) GetNextReviewCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract user ID from context (set by auth middleware)
	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	log.Debug("getting next review item", slog.String("user_id", userID.String()))

	item, err := h.cardReviewService.GetNextReview(r.Context(), userID)

	// Special case: nothing due for review
	if errors.Is(err, card_review.ErrNoCardsDue) {
		log.Debug("no cards due for review", slog.String("user_id", userID.String()))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err != nil {
		HandleAPIError(w, r, err, "Failed to get next review card")
		return
	}

	log.Debug("successfully retrieved next review item",
		slog.String("user_id", userID.String()),
		slog.String("card_id", item.Card.ID.String()),
		slog.Uint64("cloze_id", uint64(item.State.ClozeID)))
	shared.RespondWithJSON(w, r, http.StatusOK, reviewItemToResponse(item))
}

// SubmitAnswer handles POST /cards/answer requests.
// It processes a user's answer for one cloze and updates the spaced
// repetition schedule.
func (h *CardHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract user ID from context (set by auth middleware)
	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	// Parse request body
	var req SubmitAnswerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Validate request
	if err := shared.ValidateRequest(req); err != nil {
		log.Warn("validation error",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	noteID, err := parseRequestUUID(req.NoteID, "note_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	outcome := domain.ReviewOutcome(req.Outcome)

	state, err := h.cardReviewService.SubmitAnswer(
		r.Context(),
		userID,
		noteID,
		req.ClozeID,
		card_review.ReviewAnswer{Outcome: outcome},
	)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit answer")
		return
	}

	log.Debug("successfully submitted answer",
		slog.String("user_id", userID.String()),
		slog.String("note_id", noteID.String()),
		slog.Uint64("cloze_id", uint64(req.ClozeID)),
		slog.String("outcome", string(outcome)))
	shared.RespondWithJSON(w, r, http.StatusOK, stateToResponse(state))
}

// PostponeReview handles POST /cards/postpone requests.
// It pushes one cloze's next review forward by whole days without recording
// an outcome.
func (h *CardHandler) PostponeReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract user ID from context (set by auth middleware)
	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	// Parse request body
	var req PostponeReviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Validate request
	if err := shared.ValidateRequest(req); err != nil {
		log.Warn("validation error",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	noteID, err := parseRequestUUID(req.NoteID, "note_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	state, err := h.cardReviewService.PostponeReview(r.Context(), userID, noteID, req.ClozeID, req.Days)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to postpone review")
		return
	}

	log.Debug("successfully postponed review",
		slog.String("user_id", userID.String()),
		slog.String("note_id", noteID.String()),
		slog.Uint64("cloze_id", uint64(req.ClozeID)),
		slog.Int("days", req.Days))
	shared.RespondWithJSON(w, r, http.StatusOK, stateToResponse(state))
}

// GetDueCount handles GET /cards/due-count requests.
func (h *CardHandler) GetDueCount(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract user ID from context (set by auth middleware)
	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	due, err := h.cardReviewService.DueCount(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to count due cards")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, DueCountResponse{Due: due})
}

// stateToResponse converts a domain.ReviewState to a ReviewStateResponse.
func stateToResponse(state *domain.ReviewState) ReviewStateResponse {
	return ReviewStateResponse{
		NoteID:             state.NoteID.String(),
		ClozeID:            state.ClozeID,
		Interval:           state.Interval,
		EaseFactor:         state.EaseFactor,
		ConsecutiveCorrect: state.ConsecutiveCorrect,
		LastReviewedAt:     state.LastReviewedAt,
		NextReviewAt:       state.NextReviewAt,
		ReviewCount:        state.ReviewCount,
	}
}

// cardToResponse converts a domain.Card to a CardResponse.
func cardToResponse(card *domain.Card) CardResponse {
	return CardResponse{
		ID:          card.ID.String(),
		NoteID:      card.NoteID.String(),
		BlockID:     card.BlockID,
		ContentRaw:  card.ContentRaw,
		SectionPath: card.SectionPath,
		Tags:        card.Tags,
		ClozeIDs:    card.ClozeIDs,
		CreatedAt:   card.CreatedAt,
		UpdatedAt:   card.UpdatedAt,
	}
}

// reviewItemToResponse converts a card_review.ReviewItem to a ReviewItemResponse.
func reviewItemToResponse(item *card_review.ReviewItem) ReviewItemResponse {
	return ReviewItemResponse{
		Card:  cardToResponse(item.Card),
		State: stateToResponse(item.State),
	}
}
