package card_review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/recite-app/recite-api/internal/domain"
)

// ReviewAnswer represents a user's answer to a review prompt.
type ReviewAnswer struct {
	Outcome domain.ReviewOutcome `json:"outcome"` // The outcome selected by the user
}

// ReviewItem pairs the card to display with the schedule entry that made it
// due. The card carries the block content for rendering; the state identifies
// which cloze id inside it is being asked.
type ReviewItem struct {
	Card  *domain.Card        `json:"card"`
	State *domain.ReviewState `json:"state"`
}

// CardReviewService provides methods for reviewing clozes using a spaced
// repetition algorithm. Review state is keyed by (user, note, cloze id), so
// schedules survive the card projections being rebuilt on reparse.
type CardReviewService interface {
	// GetNextReview retrieves the next cloze due for review for a user,
	// together with the card (block projection) that contains it.
	//
	// Returns:
	//   - (*ReviewItem, nil): The next item due for review if one exists
	//   - (nil, ErrNoCardsDue): If the user has nothing due for review
	//   - (nil, ErrCardNotFound): If the due cloze has no card projection,
	//     which indicates the note's cards are out of sync with its body
	//   - (nil, error): Any other error, typically from the database
	GetNextReview(ctx context.Context, userID uuid.UUID) (*ReviewItem, error)

	// SubmitAnswer processes a user's answer for one cloze and updates its
	// review schedule based on the spaced repetition algorithm.
	//
	// The read-modify-write runs in a single transaction with the state row
	// locked, so concurrent submissions for the same cloze serialize instead
	// of clobbering each other.
	//
	// Returns:
	//   - (*domain.ReviewState, nil): The updated schedule
	//   - (nil, ErrReviewStateNotFound): If no schedule exists for the cloze
	//   - (nil, ErrInvalidAnswer): If the outcome is not one of again/hard/good/easy
	//   - (nil, error): Any other error, typically from the database
	SubmitAnswer(
		ctx context.Context,
		userID, noteID uuid.UUID,
		clozeID uint,
		answer ReviewAnswer,
	) (*domain.ReviewState, error)

	// PostponeReview pushes one cloze's next review forward by whole days
	// without recording an outcome.
	//
	// Returns ErrReviewStateNotFound if no schedule exists for the cloze and
	// ErrInvalidPostpone if days is less than 1.
	PostponeReview(
		ctx context.Context,
		userID, noteID uuid.UUID,
		clozeID uint,
		days int,
	) (*domain.ReviewState, error)

	// DueCount returns how many of the user's clozes are currently due.
	DueCount(ctx context.Context, userID uuid.UUID) (int, error)
}

// Common error types for CardReviewService
var (
	// ErrNoCardsDue indicates that the user has nothing due for review.
	ErrNoCardsDue = errors.New("no cards due for review")

	// ErrCardNotFound indicates that no card projection contains the cloze.
	ErrCardNotFound = errors.New("card not found")

	// ErrReviewStateNotFound indicates that no schedule exists for the cloze.
	ErrReviewStateNotFound = errors.New("review state not found")

	// ErrInvalidAnswer indicates an invalid answer was provided.
	ErrInvalidAnswer = errors.New("invalid answer")

	// ErrInvalidPostpone indicates an invalid postpone duration was provided.
	ErrInvalidPostpone = errors.New("postpone days must be at least 1")
)

// ServiceError wraps errors from the card review service with additional
// context, so consumers can differentiate failures with errors.As instead of
// string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "get_next_review", "submit_answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewSubmitAnswerError returns a new ServiceError for the submit_answer operation.
func NewSubmitAnswerError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "submit_answer",
		Message:   message,
		Err:       err,
	}
}

// NewGetNextReviewError returns a new ServiceError for the get_next_review operation.
func NewGetNextReviewError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "get_next_review",
		Message:   message,
		Err:       err,
	}
}
