package srs

import (
	"errors"
	"time"

	"github.com/recite-app/recite-api/internal/domain"
)

// Common errors
var (
	ErrNilState       = errors.New("review state cannot be nil")
	ErrInvalidOutcome = errors.New("invalid review outcome")
	ErrInvalidDays    = errors.New("postpone days must be at least 1")
)

// Service defines the scheduling operations the review service depends on.
type Service interface {
	// CalculateNextReview computes new state based on a review outcome.
	CalculateNextReview(
		state *domain.ReviewState,
		outcome domain.ReviewOutcome,
		now time.Time,
	) (*domain.ReviewState, error)

	// PostponeReview pushes the next review time forward by whole days.
	PostponeReview(
		state *domain.ReviewState,
		days int,
		now time.Time,
	) (*domain.ReviewState, error)
}

// defaultService is the standard implementation of the Service interface.
type defaultService struct {
	params *Params
}

// NewDefaultService creates a scheduler with default parameters.
func NewDefaultService() Service {
	return &defaultService{params: NewDefaultParams()}
}

// NewServiceWithParams creates a scheduler with custom parameters.
func NewServiceWithParams(params *Params) Service {
	return &defaultService{params: params}
}

func (s *defaultService) CalculateNextReview(
	state *domain.ReviewState,
	outcome domain.ReviewOutcome,
	now time.Time,
) (*domain.ReviewState, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if !isValidOutcome(outcome) {
		return nil, ErrInvalidOutcome
	}

	return calculateNextState(state, outcome, now, s.params), nil
}

func (s *defaultService) PostponeReview(
	state *domain.ReviewState,
	days int,
	now time.Time,
) (*domain.ReviewState, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if days < 1 {
		return nil, ErrInvalidDays
	}

	next := state.Clone()
	next.NextReviewAt = state.NextReviewAt.AddDate(0, 0, days)
	next.UpdatedAt = now
	return next, nil
}

// isValidOutcome checks if the given outcome is valid.
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
