package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewOutcome represents the result of reviewing one cloze.
type ReviewOutcome string

// Possible review outcome values
const (
	ReviewOutcomeAgain ReviewOutcome = "again"
	ReviewOutcomeHard  ReviewOutcome = "hard"
	ReviewOutcomeGood  ReviewOutcome = "good"
	ReviewOutcomeEasy  ReviewOutcome = "easy"
)

// Common validation errors for ReviewState
var (
	ErrEmptyReviewUserID = errors.New("review state user ID cannot be empty")
	ErrEmptyReviewNoteID = errors.New("review state note ID cannot be empty")
	ErrZeroReviewClozeID = errors.New("review state cloze ID must be positive")
	ErrInvalidInterval   = errors.New("interval must be greater than or equal to 0")
	ErrInvalidEaseFactor = errors.New("ease factor must be greater than 1.0")
)

// ReviewState tracks a user's spaced-repetition schedule for one cloze id
// within one note. The key is (UserID, NoteID, ClozeID): every occurrence
// of the same id in a document shares this single schedule, and the state
// survives card projections being rebuilt, because cloze ids are the only
// stable identity across reparses.
//
// Renumbering ids (normalization) desynchronizes this history, which is
// why normalization always requires explicit confirmation.
type ReviewState struct {
	UserID  uuid.UUID `json:"user_id"`
	NoteID  uuid.UUID `json:"note_id"`
	ClozeID uint      `json:"cloze_id"`

	Interval           int       `json:"interval"`    // current interval in days
	EaseFactor         float64   `json:"ease_factor"` // typically 1.3-2.5
	ConsecutiveCorrect int       `json:"consecutive_correct"`
	LastReviewedAt     time.Time `json:"last_reviewed_at"`
	NextReviewAt       time.Time `json:"next_review_at"`
	ReviewCount        int       `json:"review_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewReviewState creates review state for a user and cloze with default
// values, configured so the cloze is due for review immediately.
func NewReviewState(userID, noteID uuid.UUID, clozeID uint) (*ReviewState, error) {
	now := time.Now().UTC()
	state := &ReviewState{
		UserID:             userID,
		NoteID:             noteID,
		ClozeID:            clozeID,
		Interval:           0,
		EaseFactor:         2.5,
		ConsecutiveCorrect: 0,
		LastReviewedAt:     time.Time{},
		NextReviewAt:       now,
		ReviewCount:        0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}

	return state, nil
}

// Validate checks if the ReviewState has valid data.
func (s *ReviewState) Validate() error {
	if s.UserID == uuid.Nil {
		return ErrEmptyReviewUserID
	}

	if s.NoteID == uuid.Nil {
		return ErrEmptyReviewNoteID
	}

	if s.ClozeID == 0 {
		return ErrZeroReviewClozeID
	}

	if s.Interval < 0 {
		return ErrInvalidInterval
	}

	if s.EaseFactor <= 1.0 {
		return ErrInvalidEaseFactor
	}

	return nil
}

// Clone returns a copy of the state. The scheduler never mutates state in
// place; it returns new instances.
func (s *ReviewState) Clone() *ReviewState {
	cp := *s
	return &cp
}
