// Package srs implements the spaced-repetition scheduler: an SM-2 variant
// operating on per-cloze review state. The rest of the system treats it as
// an opaque service keyed by (note, cloze id); nothing here knows about
// markdown, parsing, or cards.
package srs

import (
	"github.com/recite-app/recite-api/internal/domain"
)

// Params defines all configurable parameters for the scheduling algorithm.
type Params struct {
	// Ease factor bounds.
	MinEaseFactor float64
	MaxEaseFactor float64

	// Per-outcome adjustments.
	EaseFactorAdjustment map[domain.ReviewOutcome]float64
	IntervalModifier     map[domain.ReviewOutcome]float64

	// First-review intervals in days, and the short "again" retry delay.
	FirstReviewIntervals map[domain.ReviewOutcome]int
	AgainReviewMinutes   int
}

// NewDefaultParams returns the standard parameter set.
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor: 1.3,
		MaxEaseFactor: 2.5,

		EaseFactorAdjustment: map[domain.ReviewOutcome]float64{
			domain.ReviewOutcomeAgain: -0.20,
			domain.ReviewOutcomeHard:  -0.15,
			domain.ReviewOutcomeGood:  0.0,
			domain.ReviewOutcomeEasy:  0.15,
		},

		IntervalModifier: map[domain.ReviewOutcome]float64{
			domain.ReviewOutcomeAgain: 0.0, // reset
			domain.ReviewOutcomeHard:  1.2,
			domain.ReviewOutcomeGood:  1.0, // ease factor applies directly
			domain.ReviewOutcomeEasy:  1.3,
		},

		FirstReviewIntervals: map[domain.ReviewOutcome]int{
			domain.ReviewOutcomeHard: 1,
			domain.ReviewOutcomeGood: 1,
			domain.ReviewOutcomeEasy: 2,
		},

		AgainReviewMinutes: 10,
	}
}
