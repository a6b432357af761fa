package srs

import (
	"time"

	"github.com/recite-app/recite-api/internal/domain"
)

// calculateNewEaseFactor adjusts the ease factor for a review outcome and
// clamps it to the configured bounds. Higher ease means faster-growing
// intervals; "again" and "hard" lower it, "easy" raises it.
func calculateNewEaseFactor(
	currentEF float64,
	outcome domain.ReviewOutcome,
	params *Params,
) float64 {
	newEF := currentEF + params.EaseFactorAdjustment[outcome]

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	if newEF > params.MaxEaseFactor {
		newEF = params.MaxEaseFactor
	}

	return newEF
}

// calculateNewInterval computes the next interval in days.
//
//   - "again" resets the interval to 0 (retry in minutes, not days)
//   - first reviews (interval 0) use the configured initial intervals
//   - after a lapse (consecutiveCorrect 0 with a non-zero interval), "good"
//     uses a gentler 1.5x multiplier instead of the full ease factor
//   - otherwise "good" multiplies by the ease factor, "hard" by its
//     modifier, "easy" by its modifier times the ease factor
func calculateNewInterval(
	currentInterval int,
	consecutiveCorrect int,
	easeFactor float64,
	outcome domain.ReviewOutcome,
	params *Params,
) int {
	if outcome == domain.ReviewOutcomeAgain {
		return 0
	}

	if currentInterval == 0 {
		return params.FirstReviewIntervals[outcome]
	}

	if consecutiveCorrect == 0 && outcome == domain.ReviewOutcomeGood {
		return int(float64(currentInterval) * 1.5)
	}

	var modifier float64
	if outcome == domain.ReviewOutcomeGood {
		modifier = easeFactor
	} else {
		modifier = params.IntervalModifier[outcome]
		if outcome == domain.ReviewOutcomeEasy {
			modifier *= easeFactor
		}
	}

	return int(float64(currentInterval) * modifier)
}

// calculateNextReviewDate converts an interval into the next review time.
// Failed clozes come back after a few minutes; everything else after the
// interval in days.
func calculateNextReviewDate(
	interval int,
	outcome domain.ReviewOutcome,
	now time.Time,
	params *Params,
) time.Time {
	if outcome == domain.ReviewOutcomeAgain {
		return now.Add(time.Duration(params.AgainReviewMinutes) * time.Minute)
	}
	return now.AddDate(0, 0, interval)
}

// calculateNextState returns a new ReviewState reflecting one review.
// The input state is never mutated.
func calculateNextState(
	state *domain.ReviewState,
	outcome domain.ReviewOutcome,
	now time.Time,
	params *Params,
) *domain.ReviewState {
	next := state.Clone()

	next.ReviewCount++
	next.LastReviewedAt = now
	next.EaseFactor = calculateNewEaseFactor(state.EaseFactor, outcome, params)

	if outcome == domain.ReviewOutcomeAgain {
		next.ConsecutiveCorrect = 0
	} else {
		next.ConsecutiveCorrect++
	}

	next.Interval = calculateNewInterval(
		state.Interval,
		state.ConsecutiveCorrect,
		next.EaseFactor,
		outcome,
		params,
	)
	next.NextReviewAt = calculateNextReviewDate(next.Interval, outcome, now, params)
	next.UpdatedAt = now

	return next
}
