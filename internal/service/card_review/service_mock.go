package card_review

import (
	"context"

	"github.com/google/uuid"
	"github.com/recite-app/recite-api/internal/domain"
)

// MockCardReviewService is a mock implementation of the CardReviewService
// interface for testing. Each method delegates to the corresponding function
// field when set.
type MockCardReviewService struct {
	GetNextReviewFunc  func(ctx context.Context, userID uuid.UUID) (*ReviewItem, error)
	SubmitAnswerFunc   func(ctx context.Context, userID, noteID uuid.UUID, clozeID uint, answer ReviewAnswer) (*domain.ReviewState, error)
	PostponeReviewFunc func(ctx context.Context, userID, noteID uuid.UUID, clozeID uint, days int) (*domain.ReviewState, error)
	DueCountFunc       func(ctx context.Context, userID uuid.UUID) (int, error)
}

var _ CardReviewService = (*MockCardReviewService)(nil)

// GetNextReview implements CardReviewService.GetNextReview.
func (m *MockCardReviewService) GetNextReview(
	ctx context.Context,
	userID uuid.UUID,
) (*ReviewItem, error) {
	if m.GetNextReviewFunc != nil {
		return m.GetNextReviewFunc(ctx, userID)
	}
	return nil, ErrNoCardsDue
}

// SubmitAnswer implements CardReviewService.SubmitAnswer.
func (m *MockCardReviewService) SubmitAnswer(
	ctx context.Context,
	userID, noteID uuid.UUID,
	clozeID uint,
	answer ReviewAnswer,
) (*domain.ReviewState, error) {
	if m.SubmitAnswerFunc != nil {
		return m.SubmitAnswerFunc(ctx, userID, noteID, clozeID, answer)
	}
	return nil, ErrReviewStateNotFound
}

// PostponeReview implements CardReviewService.PostponeReview.
func (m *MockCardReviewService) PostponeReview(
	ctx context.Context,
	userID, noteID uuid.UUID,
	clozeID uint,
	days int,
) (*domain.ReviewState, error) {
	if m.PostponeReviewFunc != nil {
		return m.PostponeReviewFunc(ctx, userID, noteID, clozeID, days)
	}
	return nil, ErrReviewStateNotFound
}

// DueCount implements CardReviewService.DueCount.
func (m *MockCardReviewService) DueCount(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.DueCountFunc != nil {
		return m.DueCountFunc(ctx, userID)
	}
	return 0, nil
}
