package review

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/channelswap/channelswap/internal/domain/apperr"
)

// Review is feedback tied to a completed match, one per
// (matchId, fromChannelId).
type Review struct {
	ID            int64     `json:"id"`
	ReviewID      uuid.UUID `json:"reviewId"`
	MatchID       uuid.UUID `json:"matchId"`
	FromChannelID uuid.UUID `json:"fromChannelId"`
	Rating        int       `json:"rating"`
	Comment       *string   `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// New validates and builds a review.
func New(matchID, fromChannelID uuid.UUID, rating int, comment *string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	if comment != nil && len(*comment) > 500 {
		return nil, apperr.Validation("comment must be at most 500 characters")
	}
	return &Review{
		ReviewID:      uuid.New(),
		MatchID:       matchID,
		FromChannelID: fromChannelID,
		Rating:        rating,
		Comment:       comment,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Repository defines persistence for reviews.
type Repository interface {
	Create(ctx context.Context, r *Review) error
	GetByMatchAndChannel(ctx context.Context, matchID, fromChannelID uuid.UUID) (*Review, error)
	ListByMatch(ctx context.Context, matchID uuid.UUID) ([]*Review, error)
}
