package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
)

type VoteInput struct {
	PollID   uuid.UUID
	OptionID uuid.UUID
	Identity domain.Identity
}

type VoteService interface {
	Vote(ctx context.Context, input VoteInput) (*domain.Poll, error)
	Unvote(ctx context.Context, input VoteInput) (*domain.Poll, error)
	HasVoted(poll *domain.Poll, identity domain.Identity) bool
}
