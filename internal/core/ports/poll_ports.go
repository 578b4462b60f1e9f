package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
)

// PollRepository reads and writes polls. Implementations returned by a
// Transactor are scoped to one transaction.
type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	// GetForUpdate loads a poll and holds it against concurrent writers until
	// the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	List(ctx context.Context, limit, offset int, query string) ([]*domain.Poll, int, error)
	AddOption(ctx context.Context, option domain.PollOption) error
	RecordBallot(ctx context.Context, ballot domain.Ballot) error
	RemoveBallot(ctx context.Context, ballot domain.Ballot) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Transactor runs fn atomically. Any error returned by fn rolls back every
// write made through the repository it was given.
type Transactor interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context, polls PollRepository) error) error
}

type CreatePollInput struct {
	Title     string
	Options   []string
	CreatorID uuid.UUID
}

type ListPollsInput struct {
	Page     int
	PageSize int
	Query    string
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	GetPoll(ctx context.Context, id string) (*domain.Poll, error)
	ListPolls(ctx context.Context, input ListPollsInput) (*domain.PollPage, error)
	AddOption(ctx context.Context, pollID uuid.UUID, text string) (*domain.Poll, error)
	Delete(ctx context.Context, pollID, requesterID uuid.UUID) error
}
