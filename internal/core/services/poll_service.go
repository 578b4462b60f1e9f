package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

type pollService struct {
	repo      ports.PollRepository
	tx        ports.Transactor
	analytics ports.AnalyticsService
	publisher ports.PollPublisher
	logger    *slog.Logger
	now       Clock
}

type PollServiceOption func(*pollService)

func WithPollClock(c Clock) PollServiceOption {
	return func(s *pollService) { s.now = c }
}

func WithPollPublisher(p ports.PollPublisher) PollServiceOption {
	return func(s *pollService) { s.publisher = p }
}

func NewPollService(repo ports.PollRepository, tx ports.Transactor, analytics ports.AnalyticsService, logger *slog.Logger, opts ...PollServiceOption) ports.PollService {
	s := &pollService{
		repo:      repo,
		tx:        tx,
		analytics: analytics,
		logger:    logger,
		now:       systemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	poll, err := domain.NewPoll(input.Title, input.Options, input.CreatorID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, err
	}

	s.logger.Info("poll created", "poll_id", poll.ID, "creator_id", poll.CreatorID, "options", len(poll.Options))
	return poll, nil
}

func (s *pollService) GetPoll(ctx context.Context, id string) (*domain.Poll, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrInvalidPollID
	}

	return s.repo.GetByID(ctx, pollID)
}

func (s *pollService) ListPolls(ctx context.Context, input ports.ListPollsInput) (*domain.PollPage, error) {
	page := max(input.Page, 1)
	size := input.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	size = min(size, MaxPageSize)

	// Pages past math.MaxInt rows are empty; only the count is fetched.
	offset, limit := (page-1)*size, size
	if page-1 > (math.MaxInt-size)/size {
		offset, limit = 0, 0
	}

	polls, total, err := s.repo.List(ctx, limit, offset, input.Query)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		polls = nil
	}
	if polls == nil {
		polls = []*domain.Poll{}
	}

	return &domain.PollPage{
		Items:      polls,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
		TotalCount: total,
	}, nil
}

func (s *pollService) AddOption(ctx context.Context, pollID uuid.UUID, text string) (*domain.Poll, error) {
	var updated *domain.Poll
	err := runAtomic(ctx, s.tx, "add_option", func(ctx context.Context, polls ports.PollRepository) error {
		poll, err := polls.GetForUpdate(ctx, pollID)
		if err != nil {
			return err
		}

		opt, err := poll.AddOption(text)
		if err != nil {
			return err
		}
		if err := polls.AddOption(ctx, opt); err != nil {
			return err
		}

		updated = poll
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.analytics.TrackEvent(ctx, pollID, domain.EventOptionAdd, ""); err != nil {
		s.logger.Error("failed to track option add", "poll_id", pollID, "error", err)
	}
	s.publish(updated)

	return updated, nil
}

func (s *pollService) Delete(ctx context.Context, pollID, requesterID uuid.UUID) error {
	err := runAtomic(ctx, s.tx, "delete_poll", func(ctx context.Context, polls ports.PollRepository) error {
		poll, err := polls.GetForUpdate(ctx, pollID)
		if err != nil {
			return err
		}
		if poll.CreatorID != requesterID {
			return domain.ErrForbidden
		}
		return polls.Delete(ctx, pollID)
	})
	if err != nil {
		return fmt.Errorf("delete poll %s: %w", pollID, err)
	}

	s.logger.Info("poll deleted", "poll_id", pollID, "requester_id", requesterID)
	return nil
}

func (s *pollService) publish(poll *domain.Poll) {
	if s.publisher != nil && poll != nil {
		s.publisher.PublishPoll(poll)
	}
}
