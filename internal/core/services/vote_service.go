package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
	"github.com/vncsmyrnk/pollvote/internal/metrics"
)

type voteService struct {
	tx        ports.Transactor
	ledger    domain.Ledger
	analytics ports.AnalyticsService
	publisher ports.PollPublisher
	logger    *slog.Logger
	now       Clock
}

type VoteServiceOption func(*voteService)

func WithVoteClock(c Clock) VoteServiceOption {
	return func(s *voteService) { s.now = c }
}

func WithVotePublisher(p ports.PollPublisher) VoteServiceOption {
	return func(s *voteService) { s.publisher = p }
}

func NewVoteService(tx ports.Transactor, ledger domain.Ledger, analytics ports.AnalyticsService, logger *slog.Logger, opts ...VoteServiceOption) ports.VoteService {
	s := &voteService{
		tx:        tx,
		ledger:    ledger,
		analytics: analytics,
		logger:    logger,
		now:       systemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Vote records one ballot. The ledger check and the counter increment commit
// together; the vote analytics event is written after the commit and its
// failure does not fail the vote.
func (s *voteService) Vote(ctx context.Context, input ports.VoteInput) (*domain.Poll, error) {
	var updated *domain.Poll
	err := runAtomic(ctx, s.tx, "vote", func(ctx context.Context, polls ports.PollRepository) error {
		poll, err := polls.GetForUpdate(ctx, input.PollID)
		if err != nil {
			return err
		}

		ballot, err := s.ledger.TryRecordVote(poll, input.Identity, input.OptionID, s.now())
		if err != nil {
			return err
		}
		if err := polls.RecordBallot(ctx, ballot); err != nil {
			return err
		}

		updated = poll
		return nil
	})
	if err != nil {
		s.rejected(err)
		return nil, err
	}

	metrics.VotesCast.Inc()
	s.logger.Info("vote recorded",
		"poll_id", input.PollID,
		"option_id", input.OptionID,
		"authenticated", input.Identity.IsAuthenticated(),
	)

	if err := s.analytics.TrackEvent(ctx, input.PollID, domain.EventVote, input.Identity.Address); err != nil {
		s.logger.Error("failed to track vote", "poll_id", input.PollID, "error", err)
	}
	s.publish(updated)

	return updated, nil
}

func (s *voteService) Unvote(ctx context.Context, input ports.VoteInput) (*domain.Poll, error) {
	var updated *domain.Poll
	err := runAtomic(ctx, s.tx, "unvote", func(ctx context.Context, polls ports.PollRepository) error {
		poll, err := polls.GetForUpdate(ctx, input.PollID)
		if err != nil {
			return err
		}

		ballot, err := s.ledger.RemoveVote(poll, input.Identity, input.OptionID)
		if err != nil {
			return err
		}
		if err := polls.RemoveBallot(ctx, ballot); err != nil {
			return err
		}

		updated = poll
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.VotesRemoved.Inc()
	s.logger.Info("vote removed", "poll_id", input.PollID, "user_id", input.Identity.UserID)
	s.publish(updated)

	return updated, nil
}

func (s *voteService) HasVoted(poll *domain.Poll, identity domain.Identity) bool {
	return s.ledger.HasVoted(poll, identity)
}

func (s *voteService) rejected(err error) {
	var reason string
	switch {
	case errors.Is(err, domain.ErrAlreadyVoted):
		reason = "duplicate"
	case errors.Is(err, domain.ErrInvalidOption):
		reason = "invalid_option"
	case errors.Is(err, domain.ErrPollNotFound):
		reason = "not_found"
	case errors.Is(err, domain.ErrAuthRequired):
		reason = "auth_required"
	default:
		reason = "storage"
	}
	metrics.VotesRejected.WithLabelValues(reason).Inc()
}

func (s *voteService) publish(poll *domain.Poll) {
	if s.publisher != nil && poll != nil {
		s.publisher.PublishPoll(poll)
	}
}
