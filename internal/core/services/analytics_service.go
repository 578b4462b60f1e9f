package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
	"github.com/vncsmyrnk/pollvote/internal/metrics"
)

const defaultTrackTimeout = 5 * time.Second

type analyticsService struct {
	repo    ports.AnalyticsRepository
	polls   ports.PollRepository
	logger  *slog.Logger
	now     Clock
	timeout time.Duration
	wg      sync.WaitGroup
}

type AnalyticsServiceOption func(*analyticsService)

func WithAnalyticsClock(c Clock) AnalyticsServiceOption {
	return func(s *analyticsService) { s.now = c }
}

// WithTrackTimeout bounds each background event write.
func WithTrackTimeout(d time.Duration) AnalyticsServiceOption {
	return func(s *analyticsService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewAnalyticsService(repo ports.AnalyticsRepository, polls ports.PollRepository, logger *slog.Logger, opts ...AnalyticsServiceOption) ports.AnalyticsService {
	s := &analyticsService{
		repo:    repo,
		polls:   polls,
		logger:  logger,
		now:     systemClock,
		timeout: defaultTrackTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *analyticsService) TrackEvent(ctx context.Context, pollID uuid.UUID, kind domain.EventKind, address string) error {
	if err := s.repo.Track(ctx, pollID, kind, address, s.now()); err != nil {
		metrics.AnalyticsFailures.WithLabelValues(kind.String()).Inc()
		return err
	}
	metrics.AnalyticsEvents.WithLabelValues(kind.String()).Inc()
	return nil
}

// TrackAsync records the event in the background. It never reports back to the
// caller; failures are only logged.
func (s *analyticsService) TrackAsync(pollID uuid.UUID, kind domain.EventKind, address string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.TrackEvent(ctx, pollID, kind, address); err != nil {
			s.logger.Warn("analytics event dropped", "poll_id", pollID, "kind", kind, "error", err)
		}
	}()
}

// SharePoll checks the poll exists and then counts the share without waiting.
func (s *analyticsService) SharePoll(ctx context.Context, pollID uuid.UUID, address string) error {
	if _, err := s.polls.GetByID(ctx, pollID); err != nil {
		return err
	}
	s.TrackAsync(pollID, domain.EventShare, address)
	return nil
}

func (s *analyticsService) ViewPoll(ctx context.Context, pollID uuid.UUID) error {
	if _, err := s.polls.GetByID(ctx, pollID); err != nil {
		return err
	}
	s.TrackAsync(pollID, domain.EventView, "")
	return nil
}

func (s *analyticsService) GetAnalytics(ctx context.Context, pollID uuid.UUID) (domain.AnalyticsSnapshot, error) {
	record, err := s.repo.Get(ctx, pollID)
	if err != nil {
		return domain.AnalyticsSnapshot{}, err
	}
	return record.Snapshot(pollID), nil
}

// Wait blocks until background events have finished. Used on shutdown.
func (s *analyticsService) Wait() {
	s.wg.Wait()
}
