package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
)

type AnalyticsRepository interface {
	// Track upserts the poll's record and applies one event to it atomically.
	Track(ctx context.Context, pollID uuid.UUID, kind domain.EventKind, address string, at time.Time) error
	// Get returns nil, nil when no event was ever tracked for the poll.
	Get(ctx context.Context, pollID uuid.UUID) (*domain.Analytics, error)
}

type AnalyticsService interface {
	TrackEvent(ctx context.Context, pollID uuid.UUID, kind domain.EventKind, address string) error
	TrackAsync(pollID uuid.UUID, kind domain.EventKind, address string)
	SharePoll(ctx context.Context, pollID uuid.UUID, address string) error
	ViewPoll(ctx context.Context, pollID uuid.UUID) error
	GetAnalytics(ctx context.Context, pollID uuid.UUID) (domain.AnalyticsSnapshot, error)
	Wait()
}
