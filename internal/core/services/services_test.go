package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/pollvote/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
	"github.com/vncsmyrnk/pollvote/internal/core/services"
	"github.com/vncsmyrnk/pollvote/internal/logger"
)

type recordingPublisher struct {
	mu    sync.Mutex
	polls []*domain.Poll
}

func (p *recordingPublisher) PublishPoll(poll *domain.Poll) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls = append(p.polls, poll)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.polls)
}

// tickingClock returns a strictly increasing time on every call.
func tickingClock() services.Clock {
	var mu sync.Mutex
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type testApp struct {
	store     *memory.Store
	polls     ports.PollService
	votes     ports.VoteService
	analytics ports.AnalyticsService
	published *recordingPublisher
}

func newTestApp(t *testing.T, mode domain.DedupMode) *testApp {
	t.Helper()

	store := memory.NewStore()
	log := logger.Discard()
	clock := tickingClock()
	pub := &recordingPublisher{}

	analytics := services.NewAnalyticsService(store.Analytics(), store.Polls(), log,
		services.WithAnalyticsClock(clock),
		services.WithTrackTimeout(time.Second),
	)
	app := &testApp{
		store:     store,
		analytics: analytics,
		published: pub,
		polls: services.NewPollService(store.Polls(), store, analytics, log,
			services.WithPollClock(clock),
			services.WithPollPublisher(pub),
		),
		votes: services.NewVoteService(store, domain.NewLedger(mode), analytics, log,
			services.WithVoteClock(clock),
			services.WithVotePublisher(pub),
		),
	}
	t.Cleanup(analytics.Wait)
	return app
}

func (a *testApp) createPoll(t *testing.T, options ...string) *domain.Poll {
	t.Helper()
	if len(options) == 0 {
		options = []string{gofakeit.Color(), gofakeit.Animal() + " " + gofakeit.UUID()}
	}
	poll, err := a.polls.Create(context.Background(), ports.CreatePollInput{
		Title:     "Which " + gofakeit.Animal() + " wins?",
		Options:   options,
		CreatorID: uuid.New(),
	})
	require.NoError(t, err)
	return poll
}
