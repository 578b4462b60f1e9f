package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
)

func TestAnalyticsDefaultsToZero(t *testing.T) {
	app := newTestApp(t, domain.DedupCombined)

	snap, err := app.analytics.GetAnalytics(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, snap.TotalViews)
	assert.Zero(t, snap.TotalVotes)
	assert.Zero(t, snap.TotalShares)
	assert.Zero(t, snap.TotalOptionsAdded)
	assert.Empty(t, snap.Series)
}

func TestSharePollCountsEachAddressOnce(t *testing.T) {
	app := newTestApp(t, domain.DedupCombined)
	poll := app.createPoll(t)
	ctx := context.Background()

	addr := gofakeit.IPv4Address()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, app.analytics.SharePoll(ctx, poll.ID, addr))
		}()
	}
	wg.Wait()
	require.NoError(t, app.analytics.SharePoll(ctx, poll.ID, "192.0.2.200"))
	app.analytics.Wait()

	snap, err := app.analytics.GetAnalytics(ctx, poll.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, snap.TotalShares)
	assert.Len(t, snap.SharesOverTime, 2)
}

func TestSharePollUnknownPoll(t *testing.T) {
	app := newTestApp(t, domain.DedupCombined)

	err := app.analytics.SharePoll(context.Background(), uuid.New(), "192.0.2.1")
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

func TestViewPoll(t *testing.T) {
	app := newTestApp(t, domain.DedupCombined)
	poll := app.createPoll(t)
	ctx := context.Background()

	require.NoError(t, app.analytics.ViewPoll(ctx, poll.ID))
	require.NoError(t, app.analytics.ViewPoll(ctx, poll.ID))
	assert.ErrorIs(t, app.analytics.ViewPoll(ctx, uuid.New()), domain.ErrPollNotFound)
	app.analytics.Wait()

	snap, err := app.analytics.GetAnalytics(ctx, poll.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, snap.TotalViews)
}

func TestTrackEventOnMissingPoll(t *testing.T) {
	app := newTestApp(t, domain.DedupCombined)

	err := app.analytics.TrackEvent(context.Background(), uuid.New(), domain.EventVote, "")
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

// Removing a vote keeps its timestamp in the vote history.
func TestVoteAnalyticsAreHistorical(t *testing.T) {
	app := newTestApp(t, domain.DedupCombined)
	poll := app.createPoll(t)
	ctx := context.Background()
	voter := domain.Authenticated(uuid.New(), "203.0.113.50")
	input := ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[1].ID, Identity: voter}

	_, err := app.votes.Vote(ctx, input)
	require.NoError(t, err)
	_, err = app.votes.Unvote(ctx, input)
	require.NoError(t, err)
	_, err = app.votes.Vote(ctx, input)
	require.NoError(t, err)

	snap, err := app.analytics.GetAnalytics(ctx, poll.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, snap.TotalVotes)
	require.Len(t, snap.Series, 2)
	assert.Equal(t, 2, snap.Series[1].Votes)
	assert.True(t, snap.VotesOverTime[0].Before(snap.VotesOverTime[1]))
}
