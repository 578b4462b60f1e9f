package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/pollvote/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
)

func seedPoll(t *testing.T, store *memory.Store, title string, at time.Time) *domain.Poll {
	t.Helper()
	poll, err := domain.NewPoll(title, []string{"one", "two"}, uuid.New(), at)
	require.NoError(t, err)
	require.NoError(t, store.Polls().Save(context.Background(), poll))
	return poll
}

func TestRunAtomicRollsBackOnError(t *testing.T) {
	store := memory.NewStore()
	poll := seedPoll(t, store, "Rollback", time.Now())
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.RunAtomic(ctx, func(ctx context.Context, polls ports.PollRepository) error {
		require.NoError(t, polls.RecordBallot(ctx, domain.Ballot{
			PollID:   poll.ID,
			OptionID: poll.Options[0].ID,
			Address:  "10.0.0.1",
		}))

		inTx, err := polls.GetByID(ctx, poll.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, inTx.TotalVotes(), "writes are visible inside the transaction")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := store.Polls().GetByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.TotalVotes())
	assert.Empty(t, stored.Ballots)
}

func TestRunAtomicHonoursCancelledContext(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.RunAtomic(ctx, func(ctx context.Context, polls ports.PollRepository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRecordBallotRejectsDuplicates(t *testing.T) {
	store := memory.NewStore()
	poll := seedPoll(t, store, "Duplicates", time.Now())
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, store.Polls().RecordBallot(ctx, domain.Ballot{PollID: poll.ID, OptionID: poll.Options[0].ID, UserID: user}))

	err := store.Polls().RecordBallot(ctx, domain.Ballot{PollID: poll.ID, OptionID: poll.Options[1].ID, UserID: user})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	require.NoError(t, store.Polls().RecordBallot(ctx, domain.Ballot{PollID: poll.ID, OptionID: poll.Options[1].ID, Address: "10.1.1.1"}))
	err = store.Polls().RecordBallot(ctx, domain.Ballot{PollID: poll.ID, OptionID: poll.Options[0].ID, Address: "10.1.1.1"})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	err = store.Polls().RecordBallot(ctx, domain.Ballot{PollID: poll.ID, OptionID: uuid.New(), Address: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	require.NoError(t, store.Polls().RemoveBallot(ctx, domain.Ballot{PollID: poll.ID, OptionID: poll.Options[0].ID, UserID: user}))
	err = store.Polls().RemoveBallot(ctx, domain.Ballot{PollID: poll.ID, OptionID: poll.Options[0].ID, UserID: user})
	assert.ErrorIs(t, err, domain.ErrDidNotVote)

	stored, err := store.Polls().GetByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.TotalVotes())
	assert.EqualValues(t, 1, stored.Options[1].VoteCount)
}

func TestListOrdersAndFilters(t *testing.T) {
	store := memory.NewStore()
	base := time.Now()
	seedPoll(t, store, "Old cats", base)
	seedPoll(t, store, "New dogs", base.Add(time.Minute))
	seedPoll(t, store, "Newest cats", base.Add(2*time.Minute))

	polls, total, err := store.Polls().List(context.Background(), 10, 0, "CATS")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, polls, 2)
	assert.Equal(t, "Newest cats", polls[0].Title)
	assert.Equal(t, "Old cats", polls[1].Title)

	polls, total, err = store.Polls().List(context.Background(), 1, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, polls, 1)
	assert.Equal(t, "New dogs", polls[0].Title)

	polls, total, err = store.Polls().List(context.Background(), 50, -42, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, polls)
}

func TestReadsReturnCopies(t *testing.T) {
	store := memory.NewStore()
	poll := seedPoll(t, store, "Copies", time.Now())
	ctx := context.Background()

	got, err := store.Polls().GetByID(ctx, poll.ID)
	require.NoError(t, err)
	got.Options[0].VoteCount = 100

	again, err := store.Polls().GetByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Options[0].VoteCount)
}

func TestAnalyticsRepository(t *testing.T) {
	store := memory.NewStore()
	poll := seedPoll(t, store, "Analytics", time.Now())
	ctx := context.Background()

	record, err := store.Analytics().Get(ctx, poll.ID)
	require.NoError(t, err)
	assert.Nil(t, record)

	require.NoError(t, store.Analytics().Track(ctx, poll.ID, domain.EventShare, "a", time.Now()))
	require.NoError(t, store.Analytics().Track(ctx, poll.ID, domain.EventShare, "a", time.Now()))
	require.NoError(t, store.Analytics().Track(ctx, poll.ID, domain.EventView, "", time.Now()))

	record, err = store.Analytics().Get(ctx, poll.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, record.Log(domain.EventShare).Total)
	assert.EqualValues(t, 1, record.Log(domain.EventView).Total)

	err = store.Analytics().Track(ctx, uuid.New(), domain.EventView, "", time.Now())
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	require.NoError(t, store.Polls().Delete(ctx, poll.ID))
	record, err = store.Analytics().Get(ctx, poll.ID)
	require.NoError(t, err)
	assert.Nil(t, record)
}
