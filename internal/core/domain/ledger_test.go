package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
)

func newPoll(t *testing.T) *domain.Poll {
	t.Helper()
	poll, err := domain.NewPoll("Best editor", []string{"vim", "emacs", "nano"}, uuid.New(), time.Now())
	require.NoError(t, err)
	return poll
}

func TestParseDedupMode(t *testing.T) {
	mode, err := domain.ParseDedupMode("")
	require.NoError(t, err)
	assert.Equal(t, domain.DedupCombined, mode)

	mode, err = domain.ParseDedupMode("authenticated")
	require.NoError(t, err)
	assert.Equal(t, domain.DedupAuthenticated, mode)

	_, err = domain.ParseDedupMode("ip-only")
	assert.Error(t, err)
}

func TestLedgerCombined(t *testing.T) {
	ledger := domain.NewLedger(domain.DedupCombined)
	poll := newPoll(t)
	user := uuid.New()

	ballot, err := ledger.TryRecordVote(poll, domain.Authenticated(user, "10.0.0.1"), poll.Options[0].ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, user, ballot.UserID)
	assert.Equal(t, "10.0.0.1", ballot.Address)
	assert.EqualValues(t, 1, poll.Options[0].VoteCount)
	assert.Equal(t, []uuid.UUID{user}, poll.VotersByUserID())
	assert.Equal(t, []string{"10.0.0.1"}, poll.VotersByAddress())

	t.Run("same address anonymous is rejected", func(t *testing.T) {
		_, err := ledger.TryRecordVote(poll, domain.Anonymous("10.0.0.1"), poll.Options[1].ID, time.Now())
		assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
	})

	t.Run("same user from another address is rejected", func(t *testing.T) {
		_, err := ledger.TryRecordVote(poll, domain.Authenticated(user, "10.0.0.2"), poll.Options[1].ID, time.Now())
		assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
	})

	t.Run("anonymous from a new address is accepted", func(t *testing.T) {
		ballot, err := ledger.TryRecordVote(poll, domain.Anonymous("10.0.0.3"), poll.Options[1].ID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, ballot.UserID)
	})

	assert.EqualValues(t, 2, poll.TotalVotes())
	assert.True(t, ledger.HasVoted(poll, domain.Anonymous("10.0.0.3")))
	assert.False(t, ledger.HasVoted(poll, domain.Anonymous("10.0.0.4")))
}

func TestLedgerAuthenticatedMode(t *testing.T) {
	ledger := domain.NewLedger(domain.DedupAuthenticated)
	poll := newPoll(t)

	_, err := ledger.TryRecordVote(poll, domain.Anonymous("10.0.0.1"), poll.Options[0].ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	// Two users behind the same NAT may both vote.
	_, err = ledger.TryRecordVote(poll, domain.Authenticated(uuid.New(), "10.0.0.1"), poll.Options[0].ID, time.Now())
	require.NoError(t, err)
	ballot, err := ledger.TryRecordVote(poll, domain.Authenticated(uuid.New(), "10.0.0.1"), poll.Options[0].ID, time.Now())
	require.NoError(t, err)
	assert.Empty(t, ballot.Address)

	assert.EqualValues(t, 2, poll.Options[0].VoteCount)
	assert.Empty(t, poll.VotersByAddress())
}

func TestLedgerRejectsUnknownOptionFirst(t *testing.T) {
	ledger := domain.NewLedger(domain.DedupCombined)
	poll := newPoll(t)

	_, err := ledger.TryRecordVote(poll, domain.Anonymous(""), uuid.New(), time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidOption)
	assert.Zero(t, poll.TotalVotes())
}

func TestLedgerRemoveVote(t *testing.T) {
	ledger := domain.NewLedger(domain.DedupCombined)
	poll := newPoll(t)
	voter := domain.Authenticated(uuid.New(), "192.168.1.7")

	_, err := ledger.RemoveVote(poll, voter, poll.Options[0].ID)
	assert.ErrorIs(t, err, domain.ErrDidNotVote)

	_, err = ledger.TryRecordVote(poll, voter, poll.Options[0].ID, time.Now())
	require.NoError(t, err)

	_, err = ledger.RemoveVote(poll, domain.Anonymous("192.168.1.7"), poll.Options[0].ID)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	_, err = ledger.RemoveVote(poll, voter, poll.Options[1].ID)
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	_, err = ledger.RemoveVote(poll, voter, uuid.New())
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	ballot, err := ledger.RemoveVote(poll, voter, poll.Options[0].ID)
	require.NoError(t, err)
	assert.Equal(t, poll.Options[0].ID, ballot.OptionID)
	assert.Zero(t, poll.TotalVotes())
	assert.Empty(t, poll.VotersByUserID())
	assert.Empty(t, poll.VotersByAddress())

	// Both keys were released, so the same voter can vote again.
	_, err = ledger.TryRecordVote(poll, voter, poll.Options[2].ID, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, poll.Options[2].VoteCount)
}
