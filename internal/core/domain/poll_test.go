package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
)

func TestNewPoll(t *testing.T) {
	creator := uuid.New()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	poll, err := domain.NewPoll("  Lunch?  ", []string{"Pizza", "  ", "Sushi "}, creator, now)
	require.NoError(t, err)

	assert.Equal(t, "Lunch?", poll.Title)
	assert.Equal(t, creator, poll.CreatorID)
	assert.Equal(t, now, poll.CreatedAt)
	require.Len(t, poll.Options, 2)
	assert.Equal(t, "Pizza", poll.Options[0].Text)
	assert.Equal(t, "Sushi", poll.Options[1].Text)
	for i, opt := range poll.Options {
		assert.Equal(t, poll.ID, opt.PollID)
		assert.Equal(t, i, opt.Position)
		assert.Zero(t, opt.VoteCount)
	}
	assert.Empty(t, poll.Ballots)
}

func TestNewPollValidation(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		options []string
		creator uuid.UUID
		fields  []string
	}{
		{"short title", "ab", []string{"a", "b"}, uuid.New(), []string{"title"}},
		{"blank title", "   ", []string{"a", "b"}, uuid.New(), []string{"title"}},
		{"one option after trimming", "Valid title", []string{"a", " "}, uuid.New(), []string{"options"}},
		{"missing creator", "Valid title", []string{"a", "b"}, uuid.Nil, []string{"creator_id"}},
		{"everything wrong", "", nil, uuid.Nil, []string{"title", "creator_id", "options"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewPoll(tt.title, tt.options, tt.creator, time.Now())
			require.ErrorIs(t, err, domain.ErrValidation)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))

			var fields []string
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}
			assert.ElementsMatch(t, tt.fields, fields)
		})
	}
}

func TestPollAddOption(t *testing.T) {
	poll, err := domain.NewPoll("Colors", []string{"Red", "Blue"}, uuid.New(), time.Now())
	require.NoError(t, err)

	opt, err := poll.AddOption("  Green ")
	require.NoError(t, err)
	assert.Equal(t, "Green", opt.Text)
	assert.Equal(t, 2, opt.Position)
	assert.Zero(t, opt.VoteCount)
	assert.True(t, poll.HasOption(opt.ID))

	_, err = poll.AddOption("red")
	assert.ErrorIs(t, err, domain.ErrDuplicateOption)

	_, err = poll.AddOption("   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Len(t, poll.Options, 3)
}

func TestPollCloneIsDeep(t *testing.T) {
	poll, err := domain.NewPoll("Clone me", []string{"a", "b"}, uuid.New(), time.Now())
	require.NoError(t, err)

	cp := poll.Clone()
	cp.Options[0].VoteCount = 9
	cp.Ballots = append(cp.Ballots, domain.Ballot{PollID: poll.ID})

	assert.Zero(t, poll.Options[0].VoteCount)
	assert.Empty(t, poll.Ballots)
}
