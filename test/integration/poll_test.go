package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repo "github.com/vncsmyrnk/pollvote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
)

func TestCreateAndGetPoll(t *testing.T) {
	app := setupTestApp(t, domain.DedupCombined)
	token := createToken(t, uuid.New())

	body, _ := json.Marshal(map[string]any{
		"title":   "Integration Test Poll",
		"options": []string{"Option A", "Option B"},
	})
	req, err := http.NewRequest(http.MethodPost, app.Server.URL+"/api/polls", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Poll
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEqual(t, uuid.Nil, created.ID)
	require.Len(t, created.Options, 2)

	resp, err = app.Server.Client().Get(fmt.Sprintf("%s/api/polls/%s", app.Server.URL, created.ID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched domain.Poll
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fetched))
	assert.Equal(t, "Integration Test Poll", fetched.Title)
	assert.Equal(t, "Option A", fetched.Options[0].Text)
	assert.Equal(t, "Option B", fetched.Options[1].Text)
}

func TestListPollsPagination(t *testing.T) {
	app := setupTestApp(t, domain.DedupCombined)
	ctx := context.Background()

	for i := range 7 {
		app.createPoll(t, fmt.Sprintf("Alpha %d", i), "x", "y")
	}
	for i := range 5 {
		app.createPoll(t, fmt.Sprintf("Beta_%d", i), "x", "y")
	}

	page, err := app.Polls.ListPolls(ctx, ports.ListPollsInput{Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 12, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 5)

	page, err = app.Polls.ListPolls(ctx, ports.ListPollsInput{Page: 3, PageSize: 5})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	page, err = app.Polls.ListPolls(ctx, ports.ListPollsInput{Query: "beta"})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)

	// Wildcards in the search are literal.
	page, err = app.Polls.ListPolls(ctx, ports.ListPollsInput{Query: "a_"})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
}

func TestAddOptionAndDuplicates(t *testing.T) {
	app := setupTestApp(t, domain.DedupCombined)
	ctx := context.Background()
	poll := app.createPoll(t, "Fruit", "Apple", "Pear")

	updated, err := app.Polls.AddOption(ctx, poll.ID, "Plum")
	require.NoError(t, err)
	assert.Len(t, updated.Options, 3)

	_, err = app.Polls.AddOption(ctx, poll.ID, "APPLE")
	assert.ErrorIs(t, err, domain.ErrDuplicateOption)

	stored, err := app.Polls.GetPoll(ctx, poll.ID.String())
	require.NoError(t, err)
	require.Len(t, stored.Options, 3)
	assert.Equal(t, "Plum", stored.Options[2].Text)

	snap, err := app.Analytics.GetAnalytics(ctx, poll.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, snap.TotalOptionsAdded)
}

func TestDeletePollCascades(t *testing.T) {
	app := setupTestApp(t, domain.DedupCombined)
	ctx := context.Background()
	poll := app.createPoll(t, "Temporary", "a", "b")

	_, err := app.Votes.Vote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[0].ID, Identity: domain.Anonymous("10.9.9.9")})
	require.NoError(t, err)

	assert.ErrorIs(t, app.Polls.Delete(ctx, poll.ID, uuid.New()), domain.ErrForbidden)
	require.NoError(t, app.Polls.Delete(ctx, poll.ID, poll.CreatorID))

	var ballots, analytics int
	require.NoError(t, app.DB.QueryRow(`SELECT COUNT(*) FROM poll_ballots WHERE poll_id = $1`, poll.ID).Scan(&ballots))
	require.NoError(t, app.DB.QueryRow(`SELECT COUNT(*) FROM poll_analytics WHERE poll_id = $1`, poll.ID).Scan(&analytics))
	assert.Zero(t, ballots)
	assert.Zero(t, analytics)
}

func TestMigrations(t *testing.T) {
	app := setupTestApp(t, domain.DedupCombined)

	version, dirty, err := repo.MigrationVersion(app.DSN)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	assert.False(t, dirty)

	require.NoError(t, repo.MigrateUp(app.DSN), "up is idempotent")
}
