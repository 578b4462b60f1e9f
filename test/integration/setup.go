package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/vncsmyrnk/pollvote/internal/adapters/handler/http"
	"github.com/vncsmyrnk/pollvote/internal/adapters/identity"
	repo "github.com/vncsmyrnk/pollvote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
	"github.com/vncsmyrnk/pollvote/internal/core/services"
	"github.com/vncsmyrnk/pollvote/internal/logger"
)

const jwtSecret = "test-secret"

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

type TestApp struct {
	DB          *sql.DB
	DSN         string
	Server      *httptest.Server
	Polls       ports.PollService
	Votes       ports.VoteService
	Analytics   ports.AnalyticsService
	DBContainer testcontainers.Container
}

func setupTestApp(t *testing.T, mode domain.DedupMode) *TestApp {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	dbContainer, dsn, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.MigrateUp(dsn))

	db, err := repo.Open(ctx, dsn)
	require.NoError(t, err)

	log := logger.Discard()
	pollRepo := repo.NewPollRepository(db)
	tx := repo.NewTransactor(db)

	analyticsSvc := services.NewAnalyticsService(repo.NewAnalyticsRepository(db), pollRepo, log)
	pollSvc := services.NewPollService(pollRepo, tx, analyticsSvc, log)
	voteSvc := services.NewVoteService(tx, domain.NewLedger(mode), analyticsSvc, log)

	respond := handler.NewResponder(log, true)
	router := handler.NewHandler(handler.Router{
		Polls:          handler.NewPollHandler(pollSvc, voteSvc, analyticsSvc, respond),
		Votes:          handler.NewVoteHandler(voteSvc, respond),
		Analytics:      handler.NewAnalyticsHandler(analyticsSvc, respond),
		Resolver:       identity.NewJWTResolver(jwtSecret, true),
		Storage:        handler.PingerFunc(db.PingContext),
		Respond:        respond,
		Logger:         log,
		AllowedOrigins: []string{"*"},
	})

	app := &TestApp{
		DB:          db,
		DSN:         dsn,
		Server:      httptest.NewServer(router),
		Polls:       pollSvc,
		Votes:       voteSvc,
		Analytics:   analyticsSvc,
		DBContainer: dbContainer,
	}
	t.Cleanup(func() { app.Teardown(t) })
	return app
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.Analytics.Wait()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

func (app *TestApp) createPoll(t *testing.T, title string, options ...string) *domain.Poll {
	t.Helper()
	poll, err := app.Polls.Create(context.Background(), ports.CreatePollInput{
		Title:     title,
		Options:   options,
		CreatorID: uuid.New(),
	})
	require.NoError(t, err)
	return poll
}

func createToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(15 * time.Minute).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signedToken
}
