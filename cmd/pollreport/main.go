package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/vncsmyrnk/pollvote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/pollvote/internal/config"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/services"
	"github.com/vncsmyrnk/pollvote/internal/logger"
)

type report struct {
	Poll       *domain.Poll             `json:"poll"`
	TotalVotes int64                    `json:"total_votes"`
	Analytics  domain.AnalyticsSnapshot `json:"analytics"`
}

// pollreport prints the current results and analytics of one poll as JSON.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var pg config.Postgres
	if err := config.ReadPostgres(&pg); err != nil {
		log.Fatal(err)
	}

	var pollID string
	flag.StringVar(&pg.Host, "db-host", pg.Host, "Database host")
	flag.StringVar(&pg.Port, "db-port", pg.Port, "Database port")
	flag.StringVar(&pg.User, "db-user", pg.User, "Database user")
	flag.StringVar(&pg.Password, "db-pass", pg.Password, "Database password")
	flag.StringVar(&pg.DB, "db-name", pg.DB, "Database name")
	flag.StringVar(&pollID, "poll", "", "Poll id")
	flag.Parse()

	if pollID == "" {
		log.Fatal("a poll id is required (-poll)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, pg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	quiet := logger.Discard()
	pollRepo := postgres.NewPollRepository(db)
	analyticsSvc := services.NewAnalyticsService(postgres.NewAnalyticsRepository(db), pollRepo, quiet)
	pollSvc := services.NewPollService(pollRepo, postgres.NewTransactor(db), analyticsSvc, quiet)

	poll, err := pollSvc.GetPoll(ctx, pollID)
	if err != nil {
		log.Fatalf("Error loading poll: %v", err)
	}

	snapshot, err := analyticsSvc.GetAnalytics(ctx, poll.ID)
	if err != nil {
		log.Fatalf("Error loading analytics: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report{Poll: poll, TotalVotes: poll.TotalVotes(), Analytics: snapshot}); err != nil {
		log.Fatal(err)
	}
}
