package main

import (
	"context"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/vncsmyrnk/pollvote/internal/adapters/handler/http"
	"github.com/vncsmyrnk/pollvote/internal/adapters/identity"
	"github.com/vncsmyrnk/pollvote/internal/adapters/realtime"
	"github.com/vncsmyrnk/pollvote/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/pollvote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/pollvote/internal/config"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
	"github.com/vncsmyrnk/pollvote/internal/core/services"
	"github.com/vncsmyrnk/pollvote/internal/logger"
)

type storage struct {
	polls     ports.PollRepository
	analytics ports.AnalyticsRepository
	tx        ports.Transactor
	pinger    http.Pinger
	close     func() error
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.close()

	hub := realtime.NewHub(log, func(r *stdhttp.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || cfg.OriginAllowed(origin)
	})
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	ledger := cfg.Ledger()
	analyticsSvc := services.NewAnalyticsService(store.analytics, store.polls, log,
		services.WithTrackTimeout(cfg.AnalyticsTimeout),
	)
	pollSvc := services.NewPollService(store.polls, store.tx, analyticsSvc, log,
		services.WithPollPublisher(hub),
	)
	voteSvc := services.NewVoteService(store.tx, ledger, analyticsSvc, log,
		services.WithVotePublisher(hub),
	)

	respond := http.NewResponder(log, cfg.Env == config.EnvLocal)
	handler := http.NewHandler(http.Router{
		Polls:          http.NewPollHandler(pollSvc, voteSvc, analyticsSvc, respond),
		Votes:          http.NewVoteHandler(voteSvc, respond),
		Analytics:      http.NewAnalyticsHandler(analyticsSvc, respond),
		Live:           http.NewLiveHandler(pollSvc, hub, respond),
		Resolver:       identity.NewJWTResolver(cfg.JWTSecret, cfg.TrustProxyHeaders),
		Storage:        store.pinger,
		Respond:        respond,
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	server := &stdhttp.Server{Addr: cfg.HTTPAddr, Handler: handler}

	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "dedup_mode", ledger.Mode())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	stopHub()
	analyticsSvc.Wait()
	log.Info("shutdown complete")
}

func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storage, error) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return &storage{
			polls:     store.Polls(),
			analytics: store.Analytics(),
			tx:        store,
			pinger:    store,
			close:     func() error { return nil },
		}, nil
	}

	dsn := cfg.Postgres.DSN()
	if err := postgres.MigrateUp(dsn); err != nil {
		return nil, err
	}

	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &storage{
		polls:     postgres.NewPollRepository(db),
		analytics: postgres.NewAnalyticsRepository(db),
		tx:        postgres.NewTransactor(db),
		pinger:    http.PingerFunc(db.PingContext),
		close:     db.Close,
	}, nil
}
