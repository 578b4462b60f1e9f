package http

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
	"github.com/vncsmyrnk/pollvote/internal/metrics"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type Router struct {
	Polls          *PollHandler
	Votes          *VoteHandler
	Analytics      *AnalyticsHandler
	Live           *LiveHandler
	Resolver       ports.IdentityResolver
	Storage        Pinger
	Respond        *Responder
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewHandler(rt Router) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(rt.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   rt.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: !slices.Contains(rt.AllowedOrigins, "*"),
	}).Handler)

	r.Get("/healthz", rt.health)
	r.Handle("/metrics", metrics.Handler())

	auth := RequireAuth(rt.Respond)

	r.Route("/api", func(r chi.Router) {
		r.Use(ResolveIdentity(rt.Resolver))

		r.Route("/polls", func(r chi.Router) {
			r.Get("/", rt.Polls.ListPolls)
			r.With(auth).Post("/", rt.Polls.CreatePoll)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.Polls.GetPoll)
				r.With(auth).Delete("/", rt.Polls.DeletePoll)
				r.With(auth).Post("/options", rt.Polls.AddOption)

				r.Post("/votes", rt.Votes.VoteOnPoll)
				r.With(auth).Delete("/votes", rt.Votes.Unvote)

				r.Post("/share", rt.Analytics.SharePoll)
				r.Post("/view", rt.Analytics.ViewPoll)
				r.With(auth).Get("/analytics", rt.Analytics.GetAnalytics)

				if rt.Live != nil {
					r.Get("/live", rt.Live.Stream)
				}
			})
		})
	})

	return r
}

func (rt Router) health(w http.ResponseWriter, r *http.Request) {
	if err := rt.Storage.Ping(r.Context()); err != nil {
		rt.Respond.Error(w, r, err)
		return
	}
	rt.Respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
