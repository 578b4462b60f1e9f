package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	VotesCast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pollvote_votes_cast_total",
		Help: "Votes committed to the ledger",
	})

	VotesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pollvote_votes_removed_total",
		Help: "Votes withdrawn by their authenticated voter",
	})

	VotesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pollvote_votes_rejected_total",
		Help: "Vote attempts rejected by the ledger, by reason",
	}, []string{"reason"})

	AnalyticsEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pollvote_analytics_events_total",
		Help: "Analytics events recorded, by kind",
	}, []string{"kind"})

	AnalyticsFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pollvote_analytics_failures_total",
		Help: "Analytics events that could not be stored, by kind",
	}, []string{"kind"})

	TransactionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pollvote_transaction_duration_seconds",
		Help:    "Duration of atomic poll mutations",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"operation", "outcome"})

	LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pollvote_live_subscribers",
		Help: "Open websocket subscriptions to poll updates",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
