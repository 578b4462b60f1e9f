package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
)

// Subscriber streams updates of one poll over a long-lived connection.
type Subscriber interface {
	Subscribe(w http.ResponseWriter, r *http.Request, pollID uuid.UUID) error
}

type LiveHandler struct {
	polls   ports.PollService
	hub     Subscriber
	respond *Responder
}

func NewLiveHandler(polls ports.PollService, hub Subscriber, respond *Responder) *LiveHandler {
	return &LiveHandler{
		polls:   polls,
		hub:     hub,
		respond: respond,
	}
}

func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(h.respond, w, r)
	if !ok {
		return
	}
	if _, err := h.polls.GetPoll(r.Context(), pollID.String()); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	// The upgrader has already answered the request when this fails.
	if err := h.hub.Subscribe(w, r, pollID); err != nil {
		h.respond.logger.Debug("live subscribe failed", "poll_id", pollID, "error", err)
	}
}
