package http

import (
	"net/http"

	"github.com/vncsmyrnk/pollvote/internal/core/ports"
)

type AnalyticsHandler struct {
	service ports.AnalyticsService
	respond *Responder
}

func NewAnalyticsHandler(service ports.AnalyticsService, respond *Responder) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		respond: respond,
	}
}

// SharePoll answers as soon as the poll is known to exist; the share itself
// is counted in the background.
func (h *AnalyticsHandler) SharePoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(h.respond, w, r)
	if !ok {
		return
	}

	if err := h.service.SharePoll(r.Context(), pollID, IdentityFrom(r.Context()).Address); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *AnalyticsHandler) ViewPoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(h.respond, w, r)
	if !ok {
		return
	}

	if err := h.service.ViewPoll(r.Context(), pollID); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(h.respond, w, r)
	if !ok {
		return
	}

	snapshot, err := h.service.GetAnalytics(r.Context(), pollID)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.JSON(w, http.StatusOK, snapshot)
}
