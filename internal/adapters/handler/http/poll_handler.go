package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
)

type PollHandler struct {
	service   ports.PollService
	votes     ports.VoteService
	analytics ports.AnalyticsService
	respond   *Responder
}

func NewPollHandler(service ports.PollService, votes ports.VoteService, analytics ports.AnalyticsService, respond *Responder) *PollHandler {
	return &PollHandler{
		service:   service,
		votes:     votes,
		analytics: analytics,
		respond:   respond,
	}
}

type createPollRequest struct {
	Title   string   `json:"title"`
	Options []string `json:"options"`
}

type addOptionRequest struct {
	Text string `json:"text"`
}

type pollResponse struct {
	*domain.Poll
	TotalVotes int64 `json:"total_votes"`
	HasVoted   bool  `json:"has_voted"`
}

func (h *PollHandler) toResponse(poll *domain.Poll, identity domain.Identity) pollResponse {
	return pollResponse{
		Poll:       poll,
		TotalVotes: poll.TotalVotes(),
		HasVoted:   h.votes.HasVoted(poll, identity),
	}
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.BadBody(w)
		return
	}

	identity := IdentityFrom(r.Context())
	poll, err := h.service.Create(r.Context(), ports.CreatePollInput{
		Title:     req.Title,
		Options:   req.Options,
		CreatorID: identity.UserID,
	})
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusCreated, h.toResponse(poll, identity))
}

func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.service.ListPolls(r.Context(), ports.ListPollsInput{
		Page:     page,
		PageSize: limit,
		Query:    q.Get("q"),
	})
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusOK, result)
}

// GetPoll returns the poll and counts a view without waiting for it.
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.service.GetPoll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.analytics.TrackAsync(poll.ID, domain.EventView, "")
	h.respond.JSON(w, http.StatusOK, h.toResponse(poll, IdentityFrom(r.Context())))
}

func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := h.pollID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), pollID, IdentityFrom(r.Context()).UserID); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PollHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	pollID, ok := h.pollID(w, r)
	if !ok {
		return
	}

	var req addOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.BadBody(w)
		return
	}

	poll, err := h.service.AddOption(r.Context(), pollID, req.Text)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusCreated, h.toResponse(poll, IdentityFrom(r.Context())))
}

func (h *PollHandler) pollID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return parsePollID(h.respond, w, r)
}

func parsePollID(rs *Responder, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		rs.Error(w, r, domain.ErrInvalidPollID)
		return uuid.Nil, false
	}
	return id, true
}
