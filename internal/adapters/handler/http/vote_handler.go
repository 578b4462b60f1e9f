package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
	respond *Responder
}

func NewVoteHandler(service ports.VoteService, respond *Responder) *VoteHandler {
	return &VoteHandler{
		service: service,
		respond: respond,
	}
}

type voteRequest struct {
	OptionID uuid.UUID `json:"option_id"`
}

type voteFunc func(ctx context.Context, input ports.VoteInput) (*domain.Poll, error)

func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, http.StatusCreated, h.service.Vote)
}

func (h *VoteHandler) Unvote(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, http.StatusOK, h.service.Unvote)
}

func (h *VoteHandler) apply(w http.ResponseWriter, r *http.Request, status int, op voteFunc) {
	pollID, ok := parsePollID(h.respond, w, r)
	if !ok {
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.BadBody(w)
		return
	}

	identity := IdentityFrom(r.Context())
	poll, err := op(r.Context(), ports.VoteInput{
		PollID:   pollID,
		OptionID: req.OptionID,
		Identity: identity,
	})
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, status, pollResponse{
		Poll:       poll,
		TotalVotes: poll.TotalVotes(),
		HasVoted:   h.service.HasVoted(poll, identity),
	})
}
