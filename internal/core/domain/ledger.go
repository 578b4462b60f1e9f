package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DedupMode selects which identity keys the ledger enforces. A deployment
// runs in exactly one mode.
type DedupMode string

const (
	// DedupCombined checks and records the client address for every vote,
	// and the user id as well when the voter is authenticated.
	DedupCombined DedupMode = "combined"
	// DedupAuthenticated only accepts authenticated votes and keys them by
	// user id.
	DedupAuthenticated DedupMode = "authenticated"
)

func ParseDedupMode(s string) (DedupMode, error) {
	switch DedupMode(s) {
	case DedupCombined, DedupAuthenticated:
		return DedupMode(s), nil
	case "":
		return DedupCombined, nil
	default:
		return "", fmt.Errorf("unknown dedup mode %q", s)
	}
}

// Ledger decides whether an identity may vote and applies the outcome to an
// in-memory poll. Callers persist the returned ballot inside the same
// transaction that loaded the poll.
type Ledger struct {
	mode DedupMode
}

func NewLedger(mode DedupMode) Ledger {
	if mode == "" {
		mode = DedupCombined
	}
	return Ledger{mode: mode}
}

func (l Ledger) Mode() DedupMode {
	return l.mode
}

// keys returns the dedup keys active for identity under the ledger mode.
func (l Ledger) keys(identity Identity) (uuid.UUID, string, error) {
	switch l.mode {
	case DedupAuthenticated:
		if !identity.IsAuthenticated() {
			return uuid.Nil, "", ErrAuthRequired
		}
		return identity.UserID, "", nil
	default:
		if identity.Address == "" && !identity.IsAuthenticated() {
			return uuid.Nil, "", ErrAuthRequired
		}
		return identity.UserID, identity.Address, nil
	}
}

// HasVoted reports whether any active key of identity is already in the ledger.
func (l Ledger) HasVoted(p *Poll, identity Identity) bool {
	userID, address, err := l.keys(identity)
	if err != nil {
		return false
	}
	return p.ballotByUser(userID) >= 0 || p.ballotByAddress(address) >= 0
}

func (l Ledger) TryRecordVote(p *Poll, identity Identity, optionID uuid.UUID, now time.Time) (Ballot, error) {
	opt := p.option(optionID)
	if opt == nil {
		return Ballot{}, ErrInvalidOption
	}

	userID, address, err := l.keys(identity)
	if err != nil {
		return Ballot{}, err
	}
	if p.ballotByUser(userID) >= 0 || p.ballotByAddress(address) >= 0 {
		return Ballot{}, ErrAlreadyVoted
	}

	ballot := Ballot{
		PollID:   p.ID,
		OptionID: optionID,
		UserID:   userID,
		Address:  address,
		CastAt:   now,
	}
	opt.VoteCount++
	p.Ballots = append(p.Ballots, ballot)
	return ballot, nil
}

// RemoveVote withdraws the authenticated voter's ballot. Both of the ballot's
// keys are released, so the voter may vote again.
func (l Ledger) RemoveVote(p *Poll, identity Identity, optionID uuid.UUID) (Ballot, error) {
	if !identity.IsAuthenticated() {
		return Ballot{}, ErrAuthRequired
	}

	idx := p.ballotByUser(identity.UserID)
	if idx < 0 {
		return Ballot{}, ErrDidNotVote
	}

	opt := p.option(optionID)
	if opt == nil {
		return Ballot{}, ErrInvalidOption
	}
	ballot := p.Ballots[idx]
	if ballot.OptionID != optionID {
		return Ballot{}, ErrInvalidOption
	}

	if opt.VoteCount > 0 {
		opt.VoteCount--
	}
	p.Ballots = append(p.Ballots[:idx], p.Ballots[idx+1:]...)
	return ballot, nil
}
