package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinTitleLength = 3
	MinOptions     = 2
)

type Poll struct {
	ID        uuid.UUID    `json:"id"`
	Title     string       `json:"title"`
	Options   []PollOption `json:"options"`
	CreatorID uuid.UUID    `json:"creator_id"`
	Ballots   []Ballot     `json:"-"`
	CreatedAt time.Time    `json:"created_at"`
}

type PollOption struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	Text      string    `json:"text"`
	VoteCount int64     `json:"vote_count"`
	Position  int       `json:"-"`
}

// Ballot is one entry of the vote ledger. UserID is uuid.Nil and Address is
// empty when the respective dedup key is not active for the vote.
type Ballot struct {
	PollID   uuid.UUID
	OptionID uuid.UUID
	UserID   uuid.UUID
	Address  string
	CastAt   time.Time
}

// NewPoll validates the creation input and builds a poll with zeroed counters.
// Blank options are dropped before the minimum is checked.
func NewPoll(title string, options []string, creatorID uuid.UUID, now time.Time) (*Poll, error) {
	verr := &ValidationError{}

	title = strings.TrimSpace(title)
	if title == "" {
		verr.Add("title", "title is required")
	} else if len([]rune(title)) < MinTitleLength {
		verr.Add("title", "title must be at least 3 characters")
	}

	if creatorID == uuid.Nil {
		verr.Add("creator_id", "creator is required")
	}

	pollID := uuid.New()
	poll := &Poll{
		ID:        pollID,
		Title:     title,
		CreatorID: creatorID,
		CreatedAt: now,
	}

	for _, text := range options {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		poll.Options = append(poll.Options, PollOption{
			ID:       uuid.New(),
			PollID:   pollID,
			Text:     text,
			Position: len(poll.Options),
		})
	}

	if len(poll.Options) < MinOptions {
		verr.Add("options", "at least 2 valid options are required")
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return poll, nil
}

// AddOption appends a new option with a zero counter. Texts are compared
// case-insensitively after trimming.
func (p *Poll) AddOption(text string) (PollOption, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		verr := &ValidationError{}
		verr.Add("option", "option text is required")
		return PollOption{}, verr
	}

	for _, opt := range p.Options {
		if strings.EqualFold(strings.TrimSpace(opt.Text), text) {
			return PollOption{}, ErrDuplicateOption
		}
	}

	opt := PollOption{
		ID:       uuid.New(),
		PollID:   p.ID,
		Text:     text,
		Position: len(p.Options),
	}
	p.Options = append(p.Options, opt)
	return opt, nil
}

func (p *Poll) option(id uuid.UUID) *PollOption {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i]
		}
	}
	return nil
}

func (p *Poll) HasOption(id uuid.UUID) bool {
	return p.option(id) != nil
}

func (p *Poll) TotalVotes() int64 {
	var total int64
	for _, opt := range p.Options {
		total += opt.VoteCount
	}
	return total
}

// VotersByUserID returns the authenticated dedup set.
func (p *Poll) VotersByUserID() []uuid.UUID {
	var ids []uuid.UUID
	for _, b := range p.Ballots {
		if b.UserID != uuid.Nil {
			ids = append(ids, b.UserID)
		}
	}
	return ids
}

// VotersByAddress returns the address dedup set.
func (p *Poll) VotersByAddress() []string {
	var addrs []string
	for _, b := range p.Ballots {
		if b.Address != "" {
			addrs = append(addrs, b.Address)
		}
	}
	return addrs
}

func (p *Poll) ballotByUser(userID uuid.UUID) int {
	if userID == uuid.Nil {
		return -1
	}
	for i, b := range p.Ballots {
		if b.UserID == userID {
			return i
		}
	}
	return -1
}

func (p *Poll) ballotByAddress(address string) int {
	if address == "" {
		return -1
	}
	for i, b := range p.Ballots {
		if b.Address == address {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy, used by stores that hand out snapshots.
func (p *Poll) Clone() *Poll {
	cp := *p
	cp.Options = append([]PollOption(nil), p.Options...)
	cp.Ballots = append([]Ballot(nil), p.Ballots...)
	return &cp
}

type PollPage struct {
	Items      []*Poll `json:"items"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
	TotalCount int     `json:"total_count"`
}
