// Package memory is an in-process storage adapter. Transactions are
// serialised behind one lock and staged on copies, so a failed unit leaves no
// trace. It backs local development and the service tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
)

type Store struct {
	mu    sync.RWMutex
	polls map[uuid.UUID]*domain.Poll

	amu       sync.Mutex
	analytics map[uuid.UUID]*domain.Analytics
}

func NewStore() *Store {
	return &Store{
		polls:     make(map[uuid.UUID]*domain.Poll),
		analytics: make(map[uuid.UUID]*domain.Analytics),
	}
}

func (s *Store) Polls() ports.PollRepository {
	return &pollRepository{store: s}
}

func (s *Store) Analytics() ports.AnalyticsRepository {
	return &analyticsRepository{store: s}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) RunAtomic(ctx context.Context, fn func(ctx context.Context, polls ports.PollRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txRepository{
		base:    s.polls,
		staged:  make(map[uuid.UUID]*domain.Poll),
		deleted: make(map[uuid.UUID]struct{}),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, poll := range tx.staged {
		s.polls[id] = poll
	}
	if len(tx.deleted) > 0 {
		s.amu.Lock()
		for id := range tx.deleted {
			delete(s.polls, id)
			delete(s.analytics, id)
		}
		s.amu.Unlock()
	}
	return nil
}

// txRepository sees committed polls plus its own staged writes. Reads hand out
// clones so callers can mutate them freely.
type txRepository struct {
	base    map[uuid.UUID]*domain.Poll
	staged  map[uuid.UUID]*domain.Poll
	deleted map[uuid.UUID]struct{}
}

func (r *txRepository) working(id uuid.UUID) (*domain.Poll, error) {
	if _, gone := r.deleted[id]; gone {
		return nil, domain.ErrPollNotFound
	}
	if p, ok := r.staged[id]; ok {
		return p, nil
	}
	p, ok := r.base[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	cp := p.Clone()
	r.staged[id] = cp
	return cp, nil
}

func (r *txRepository) Save(ctx context.Context, poll *domain.Poll) error {
	delete(r.deleted, poll.ID)
	r.staged[poll.ID] = poll.Clone()
	return nil
}

func (r *txRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	p, err := r.working(id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	return r.GetByID(ctx, id)
}

func (r *txRepository) List(ctx context.Context, limit, offset int, query string) ([]*domain.Poll, int, error) {
	all := make([]*domain.Poll, 0, len(r.base)+len(r.staged))
	for id := range r.base {
		if _, ok := r.staged[id]; ok {
			continue
		}
		if _, gone := r.deleted[id]; gone {
			continue
		}
		all = append(all, r.base[id])
	}
	for _, p := range r.staged {
		all = append(all, p)
	}
	return page(all, limit, offset, query)
}

func (r *txRepository) AddOption(ctx context.Context, option domain.PollOption) error {
	p, err := r.working(option.PollID)
	if err != nil {
		return err
	}
	option.VoteCount = 0
	option.Position = len(p.Options)
	p.Options = append(p.Options, option)
	return nil
}

func (r *txRepository) RecordBallot(ctx context.Context, ballot domain.Ballot) error {
	p, err := r.working(ballot.PollID)
	if err != nil {
		return err
	}
	// Mirrors the unique indexes on poll_ballots.
	if ballot.UserID != uuid.Nil && slices.Contains(p.VotersByUserID(), ballot.UserID) {
		return domain.ErrAlreadyVoted
	}
	if ballot.Address != "" && slices.Contains(p.VotersByAddress(), ballot.Address) {
		return domain.ErrAlreadyVoted
	}
	if !p.HasOption(ballot.OptionID) {
		return domain.ErrInvalidOption
	}
	for i := range p.Options {
		if p.Options[i].ID == ballot.OptionID {
			p.Options[i].VoteCount++
		}
	}
	p.Ballots = append(p.Ballots, ballot)
	return nil
}

func (r *txRepository) RemoveBallot(ctx context.Context, ballot domain.Ballot) error {
	p, err := r.working(ballot.PollID)
	if err != nil {
		return err
	}
	idx := -1
	for i, b := range p.Ballots {
		if b.UserID == ballot.UserID && b.OptionID == ballot.OptionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrDidNotVote
	}
	p.Ballots = append(p.Ballots[:idx], p.Ballots[idx+1:]...)
	for i := range p.Options {
		if p.Options[i].ID == ballot.OptionID && p.Options[i].VoteCount > 0 {
			p.Options[i].VoteCount--
		}
	}
	return nil
}

func (r *txRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.working(id); err != nil {
		return err
	}
	delete(r.staged, id)
	r.deleted[id] = struct{}{}
	return nil
}

// pollRepository is the non-transactional view. Reads take the shared lock,
// writes run as single-statement transactions.
type pollRepository struct {
	store *Store
}

func (r *pollRepository) atomic(ctx context.Context, fn func(tx ports.PollRepository) error) error {
	return r.store.RunAtomic(ctx, func(ctx context.Context, tx ports.PollRepository) error {
		return fn(tx)
	})
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	return r.atomic(ctx, func(tx ports.PollRepository) error { return tx.Save(ctx, poll) })
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return p.Clone(), nil
}

func (r *pollRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	return r.GetByID(ctx, id)
}

func (r *pollRepository) List(ctx context.Context, limit, offset int, query string) ([]*domain.Poll, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := make([]*domain.Poll, 0, len(r.store.polls))
	for _, p := range r.store.polls {
		all = append(all, p)
	}
	return page(all, limit, offset, query)
}

func (r *pollRepository) AddOption(ctx context.Context, option domain.PollOption) error {
	return r.atomic(ctx, func(tx ports.PollRepository) error { return tx.AddOption(ctx, option) })
}

func (r *pollRepository) RecordBallot(ctx context.Context, ballot domain.Ballot) error {
	return r.atomic(ctx, func(tx ports.PollRepository) error { return tx.RecordBallot(ctx, ballot) })
}

func (r *pollRepository) RemoveBallot(ctx context.Context, ballot domain.Ballot) error {
	return r.atomic(ctx, func(tx ports.PollRepository) error { return tx.RemoveBallot(ctx, ballot) })
}

func (r *pollRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.atomic(ctx, func(tx ports.PollRepository) error { return tx.Delete(ctx, id) })
}

// page filters by case-insensitive title substring, orders newest first and
// slices out one page of clones.
func page(all []*domain.Poll, limit, offset int, query string) ([]*domain.Poll, int, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	matched := make([]*domain.Poll, 0, len(all))
	for _, p := range all {
		if q == "" || strings.Contains(strings.ToLower(p.Title), q) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	if offset < 0 || limit <= 0 || offset >= total {
		return []*domain.Poll{}, total, nil
	}
	end := min(offset+limit, total)

	out := make([]*domain.Poll, 0, end-offset)
	for _, p := range matched[offset:end] {
		out = append(out, p.Clone())
	}
	return out, total, nil
}

type analyticsRepository struct {
	store *Store
}

func (r *analyticsRepository) Track(ctx context.Context, pollID uuid.UUID, kind domain.EventKind, address string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if _, ok := r.store.polls[pollID]; !ok {
		return domain.ErrPollNotFound
	}

	r.store.amu.Lock()
	defer r.store.amu.Unlock()

	record, ok := r.store.analytics[pollID]
	if !ok {
		record = domain.NewAnalytics(pollID)
		r.store.analytics[pollID] = record
	}
	record.Record(kind, address, at)
	return nil
}

func (r *analyticsRepository) Get(ctx context.Context, pollID uuid.UUID) (*domain.Analytics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.amu.Lock()
	defer r.store.amu.Unlock()

	record, ok := r.store.analytics[pollID]
	if !ok {
		return nil, nil
	}
	return record.Clone(), nil
}
