package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
)

type pollRepository struct {
	// db is nil when the repository is bound to a transaction.
	db *sql.DB
	q  querier
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
		q:  db,
	}
}

// withTx runs fn in the bound transaction, or in a fresh one.
func (r *pollRepository) withTx(ctx context.Context, fn func(q querier) error) error {
	if r.db == nil {
		return fn(r.q)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	return r.withTx(ctx, func(q querier) error {
		queryPoll := `
			INSERT INTO polls (id, title, creator_id, created_at)
			VALUES ($1, $2, $3, $4)
		`
		_, err := q.ExecContext(ctx, queryPoll, poll.ID, poll.Title, poll.CreatorID, poll.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert poll: %w", err)
		}

		for _, opt := range poll.Options {
			if err := insertOption(ctx, q, opt); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertOption(ctx context.Context, q querier, opt domain.PollOption) error {
	queryOption := `
		INSERT INTO poll_options (id, poll_id, position, text, vote_count)
		VALUES ($1, $2, $3, $4, 0)
	`
	_, err := q.ExecContext(ctx, queryOption, opt.ID, opt.PollID, opt.Position, opt.Text)
	if err != nil {
		if isUniqueViolation(err, "idx_poll_options_text") {
			return domain.ErrDuplicateOption
		}
		if pqCode(err) == codeForeignKeyViolation {
			return domain.ErrPollNotFound
		}
		return fmt.Errorf("failed to insert option: %w", err)
	}
	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	return r.get(ctx, r.q, id, false)
}

func (r *pollRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	if r.db != nil {
		return nil, errors.New("GetForUpdate requires a transaction")
	}
	return r.get(ctx, r.q, id, true)
}

func (r *pollRepository) get(ctx context.Context, q querier, id uuid.UUID, lock bool) (*domain.Poll, error) {
	queryPoll := `
		SELECT id, title, creator_id, created_at
		FROM polls
		WHERE id = $1
	`
	if lock {
		queryPoll += " FOR UPDATE"
	}

	var poll domain.Poll
	err := q.QueryRowContext(ctx, queryPoll, id).Scan(
		&poll.ID, &poll.Title, &poll.CreatorID, &poll.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	options, err := fetchOptions(ctx, q, poll.ID)
	if err != nil {
		return nil, err
	}
	poll.Options = options

	ballots, err := fetchBallots(ctx, q, poll.ID)
	if err != nil {
		return nil, err
	}
	poll.Ballots = ballots

	return &poll, nil
}

func (r *pollRepository) List(ctx context.Context, limit, offset int, query string) ([]*domain.Poll, int, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"

	var total int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM polls WHERE title ILIKE $1`, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count polls: %w", err)
	}

	listQuery := `
		SELECT id, title, creator_id, created_at
		FROM polls
		WHERE title ILIKE $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.q.QueryContext(ctx, listQuery, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	polls, err := r.scanPolls(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return polls, total, nil
}

func (r *pollRepository) scanPolls(ctx context.Context, rows *sql.Rows) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	for rows.Next() {
		var poll domain.Poll
		if err := rows.Scan(&poll.ID, &poll.Title, &poll.CreatorID, &poll.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, &poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}
	rows.Close()

	for _, poll := range polls {
		options, err := fetchOptions(ctx, r.q, poll.ID)
		if err != nil {
			return nil, err
		}
		poll.Options = options
	}
	return polls, nil
}

func fetchOptions(ctx context.Context, q querier, pollID uuid.UUID) ([]domain.PollOption, error) {
	queryOptions := `
		SELECT id, poll_id, position, text, vote_count
		FROM poll_options
		WHERE poll_id = $1
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, queryOptions, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll options: %w", err)
	}
	defer rows.Close()

	var options []domain.PollOption
	for rows.Next() {
		var opt domain.PollOption
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Position, &opt.Text, &opt.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}
	return options, nil
}

func fetchBallots(ctx context.Context, q querier, pollID uuid.UUID) ([]domain.Ballot, error) {
	queryBallots := `
		SELECT poll_id, option_id, user_id, voter_address, cast_at
		FROM poll_ballots
		WHERE poll_id = $1
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, queryBallots, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll ballots: %w", err)
	}
	defer rows.Close()

	var ballots []domain.Ballot
	for rows.Next() {
		var (
			b       domain.Ballot
			userID  uuid.NullUUID
			address sql.NullString
		)
		if err := rows.Scan(&b.PollID, &b.OptionID, &userID, &address, &b.CastAt); err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		if userID.Valid {
			b.UserID = userID.UUID
		}
		b.Address = address.String
		ballots = append(ballots, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ballots: %w", err)
	}
	return ballots, nil
}

func (r *pollRepository) AddOption(ctx context.Context, option domain.PollOption) error {
	return r.withTx(ctx, func(q querier) error {
		return insertOption(ctx, q, option)
	})
}

func (r *pollRepository) RecordBallot(ctx context.Context, ballot domain.Ballot) error {
	return r.withTx(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `
			UPDATE poll_options SET vote_count = vote_count + 1
			WHERE id = $1 AND poll_id = $2
		`, ballot.OptionID, ballot.PollID)
		if err != nil {
			return fmt.Errorf("failed to increment option: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrInvalidOption
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO poll_ballots (poll_id, option_id, user_id, voter_address, cast_at)
			VALUES ($1, $2, $3, $4, $5)
		`,
			ballot.PollID,
			ballot.OptionID,
			uuid.NullUUID{UUID: ballot.UserID, Valid: ballot.UserID != uuid.Nil},
			sql.NullString{String: ballot.Address, Valid: ballot.Address != ""},
			ballot.CastAt,
		)
		if err != nil {
			return translateBallotErr(err)
		}
		return nil
	})
}

func (r *pollRepository) RemoveBallot(ctx context.Context, ballot domain.Ballot) error {
	return r.withTx(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `
			DELETE FROM poll_ballots
			WHERE poll_id = $1 AND user_id = $2 AND option_id = $3
		`, ballot.PollID, ballot.UserID, ballot.OptionID)
		if err != nil {
			return fmt.Errorf("failed to delete ballot: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrDidNotVote
		}

		_, err = q.ExecContext(ctx, `
			UPDATE poll_options SET vote_count = GREATEST(vote_count - 1, 0)
			WHERE id = $1 AND poll_id = $2
		`, ballot.OptionID, ballot.PollID)
		if err != nil {
			return fmt.Errorf("failed to decrement option: %w", err)
		}
		return nil
	})
}

func (r *pollRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPollNotFound
	}
	return nil
}

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
