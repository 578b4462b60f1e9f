package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
)

type eventColumns struct {
	total string
	log   string
}

var analyticsColumns = map[domain.EventKind]eventColumns{
	domain.EventView:      {total: "total_views", log: "views_over_time"},
	domain.EventVote:      {total: "total_votes", log: "votes_over_time"},
	domain.EventShare:     {total: "total_shares", log: "shares_over_time"},
	domain.EventOptionAdd: {total: "total_options_added", log: "options_added_over_time"},
}

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) ports.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Track(ctx context.Context, pollID uuid.UUID, kind domain.EventKind, address string, at time.Time) error {
	cols, ok := analyticsColumns[kind]
	if !ok {
		return fmt.Errorf("unknown event kind %d", int(kind))
	}

	var (
		query string
		args  []any
	)
	if kind == domain.EventShare {
		query = `
			INSERT INTO poll_analytics (poll_id, total_shares, shares_over_time, unique_share_addresses)
			VALUES ($1, 1, ARRAY[$2::BIGINT], ARRAY[$3::TEXT])
			ON CONFLICT (poll_id) DO UPDATE SET
				total_shares = poll_analytics.total_shares +
					CASE WHEN $3::TEXT = ANY(poll_analytics.unique_share_addresses) THEN 0 ELSE 1 END,
				shares_over_time = CASE WHEN $3::TEXT = ANY(poll_analytics.unique_share_addresses)
					THEN poll_analytics.shares_over_time
					ELSE array_append(poll_analytics.shares_over_time, $2::BIGINT) END,
				unique_share_addresses = CASE WHEN $3::TEXT = ANY(poll_analytics.unique_share_addresses)
					THEN poll_analytics.unique_share_addresses
					ELSE array_append(poll_analytics.unique_share_addresses, $3::TEXT) END
		`
		args = []any{pollID, at.UnixMilli(), address}
	} else {
		query = fmt.Sprintf(`
			INSERT INTO poll_analytics (poll_id, %[1]s, %[2]s)
			VALUES ($1, 1, ARRAY[$2::BIGINT])
			ON CONFLICT (poll_id) DO UPDATE SET
				%[1]s = poll_analytics.%[1]s + 1,
				%[2]s = array_append(poll_analytics.%[2]s, $2::BIGINT)
		`, cols.total, cols.log)
		args = []any{pollID, at.UnixMilli()}
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if pqCode(err) == codeForeignKeyViolation {
			return domain.ErrPollNotFound
		}
		return fmt.Errorf("failed to track %s event: %w", kind, err)
	}
	return nil
}

func (r *analyticsRepository) Get(ctx context.Context, pollID uuid.UUID) (*domain.Analytics, error) {
	query := `
		SELECT total_views, total_votes, total_shares, total_options_added,
		       views_over_time, votes_over_time, shares_over_time, options_added_over_time,
		       unique_share_addresses
		FROM poll_analytics
		WHERE poll_id = $1
	`

	record := domain.NewAnalytics(pollID)
	var (
		logs      [4]pq.Int64Array
		addresses pq.StringArray
	)
	err := r.db.QueryRowContext(ctx, query, pollID).Scan(
		&record.Logs[domain.EventView].Total,
		&record.Logs[domain.EventVote].Total,
		&record.Logs[domain.EventShare].Total,
		&record.Logs[domain.EventOptionAdd].Total,
		&logs[domain.EventView],
		&logs[domain.EventVote],
		&logs[domain.EventShare],
		&logs[domain.EventOptionAdd],
		&addresses,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get analytics: %w", err)
	}

	for _, kind := range domain.EventKinds() {
		stamps := make([]time.Time, 0, len(logs[kind]))
		for _, ms := range logs[kind] {
			stamps = append(stamps, time.UnixMilli(ms).UTC())
		}
		record.Logs[kind].Timestamps = stamps
	}
	record.UniqueShareAddresses = []string(addresses)

	return record, nil
}
