package domain

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
)

type EventKind int

const (
	EventView EventKind = iota
	EventVote
	EventShare
	EventOptionAdd

	eventKindCount
)

var eventKindNames = [eventKindCount]string{
	EventView:      "view",
	EventVote:      "vote",
	EventShare:     "share",
	EventOptionAdd: "optionAdd",
}

// EventKinds lists every kind in a stable order.
func EventKinds() []EventKind {
	return []EventKind{EventView, EventVote, EventShare, EventOptionAdd}
}

func ParseEventKind(s string) (EventKind, error) {
	for k, name := range eventKindNames {
		if name == s {
			return EventKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

func (k EventKind) Valid() bool {
	return k >= 0 && k < eventKindCount
}

func (k EventKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return eventKindNames[k]
}

func (k EventKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid event kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(b []byte) error {
	parsed, err := ParseEventKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// EventLog is the counter and timestamp history of one event kind.
type EventLog struct {
	Total      int64
	Timestamps []time.Time
}

// Analytics is the stored per-poll engagement record.
type Analytics struct {
	PollID               uuid.UUID
	Logs                 [eventKindCount]EventLog
	UniqueShareAddresses []string
}

func NewAnalytics(pollID uuid.UUID) *Analytics {
	return &Analytics{PollID: pollID}
}

func (a *Analytics) Log(kind EventKind) EventLog {
	return a.Logs[kind]
}

// Record applies one event. Shares only count, and only log a timestamp, the
// first time an address is seen. It reports whether the counter moved.
func (a *Analytics) Record(kind EventKind, address string, at time.Time) bool {
	if kind == EventShare {
		if slices.Contains(a.UniqueShareAddresses, address) {
			return false
		}
		a.UniqueShareAddresses = append(a.UniqueShareAddresses, address)
	}
	log := &a.Logs[kind]
	log.Total++
	log.Timestamps = append(log.Timestamps, at)
	return true
}

func (a *Analytics) Clone() *Analytics {
	cp := *a
	for k := range cp.Logs {
		cp.Logs[k].Timestamps = append([]time.Time(nil), a.Logs[k].Timestamps...)
	}
	cp.UniqueShareAddresses = append([]string(nil), a.UniqueShareAddresses...)
	return &cp
}

type SeriesPoint struct {
	At           time.Time `json:"at"`
	Views        int       `json:"views"`
	Votes        int       `json:"votes"`
	Shares       int       `json:"shares"`
	OptionsAdded int       `json:"options_added"`
}

type AnalyticsSnapshot struct {
	PollID               uuid.UUID     `json:"poll_id"`
	TotalViews           int64         `json:"total_views"`
	TotalVotes           int64         `json:"total_votes"`
	TotalShares          int64         `json:"total_shares"`
	TotalOptionsAdded    int64         `json:"total_options_added"`
	ViewsOverTime        []time.Time   `json:"views_over_time"`
	VotesOverTime        []time.Time   `json:"votes_over_time"`
	SharesOverTime       []time.Time   `json:"shares_over_time"`
	OptionsAddedOverTime []time.Time   `json:"options_added_over_time"`
	TimePoints           []time.Time   `json:"time_points"`
	Series               []SeriesPoint `json:"series"`
}

// Snapshot builds the read model. A nil record yields the zero snapshot.
func (a *Analytics) Snapshot(pollID uuid.UUID) AnalyticsSnapshot {
	if a == nil {
		a = NewAnalytics(pollID)
	}

	var logs [eventKindCount][]time.Time
	for _, kind := range EventKinds() {
		ts := append([]time.Time{}, a.Log(kind).Timestamps...)
		sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
		logs[kind] = ts
	}

	snap := AnalyticsSnapshot{
		PollID:               pollID,
		TotalViews:           a.Log(EventView).Total,
		TotalVotes:           a.Log(EventVote).Total,
		TotalShares:          a.Log(EventShare).Total,
		TotalOptionsAdded:    a.Log(EventOptionAdd).Total,
		ViewsOverTime:        logs[EventView],
		VotesOverTime:        logs[EventVote],
		SharesOverTime:       logs[EventShare],
		OptionsAddedOverTime: logs[EventOptionAdd],
		TimePoints:           timePoints(logs[:]),
	}

	snap.Series = make([]SeriesPoint, 0, len(snap.TimePoints))
	for _, t := range snap.TimePoints {
		snap.Series = append(snap.Series, SeriesPoint{
			At:           t,
			Views:        countUpTo(logs[EventView], t),
			Votes:        countUpTo(logs[EventVote], t),
			Shares:       countUpTo(logs[EventShare], t),
			OptionsAdded: countUpTo(logs[EventOptionAdd], t),
		})
	}
	return snap
}

func timePoints(logs [][]time.Time) []time.Time {
	seen := make(map[int64]struct{})
	points := []time.Time{}
	for _, log := range logs {
		for _, t := range log {
			key := t.UnixNano()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			points = append(points, t)
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Before(points[j]) })
	return points
}

// countUpTo counts entries of the sorted slice ts that are not after t.
func countUpTo(ts []time.Time, t time.Time) int {
	return sort.Search(len(ts), func(i int) bool { return ts[i].After(t) })
}
