package spin

import "context"

// Ledger is the append-only event log. Append never rewrites history;
// ListByLeaderboard returns events in append order for replay.
type Ledger interface {
	Append(ctx context.Context, event Event) error
	ListByLeaderboard(ctx context.Context, leaderboardID string) ([]Event, error)
}
