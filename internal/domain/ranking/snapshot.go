package ranking

import "time"

// Row is one line of a materialized leaderboard view. Position and
// Reward are stamped when the snapshot is built, never stored in the
// live index.
type Row struct {
	Position      int       `json:"position"`
	PlayerID      string    `json:"player_id"`
	Score         int64     `json:"score"`
	Reward        int64     `json:"reward"`
	FirstScoredAt time.Time `json:"first_scored_at"`
}

// Snapshot is an immutable, versioned view of a leaderboard. Versions
// increase by exactly one per processed batch.
type Snapshot struct {
	LeaderboardID string    `json:"leaderboard_id"`
	Version       uint64    `json:"version"`
	TakenAt       time.Time `json:"taken_at"`
	Rows          []Row     `json:"rows"`
}

// Top returns at most limit rows from the front. A non-positive limit
// means no truncation. The backing array is shared, callers must not
// mutate rows.
func (s *Snapshot) Top(limit int) []Row {
	if s == nil {
		return nil
	}
	if limit <= 0 || limit >= len(s.Rows) {
		return s.Rows
	}
	return s.Rows[:limit]
}

// Materialize builds a snapshot from the index: every entry in rank
// order, positions stamped densely from 1, rewards resolved from the
// tier table.
func Materialize(leaderboardID string, version uint64, takenAt time.Time, ix *Index, tiers TierTable) *Snapshot {
	entries := ix.RangeByRank(1, ix.Len())
	rows := make([]Row, 0, len(entries))
	for i, e := range entries {
		position := i + 1
		rows = append(rows, Row{
			Position:      position,
			PlayerID:      e.PlayerID,
			Score:         e.Score,
			Reward:        tiers.RewardFor(position),
			FirstScoredAt: e.FirstScoredAt,
		})
	}

	return &Snapshot{
		LeaderboardID: leaderboardID,
		Version:       version,
		TakenAt:       takenAt.UTC(),
		Rows:          rows,
	}
}
