package postgres

import "time"

type spinEventTableModel struct {
	ID            string    `db:"id"`
	LeaderboardID string    `db:"leaderboard_id"`
	PlayerID      string    `db:"player_id"`
	BetAmount     int64     `db:"bet_amount"`
	OccurredAt    time.Time `db:"occurred_at"`
}
