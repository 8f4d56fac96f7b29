package postgres

import "time"

type playerRegistrationTableModel struct {
	LeaderboardID string    `db:"leaderboard_id"`
	PlayerID      string    `db:"player_id"`
	RegisteredAt  time.Time `db:"registered_at"`
}
