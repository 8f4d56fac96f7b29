package postgres

import "time"

type leaderboardTableModel struct {
	ID             int64     `db:"id"`
	PublicID       string    `db:"public_id"`
	Name           string    `db:"name"`
	Description    string    `db:"description"`
	StartAt        time.Time `db:"start_at"`
	EndAt          time.Time `db:"end_at"`
	TotalPrizePool int64     `db:"total_prize_pool"`
	CreatedAt      time.Time `db:"created_at"`
}

type rewardTierTableModel struct {
	ID            int64  `db:"id"`
	LeaderboardID string `db:"leaderboard_id"`
	FromPosition  int    `db:"from_position"`
	ToPosition    int    `db:"to_position"`
	Reward        int64  `db:"reward"`
}
