package spin

import (
	"fmt"
	"time"
)

// Event is one score-affecting spin. Events are immutable once
// appended; corrections arrive as new compensating events.
type Event struct {
	ID            string
	PlayerID      string
	LeaderboardID string
	BetAmount     int64
	OccurredAt    time.Time
}

func (e Event) Validate() error {
	if e.PlayerID == "" {
		return fmt.Errorf("player id is required")
	}
	if e.LeaderboardID == "" {
		return fmt.Errorf("leaderboard id is required")
	}
	if e.BetAmount <= 0 {
		return fmt.Errorf("bet amount must be positive")
	}

	return nil
}
