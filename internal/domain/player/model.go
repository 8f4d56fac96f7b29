package player

import (
	"fmt"
	"time"
)

// Registration ties a player to a leaderboard. Registering twice is a
// no-op, the original timestamp wins.
type Registration struct {
	PlayerID      string
	LeaderboardID string
	RegisteredAt  time.Time
}

func (r Registration) Validate() error {
	if r.PlayerID == "" {
		return fmt.Errorf("player id is required")
	}
	if r.LeaderboardID == "" {
		return fmt.Errorf("leaderboard id is required")
	}

	return nil
}
