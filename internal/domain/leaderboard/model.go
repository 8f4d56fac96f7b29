package leaderboard

import (
	"fmt"
	"time"

	"github.com/novaplay/spinboard/internal/domain/ranking"
)

type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
)

// Meta is the configuration of a single competition. Status is never
// stored: it is derived from the clock at read time, so it can only
// move forward.
type Meta struct {
	ID             string
	Name           string
	Description    string
	StartAt        time.Time
	EndAt          time.Time
	TotalPrizePool int64
	RewardTiers    []ranking.Tier
	CreatedAt      time.Time
}

func (m Meta) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("leaderboard id is required")
	}
	if m.Name == "" {
		return fmt.Errorf("leaderboard name is required")
	}
	if m.StartAt.IsZero() || m.EndAt.IsZero() {
		return fmt.Errorf("leaderboard window is required")
	}
	if !m.EndAt.After(m.StartAt) {
		return fmt.Errorf("leaderboard end must be after start")
	}
	if m.TotalPrizePool < 0 {
		return fmt.Errorf("leaderboard prize pool must not be negative")
	}
	if _, err := ranking.NewTierTable(m.RewardTiers); err != nil {
		return fmt.Errorf("leaderboard reward tiers: %w", err)
	}

	return nil
}

// StatusAt derives the lifecycle status at the given instant.
func (m Meta) StatusAt(now time.Time) Status {
	switch {
	case now.Before(m.StartAt):
		return StatusUpcoming
	case now.Before(m.EndAt):
		return StatusActive
	default:
		return StatusEnded
	}
}
