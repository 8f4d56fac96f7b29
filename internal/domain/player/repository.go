package player

import "context"

// Repository describes registration persistence needs from use cases.
type Repository interface {
	Register(ctx context.Context, registration Registration) error
	IsRegistered(ctx context.Context, leaderboardID, playerID string) (bool, error)
	CountByLeaderboard(ctx context.Context, leaderboardID string) (int, error)
}
