package leaderboard

import "context"

// Repository describes leaderboard persistence needs from use cases.
type Repository interface {
	Create(ctx context.Context, meta Meta) error
	GetByID(ctx context.Context, leaderboardID string) (Meta, bool, error)
	List(ctx context.Context) ([]Meta, error)
}
