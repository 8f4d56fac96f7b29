package memory

import (
	"context"
	"sync"

	"github.com/novaplay/spinboard/internal/domain/player"
)

type PlayerRepository struct {
	mu    sync.RWMutex
	items map[string]player.Registration
}

func NewPlayerRepository() *PlayerRepository {
	return &PlayerRepository{
		items: make(map[string]player.Registration),
	}
}

func key(leaderboardID, playerID string) string {
	return leaderboardID + "/" + playerID
}

// Register is idempotent: the first registration wins.
func (r *PlayerRepository) Register(_ context.Context, registration player.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(registration.LeaderboardID, registration.PlayerID)
	if _, exists := r.items[k]; exists {
		return nil
	}
	r.items[k] = registration

	return nil
}

func (r *PlayerRepository) IsRegistered(_ context.Context, leaderboardID, playerID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.items[key(leaderboardID, playerID)]

	return ok, nil
}

func (r *PlayerRepository) CountByLeaderboard(_ context.Context, leaderboardID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, registration := range r.items {
		if registration.LeaderboardID == leaderboardID {
			count++
		}
	}

	return count, nil
}
