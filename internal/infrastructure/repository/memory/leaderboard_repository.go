package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/novaplay/spinboard/internal/domain/leaderboard"
)

type LeaderboardRepository struct {
	mu     sync.RWMutex
	items  map[string]leaderboard.Meta
	orders []string
}

func NewLeaderboardRepository(metas []leaderboard.Meta) *LeaderboardRepository {
	items := make(map[string]leaderboard.Meta, len(metas))
	orders := make([]string, 0, len(metas))

	for _, m := range metas {
		items[m.ID] = m
		orders = append(orders, m.ID)
	}

	return &LeaderboardRepository{
		items:  items,
		orders: orders,
	}
}

func (r *LeaderboardRepository) Create(_ context.Context, meta leaderboard.Meta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[meta.ID]; exists {
		return fmt.Errorf("leaderboard %s already exists", meta.ID)
	}
	r.items[meta.ID] = meta
	r.orders = append(r.orders, meta.ID)

	return nil
}

func (r *LeaderboardRepository) GetByID(_ context.Context, leaderboardID string) (leaderboard.Meta, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.items[leaderboardID]
	if !ok {
		return leaderboard.Meta{}, false, nil
	}

	return m, true, nil
}

func (r *LeaderboardRepository) List(_ context.Context) ([]leaderboard.Meta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]leaderboard.Meta, 0, len(r.orders))
	for _, id := range r.orders {
		out = append(out, r.items[id])
	}

	return out, nil
}
