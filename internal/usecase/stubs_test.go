package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/novaplay/spinboard/internal/domain/leaderboard"
	"github.com/novaplay/spinboard/internal/domain/player"
	"github.com/novaplay/spinboard/internal/domain/ranking"
	"github.com/novaplay/spinboard/internal/domain/spin"
)

type stubLeaderboardRepository struct {
	mu    sync.Mutex
	metas map[string]leaderboard.Meta
	order []string
}

func newStubLeaderboardRepository() *stubLeaderboardRepository {
	return &stubLeaderboardRepository{metas: make(map[string]leaderboard.Meta)}
}

func (r *stubLeaderboardRepository) Create(_ context.Context, meta leaderboard.Meta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.metas[meta.ID]; exists {
		return fmt.Errorf("duplicate leaderboard %s", meta.ID)
	}
	r.metas[meta.ID] = meta
	r.order = append(r.order, meta.ID)
	return nil
}

func (r *stubLeaderboardRepository) GetByID(_ context.Context, leaderboardID string) (leaderboard.Meta, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.metas[leaderboardID]
	return meta, ok, nil
}

func (r *stubLeaderboardRepository) List(_ context.Context) ([]leaderboard.Meta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]leaderboard.Meta, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.metas[id])
	}
	return out, nil
}

type stubPlayerRepository struct {
	mu            sync.Mutex
	registrations map[string]player.Registration
}

func newStubPlayerRepository() *stubPlayerRepository {
	return &stubPlayerRepository{registrations: make(map[string]player.Registration)}
}

func registrationKey(leaderboardID, playerID string) string {
	return leaderboardID + "/" + playerID
}

func registration(leaderboardID, playerID string) player.Registration {
	return player.Registration{
		PlayerID:      playerID,
		LeaderboardID: leaderboardID,
		RegisteredAt:  time.Now().UTC(),
	}
}

func (r *stubPlayerRepository) Register(_ context.Context, registration player.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registrationKey(registration.LeaderboardID, registration.PlayerID)
	if _, exists := r.registrations[key]; exists {
		return nil
	}
	r.registrations[key] = registration
	return nil
}

func (r *stubPlayerRepository) IsRegistered(_ context.Context, leaderboardID, playerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.registrations[registrationKey(leaderboardID, playerID)]
	return ok, nil
}

func (r *stubPlayerRepository) CountByLeaderboard(_ context.Context, leaderboardID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, registration := range r.registrations {
		if registration.LeaderboardID == leaderboardID {
			count++
		}
	}
	return count, nil
}

type stubLedger struct {
	mu     sync.Mutex
	events []spin.Event
}

func (l *stubLedger) Append(_ context.Context, event spin.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *stubLedger) ListByLeaderboard(_ context.Context, leaderboardID string) ([]spin.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]spin.Event, 0, len(l.events))
	for _, event := range l.events {
		if event.LeaderboardID == leaderboardID {
			out = append(out, event)
		}
	}
	return out, nil
}

type recordingConsumer struct {
	mu        sync.Mutex
	delivered []*ranking.Snapshot
	gate      chan struct{}
	entered   chan struct{}
}

func (c *recordingConsumer) Deliver(_ context.Context, snapshot *ranking.Snapshot) error {
	if c.entered != nil {
		c.entered <- struct{}{}
	}
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	c.delivered = append(c.delivered, snapshot)
	c.mu.Unlock()
	return nil
}

func (c *recordingConsumer) snapshots() []*ranking.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ranking.Snapshot, len(c.delivered))
	copy(out, c.delivered)
	return out
}

type sequenceIDGenerator struct {
	mu   sync.Mutex
	next int
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("id-%04d", g.next), nil
}
