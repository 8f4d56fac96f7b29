package memory

import (
	"context"
	"sync"

	"github.com/novaplay/spinboard/internal/domain/spin"
)

// SpinLedger is an append-only in-memory event log.
type SpinLedger struct {
	mu     sync.RWMutex
	events []spin.Event
}

func NewSpinLedger() *SpinLedger {
	return &SpinLedger{}
}

func (l *SpinLedger) Append(_ context.Context, event spin.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)

	return nil
}

func (l *SpinLedger) ListByLeaderboard(_ context.Context, leaderboardID string) ([]spin.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]spin.Event, 0, len(l.events))
	for _, event := range l.events {
		if event.LeaderboardID == leaderboardID {
			out = append(out, event)
		}
	}

	return out, nil
}
