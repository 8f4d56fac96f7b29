package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novaplay/spinboard/internal/domain/spin"
	"github.com/novaplay/spinboard/internal/platform/cache"
	"github.com/novaplay/spinboard/internal/platform/logging"
)

func newSnapshotFixture(t *testing.T) (*SnapshotService, *Engine) {
	t.Helper()

	engine := NewEngine(EngineConfig{}, &stubLedger{}, nil, logging.NewNop())
	t.Cleanup(engine.Close)

	meta := testMeta("lb-1")
	if err := engine.Register(context.Background(), meta); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	b, err := engine.board("lb-1")
	if err != nil {
		t.Fatalf("board lookup: %v", err)
	}
	base := meta.StartAt.Add(time.Hour)
	engine.processBatch(b, []spin.Event{
		spinEvent("ev-1", "player-a", "lb-1", 500, base),
		spinEvent("ev-2", "player-b", "lb-1", 400, base.Add(time.Second)),
		spinEvent("ev-3", "player-c", "lb-1", 300, base.Add(2*time.Second)),
		spinEvent("ev-4", "player-d", "lb-1", 200, base.Add(3*time.Second)),
	})

	return NewSnapshotService(engine, cache.NewStore(time.Minute)), engine
}

func TestSnapshotService_GetSnapshotTruncates(t *testing.T) {
	t.Parallel()

	service, _ := newSnapshotFixture(t)

	view, err := service.GetSnapshot(context.Background(), "lb-1", 2)
	if err != nil {
		t.Fatalf("GetSnapshot error: %v", err)
	}
	if view.TotalPlayers != 4 {
		t.Fatalf("expected total 4, got %d", view.TotalPlayers)
	}
	if len(view.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(view.Rows))
	}
	if view.Rows[0].PlayerID != "player-a" || view.Rows[0].Position != 1 {
		t.Fatalf("unexpected top row: %+v", view.Rows[0])
	}

	full, err := service.GetSnapshot(context.Background(), "lb-1", 0)
	if err != nil {
		t.Fatalf("GetSnapshot error: %v", err)
	}
	if len(full.Rows) != 4 {
		t.Fatalf("limit 0 should return everything, got %d rows", len(full.Rows))
	}
}

func TestSnapshotService_GetSnapshotUnknownLeaderboard(t *testing.T) {
	t.Parallel()

	service, _ := newSnapshotFixture(t)

	if _, err := service.GetSnapshot(context.Background(), "ghost", 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := service.GetSnapshot(context.Background(), "lb-1", -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative limit, got %v", err)
	}
}

func TestSnapshotService_ViewsTrackVersions(t *testing.T) {
	t.Parallel()

	service, engine := newSnapshotFixture(t)

	before, err := service.GetSnapshot(context.Background(), "lb-1", 1)
	if err != nil {
		t.Fatalf("GetSnapshot error: %v", err)
	}

	b, err := engine.board("lb-1")
	if err != nil {
		t.Fatalf("board lookup: %v", err)
	}
	engine.processBatch(b, []spin.Event{
		spinEvent("ev-5", "player-d", "lb-1", 1000, time.Date(2026, time.March, 1, 2, 0, 0, 0, time.UTC)),
	})

	after, err := service.GetSnapshot(context.Background(), "lb-1", 1)
	if err != nil {
		t.Fatalf("GetSnapshot error: %v", err)
	}
	if after.Version != before.Version+1 {
		t.Fatalf("expected version %d, got %d", before.Version+1, after.Version)
	}
	if after.Rows[0].PlayerID != "player-d" {
		t.Fatalf("new leader not reflected: %+v", after.Rows[0])
	}
}

func TestSnapshotService_PlayerContextClamped(t *testing.T) {
	t.Parallel()

	service, _ := newSnapshotFixture(t)

	ctxView, err := service.GetPlayerContext(context.Background(), "lb-1", "player-a", 1)
	if err != nil {
		t.Fatalf("GetPlayerContext error: %v", err)
	}
	if ctxView.Row.Position != 1 {
		t.Fatalf("expected player-a at position 1, got %d", ctxView.Row.Position)
	}
	if len(ctxView.Window) != 2 {
		t.Fatalf("window at the top with radius 1 should hold 2 rows, got %d", len(ctxView.Window))
	}
	if ctxView.Window[0].Position != 1 || ctxView.Window[1].Position != 2 {
		t.Fatalf("unexpected window positions: %+v", ctxView.Window)
	}

	if _, err := service.GetPlayerContext(context.Background(), "lb-1", "ghost", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown player, got %v", err)
	}
	if _, err := service.GetPlayerContext(context.Background(), "lb-1", "player-a", -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative radius, got %v", err)
	}
}
