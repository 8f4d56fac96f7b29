package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novaplay/spinboard/internal/domain/leaderboard"
	"github.com/novaplay/spinboard/internal/domain/ranking"
	"github.com/novaplay/spinboard/internal/domain/spin"
	"github.com/novaplay/spinboard/internal/platform/logging"
)

func testMeta(id string) leaderboard.Meta {
	return leaderboard.Meta{
		ID:             id,
		Name:           "Test Board",
		StartAt:        time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndAt:          time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
		TotalPrizePool: 1000,
		RewardTiers: []ranking.Tier{
			{FromPosition: 1, ToPosition: 1, Reward: 100},
			{FromPosition: 2, ToPosition: 2, Reward: 50},
			{FromPosition: 3, ToPosition: 10, Reward: 10},
		},
	}
}

func spinEvent(id, playerID, leaderboardID string, bet int64, at time.Time) spin.Event {
	return spin.Event{
		ID:            id,
		PlayerID:      playerID,
		LeaderboardID: leaderboardID,
		BetAmount:     bet,
		OccurredAt:    at,
	}
}

func TestEngine_BatchBumpsVersionOnce(t *testing.T) {
	t.Parallel()

	ledger := &stubLedger{}
	hub := NewBroadcaster(BroadcasterConfig{QueueSize: 8}, logging.NewNop())
	defer hub.Close()
	engine := NewEngine(EngineConfig{}, ledger, hub, logging.NewNop())
	defer engine.Close()

	meta := testMeta("lb-1")
	if err := engine.Register(context.Background(), meta); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	consumer := &recordingConsumer{}
	if _, err := hub.Subscribe("lb-1", consumer); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	b, err := engine.board("lb-1")
	if err != nil {
		t.Fatalf("board lookup: %v", err)
	}

	base := meta.StartAt.Add(time.Hour)
	batch := []spin.Event{
		spinEvent("ev-1", "player-a", "lb-1", 200, base),
		spinEvent("ev-2", "player-b", "lb-1", 300, base.Add(time.Second)),
		spinEvent("ev-3", "player-a", "lb-1", 100, base.Add(2*time.Second)),
	}
	engine.processBatch(b, batch)

	snapshot := b.snapshot.Load()
	if snapshot.Version != 1 {
		t.Fatalf("three events in one cycle must bump the version once, got %d", snapshot.Version)
	}
	if len(snapshot.Rows) != 2 {
		t.Fatalf("expected 2 players, got %d", len(snapshot.Rows))
	}
	if snapshot.Rows[0].PlayerID != "player-b" || snapshot.Rows[0].Score != 300 {
		t.Fatalf("unexpected leader: %+v", snapshot.Rows[0])
	}
	if snapshot.Rows[1].PlayerID != "player-a" || snapshot.Rows[1].Score != 300 {
		t.Fatalf("unexpected runner-up: %+v", snapshot.Rows[1])
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		delivered := consumer.snapshots()
		if len(delivered) == 1 && delivered[0].Version == 1 {
			break
		}
		if len(delivered) > 1 {
			t.Fatalf("expected exactly one notification, got %d", len(delivered))
		}
		if time.Now().After(deadline) {
			t.Fatalf("notification never arrived, got %d", len(delivered))
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestEngine_TieBreakAndRewardsScenario(t *testing.T) {
	t.Parallel()

	engine := NewEngine(EngineConfig{}, &stubLedger{}, nil, logging.NewNop())
	defer engine.Close()

	meta := testMeta("L1")
	if err := engine.Register(context.Background(), meta); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	b, err := engine.board("L1")
	if err != nil {
		t.Fatalf("board lookup: %v", err)
	}

	base := meta.StartAt.Add(time.Hour)
	engine.processBatch(b, []spin.Event{
		spinEvent("ev-1", "player-b", "L1", 500, base),
		spinEvent("ev-2", "player-a", "L1", 500, base.Add(time.Minute)),
		spinEvent("ev-3", "player-c", "L1", 300, base.Add(2*time.Minute)),
	})

	snapshot := b.snapshot.Load()
	want := []struct {
		playerID string
		position int
		reward   int64
	}{
		{"player-b", 1, 100},
		{"player-a", 2, 50},
		{"player-c", 3, 10},
	}
	if len(snapshot.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(snapshot.Rows))
	}
	for i, w := range want {
		row := snapshot.Rows[i]
		if row.PlayerID != w.playerID || row.Position != w.position || row.Reward != w.reward {
			t.Fatalf("row %d: expected %+v, got %+v", i, w, row)
		}
	}
}

func TestEngine_EnqueueUnknownLeaderboard(t *testing.T) {
	t.Parallel()

	engine := NewEngine(EngineConfig{}, &stubLedger{}, nil, logging.NewNop())
	defer engine.Close()

	err := engine.Enqueue(context.Background(), spinEvent("ev-1", "player-a", "ghost", 10, time.Now()))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEngine_BadEventSkippedWorkerContinues(t *testing.T) {
	t.Parallel()

	engine := NewEngine(EngineConfig{}, &stubLedger{}, nil, logging.NewNop())
	defer engine.Close()

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
		spinEvent("ev-1", "player-a", "lb-1", 100, base),
		spinEvent("ev-2", "player-b", "lb-1", -5, base.Add(time.Second)),
		spinEvent("ev-3", "player-c", "lb-1", 50, base.Add(2*time.Second)),
	})

	snapshot := b.snapshot.Load()
	if snapshot.Version != 1 {
		t.Fatalf("expected one version bump, got %d", snapshot.Version)
	}
	if len(snapshot.Rows) != 2 {
		t.Fatalf("bad event must be skipped, got %d rows", len(snapshot.Rows))
	}
	for _, row := range snapshot.Rows {
		if row.PlayerID == "player-b" {
			t.Fatal("rejected event registered a player")
		}
	}
}

func TestEngine_EndToEndThroughQueue(t *testing.T) {
	t.Parallel()

	engine := NewEngine(EngineConfig{QueueSize: 64, BatchMax: 16}, &stubLedger{}, nil, logging.NewNop())
	defer engine.Close()

	meta := testMeta("lb-1")
	if err := engine.Register(context.Background(), meta); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	ctx := context.Background()
	base := meta.StartAt.Add(time.Hour)
	for i := 0; i < 10; i++ {
		event := spinEvent("ev", "player-a", "lb-1", 10, base.Add(time.Duration(i)*time.Second))
		if err := engine.Enqueue(ctx, event); err != nil {
			t.Fatalf("Enqueue error: %v", err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		snapshot, err := engine.Snapshot(ctx, "lb-1")
		if err != nil {
			t.Fatalf("Snapshot error: %v", err)
		}
		if len(snapshot.Rows) == 1 && snapshot.Rows[0].Score == 100 {
			if snapshot.Version < 1 {
				t.Fatalf("version must have bumped, got %d", snapshot.Version)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never converged: %+v", snapshot)
		}
		time.Sleep(2 * time.Millisecond)
	}

	// Live index read gives read-your-own-write visibility.
	row, err := engine.Rank(ctx, "lb-1", "player-a")
	if err != nil {
		t.Fatalf("Rank error: %v", err)
	}
	if row.Position != 1 || row.Score != 100 || row.Reward != 100 {
		t.Fatalf("unexpected rank row: %+v", row)
	}
}

func TestEngine_RestoreMatchesIncrementalBuild(t *testing.T) {
	t.Parallel()

	meta := testMeta("lb-1")
	base := meta.StartAt.Add(time.Hour)
	events := []spin.Event{
		spinEvent("ev-1", "player-a", "lb-1", 120, base),
		spinEvent("ev-2", "player-b", "lb-1", 80, base.Add(time.Second)),
		spinEvent("ev-3", "player-a", "lb-1", 40, base.Add(2*time.Second)),
		spinEvent("ev-4", "player-c", "lb-1", 160, base.Add(3*time.Second)),
		spinEvent("ev-5", "player-b", "lb-1", 80, base.Add(4*time.Second)),
	}

	// Incremental: deltas applied one batch at a time.
	incremental := NewEngine(EngineConfig{}, &stubLedger{}, nil, logging.NewNop())
	defer incremental.Close()
	if err := incremental.Register(context.Background(), meta); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	ib, err := incremental.board("lb-1")
	if err != nil {
		t.Fatalf("board lookup: %v", err)
	}
	for _, event := range events {
		incremental.processBatch(ib, []spin.Event{event})
	}

	// Cold start: replayed from the ledger.
	ledger := &stubLedger{}
	for _, event := range events {
		if err := ledger.Append(context.Background(), event); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}
	restored := NewEngine(EngineConfig{}, ledger, nil, logging.NewNop())
	defer restored.Close()
	if err := restored.Restore(context.Background(), []leaderboard.Meta{meta}); err != nil {
		t.Fatalf("Restore error: %v", err)
	}

	incrementalRows := ib.snapshot.Load().Rows
	restoredSnapshot, err := restored.Snapshot(context.Background(), "lb-1")
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}

	if len(incrementalRows) != len(restoredSnapshot.Rows) {
		t.Fatalf("row count mismatch: %d vs %d", len(incrementalRows), len(restoredSnapshot.Rows))
	}
	for i := range incrementalRows {
		if incrementalRows[i] != restoredSnapshot.Rows[i] {
			t.Fatalf("row %d diverged: %+v vs %+v", i, incrementalRows[i], restoredSnapshot.Rows[i])
		}
	}
}

func TestEngine_RebuildRecoversCorruptedIndex(t *testing.T) {
	t.Parallel()

	meta := testMeta("lb-1")
	base := meta.StartAt.Add(time.Hour)
	ledger := &stubLedger{}
	for i, playerID := range []string{"player-a", "player-b", "player-c"} {
		event := spinEvent("ev", playerID, "lb-1", int64(100*(i+1)), base.Add(time.Duration(i)*time.Second))
		if err := ledger.Append(context.Background(), event); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	engine := NewEngine(EngineConfig{}, ledger, nil, logging.NewNop())
	defer engine.Close()
	if err := engine.Register(context.Background(), meta); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	b, err := engine.board("lb-1")
	if err != nil {
		t.Fatalf("board lookup: %v", err)
	}

	if err := engine.rebuild(context.Background(), b); err != nil {
		t.Fatalf("rebuild error: %v", err)
	}

	snapshot := b.snapshot.Load()
	if len(snapshot.Rows) != 3 {
		t.Fatalf("expected 3 rows after rebuild, got %d", len(snapshot.Rows))
	}
	if snapshot.Rows[0].PlayerID != "player-c" || snapshot.Rows[0].Score != 300 {
		t.Fatalf("unexpected leader after rebuild: %+v", snapshot.Rows[0])
	}
	if err := b.index.Verify(); err != nil {
		t.Fatalf("rebuilt index failed verification: %v", err)
	}
}

func TestEngine_RegisterInvalidTiers(t *testing.T) {
	t.Parallel()

	engine := NewEngine(EngineConfig{}, &stubLedger{}, nil, logging.NewNop())
	defer engine.Close()

	meta := testMeta("lb-1")
	meta.RewardTiers = []ranking.Tier{{FromPosition: 3, ToPosition: 1, Reward: 10}}
	if err := engine.Register(context.Background(), meta); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
