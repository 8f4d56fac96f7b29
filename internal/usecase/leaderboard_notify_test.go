package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/novaplay/spinboard/internal/domain/ranking"
	"github.com/novaplay/spinboard/internal/platform/logging"
)

func TestLeaderboardService_NotifySnapshotsSubscribesNewBoards(t *testing.T) {
	t.Parallel()

	metaRepo := newStubLeaderboardRepository()
	playerRepo := newStubPlayerRepository()
	hub := NewBroadcaster(BroadcasterConfig{}, logging.NewNop())
	t.Cleanup(hub.Close)
	engine := NewEngine(EngineConfig{}, &stubLedger{}, hub, logging.NewNop())
	t.Cleanup(engine.Close)

	service := NewLeaderboardService(metaRepo, playerRepo, engine, &sequenceIDGenerator{})
	consumer := &recordingConsumer{}
	service.NotifySnapshots(hub, consumer)

	meta, err := service.CreateLeaderboard(context.Background(), createInput())
	require.NoError(t, err)

	hub.Publish(&ranking.Snapshot{
		LeaderboardID: meta.ID,
		Version:       1,
		TakenAt:       time.Now().UTC(),
	})

	delivered := waitForDeliveries(t, consumer, func(got []*ranking.Snapshot) bool {
		return len(got) == 1
	})
	require.Equal(t, meta.ID, delivered[0].LeaderboardID)
	require.EqualValues(t, 1, delivered[0].Version)
}

func TestSnapshotService_NilStoreSkipsCaching(t *testing.T) {
	t.Parallel()

	metaRepo := newStubLeaderboardRepository()
	playerRepo := newStubPlayerRepository()
	engine := NewEngine(EngineConfig{}, &stubLedger{}, nil, logging.NewNop())
	t.Cleanup(engine.Close)

	boards := NewLeaderboardService(metaRepo, playerRepo, engine, &sequenceIDGenerator{})
	meta, err := boards.CreateLeaderboard(context.Background(), createInput())
	require.NoError(t, err)

	snapshots := NewSnapshotService(engine, nil)
	view, err := snapshots.GetSnapshot(context.Background(), meta.ID, 5)
	require.NoError(t, err)
	require.Equal(t, meta.ID, view.LeaderboardID)
	require.EqualValues(t, 0, view.Version)
	require.Empty(t, view.Rows)
}
