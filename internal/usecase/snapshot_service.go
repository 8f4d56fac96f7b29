package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/novaplay/spinboard/internal/domain/ranking"
	"github.com/novaplay/spinboard/internal/platform/cache"
)

// SnapshotView is the read-model served to presentation callers: a
// truncated, immutable slice of one snapshot version.
type SnapshotView struct {
	LeaderboardID string        `json:"leaderboard_id"`
	Version       uint64        `json:"version"`
	TakenAt       time.Time     `json:"taken_at"`
	TotalPlayers  int           `json:"total_players"`
	Rows          []ranking.Row `json:"rows"`
}

// SnapshotService serves point and range reads. Top-N views are cached
// per (leaderboard, version, limit): the version in the key makes
// stale entries unreachable without explicit invalidation. A nil store
// turns caching off.
type SnapshotService struct {
	engine *Engine
	store  *cache.Store
}

func NewSnapshotService(engine *Engine, store *cache.Store) *SnapshotService {
	return &SnapshotService{
		engine: engine,
		store:  store,
	}
}

func (s *SnapshotService) GetSnapshot(ctx context.Context, leaderboardID string, limit int) (SnapshotView, error) {
	ctx, span := startUsecaseSpan(ctx, "SnapshotService.GetSnapshot")
	defer span.End()

	leaderboardID = strings.TrimSpace(leaderboardID)
	if leaderboardID == "" {
		return SnapshotView{}, fmt.Errorf("%w: leaderboard id is required", ErrInvalidInput)
	}
	if limit < 0 {
		return SnapshotView{}, fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	}

	snapshot, err := s.engine.Snapshot(ctx, leaderboardID)
	if err != nil {
		return SnapshotView{}, err
	}

	if s.store == nil {
		return SnapshotView{
			LeaderboardID: snapshot.LeaderboardID,
			Version:       snapshot.Version,
			TakenAt:       snapshot.TakenAt,
			TotalPlayers:  len(snapshot.Rows),
			Rows:          snapshot.Top(limit),
		}, nil
	}

	key := fmt.Sprintf("snap:%s:v%d:l%d", leaderboardID, snapshot.Version, limit)
	value, err := s.store.GetOrLoad(ctx, key, func(context.Context) (any, error) {
		return SnapshotView{
			LeaderboardID: snapshot.LeaderboardID,
			Version:       snapshot.Version,
			TakenAt:       snapshot.TakenAt,
			TotalPlayers:  len(snapshot.Rows),
			Rows:          snapshot.Top(limit),
		}, nil
	})
	if err != nil {
		return SnapshotView{}, fmt.Errorf("load snapshot view: %w", err)
	}

	view, ok := value.(SnapshotView)
	if !ok {
		return SnapshotView{}, fmt.Errorf("%w: unexpected cache entry for %s", ErrInconsistent, key)
	}
	return view, nil
}

// PlayerContext is the "me and my neighbors" read: the player's row
// plus radius rows each side, straight from the live index.
type PlayerContext struct {
	LeaderboardID string        `json:"leaderboard_id"`
	PlayerID      string        `json:"player_id"`
	Row           ranking.Row   `json:"row"`
	Window        []ranking.Row `json:"window"`
}

func (s *SnapshotService) GetPlayerContext(ctx context.Context, leaderboardID, playerID string, radius int) (PlayerContext, error) {
	ctx, span := startUsecaseSpan(ctx, "SnapshotService.GetPlayerContext")
	defer span.End()

	leaderboardID = strings.TrimSpace(leaderboardID)
	playerID = strings.TrimSpace(playerID)
	if leaderboardID == "" || playerID == "" {
		return PlayerContext{}, fmt.Errorf("%w: leaderboard id and player id are required", ErrInvalidInput)
	}
	if radius < 0 {
		return PlayerContext{}, fmt.Errorf("%w: radius must not be negative", ErrInvalidInput)
	}

	row, err := s.engine.Rank(ctx, leaderboardID, playerID)
	if err != nil {
		return PlayerContext{}, err
	}
	window, err := s.engine.ContextWindow(ctx, leaderboardID, playerID, radius)
	if err != nil {
		return PlayerContext{}, err
	}

	return PlayerContext{
		LeaderboardID: leaderboardID,
		PlayerID:      playerID,
		Row:           row,
		Window:        window,
	}, nil
}
