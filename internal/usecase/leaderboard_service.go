package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/novaplay/spinboard/internal/domain/leaderboard"
	"github.com/novaplay/spinboard/internal/domain/player"
	"github.com/novaplay/spinboard/internal/domain/ranking"
	"github.com/novaplay/spinboard/internal/platform/id"
)

type CreateLeaderboardInput struct {
	Name           string
	Description    string
	StartAt        time.Time
	EndAt          time.Time
	TotalPrizePool int64
	RewardTiers    []ranking.Tier
}

// LeaderboardView is a meta enriched with the read-time status and the
// current registered player count.
type LeaderboardView struct {
	leaderboard.Meta
	Status      leaderboard.Status
	PlayerCount int
}

type LeaderboardService struct {
	metaRepo   leaderboard.Repository
	playerRepo player.Repository
	engine     *Engine
	idGen      id.Generator
	now        func() time.Time

	hub              *Broadcaster
	snapshotConsumer Consumer
}

func NewLeaderboardService(metaRepo leaderboard.Repository, playerRepo player.Repository, engine *Engine, idGen id.Generator) *LeaderboardService {
	return &LeaderboardService{
		metaRepo:   metaRepo,
		playerRepo: playerRepo,
		engine:     engine,
		idGen:      idGen,
		now:        time.Now,
	}
}

func (s *LeaderboardService) CreateLeaderboard(ctx context.Context, input CreateLeaderboardInput) (leaderboard.Meta, error) {
	ctx, span := startUsecaseSpan(ctx, "LeaderboardService.CreateLeaderboard")
	defer span.End()

	newID, err := s.idGen.NewID()
	if err != nil {
		return leaderboard.Meta{}, fmt.Errorf("generate leaderboard id: %w", err)
	}

	meta := leaderboard.Meta{
		ID:             newID,
		Name:           strings.TrimSpace(input.Name),
		Description:    strings.TrimSpace(input.Description),
		StartAt:        input.StartAt.UTC(),
		EndAt:          input.EndAt.UTC(),
		TotalPrizePool: input.TotalPrizePool,
		RewardTiers:    input.RewardTiers,
		CreatedAt:      s.now().UTC(),
	}
	if err := meta.Validate(); err != nil {
		return leaderboard.Meta{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.metaRepo.Create(ctx, meta); err != nil {
		return leaderboard.Meta{}, fmt.Errorf("create leaderboard: %w", err)
	}
	if err := s.engine.Register(ctx, meta); err != nil {
		return leaderboard.Meta{}, fmt.Errorf("register leaderboard board: %w", err)
	}
	if s.hub != nil && s.snapshotConsumer != nil {
		if _, err := s.hub.Subscribe(meta.ID, s.snapshotConsumer); err != nil {
			return leaderboard.Meta{}, fmt.Errorf("subscribe snapshot consumer: %w", err)
		}
	}

	return meta, nil
}

// NotifySnapshots subscribes consumer to every leaderboard this
// service creates from now on. Boards restored on startup are
// subscribed by the caller.
func (s *LeaderboardService) NotifySnapshots(hub *Broadcaster, consumer Consumer) {
	s.hub = hub
	s.snapshotConsumer = consumer
}

func (s *LeaderboardService) GetLeaderboard(ctx context.Context, leaderboardID string) (LeaderboardView, error) {
	ctx, span := startUsecaseSpan(ctx, "LeaderboardService.GetLeaderboard")
	defer span.End()

	leaderboardID = strings.TrimSpace(leaderboardID)
	if leaderboardID == "" {
		return LeaderboardView{}, fmt.Errorf("%w: leaderboard id is required", ErrInvalidInput)
	}

	meta, exists, err := s.metaRepo.GetByID(ctx, leaderboardID)
	if err != nil {
		return LeaderboardView{}, fmt.Errorf("get leaderboard: %w", err)
	}
	if !exists {
		return LeaderboardView{}, fmt.Errorf("%w: leaderboard=%s", ErrNotFound, leaderboardID)
	}

	return s.view(ctx, meta)
}

func (s *LeaderboardService) ListLeaderboards(ctx context.Context) ([]LeaderboardView, error) {
	ctx, span := startUsecaseSpan(ctx, "LeaderboardService.ListLeaderboards")
	defer span.End()

	metas, err := s.metaRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leaderboards: %w", err)
	}

	views := make([]LeaderboardView, 0, len(metas))
	for _, meta := range metas {
		view, err := s.view(ctx, meta)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *LeaderboardService) view(ctx context.Context, meta leaderboard.Meta) (LeaderboardView, error) {
	count, err := s.playerRepo.CountByLeaderboard(ctx, meta.ID)
	if err != nil {
		return LeaderboardView{}, fmt.Errorf("count leaderboard players: %w", err)
	}

	return LeaderboardView{
		Meta:        meta,
		Status:      meta.StatusAt(s.now()),
		PlayerCount: count,
	}, nil
}

// RegisterPlayer ties a player to a leaderboard. Idempotent: repeated
// registrations keep the original timestamp.
func (s *LeaderboardService) RegisterPlayer(ctx context.Context, leaderboardID, playerID string) error {
	ctx, span := startUsecaseSpan(ctx, "LeaderboardService.RegisterPlayer")
	defer span.End()

	registration := player.Registration{
		PlayerID:      strings.TrimSpace(playerID),
		LeaderboardID: strings.TrimSpace(leaderboardID),
		RegisteredAt:  s.now().UTC(),
	}
	if err := registration.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	_, exists, err := s.metaRepo.GetByID(ctx, registration.LeaderboardID)
	if err != nil {
		return fmt.Errorf("get leaderboard: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: leaderboard=%s", ErrNotFound, registration.LeaderboardID)
	}

	if err := s.playerRepo.Register(ctx, registration); err != nil {
		return fmt.Errorf("register player: %w", err)
	}
	return nil
}
