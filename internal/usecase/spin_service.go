package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/novaplay/spinboard/internal/domain/leaderboard"
	"github.com/novaplay/spinboard/internal/domain/player"
	"github.com/novaplay/spinboard/internal/domain/spin"
	"github.com/novaplay/spinboard/internal/platform/id"
)

type RecordSpinInput struct {
	PlayerID      string
	LeaderboardID string
	BetAmount     int64
}

// SpinService is the ingestion edge of the ledger: it validates the
// spin, appends it, then enqueues it for ranking. The append is
// acknowledged before the index catches up.
type SpinService struct {
	ledger     spin.Ledger
	metaRepo   leaderboard.Repository
	playerRepo player.Repository
	engine     *Engine
	idGen      id.Generator
	// requireRegistration rejects spins from players that never
	// registered; when false the spin registers them implicitly.
	requireRegistration bool
	now                 func() time.Time
}

func NewSpinService(
	ledger spin.Ledger,
	metaRepo leaderboard.Repository,
	playerRepo player.Repository,
	engine *Engine,
	idGen id.Generator,
	requireRegistration bool,
) *SpinService {
	return &SpinService{
		ledger:              ledger,
		metaRepo:            metaRepo,
		playerRepo:          playerRepo,
		engine:              engine,
		idGen:               idGen,
		requireRegistration: requireRegistration,
		now:                 time.Now,
	}
}

func (s *SpinService) RecordSpin(ctx context.Context, input RecordSpinInput) (spin.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "SpinService.RecordSpin")
	defer span.End()

	if input.BetAmount <= 0 {
		return spin.Event{}, fmt.Errorf("%w: bet=%d", ErrInvalidAmount, input.BetAmount)
	}

	eventID, err := s.idGen.NewID()
	if err != nil {
		return spin.Event{}, fmt.Errorf("generate event id: %w", err)
	}

	event := spin.Event{
		ID:            eventID,
		PlayerID:      strings.TrimSpace(input.PlayerID),
		LeaderboardID: strings.TrimSpace(input.LeaderboardID),
		BetAmount:     input.BetAmount,
		OccurredAt:    s.now().UTC(),
	}
	if err := event.Validate(); err != nil {
		return spin.Event{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	meta, exists, err := s.metaRepo.GetByID(ctx, event.LeaderboardID)
	if err != nil {
		return spin.Event{}, fmt.Errorf("get leaderboard: %w", err)
	}
	if !exists {
		return spin.Event{}, fmt.Errorf("%w: leaderboard=%s", ErrNotFound, event.LeaderboardID)
	}
	if status := meta.StatusAt(event.OccurredAt); status != leaderboard.StatusActive {
		return spin.Event{}, fmt.Errorf("%w: leaderboard=%s status=%s", ErrInvalidInput, event.LeaderboardID, status)
	}

	registered, err := s.playerRepo.IsRegistered(ctx, event.LeaderboardID, event.PlayerID)
	if err != nil {
		return spin.Event{}, fmt.Errorf("check registration: %w", err)
	}
	if !registered {
		if s.requireRegistration {
			return spin.Event{}, fmt.Errorf("%w: player=%s not registered on leaderboard=%s", ErrNotFound, event.PlayerID, event.LeaderboardID)
		}
		registration := player.Registration{
			PlayerID:      event.PlayerID,
			LeaderboardID: event.LeaderboardID,
			RegisteredAt:  event.OccurredAt,
		}
		if err := s.playerRepo.Register(ctx, registration); err != nil {
			return spin.Event{}, fmt.Errorf("auto-register player: %w", err)
		}
	}

	if err := s.ledger.Append(ctx, event); err != nil {
		return spin.Event{}, fmt.Errorf("append spin event: %w", err)
	}
	if err := s.engine.Enqueue(ctx, event); err != nil {
		return spin.Event{}, fmt.Errorf("enqueue spin event: %w", err)
	}

	return event, nil
}
