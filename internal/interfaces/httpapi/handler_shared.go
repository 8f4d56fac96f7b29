package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/novaplay/spinboard/internal/domain/ranking"
	"github.com/novaplay/spinboard/internal/domain/spin"
	"github.com/novaplay/spinboard/internal/platform/logging"
	"github.com/novaplay/spinboard/internal/usecase"
)

type Handler struct {
	leaderboardService *usecase.LeaderboardService
	spinService        *usecase.SpinService
	snapshotService    *usecase.SnapshotService
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(
	leaderboardService *usecase.LeaderboardService,
	spinService *usecase.SpinService,
	snapshotService *usecase.SnapshotService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		leaderboardService: leaderboardService,
		spinService:        spinService,
		snapshotService:    snapshotService,
		logger:             logger,
		validator:          validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type createLeaderboardRequest struct {
	Name           string              `json:"name" validate:"required,max=120"`
	Description    string              `json:"description" validate:"omitempty,max=500"`
	StartAt        time.Time           `json:"start_at" validate:"required"`
	EndAt          time.Time           `json:"end_at" validate:"required"`
	TotalPrizePool int64               `json:"total_prize_pool" validate:"gte=0"`
	RewardTiers    []rewardTierRequest `json:"reward_tiers" validate:"required,min=1,dive"`
}

type rewardTierRequest struct {
	FromPosition int   `json:"from_position" validate:"required,gt=0"`
	ToPosition   int   `json:"to_position" validate:"required,gt=0"`
	Reward       int64 `json:"reward" validate:"gte=0"`
}

type registerPlayerRequest struct {
	PlayerID string `json:"player_id" validate:"required,max=100"`
}

type recordSpinRequest struct {
	PlayerID      string `json:"player_id" validate:"required,max=100"`
	LeaderboardID string `json:"leaderboard_id" validate:"required"`
	// BetAmount is range-checked by the spin service so that zero and
	// negative bets surface as an invalid amount, not a missing field.
	BetAmount int64 `json:"bet_amount"`
}

type rewardTierDTO struct {
	FromPosition int   `json:"fromPosition"`
	ToPosition   int   `json:"toPosition"`
	Reward       int64 `json:"reward"`
}

type leaderboardDTO struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Status         string          `json:"status"`
	StartAt        string          `json:"startAt"`
	EndAt          string          `json:"endAt"`
	TotalPrizePool int64           `json:"totalPrizePool"`
	RewardTiers    []rewardTierDTO `json:"rewardTiers"`
	PlayerCount    int             `json:"playerCount"`
	CreatedAt      string          `json:"createdAt"`
}

type snapshotRowDTO struct {
	Position      int    `json:"position"`
	PlayerID      string `json:"playerId"`
	Score         int64  `json:"score"`
	Reward        int64  `json:"reward"`
	FirstScoredAt string `json:"firstScoredAt"`
}

type snapshotDTO struct {
	LeaderboardID string           `json:"leaderboardId"`
	Version       uint64           `json:"version"`
	TakenAt       string           `json:"takenAt"`
	TotalPlayers  int              `json:"totalPlayers"`
	Rows          []snapshotRowDTO `json:"rows"`
}

type leaderboardDetailDTO struct {
	Leaderboard leaderboardDTO `json:"leaderboard"`
	Snapshot    snapshotDTO    `json:"snapshot"`
}

type playerContextDTO struct {
	LeaderboardID string           `json:"leaderboardId"`
	PlayerID      string           `json:"playerId"`
	Row           snapshotRowDTO   `json:"row"`
	Window        []snapshotRowDTO `json:"window"`
}

type registrationDTO struct {
	LeaderboardID string `json:"leaderboardId"`
	PlayerID      string `json:"playerId"`
}

type spinDTO struct {
	ID            string `json:"id"`
	PlayerID      string `json:"playerId"`
	LeaderboardID string `json:"leaderboardId"`
	BetAmount     int64  `json:"betAmount"`
	OccurredAt    string `json:"occurredAt"`
}

func leaderboardViewToDTO(ctx context.Context, v usecase.LeaderboardView) leaderboardDTO {
	ctx, span := startSpan(ctx, "httpapi.leaderboardViewToDTO")
	defer span.End()

	tiers := make([]rewardTierDTO, 0, len(v.RewardTiers))
	for _, t := range v.RewardTiers {
		tiers = append(tiers, rewardTierDTO{
			FromPosition: t.FromPosition,
			ToPosition:   t.ToPosition,
			Reward:       t.Reward,
		})
	}

	return leaderboardDTO{
		ID:             v.ID,
		Name:           v.Name,
		Description:    v.Description,
		Status:         string(v.Status),
		StartAt:        v.StartAt.UTC().Format(time.RFC3339),
		EndAt:          v.EndAt.UTC().Format(time.RFC3339),
		TotalPrizePool: v.TotalPrizePool,
		RewardTiers:    tiers,
		PlayerCount:    v.PlayerCount,
		CreatedAt:      v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func snapshotViewToDTO(ctx context.Context, v usecase.SnapshotView) snapshotDTO {
	ctx, span := startSpan(ctx, "httpapi.snapshotViewToDTO")
	defer span.End()

	return snapshotDTO{
		LeaderboardID: v.LeaderboardID,
		Version:       v.Version,
		TakenAt:       v.TakenAt.UTC().Format(time.RFC3339Nano),
		TotalPlayers:  v.TotalPlayers,
		Rows:          rowsToDTO(v.Rows),
	}
}

func rowsToDTO(rows []ranking.Row) []snapshotRowDTO {
	items := make([]snapshotRowDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, rowToDTO(row))
	}
	return items
}

func rowToDTO(row ranking.Row) snapshotRowDTO {
	return snapshotRowDTO{
		Position:      row.Position,
		PlayerID:      row.PlayerID,
		Score:         row.Score,
		Reward:        row.Reward,
		FirstScoredAt: row.FirstScoredAt.UTC().Format(time.RFC3339Nano),
	}
}

func spinToDTO(event spin.Event) spinDTO {
	return spinDTO{
		ID:            event.ID,
		PlayerID:      event.PlayerID,
		LeaderboardID: event.LeaderboardID,
		BetAmount:     event.BetAmount,
		OccurredAt:    event.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}
