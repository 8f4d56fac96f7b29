package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/novaplay/spinboard/internal/domain/ranking"
	"github.com/novaplay/spinboard/internal/usecase"
)

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateLeaderboard")
	defer span.End()

	var req createLeaderboardRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	tiers := make([]ranking.Tier, 0, len(req.RewardTiers))
	for _, t := range req.RewardTiers {
		tiers = append(tiers, ranking.Tier{
			FromPosition: t.FromPosition,
			ToPosition:   t.ToPosition,
			Reward:       t.Reward,
		})
	}

	meta, err := h.leaderboardService.CreateLeaderboard(ctx, usecase.CreateLeaderboardInput{
		Name:           req.Name,
		Description:    req.Description,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		TotalPrizePool: req.TotalPrizePool,
		RewardTiers:    tiers,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create leaderboard failed", "name", req.Name, "error", err)
		writeError(ctx, w, err)
		return
	}

	view, err := h.leaderboardService.GetLeaderboard(ctx, meta.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "read back created leaderboard failed", "leaderboard_id", meta.ID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, leaderboardViewToDTO(ctx, view))
}

func (h *Handler) ListLeaderboards(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLeaderboards")
	defer span.End()

	views, err := h.leaderboardService.ListLeaderboards(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list leaderboards failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]leaderboardDTO, 0, len(views))
	for _, view := range views {
		items = append(items, leaderboardViewToDTO(ctx, view))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeaderboard")
	defer span.End()

	leaderboardID := strings.TrimSpace(r.PathValue("leaderboardID"))

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be positive integer", usecase.ErrInvalidInput))
			return
		}
		limit = v
	}

	view, err := h.leaderboardService.GetLeaderboard(ctx, leaderboardID)
	if err != nil {
		h.logger.WarnContext(ctx, "get leaderboard failed", "leaderboard_id", leaderboardID, "error", err)
		writeError(ctx, w, err)
		return
	}

	snapshot, err := h.snapshotService.GetSnapshot(ctx, leaderboardID, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "get leaderboard snapshot failed", "leaderboard_id", leaderboardID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leaderboardDetailDTO{
		Leaderboard: leaderboardViewToDTO(ctx, view),
		Snapshot:    snapshotViewToDTO(ctx, snapshot),
	})
}

func (h *Handler) GetPlayerContext(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayerContext")
	defer span.End()

	leaderboardID := strings.TrimSpace(r.PathValue("leaderboardID"))
	playerID := strings.TrimSpace(r.PathValue("playerID"))

	radius := 2
	if raw := strings.TrimSpace(r.URL.Query().Get("radius")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(ctx, w, fmt.Errorf("%w: radius must be non-negative integer", usecase.ErrInvalidInput))
			return
		}
		radius = v
	}

	playerContext, err := h.snapshotService.GetPlayerContext(ctx, leaderboardID, playerID, radius)
	if err != nil {
		h.logger.WarnContext(ctx, "get player context failed", "leaderboard_id", leaderboardID, "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playerContextDTO{
		LeaderboardID: playerContext.LeaderboardID,
		PlayerID:      playerContext.PlayerID,
		Row:           rowToDTO(playerContext.Row),
		Window:        rowsToDTO(playerContext.Window),
	})
}

func (h *Handler) RegisterPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RegisterPlayer")
	defer span.End()

	leaderboardID := strings.TrimSpace(r.PathValue("leaderboardID"))

	var req registerPlayerRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.leaderboardService.RegisterPlayer(ctx, leaderboardID, req.PlayerID); err != nil {
		h.logger.WarnContext(ctx, "register player failed", "leaderboard_id", leaderboardID, "player_id", req.PlayerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, registrationDTO{
		LeaderboardID: leaderboardID,
		PlayerID:      req.PlayerID,
	})
}
