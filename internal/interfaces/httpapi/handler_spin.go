package httpapi

import (
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/novaplay/spinboard/internal/usecase"
)

// RecordSpin acknowledges the ledger append with 202: ranking catches
// up asynchronously on the board worker.
func (h *Handler) RecordSpin(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecordSpin")
	defer span.End()

	var req recordSpinRequest
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

	event, err := h.spinService.RecordSpin(ctx, usecase.RecordSpinInput{
		PlayerID:      req.PlayerID,
		LeaderboardID: req.LeaderboardID,
		BetAmount:     req.BetAmount,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "record spin failed",
			"player_id", req.PlayerID,
			"leaderboard_id", req.LeaderboardID,
			"bet_amount", req.BetAmount,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusAccepted, spinToDTO(event))
}
