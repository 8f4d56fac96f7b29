package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/novaplay/spinboard/internal/domain/spin"
	qb "github.com/novaplay/spinboard/internal/platform/querybuilder"
)

// SpinLedger persists the append-only event log. Appends are
// idempotent on event id so a retried request never double-counts.
type SpinLedger struct {
	db *sqlx.DB
}

func NewSpinLedger(db *sqlx.DB) *SpinLedger {
	return &SpinLedger{db: db}
}

func (l *SpinLedger) Append(ctx context.Context, event spin.Event) error {
	model := spinEventTableModel{
		ID:            event.ID,
		LeaderboardID: event.LeaderboardID,
		PlayerID:      event.PlayerID,
		BetAmount:     event.BetAmount,
		OccurredAt:    event.OccurredAt,
	}

	query, args, err := qb.InsertModel("spin_events", model, "ON CONFLICT (id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert spin event query: %w", err)
	}
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert spin event: %w", err)
	}

	return nil
}

func (l *SpinLedger) ListByLeaderboard(ctx context.Context, leaderboardID string) ([]spin.Event, error) {
	query, args, err := qb.Select("*").From("spin_events").
		Where(qb.Eq("leaderboard_id", leaderboardID)).
		OrderBy("occurred_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list spin events query: %w", err)
	}

	var rows []spinEventTableModel
	if err := l.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list spin events: %w", err)
	}

	out := make([]spin.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, spin.Event{
			ID:            row.ID,
			LeaderboardID: row.LeaderboardID,
			PlayerID:      row.PlayerID,
			BetAmount:     row.BetAmount,
			OccurredAt:    row.OccurredAt.UTC(),
		})
	}

	return out, nil
}
