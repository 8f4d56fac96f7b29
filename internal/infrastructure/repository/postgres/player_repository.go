package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/novaplay/spinboard/internal/domain/player"
	qb "github.com/novaplay/spinboard/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Register is idempotent: the composite key keeps the first row.
func (r *PlayerRepository) Register(ctx context.Context, registration player.Registration) error {
	model := playerRegistrationTableModel{
		LeaderboardID: registration.LeaderboardID,
		PlayerID:      registration.PlayerID,
		RegisteredAt:  registration.RegisteredAt,
	}

	query, args, err := qb.InsertModel("player_registrations", model, "ON CONFLICT (leaderboard_id, player_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert registration query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	return nil
}

func (r *PlayerRepository) IsRegistered(ctx context.Context, leaderboardID, playerID string) (bool, error) {
	query, args, err := qb.Select("COUNT(*)").From("player_registrations").
		Where(
			qb.Eq("leaderboard_id", leaderboardID),
			qb.Eq("player_id", playerID),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build registration lookup query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("lookup registration: %w", err)
	}

	return count > 0, nil
}

func (r *PlayerRepository) CountByLeaderboard(ctx context.Context, leaderboardID string) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("player_registrations").
		Where(qb.Eq("leaderboard_id", leaderboardID)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build registration count query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}

	return count, nil
}
