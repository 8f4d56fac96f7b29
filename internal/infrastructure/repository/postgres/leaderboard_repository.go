package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/novaplay/spinboard/internal/domain/leaderboard"
	"github.com/novaplay/spinboard/internal/domain/ranking"
	qb "github.com/novaplay/spinboard/internal/platform/querybuilder"
)

type LeaderboardRepository struct {
	db *sqlx.DB
}

func NewLeaderboardRepository(db *sqlx.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

func (r *LeaderboardRepository) Create(ctx context.Context, meta leaderboard.Meta) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create leaderboard tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.InsertInto("leaderboards").
		Columns("public_id", "name", "description", "start_at", "end_at", "total_prize_pool", "created_at").
		Values(meta.ID, meta.Name, meta.Description, meta.StartAt, meta.EndAt, meta.TotalPrizePool, meta.CreatedAt).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert leaderboard query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert leaderboard: %w", err)
	}

	for _, tier := range meta.RewardTiers {
		query, args, err := qb.InsertInto("reward_tiers").
			Columns("leaderboard_id", "from_position", "to_position", "reward").
			Values(meta.ID, tier.FromPosition, tier.ToPosition, tier.Reward).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build insert reward tier query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert reward tier: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create leaderboard tx: %w", err)
	}

	return nil
}

func (r *LeaderboardRepository) GetByID(ctx context.Context, leaderboardID string) (leaderboard.Meta, bool, error) {
	query, args, err := qb.Select("*").From("leaderboards").
		Where(qb.Eq("public_id", leaderboardID)).
		ToSQL()
	if err != nil {
		return leaderboard.Meta{}, false, fmt.Errorf("build get leaderboard query: %w", err)
	}

	var row leaderboardTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return leaderboard.Meta{}, false, nil
		}
		return leaderboard.Meta{}, false, fmt.Errorf("get leaderboard: %w", err)
	}

	tiers, err := r.tiersByLeaderboard(ctx, []string{leaderboardID})
	if err != nil {
		return leaderboard.Meta{}, false, err
	}

	return toDomainMeta(row, tiers[leaderboardID]), true, nil
}

func (r *LeaderboardRepository) List(ctx context.Context) ([]leaderboard.Meta, error) {
	query, args, err := qb.Select("*").From("leaderboards").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list leaderboards query: %w", err)
	}

	var rows []leaderboardTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list leaderboards: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PublicID)
	}
	tiers, err := r.tiersByLeaderboard(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]leaderboard.Meta, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainMeta(row, tiers[row.PublicID]))
	}

	return out, nil
}

func (r *LeaderboardRepository) tiersByLeaderboard(ctx context.Context, leaderboardIDs []string) (map[string][]ranking.Tier, error) {
	values := make([]any, 0, len(leaderboardIDs))
	for _, id := range leaderboardIDs {
		values = append(values, id)
	}

	query, args, err := qb.Select("*").From("reward_tiers").
		Where(qb.In("leaderboard_id", values)).
		OrderBy("leaderboard_id", "from_position").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list reward tiers query: %w", err)
	}

	var rows []rewardTierTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list reward tiers: %w", err)
	}

	out := make(map[string][]ranking.Tier, len(leaderboardIDs))
	for _, row := range rows {
		out[row.LeaderboardID] = append(out[row.LeaderboardID], ranking.Tier{
			FromPosition: row.FromPosition,
			ToPosition:   row.ToPosition,
			Reward:       row.Reward,
		})
	}

	return out, nil
}

func toDomainMeta(row leaderboardTableModel, tiers []ranking.Tier) leaderboard.Meta {
	return leaderboard.Meta{
		ID:             row.PublicID,
		Name:           row.Name,
		Description:    row.Description,
		StartAt:        row.StartAt.UTC(),
		EndAt:          row.EndAt.UTC(),
		TotalPrizePool: row.TotalPrizePool,
		RewardTiers:    tiers,
		CreatedAt:      row.CreatedAt.UTC(),
	}
}
