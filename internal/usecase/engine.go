package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc"

	"github.com/novaplay/spinboard/internal/domain/leaderboard"
	"github.com/novaplay/spinboard/internal/domain/ranking"
	"github.com/novaplay/spinboard/internal/domain/spin"
	"github.com/novaplay/spinboard/internal/platform/logging"
)

type EngineConfig struct {
	// QueueSize bounds each leaderboard's pending event queue.
	QueueSize int
	// BatchMax caps how many queued events fold into one snapshot
	// version.
	BatchMax int
	// RestoreWorkers sizes the pool used to replay ledgers on cold
	// start.
	RestoreWorkers int
}

func (c EngineConfig) normalized() EngineConfig {
	if c.QueueSize < 1 {
		c.QueueSize = 1024
	}
	if c.BatchMax < 1 {
		c.BatchMax = 256
	}
	if c.RestoreWorkers < 1 {
		c.RestoreWorkers = 8
	}
	return c
}

// board is the per-leaderboard ranking state. A single worker
// goroutine owns all index mutations; readers go through the atomic
// snapshot pointer or the index's read lock.
type board struct {
	id       string
	index    *ranking.Index
	tiers    ranking.TierTable
	events   chan spin.Event
	snapshot atomic.Pointer[ranking.Snapshot]
	version  atomic.Uint64
	stop     chan struct{}
	stopOnce sync.Once
}

// Engine owns every live ranking index. It is constructed explicitly
// and rebuilt from the spin ledger on cold start; there is no process
// singleton.
type Engine struct {
	cfg    EngineConfig
	logger *logging.Logger
	ledger spin.Ledger
	hub    *Broadcaster
	now    func() time.Time

	mu     sync.RWMutex
	boards map[string]*board
	closed bool

	workers conc.WaitGroup
}

func NewEngine(cfg EngineConfig, ledger spin.Ledger, hub *Broadcaster, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}

	return &Engine{
		cfg:    cfg.normalized(),
		logger: logger,
		ledger: ledger,
		hub:    hub,
		now:    time.Now,
		boards: make(map[string]*board),
	}
}

// Register creates the ranking state for a leaderboard and starts its
// worker. Registering an existing id is a no-op.
func (e *Engine) Register(ctx context.Context, meta leaderboard.Meta) error {
	tiers, err := ranking.NewTierTable(meta.RewardTiers)
	if err != nil {
		return fmt.Errorf("%w: reward tiers: %v", ErrInvalidInput, err)
	}

	b := &board{
		id:     meta.ID,
		index:  ranking.NewIndex(),
		tiers:  tiers,
		events: make(chan spin.Event, e.cfg.QueueSize),
		stop:   make(chan struct{}),
	}
	b.snapshot.Store(ranking.Materialize(meta.ID, 0, e.now(), b.index, tiers))

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("%w: engine is closed", ErrDependencyUnavailable)
	}
	if _, exists := e.boards[meta.ID]; exists {
		e.mu.Unlock()
		return nil
	}
	e.boards[meta.ID] = b
	e.mu.Unlock()

	e.workers.Go(func() { e.runBoard(b) })
	e.logger.InfoContext(ctx, "leaderboard board registered", "leaderboard_id", meta.ID)

	return nil
}

func (e *Engine) board(leaderboardID string) (*board, error) {
	e.mu.RLock()
	b, ok := e.boards[leaderboardID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: leaderboard=%s", ErrNotFound, leaderboardID)
	}
	return b, nil
}

// Enqueue hands an appended event to the leaderboard's worker. The
// caller is acknowledged as soon as the event is queued; the snapshot
// catches up on the next processing cycle.
func (e *Engine) Enqueue(ctx context.Context, event spin.Event) error {
	b, err := e.board(event.LeaderboardID)
	if err != nil {
		return err
	}

	select {
	case b.events <- event:
		return nil
	case <-b.stop:
		return fmt.Errorf("%w: leaderboard=%s worker stopped", ErrDependencyUnavailable, event.LeaderboardID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the most recent materialized view, lock-free.
func (e *Engine) Snapshot(_ context.Context, leaderboardID string) (*ranking.Snapshot, error) {
	b, err := e.board(leaderboardID)
	if err != nil {
		return nil, err
	}
	return b.snapshot.Load(), nil
}

// Rank reads the live index directly, giving read-your-own-write
// visibility ahead of the next snapshot.
func (e *Engine) Rank(_ context.Context, leaderboardID, playerID string) (ranking.Row, error) {
	b, err := e.board(leaderboardID)
	if err != nil {
		return ranking.Row{}, err
	}

	position, entry, ok := b.index.Rank(playerID)
	if !ok {
		return ranking.Row{}, fmt.Errorf("%w: player=%s leaderboard=%s", ErrNotFound, playerID, leaderboardID)
	}
	return ranking.Row{
		Position:      position,
		PlayerID:      entry.PlayerID,
		Score:         entry.Score,
		Reward:        b.tiers.RewardFor(position),
		FirstScoredAt: entry.FirstScoredAt,
	}, nil
}

// ContextWindow returns the player's neighborhood, radius positions on
// each side clamped to the index bounds, rewards stamped per position.
func (e *Engine) ContextWindow(_ context.Context, leaderboardID, playerID string, radius int) ([]ranking.Row, error) {
	b, err := e.board(leaderboardID)
	if err != nil {
		return nil, err
	}

	entries, start, ok := b.index.ContextWindow(playerID, radius)
	if !ok {
		return nil, fmt.Errorf("%w: player=%s leaderboard=%s", ErrNotFound, playerID, leaderboardID)
	}

	rows := make([]ranking.Row, 0, len(entries))
	for i, entry := range entries {
		position := start + i
		rows = append(rows, ranking.Row{
			Position:      position,
			PlayerID:      entry.PlayerID,
			Score:         entry.Score,
			Reward:        b.tiers.RewardFor(position),
			FirstScoredAt: entry.FirstScoredAt,
		})
	}
	return rows, nil
}

func (e *Engine) runBoard(b *board) {
	for {
		select {
		case <-b.stop:
			return
		case event := <-b.events:
			batch := e.drainBatch(b, event)
			e.processBatch(b, batch)
		}
	}
}

func (e *Engine) drainBatch(b *board, head spin.Event) []spin.Event {
	batch := make([]spin.Event, 1, e.cfg.BatchMax)
	batch[0] = head
	for len(batch) < e.cfg.BatchMax {
		select {
		case next := <-b.events:
			batch = append(batch, next)
		default:
			return batch
		}
	}
	return batch
}

// processBatch applies every delta in the batch and bumps the snapshot
// version exactly once. Individual event failures are logged and
// skipped, they never halt the worker.
func (e *Engine) processBatch(b *board, batch []spin.Event) {
	applied := 0
	for _, event := range batch {
		if _, err := b.index.ApplyDelta(event.PlayerID, event.BetAmount, event.OccurredAt); err != nil {
			if errors.Is(err, ranking.ErrCorrupted) {
				e.logger.Error("ranking index corrupted, rebuilding from ledger",
					"leaderboard_id", b.id,
					"error", err,
				)
				if rebuildErr := e.rebuild(context.Background(), b); rebuildErr != nil {
					e.logger.Error("ledger rebuild failed", "leaderboard_id", b.id, "error", rebuildErr)
				}
				return
			}
			e.logger.Warn("spin event skipped",
				"leaderboard_id", b.id,
				"player_id", event.PlayerID,
				"event_id", event.ID,
				"error", err,
			)
			continue
		}
		applied++
	}
	if applied == 0 {
		return
	}

	e.publish(b)
}

// publish materializes one new snapshot version and verifies the
// permutation is dense before exposing it. A failed check triggers a
// rebuild from the event log instead of serving torn state.
func (e *Engine) publish(b *board) {
	version := b.version.Add(1)
	snapshot := ranking.Materialize(b.id, version, e.now(), b.index, b.tiers)

	if err := verifySnapshot(snapshot, b.index.Len()); err != nil {
		e.logger.Error("snapshot verification failed, rebuilding from ledger",
			"leaderboard_id", b.id,
			"version", version,
			"error", err,
		)
		if rebuildErr := e.rebuild(context.Background(), b); rebuildErr != nil {
			e.logger.Error("ledger rebuild failed", "leaderboard_id", b.id, "error", rebuildErr)
		}
		return
	}

	b.snapshot.Store(snapshot)
	if e.hub != nil {
		e.hub.Publish(snapshot)
	}
}

func verifySnapshot(snapshot *ranking.Snapshot, indexLen int) error {
	if len(snapshot.Rows) != indexLen {
		return fmt.Errorf("%w: snapshot rows=%d index len=%d", ErrInconsistent, len(snapshot.Rows), indexLen)
	}
	for i, row := range snapshot.Rows {
		if row.Position != i+1 {
			return fmt.Errorf("%w: position %d at offset %d", ErrInconsistent, row.Position, i)
		}
	}
	return nil
}

// rebuild resets the index and replays the full ledger for the board.
// The replayed state gets a fresh snapshot version so subscribers
// converge on the corrected ranking.
func (e *Engine) rebuild(ctx context.Context, b *board) error {
	if e.ledger == nil {
		return fmt.Errorf("%w: no ledger to rebuild from", ErrDependencyUnavailable)
	}

	events, err := e.ledger.ListByLeaderboard(ctx, b.id)
	if err != nil {
		return fmt.Errorf("list ledger events: %w", err)
	}

	b.index.Reset()
	for _, event := range events {
		if _, err := b.index.ApplyDelta(event.PlayerID, event.BetAmount, event.OccurredAt); err != nil {
			e.logger.Warn("ledger event skipped during rebuild",
				"leaderboard_id", b.id,
				"event_id", event.ID,
				"error", err,
			)
		}
	}
	if err := b.index.Verify(); err != nil {
		return fmt.Errorf("%w: rebuild left index corrupted: %v", ErrInconsistent, err)
	}

	version := b.version.Add(1)
	snapshot := ranking.Materialize(b.id, version, e.now(), b.index, b.tiers)
	b.snapshot.Store(snapshot)
	if e.hub != nil {
		e.hub.Publish(snapshot)
	}

	e.logger.InfoContext(ctx, "ranking index rebuilt from ledger",
		"leaderboard_id", b.id,
		"events", len(events),
		"version", version,
	)
	return nil
}

// Restore registers every leaderboard and replays its ledger, fanning
// the replays across a worker pool. Used on cold start.
func (e *Engine) Restore(ctx context.Context, metas []leaderboard.Meta) error {
	pool, err := ants.NewPool(e.cfg.RestoreWorkers)
	if err != nil {
		return fmt.Errorf("create restore pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	errCh := make(chan error, len(metas))
	for _, meta := range metas {
		if err := e.Register(ctx, meta); err != nil {
			return fmt.Errorf("register leaderboard %s: %w", meta.ID, err)
		}

		b, err := e.board(meta.ID)
		if err != nil {
			return err
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := e.rebuild(ctx, b); err != nil {
				errCh <- fmt.Errorf("restore leaderboard %s: %w", b.id, err)
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			return fmt.Errorf("submit restore task: %w", err)
		}
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// Close stops every board worker and waits for them to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	boards := make([]*board, 0, len(e.boards))
	for _, b := range e.boards {
		boards = append(boards, b)
	}
	e.mu.Unlock()

	for _, b := range boards {
		b.stopOnce.Do(func() { close(b.stop) })
	}
	e.workers.Wait()
}
