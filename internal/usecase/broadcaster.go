package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/novaplay/spinboard/internal/domain/ranking"
	"github.com/novaplay/spinboard/internal/platform/logging"
)

// Consumer receives materialized snapshots. Delivery is "offered to
// transport": a returned error is logged, never retried here.
type Consumer interface {
	Deliver(ctx context.Context, snapshot *ranking.Snapshot) error
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(ctx context.Context, snapshot *ranking.Snapshot) error

func (f ConsumerFunc) Deliver(ctx context.Context, snapshot *ranking.Snapshot) error {
	return f(ctx, snapshot)
}

type BroadcasterConfig struct {
	// QueueSize bounds each subscription's pending queue.
	QueueSize int
	// MinInterval coalesces notification bursts per subscription. The
	// newest snapshot is always delivered eventually.
	MinInterval time.Duration
}

type subscription struct {
	id            string
	leaderboardID string
	consumer      Consumer
	queue         chan *ranking.Snapshot
	stop          chan struct{}
	stopOnce      sync.Once
}

func (s *subscription) close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// offer enqueues without ever blocking. On a full queue the oldest
// pending snapshot is dropped so the newest always fits.
func (s *subscription) offer(snapshot *ranking.Snapshot) (dropped bool) {
	for {
		select {
		case s.queue <- snapshot:
			return dropped
		default:
		}
		select {
		case <-s.queue:
			dropped = true
		default:
		}
	}
}

// Broadcaster fans snapshot versions out to subscribed consumers. Each
// subscription runs its own pump goroutine, so one slow consumer never
// stalls the writer path or its peers.
type Broadcaster struct {
	cfg    BroadcasterConfig
	logger *logging.Logger

	mu      sync.RWMutex
	subs    map[string]*subscription
	byBoard map[string]map[string]*subscription
	closed  bool

	pumps conc.WaitGroup
}

func NewBroadcaster(cfg BroadcasterConfig, logger *logging.Logger) *Broadcaster {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 8
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &Broadcaster{
		cfg:     cfg,
		logger:  logger,
		subs:    make(map[string]*subscription),
		byBoard: make(map[string]map[string]*subscription),
	}
}

func (b *Broadcaster) Subscribe(leaderboardID string, consumer Consumer) (string, error) {
	if leaderboardID == "" {
		return "", fmt.Errorf("%w: leaderboard id is required", ErrInvalidInput)
	}
	if consumer == nil {
		return "", fmt.Errorf("%w: consumer is required", ErrInvalidInput)
	}

	sub := &subscription{
		id:            uuid.NewString(),
		leaderboardID: leaderboardID,
		consumer:      consumer,
		queue:         make(chan *ranking.Snapshot, b.cfg.QueueSize),
		stop:          make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return "", fmt.Errorf("%w: broadcaster is closed", ErrDependencyUnavailable)
	}
	b.subs[sub.id] = sub
	boardSubs, ok := b.byBoard[leaderboardID]
	if !ok {
		boardSubs = make(map[string]*subscription)
		b.byBoard[leaderboardID] = boardSubs
	}
	boardSubs[sub.id] = sub
	b.mu.Unlock()

	b.pumps.Go(func() { b.pump(sub) })

	return sub.id, nil
}

// Unsubscribe stops future notifications immediately. Deliveries
// already handed to the consumer are not retracted.
func (b *Broadcaster) Unsubscribe(subscriptionID string) error {
	b.mu.Lock()
	sub, ok := b.subs[subscriptionID]
	if ok {
		delete(b.subs, subscriptionID)
		if boardSubs, found := b.byBoard[sub.leaderboardID]; found {
			delete(boardSubs, subscriptionID)
			if len(boardSubs) == 0 {
				delete(b.byBoard, sub.leaderboardID)
			}
		}
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: subscription=%s", ErrNotFound, subscriptionID)
	}
	sub.close()
	return nil
}

// Publish offers the snapshot to every live subscription for its
// leaderboard. Never blocks.
func (b *Broadcaster) Publish(snapshot *ranking.Snapshot) {
	if snapshot == nil {
		return
	}

	b.mu.RLock()
	boardSubs := b.byBoard[snapshot.LeaderboardID]
	targets := make([]*subscription, 0, len(boardSubs))
	for _, sub := range boardSubs {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		if sub.offer(snapshot) {
			b.logger.Debug("subscription queue overflow, dropped oldest",
				"subscription_id", sub.id,
				"leaderboard_id", snapshot.LeaderboardID,
				"version", snapshot.Version,
			)
		}
	}
}

func (b *Broadcaster) pump(sub *subscription) {
	ctx := context.Background()
	var throttle *time.Timer
	defer func() {
		if throttle != nil {
			throttle.Stop()
		}
	}()

	for {
		select {
		case <-sub.stop:
			return
		case snapshot := <-sub.queue:
			snapshot = drainNewest(sub.queue, snapshot)
			if err := sub.consumer.Deliver(ctx, snapshot); err != nil {
				b.logger.Warn("snapshot delivery failed",
					"subscription_id", sub.id,
					"leaderboard_id", sub.leaderboardID,
					"version", snapshot.Version,
					"error", err,
				)
			}
			if b.cfg.MinInterval <= 0 {
				continue
			}
			if throttle == nil {
				throttle = time.NewTimer(b.cfg.MinInterval)
			} else {
				throttle.Reset(b.cfg.MinInterval)
			}
			select {
			case <-sub.stop:
				return
			case <-throttle.C:
			}
		}
	}
}

// drainNewest collapses a burst: everything queued behind head is
// discarded except the most recent snapshot.
func drainNewest(queue chan *ranking.Snapshot, head *ranking.Snapshot) *ranking.Snapshot {
	newest := head
	for {
		select {
		case next := <-queue:
			newest = next
		default:
			return newest
		}
	}
}

// Close stops every subscription and waits for the pumps to exit.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[string]*subscription)
	b.byBoard = make(map[string]map[string]*subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	b.pumps.Wait()
}
