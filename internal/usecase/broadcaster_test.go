package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/novaplay/spinboard/internal/domain/ranking"
	"github.com/novaplay/spinboard/internal/platform/logging"
)

func versionedSnapshot(leaderboardID string, version uint64) *ranking.Snapshot {
	return &ranking.Snapshot{
		LeaderboardID: leaderboardID,
		Version:       version,
		TakenAt:       time.Now().UTC(),
	}
}

func waitForDeliveries(t *testing.T, consumer *recordingConsumer, check func([]*ranking.Snapshot) bool) []*ranking.Snapshot {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		delivered := consumer.snapshots()
		if check(delivered) {
			return delivered
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("deliveries never matched, got %d", len(consumer.snapshots()))
	return nil
}

func TestBroadcaster_DeliversToSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewBroadcaster(BroadcasterConfig{QueueSize: 4}, logging.NewNop())
	defer hub.Close()

	consumer := &recordingConsumer{}
	if _, err := hub.Subscribe("lb-1", consumer); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	other := &recordingConsumer{}
	if _, err := hub.Subscribe("lb-2", other); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	hub.Publish(versionedSnapshot("lb-1", 1))

	waitForDeliveries(t, consumer, func(delivered []*ranking.Snapshot) bool {
		return len(delivered) == 1 && delivered[0].Version == 1
	})
	if len(other.snapshots()) != 0 {
		t.Fatal("snapshot leaked to a subscription on another leaderboard")
	}
}

func TestBroadcaster_QueueOverflowDropsOldestKeepsNewest(t *testing.T) {
	t.Parallel()

	hub := NewBroadcaster(BroadcasterConfig{QueueSize: 2}, logging.NewNop())
	defer hub.Close()

	consumer := &recordingConsumer{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 16),
	}
	if _, err := hub.Subscribe("lb-1", consumer); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	// First publish is picked up by the pump and blocks in Deliver.
	hub.Publish(versionedSnapshot("lb-1", 1))
	<-consumer.entered

	// Queue (size 2) fills with v2, v3; v4 overflows and evicts v2.
	hub.Publish(versionedSnapshot("lb-1", 2))
	hub.Publish(versionedSnapshot("lb-1", 3))
	hub.Publish(versionedSnapshot("lb-1", 4))

	close(consumer.gate)

	delivered := waitForDeliveries(t, consumer, func(delivered []*ranking.Snapshot) bool {
		return len(delivered) > 0 && delivered[len(delivered)-1].Version == 4
	})
	for _, snapshot := range delivered {
		if snapshot.Version == 2 {
			t.Fatal("evicted snapshot was still delivered")
		}
	}
	if delivered[0].Version != 1 {
		t.Fatalf("first delivery should be version 1, got %d", delivered[0].Version)
	}
}

func TestBroadcaster_CoalescingKeepsLatest(t *testing.T) {
	t.Parallel()

	hub := NewBroadcaster(BroadcasterConfig{QueueSize: 4, MinInterval: 10 * time.Millisecond}, logging.NewNop())
	defer hub.Close()

	consumer := &recordingConsumer{}
	if _, err := hub.Subscribe("lb-1", consumer); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	const last = 20
	for v := uint64(1); v <= last; v++ {
		hub.Publish(versionedSnapshot("lb-1", v))
	}

	delivered := waitForDeliveries(t, consumer, func(delivered []*ranking.Snapshot) bool {
		return len(delivered) > 0 && delivered[len(delivered)-1].Version == last
	})

	// Intermediate versions may be dropped, but what is delivered must
	// be strictly increasing and end at the newest.
	for i := 1; i < len(delivered); i++ {
		if delivered[i].Version <= delivered[i-1].Version {
			t.Fatalf("deliveries not increasing: %d then %d", delivered[i-1].Version, delivered[i].Version)
		}
	}
	if len(delivered) == int(last) {
		t.Log("no coalescing occurred, every version delivered")
	}
}

func TestBroadcaster_PublishNeverBlocksOnSlowConsumer(t *testing.T) {
	t.Parallel()

	hub := NewBroadcaster(BroadcasterConfig{QueueSize: 1}, logging.NewNop())
	defer hub.Close()

	blocked := &recordingConsumer{gate: make(chan struct{}), entered: make(chan struct{}, 16)}
	if _, err := hub.Subscribe("lb-1", blocked); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	healthy := &recordingConsumer{}
	if _, err := hub.Subscribe("lb-1", healthy); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for v := uint64(1); v <= 200; v++ {
			hub.Publish(versionedSnapshot("lb-1", v))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a slow consumer")
	}

	waitForDeliveries(t, healthy, func(delivered []*ranking.Snapshot) bool {
		return len(delivered) > 0 && delivered[len(delivered)-1].Version == 200
	})

	close(blocked.gate)
}

func TestBroadcaster_UnsubscribeStopsFutureDeliveries(t *testing.T) {
	t.Parallel()

	hub := NewBroadcaster(BroadcasterConfig{QueueSize: 4}, logging.NewNop())
	defer hub.Close()

	consumer := &recordingConsumer{}
	subID, err := hub.Subscribe("lb-1", consumer)
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	hub.Publish(versionedSnapshot("lb-1", 1))
	waitForDeliveries(t, consumer, func(delivered []*ranking.Snapshot) bool {
		return len(delivered) == 1
	})

	if err := hub.Unsubscribe(subID); err != nil {
		t.Fatalf("Unsubscribe error: %v", err)
	}
	hub.Publish(versionedSnapshot("lb-1", 2))

	time.Sleep(20 * time.Millisecond)
	if delivered := consumer.snapshots(); len(delivered) != 1 {
		t.Fatalf("unsubscribed consumer received %d deliveries", len(delivered))
	}

	if err := hub.Unsubscribe(subID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second unsubscribe should be ErrNotFound, got %v", err)
	}
}

func TestBroadcaster_SubscribeValidation(t *testing.T) {
	t.Parallel()

	hub := NewBroadcaster(BroadcasterConfig{}, logging.NewNop())
	defer hub.Close()

	if _, err := hub.Subscribe("", &recordingConsumer{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty leaderboard, got %v", err)
	}
	if _, err := hub.Subscribe("lb-1", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil consumer, got %v", err)
	}
}
