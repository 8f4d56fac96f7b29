package ranking

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var (
	// ErrInvalidDelta rejects non-positive score deltas. Scores only
	// grow; corrections arrive as fresh compensating events upstream.
	ErrInvalidDelta = errors.New("delta must be positive")
	// ErrOverflow signals that applying a delta would wrap the int64 score.
	ErrOverflow = errors.New("score overflow")
	// ErrCorrupted signals that the index internals disagree with each
	// other and the structure must be rebuilt from the event log.
	ErrCorrupted = errors.New("index corrupted")
)

// Index is the live per-leaderboard ranking structure. Scores are
// mutated through deltas only; positions are derived, never stored.
// All methods are safe for concurrent use, writes are expected to come
// from a single goroutine.
type Index struct {
	mu      sync.RWMutex
	list    *skipList
	players map[string]Entry
}

func NewIndex() *Index {
	return &Index{
		list:    newSkipList(),
		players: make(map[string]Entry),
	}
}

// ApplyDelta adds delta to the player's score, inserting the player on
// first sight. The at timestamp becomes the player's first-score time
// when the player is new; it never changes afterwards. Returns the new
// 1-based position. Locate, remove, reinsert: no full re-sort.
func (ix *Index) ApplyDelta(playerID string, delta int64, at time.Time) (int, error) {
	if playerID == "" {
		return 0, fmt.Errorf("player id is required")
	}
	if delta <= 0 {
		return 0, fmt.Errorf("%w: player=%s delta=%d", ErrInvalidDelta, playerID, delta)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	current, exists := ix.players[playerID]
	if !exists {
		e := Entry{
			PlayerID:      playerID,
			Score:         delta,
			FirstScoredAt: at.UTC(),
		}
		ix.list.insert(e)
		ix.players[playerID] = e
		return ix.list.rank(e), nil
	}

	if current.Score > math.MaxInt64-delta {
		return 0, fmt.Errorf("%w: player=%s score=%d delta=%d", ErrOverflow, playerID, current.Score, delta)
	}

	if !ix.list.delete(current) {
		return 0, fmt.Errorf("%w: player=%s missing from list", ErrCorrupted, playerID)
	}
	next := current
	next.Score += delta
	ix.list.insert(next)
	ix.players[playerID] = next

	return ix.list.rank(next), nil
}

// Rank returns the player's 1-based position and entry.
func (ix *Index) Rank(playerID string) (int, Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	e, ok := ix.players[playerID]
	if !ok {
		return 0, Entry{}, false
	}
	position := ix.list.rank(e)
	if position == 0 {
		return 0, Entry{}, false
	}
	return position, e, true
}

// RangeByRank returns entries between the 1-based positions start and
// end inclusive, clamped to the index bounds.
func (ix *Index) RangeByRank(start, end int) []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return ix.list.rangeByRank(start, end)
}

// ContextWindow returns the entries surrounding the player, radius
// positions on each side clamped to [1, Len], plus the 1-based
// position of the first returned entry.
func (ix *Index) ContextWindow(playerID string, radius int) ([]Entry, int, bool) {
	if radius < 0 {
		radius = 0
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	e, ok := ix.players[playerID]
	if !ok {
		return nil, 0, false
	}
	position := ix.list.rank(e)
	if position == 0 {
		return nil, 0, false
	}

	start := position - radius
	if start < 1 {
		start = 1
	}
	end := position + radius
	if end > ix.list.length {
		end = ix.list.length
	}

	return ix.list.rangeByRank(start, end), start, true
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return ix.list.length
}

// Reset drops every entry, used before a rebuild from the event log.
func (ix *Index) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.list = newSkipList()
	ix.players = make(map[string]Entry)
}

// Verify cross-checks the list against the player map: the walk from
// the front must visit every registered player exactly once, strictly
// ordered. Any disagreement returns ErrCorrupted.
func (ix *Index) Verify() error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.list.length != len(ix.players) {
		return fmt.Errorf("%w: list length=%d players=%d", ErrCorrupted, ix.list.length, len(ix.players))
	}

	seen := 0
	var prev *Entry
	for node := ix.list.head.levels[0].next; node != nil; node = node.levels[0].next {
		stored, ok := ix.players[node.entry.PlayerID]
		if !ok || !stored.equals(node.entry) {
			return fmt.Errorf("%w: player=%s diverged", ErrCorrupted, node.entry.PlayerID)
		}
		if prev != nil && !prev.precedes(node.entry) {
			return fmt.Errorf("%w: ordering broken at player=%s", ErrCorrupted, node.entry.PlayerID)
		}
		e := node.entry
		prev = &e
		seen++
	}
	if seen != ix.list.length {
		return fmt.Errorf("%w: walked=%d length=%d", ErrCorrupted, seen, ix.list.length)
	}

	return nil
}
