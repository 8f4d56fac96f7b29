package ranking

import (
	"math/rand/v2"
	"time"
)

const (
	skipListMaxLevel = 32
	skipListP        = 0.25
)

// Entry is a single ranked player inside an index.
type Entry struct {
	PlayerID      string
	Score         int64
	FirstScoredAt time.Time
}

// precedes reports whether e ranks strictly ahead of other.
// Ordering: higher score first, then earlier first score, then player id.
func (e Entry) precedes(other Entry) bool {
	if e.Score != other.Score {
		return e.Score > other.Score
	}
	if !e.FirstScoredAt.Equal(other.FirstScoredAt) {
		return e.FirstScoredAt.Before(other.FirstScoredAt)
	}
	return e.PlayerID < other.PlayerID
}

func (e Entry) equals(other Entry) bool {
	return e.PlayerID == other.PlayerID &&
		e.Score == other.Score &&
		e.FirstScoredAt.Equal(other.FirstScoredAt)
}

type skipListLevel struct {
	next *skipListNode
	span int
}

type skipListNode struct {
	entry  Entry
	levels []skipListLevel
}

// skipList is an order-statistics skip list: each forward pointer
// carries the number of positions it jumps, so rank queries and
// rank-indexed lookups stay O(log n).
type skipList struct {
	head   *skipListNode
	level  int
	length int
}

func newSkipList() *skipList {
	return &skipList{
		head: &skipListNode{
			levels: make([]skipListLevel, skipListMaxLevel),
		},
		level: 1,
	}
}

func randomLevel() int {
	level := 1
	for level < skipListMaxLevel && rand.Float64() < skipListP {
		level++
	}
	return level
}

func (sl *skipList) insert(e Entry) {
	update := make([]*skipListNode, skipListMaxLevel)
	rank := make([]int, skipListMaxLevel)

	node := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		if i == sl.level-1 {
			rank[i] = 0
		} else {
			rank[i] = rank[i+1]
		}
		for node.levels[i].next != nil && node.levels[i].next.entry.precedes(e) {
			rank[i] += node.levels[i].span
			node = node.levels[i].next
		}
		update[i] = node
	}

	level := randomLevel()
	if level > sl.level {
		for i := sl.level; i < level; i++ {
			rank[i] = 0
			update[i] = sl.head
			update[i].levels[i].span = sl.length
		}
		sl.level = level
	}

	inserted := &skipListNode{
		entry:  e,
		levels: make([]skipListLevel, level),
	}
	for i := 0; i < level; i++ {
		inserted.levels[i].next = update[i].levels[i].next
		update[i].levels[i].next = inserted

		inserted.levels[i].span = update[i].levels[i].span - (rank[0] - rank[i])
		update[i].levels[i].span = (rank[0] - rank[i]) + 1
	}
	for i := level; i < sl.level; i++ {
		update[i].levels[i].span++
	}

	sl.length++
}

func (sl *skipList) delete(e Entry) bool {
	update := make([]*skipListNode, skipListMaxLevel)

	node := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for node.levels[i].next != nil && node.levels[i].next.entry.precedes(e) {
			node = node.levels[i].next
		}
		update[i] = node
	}

	target := node.levels[0].next
	if target == nil || !target.entry.equals(e) {
		return false
	}

	for i := 0; i < sl.level; i++ {
		if update[i].levels[i].next == target {
			update[i].levels[i].span += target.levels[i].span - 1
			update[i].levels[i].next = target.levels[i].next
		} else {
			update[i].levels[i].span--
		}
	}
	for sl.level > 1 && sl.head.levels[sl.level-1].next == nil {
		sl.level--
	}

	sl.length--
	return true
}

// rank returns the 1-based position of e, or 0 when absent.
func (sl *skipList) rank(e Entry) int {
	node := sl.head
	traversed := 0
	for i := sl.level - 1; i >= 0; i-- {
		for node.levels[i].next != nil && node.levels[i].next.entry.precedes(e) {
			traversed += node.levels[i].span
			node = node.levels[i].next
		}
	}

	candidate := node.levels[0].next
	if candidate == nil || !candidate.entry.equals(e) {
		return 0
	}
	return traversed + 1
}

// byRank returns the node at the given 1-based position.
func (sl *skipList) byRank(position int) *skipListNode {
	if position < 1 || position > sl.length {
		return nil
	}

	node := sl.head
	traversed := 0
	for i := sl.level - 1; i >= 0; i-- {
		for node.levels[i].next != nil && traversed+node.levels[i].span <= position {
			traversed += node.levels[i].span
			node = node.levels[i].next
		}
		if traversed == position && node != sl.head {
			return node
		}
	}
	return nil
}

// rangeByRank copies entries between the 1-based positions start and
// end inclusive, already clamped by the caller.
func (sl *skipList) rangeByRank(start, end int) []Entry {
	if start < 1 {
		start = 1
	}
	if end > sl.length {
		end = sl.length
	}
	if start > end {
		return nil
	}

	node := sl.byRank(start)
	out := make([]Entry, 0, end-start+1)
	for position := start; position <= end && node != nil; position++ {
		out = append(out, node.entry)
		node = node.levels[0].next
	}
	return out
}
