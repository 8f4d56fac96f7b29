package ranking

import "fmt"

// Tier maps an inclusive position range to a fixed reward amount in
// whole currency units.
type Tier struct {
	FromPosition int
	ToPosition   int
	Reward       int64
}

// TierTable is an ordered, non-overlapping set of reward tiers.
type TierTable struct {
	tiers []Tier
}

// NewTierTable validates and freezes a tier configuration. Tiers must
// be sorted by position, contiguous ranges are not required.
func NewTierTable(tiers []Tier) (TierTable, error) {
	prevEnd := 0
	for i, t := range tiers {
		if t.FromPosition < 1 {
			return TierTable{}, fmt.Errorf("tier %d: from position must be >= 1", i)
		}
		if t.ToPosition < t.FromPosition {
			return TierTable{}, fmt.Errorf("tier %d: to position %d before from position %d", i, t.ToPosition, t.FromPosition)
		}
		if t.FromPosition <= prevEnd {
			return TierTable{}, fmt.Errorf("tier %d: overlaps previous tier ending at %d", i, prevEnd)
		}
		if t.Reward < 0 {
			return TierTable{}, fmt.Errorf("tier %d: reward must not be negative", i)
		}
		prevEnd = t.ToPosition
	}

	frozen := make([]Tier, len(tiers))
	copy(frozen, tiers)
	return TierTable{tiers: frozen}, nil
}

// RewardFor resolves the reward for a 1-based position. Positions
// beyond the last tier, or in a gap between tiers, pay zero.
func (tt TierTable) RewardFor(position int) int64 {
	if position < 1 {
		return 0
	}

	lo, hi := 0, len(tt.tiers)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		t := tt.tiers[mid]
		switch {
		case position < t.FromPosition:
			hi = mid - 1
		case position > t.ToPosition:
			lo = mid + 1
		default:
			return t.Reward
		}
	}
	return 0
}

// Tiers returns a copy of the underlying configuration.
func (tt TierTable) Tiers() []Tier {
	out := make([]Tier, len(tt.tiers))
	copy(out, tt.tiers)
	return out
}

func (tt TierTable) Len() int {
	return len(tt.tiers)
}
