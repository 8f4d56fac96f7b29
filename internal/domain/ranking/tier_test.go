package ranking

import "testing"

func TestNewTierTableValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		tiers   []Tier
		wantErr bool
	}{
		{
			name:  "valid contiguous",
			tiers: []Tier{{1, 1, 100}, {2, 2, 50}, {3, 10, 10}},
		},
		{
			name:  "valid with gap",
			tiers: []Tier{{1, 3, 100}, {8, 10, 5}},
		},
		{
			name:  "empty",
			tiers: nil,
		},
		{
			name:    "from before 1",
			tiers:   []Tier{{0, 3, 100}},
			wantErr: true,
		},
		{
			name:    "reversed range",
			tiers:   []Tier{{5, 2, 100}},
			wantErr: true,
		},
		{
			name:    "overlapping",
			tiers:   []Tier{{1, 5, 100}, {4, 8, 50}},
			wantErr: true,
		},
		{
			name:    "unsorted",
			tiers:   []Tier{{5, 8, 50}, {1, 3, 100}},
			wantErr: true,
		},
		{
			name:    "negative reward",
			tiers:   []Tier{{1, 1, -5}},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewTierTable(tc.tiers)
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRewardForResolvesTiers(t *testing.T) {
	t.Parallel()

	table, err := NewTierTable([]Tier{{1, 1, 100}, {2, 2, 50}, {3, 10, 10}})
	if err != nil {
		t.Fatalf("NewTierTable: %v", err)
	}

	cases := map[int]int64{
		1:  100,
		2:  50,
		3:  10,
		7:  10,
		10: 10,
		11: 0,
		99: 0,
		0:  0,
		-4: 0,
	}
	for position, want := range cases {
		if got := table.RewardFor(position); got != want {
			t.Fatalf("RewardFor(%d)=%d, expected %d", position, got, want)
		}
	}
}

func TestRewardForGapPaysZero(t *testing.T) {
	t.Parallel()

	table, err := NewTierTable([]Tier{{1, 1, 100}, {5, 6, 10}})
	if err != nil {
		t.Fatalf("NewTierTable: %v", err)
	}

	if got := table.RewardFor(3); got != 0 {
		t.Fatalf("position in gap should pay zero, got %d", got)
	}
	if got := table.RewardFor(5); got != 10 {
		t.Fatalf("RewardFor(5)=%d, expected 10", got)
	}
}

func TestRewardNonIncreasingByPosition(t *testing.T) {
	t.Parallel()

	table, err := NewTierTable([]Tier{{1, 1, 100}, {2, 2, 50}, {3, 10, 10}})
	if err != nil {
		t.Fatalf("NewTierTable: %v", err)
	}

	prev := table.RewardFor(1)
	for position := 2; position <= 20; position++ {
		current := table.RewardFor(position)
		if current > prev {
			t.Fatalf("reward increased from %d to %d at position %d", prev, current, position)
		}
		prev = current
	}
}
