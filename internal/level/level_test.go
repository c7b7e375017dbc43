package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForScore_BandEdges(t *testing.T) {
	tests := []struct {
		score float64
		title string
		tier  int
	}{
		{0, "Intern", 0},
		{999, "Intern", 0},
		{1000, "Junior", 1},
		{2999, "Junior", 1},
		{3000, "Mid-Level", 2},
		{5999, "Mid-Level", 2},
		{6000, "Senior", 3},
		{9999, "Senior", 3},
		{10000, "Lead", 4},
		{19999, "Lead", 4},
		{20000, "Principal", 5},
		{49999, "Principal", 5},
		{50000, "Executive", 6},
		{1000000, "Executive", 6},
	}

	for _, tt := range tests {
		got := ForScore(tt.score)
		assert.Equal(t, tt.title, got.Title, "score %v", tt.score)
		assert.Equal(t, tt.tier, got.Tier, "score %v", tt.score)
	}
}

func TestForScore_FractionalAndNegative(t *testing.T) {
	assert.Equal(t, "Intern", ForScore(999.9).Title)
	assert.Equal(t, "Junior", ForScore(1000.0).Title)

	// Decay floors score at 0, but a negative input still maps to a tier.
	assert.Equal(t, "Intern", ForScore(-50).Title)
}

func TestForScore_TiersAreContiguous(t *testing.T) {
	// Every score lands in exactly one tier and tiers are non-decreasing.
	prev := -1
	for s := 0.0; s <= 60000; s += 100 {
		l := ForScore(s)
		assert.GreaterOrEqual(t, l.Tier, prev)
		assert.LessOrEqual(t, l.Tier-prev, 1)
		prev = l.Tier
	}
	assert.Equal(t, 6, prev)
}
