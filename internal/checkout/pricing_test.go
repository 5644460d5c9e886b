package checkout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	tier, err := ParseTier("STANDARD")
	require.NoError(t, err)
	require.Equal(t, TierStandard, tier)

	_, err = ParseTier("PLATINUM")
	require.Error(t, err)
}

func TestTotalPrice(t *testing.T) {
	// Three standard lines with the multiplier: 3x5 + 3x1.
	total, err := TotalPrice(TierStandard, 3, true)
	require.NoError(t, err)
	require.InDelta(t, 18.00, total, 0.001)

	// Two syndicate lines, no multiplier.
	total, err = TotalPrice(TierSyndicate, 2, false)
	require.NoError(t, err)
	require.InDelta(t, 30.00, total, 0.001)

	total, err = TotalPrice(TierBundle, 2, false)
	require.NoError(t, err)
	require.InDelta(t, 25.00, total, 0.001)

	total, err = TotalPrice(TierStandard, 0, true)
	require.NoError(t, err)
	require.Zero(t, total)

	_, err = TotalPrice(Tier("PLATINUM"), 1, false)
	require.Error(t, err)
}

func TestCompleteLines(t *testing.T) {
	lines := []Line{
		{Main: []int{1, 2, 3, 4, 5}, Bonus: []int{1}},       // complete
		{Main: []int{1, 2, 3}, Bonus: []int{1}},             // too few mains
		{Main: []int{1, 2, 3, 4, 5}, Bonus: nil},            // missing bonus
		{Main: []int{1, 2, 3, 4, 0}, Bonus: []int{1}},       // zero is not a pick
		{Main: []int{9, 8, 7, 6, 5}, Bonus: []int{2}},       // complete
		{Main: []int{1, 2, 3, 4, 5, 6}, Bonus: []int{1}},    // too many mains
		{Main: []int{1, 2, 3, 4, 5}, Bonus: []int{1, 2}},    // too many bonuses
	}
	require.Equal(t, 2, CompleteLines(lines, 5, 1))
	require.Equal(t, 0, CompleteLines(nil, 5, 1))
}
