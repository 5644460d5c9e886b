// Package checkout owns the active order: pricing, mounting exactly one
// payment session at a time, and turning a successful session into a
// ticket.
package checkout

import "fmt"

// Tier is the ticket pricing tier.
type Tier string

const (
	TierStandard  Tier = "STANDARD"
	TierSyndicate Tier = "SYNDICATE"
	TierBundle    Tier = "BUNDLE"
)

// MultiplierPerLine is the optional add-on price per line.
const MultiplierPerLine = 1.00

// PricePerLine returns the base USD price for one line of the tier.
func (t Tier) PricePerLine() (float64, error) {
	switch t {
	case TierStandard:
		return 5.00, nil
	case TierSyndicate:
		return 15.00, nil
	case TierBundle:
		return 12.50, nil
	}
	return 0, fmt.Errorf("checkout: unknown tier %q", t)
}

// ParseTier maps a wire string to a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	switch t {
	case TierStandard, TierSyndicate, TierBundle:
		return t, nil
	}
	return "", fmt.Errorf("checkout: unknown tier %q", s)
}

// Line is one set of picked numbers.
type Line struct {
	Main  []int `json:"main"`
	Bonus []int `json:"bonus"`
}

// Complete reports whether the line has a full, plausible selection for a
// game drawing mainCount main numbers and bonusCount bonus numbers.
func (l Line) Complete(mainCount, bonusCount int) bool {
	if len(l.Main) != mainCount || len(l.Bonus) != bonusCount {
		return false
	}
	for _, n := range l.Main {
		if n < 1 {
			return false
		}
	}
	for _, n := range l.Bonus {
		if n < 1 {
			return false
		}
	}
	return true
}

// CompleteLines counts the fully specified lines.
func CompleteLines(lines []Line, mainCount, bonusCount int) int {
	complete := 0
	for _, l := range lines {
		if l.Complete(mainCount, bonusCount) {
			complete++
		}
	}
	return complete
}

// TotalPrice computes the USD order total for a count of complete lines.
func TotalPrice(tier Tier, lines int, multiplier bool) (float64, error) {
	base, err := tier.PricePerLine()
	if err != nil {
		return 0, err
	}
	total := float64(lines) * base
	if multiplier {
		total += float64(lines) * MultiplierPerLine
	}
	return total, nil
}
