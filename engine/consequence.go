package engine

import (
	"fmt"
	"math"

	"prism-backend/models"
)

// EmphasisDiff lists the chips a swap gained and lost
type EmphasisDiff struct {
	Gained []string `json:"gained"`
	Lost   []string `json:"lost"`
}

// DiffEmphasis compares the chips of two alternatives of the same choice.
// Output keeps each alternative's authored chip order. Out-of-range indices resolve
// to the choice's default.
func DiffEmphasis(c models.Choice, from, to int) EmphasisDiff {
	if len(c.Alternatives) == 0 {
		return EmphasisDiff{Gained: []string{}, Lost: []string{}}
	}
	fromChips := c.Alternatives[clampIndex(c, from)].Chips
	toChips := c.Alternatives[clampIndex(c, to)].Chips
	return EmphasisDiff{
		Gained: without(toChips, fromChips),
		Lost:   without(fromChips, toChips),
	}
}

func without(chips, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, r := range remove {
		drop[r] = true
	}
	out := make([]string, 0, len(chips))
	for _, chip := range chips {
		if !drop[chip] {
			out = append(out, chip)
		}
	}
	return out
}

// Direction says whether a ripple strengthens or weakens its target line
type Direction string

const (
	Strengthen Direction = "strengthen"
	Weaken     Direction = "weaken"
)

// Ripple is the effect of one declared dependency
type Ripple struct {
	FromLine    int       `json:"from_line"`
	AffectsLine int       `json:"affects_line"`
	Direction   Direction `json:"direction"`
	Magnitude   float64   `json:"magnitude"`
	Message     string    `json:"message"`
}

// Propagate fans a pick on fromLine out to every line it declares a dependency on.
// Deltas are constant per dependency: toIndex does not change the result.
func Propagate(doc models.Document, fromLine, toIndex int) []Ripple {
	c, ok := doc.ChoiceFor(fromLine)
	if !ok {
		return nil
	}
	ripples := make([]Ripple, 0, len(c.Dependencies))
	for _, dep := range c.Dependencies {
		dir, verb := Strengthen, "strengthened"
		if dep.Delta < 0 {
			dir, verb = Weaken, "weakened"
		}
		ripples = append(ripples, Ripple{
			FromLine:    fromLine,
			AffectsLine: dep.AffectsLine,
			Direction:   dir,
			Magnitude:   math.Abs(dep.Delta),
			Message:     fmt.Sprintf("Parallelism %s by line %d choice", verb, fromLine+1),
		})
	}
	return ripples
}

// ImpactLabel turns an alternative's semantic distance into a display label
func ImpactLabel(alt models.Alternative) string {
	switch alt.Distance() {
	case models.DistanceHigh:
		return "Major shift"
	case models.DistanceLow:
		return "Subtle change"
	default:
		return "Moderate change"
	}
}
