package engine

import (
	"math"

	"prism-backend/models"
)

// AxisPair is a pair of opposed axes as rounded percentages
type AxisPair struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Balance is the document-wide strategy mix of the current reading
type Balance struct {
	LiteralNatural            AxisPair `json:"literal_natural"`
	ForeignizingDomesticating AxisPair `json:"foreignizing_domesticating"`
	Lines                     int      `json:"lines"`
}

// AxisBalance averages the weights of every effective alternative over all lines
// that have one. Domesticating is the proxy 1 - foreignizing. An alternative with
// no weights at all counts as 0 on every axis, domesticating included; with no
// lines counted every value is 0.
func AxisBalance(doc models.Document, sel models.Selection) Balance {
	var literal, natural, foreign, domestic float64
	count := 0
	for _, c := range doc.Target.Choices {
		alt, ok := EffectiveAlternative(c, sel)
		if !ok {
			continue
		}
		count++
		if len(alt.Weights) == 0 {
			continue
		}
		literal += alt.Weight(models.AxisLiteral)
		natural += alt.Weight(models.AxisNatural)
		f := alt.Weight(models.AxisForeignizing)
		foreign += f
		domestic += 1 - f
	}

	return Balance{
		LiteralNatural:            AxisPair{Left: percent(literal, count), Right: percent(natural, count)},
		ForeignizingDomesticating: AxisPair{Left: percent(foreign, count), Right: percent(domestic, count)},
		Lines:                     count,
	}
}

func percent(total float64, count int) int {
	if count == 0 {
		return 0
	}
	return int(math.Round(total / float64(count) * 100))
}
