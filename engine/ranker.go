package engine

import (
	"math"
	"sort"

	"prism-backend/models"
)

// DefaultReaderTotal is the notional reader population behind readerCount
const DefaultReaderTotal = 1000

// Score sums an alternative's weights over the active axes
func Score(alt models.Alternative, active models.Strategies) float64 {
	var s float64
	for _, axis := range models.StrategyAxes {
		if active.Enabled(axis) {
			s += alt.Weight(axis)
		}
	}
	return s
}

// Ranked is an alternative with its authored index and score
type Ranked struct {
	Alternative models.Alternative `json:"alternative"`
	Index       int                `json:"index"`
	Score       float64            `json:"score"`
}

// Rank orders a choice's alternatives by descending score.
// Ties keep authored order, which matters when no strategy is active and every score is 0.
func Rank(c models.Choice, active models.Strategies) []Ranked {
	ranked := make([]Ranked, len(c.Alternatives))
	for i, alt := range c.Alternatives {
		ranked[i] = Ranked{Alternative: alt, Index: i, Score: Score(alt, active)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// ResolveAll picks the best alternative for every choice under the active strategies.
// The first maximal score wins. The result covers every choice and ignores any
// prior selection.
func ResolveAll(doc models.Document, active models.Strategies) models.Selection {
	sel := make(models.Selection, len(doc.Target.Choices))
	for _, c := range doc.Target.Choices {
		best, bestScore := 0, math.Inf(-1)
		for i, alt := range c.Alternatives {
			if s := Score(alt, active); s > bestScore {
				best, bestScore = i, s
			}
		}
		sel[c.Line] = best
	}
	return sel
}

// ReaderShare returns the rounded percentage of readers who chose alt.
// ok is false when there is nothing to show.
func ReaderShare(alt models.Alternative, totalReaders int) (percent int, ok bool) {
	if alt.ReaderCount == nil || *alt.ReaderCount <= 0 || totalReaders <= 0 {
		return 0, false
	}
	return int(math.Round(float64(*alt.ReaderCount) / float64(totalReaders) * 100)), true
}

// Option is one row of the alternatives popover
type Option struct {
	Index            int                     `json:"index"`
	Text             string                  `json:"text"`
	Score            float64                 `json:"score"`
	Chosen           bool                    `json:"chosen"`
	Chips            []string                `json:"chips"`
	Note             string                  `json:"note,omitempty"`
	Bucket           string                  `json:"bucket,omitempty"`
	Philosophy       models.Philosophy       `json:"philosophy,omitempty"`
	SemanticDistance models.SemanticDistance `json:"semantic_distance"`
	ReaderPercent    *int                    `json:"reader_percent,omitempty"`
}

// Popover ranks a choice's alternatives and decorates them for display.
// Buckets are revealed only once the reader has picked something on this line.
func Popover(c models.Choice, sel models.Selection, active models.Strategies, totalReaders int) []Option {
	chosen := Effective(c, sel)
	picked := sel.Has(c.Line)

	ranked := Rank(c, active)
	opts := make([]Option, 0, len(ranked))
	for _, r := range ranked {
		opt := Option{
			Index:            r.Index,
			Text:             r.Alternative.Text,
			Score:            r.Score,
			Chosen:           r.Index == chosen,
			Chips:            append([]string{}, r.Alternative.Chips...),
			Note:             r.Alternative.Note,
			Philosophy:       r.Alternative.Philosophy,
			SemanticDistance: r.Alternative.Distance(),
		}
		if picked {
			opt.Bucket = r.Alternative.Bucket
		}
		if pct, ok := ReaderShare(r.Alternative, totalReaders); ok {
			opt.ReaderPercent = &pct
		}
		opts = append(opts, opt)
	}
	return opts
}
