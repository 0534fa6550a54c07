package engine

import (
	"prism-backend/models"
)

// Effective resolves the alternative index in force for a choice: the reader's
// override when it is in range, otherwise the document default.
func Effective(c models.Choice, sel models.Selection) int {
	if idx, ok := sel[c.Line]; ok && idx >= 0 && idx < len(c.Alternatives) {
		return idx
	}
	return clampIndex(c, c.Selected)
}

// EffectiveAlternative returns the alternative in force for a choice
func EffectiveAlternative(c models.Choice, sel models.Selection) (models.Alternative, bool) {
	if len(c.Alternatives) == 0 {
		return models.Alternative{}, false
	}
	return c.Alternatives[Effective(c, sel)], true
}

// clampIndex maps an out-of-range index onto the choice's default
func clampIndex(c models.Choice, idx int) int {
	if idx >= 0 && idx < len(c.Alternatives) {
		return idx
	}
	if c.Selected >= 0 && c.Selected < len(c.Alternatives) {
		return c.Selected
	}
	return 0
}

// InRange reports whether idx addresses an alternative of c
func InRange(c models.Choice, idx int) bool {
	return idx >= 0 && idx < len(c.Alternatives)
}

// Normalize drops entries that address no choice or are out of range.
// Used before persisting so that stored state only holds dereferenceable picks.
func Normalize(doc models.Document, sel models.Selection) models.Selection {
	out := make(models.Selection, len(sel))
	for _, c := range doc.Target.Choices {
		if idx, ok := sel[c.Line]; ok && InRange(c, idx) {
			out[c.Line] = idx
		}
	}
	return out
}

// Surface returns the target lines with every choice's effective text substituted in
func Surface(doc models.Document, sel models.Selection) []string {
	lines := append([]string(nil), doc.Target.SurfaceLines...)
	for _, c := range doc.Target.Choices {
		if c.Line < 0 || c.Line >= len(lines) {
			continue
		}
		if alt, ok := EffectiveAlternative(c, sel); ok {
			lines[c.Line] = alt.Text
		}
	}
	return lines
}

// Comparison pairs the default rendering of each choice with the reader's current one
type Comparison struct {
	Original []string `json:"original"`
	Current  []string `json:"current"`
}

// Compare builds a Comparison in document order
func Compare(doc models.Document, sel models.Selection) Comparison {
	out := Comparison{
		Original: make([]string, 0, len(doc.Target.Choices)),
		Current:  make([]string, 0, len(doc.Target.Choices)),
	}
	for _, c := range doc.Target.Choices {
		if len(c.Alternatives) == 0 {
			continue
		}
		out.Original = append(out.Original, c.Alternatives[clampIndex(c, c.Selected)].Text)
		out.Current = append(out.Current, c.Alternatives[Effective(c, sel)].Text)
	}
	return out
}
