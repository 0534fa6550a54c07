package engine

import (
	"strings"

	"prism-backend/models"
)

// Reading is one witness variant of a line
type Reading struct {
	Index      int               `json:"index"`
	Text       string            `json:"text"`
	Chips      []string          `json:"chips"`
	Philosophy models.Philosophy `json:"philosophy,omitempty"`
	Effective  bool              `json:"effective"`
}

// Analysis returns the space-separated analysis pointers for a reading
func (r Reading) Analysis() string {
	refs := make([]string, 0, len(r.Chips)+1)
	for _, chip := range r.Chips {
		refs = append(refs, "#chip:"+chip)
	}
	if r.Philosophy != "" {
		refs = append(refs, "#phil:"+string(r.Philosophy))
	}
	return strings.Join(refs, " ")
}

// ApparatusLine is the critical-apparatus entry for one choice
type ApparatusLine struct {
	N        int       `json:"n"` // 1-based position in document order
	Line     int       `json:"line"`
	Base     string    `json:"base"`
	Readings []Reading `json:"readings"`
}

// Apparatus lists, in document order, each choice's base reading and every
// variant with the reader's effective one marked.
func Apparatus(doc models.Document, sel models.Selection) []ApparatusLine {
	lines := make([]ApparatusLine, 0, len(doc.Target.Choices))
	for i, c := range doc.Target.Choices {
		if len(c.Alternatives) == 0 {
			continue
		}
		effective := Effective(c, sel)
		entry := ApparatusLine{
			N:        i + 1,
			Line:     c.Line,
			Base:     c.Alternatives[clampIndex(c, c.Selected)].Text,
			Readings: make([]Reading, len(c.Alternatives)),
		}
		for j, alt := range c.Alternatives {
			entry.Readings[j] = Reading{
				Index:      j,
				Text:       alt.Text,
				Chips:      append([]string{}, alt.Chips...),
				Philosophy: alt.Philosophy,
				Effective:  j == effective,
			}
		}
		lines = append(lines, entry)
	}
	return lines
}
