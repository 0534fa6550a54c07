package models

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// StrategyAxis is one of the fixed translation strategy axes
type StrategyAxis string

const (
	AxisLiteral      StrategyAxis = "literal"
	AxisNatural      StrategyAxis = "natural"
	AxisForeignizing StrategyAxis = "foreignizing"
)

// StrategyAxes lists every axis in canonical order
var StrategyAxes = []StrategyAxis{AxisLiteral, AxisNatural, AxisForeignizing}

// Philosophy is the display-only classification of an alternative
type Philosophy string

const (
	PhilosophyForeignizing  Philosophy = "foreignizing"
	PhilosophyDomesticating Philosophy = "domesticating"
)

// SemanticDistance estimates how far an alternative departs from the default rendering
type SemanticDistance string

const (
	DistanceLow    SemanticDistance = "low"
	DistanceMedium SemanticDistance = "medium"
	DistanceHigh   SemanticDistance = "high"
)

// SourceLine is one line of the source text
type SourceLine struct {
	Text            string `json:"text" yaml:"text"`
	Transliteration string `json:"transliteration" yaml:"transliteration"`
}

// UnmarshalJSON accepts the legacy "pinyin" key as the transliteration
func (l *SourceLine) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text            string `json:"text"`
		Transliteration string `json:"transliteration"`
		Pinyin          string `json:"pinyin"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.Text = raw.Text
	l.Transliteration = raw.Transliteration
	if l.Transliteration == "" {
		l.Transliteration = raw.Pinyin
	}
	return nil
}

// UnmarshalYAML accepts the legacy "pinyin" key as the transliteration
func (l *SourceLine) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Text            string `yaml:"text"`
		Transliteration string `yaml:"transliteration"`
		Pinyin          string `yaml:"pinyin"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	l.Text = raw.Text
	l.Transliteration = raw.Transliteration
	if l.Transliteration == "" {
		l.Transliteration = raw.Pinyin
	}
	return nil
}

// Alternative is one candidate rendering of a target line
type Alternative struct {
	Text             string                   `json:"text" yaml:"text" validate:"required"`
	Weights          map[StrategyAxis]float64 `json:"weights,omitempty" yaml:"weights,omitempty" validate:"omitempty,dive,keys,oneof=literal natural foreignizing,endkeys,gte=0,lte=1"`
	Chips            []string                 `json:"chips,omitempty" yaml:"chips,omitempty"`
	Note             string                   `json:"note,omitempty" yaml:"note,omitempty"`
	Bucket           string                   `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Philosophy       Philosophy               `json:"philosophy,omitempty" yaml:"philosophy,omitempty" validate:"omitempty,oneof=foreignizing domesticating"`
	SemanticDistance SemanticDistance         `json:"semanticDistance,omitempty" yaml:"semanticDistance,omitempty" validate:"omitempty,oneof=low medium high"`
	ReaderCount      *int                     `json:"readerCount,omitempty" yaml:"readerCount,omitempty" validate:"omitempty,gte=0"`
}

// Weight returns the authored weight for an axis, 0 when missing
func (a Alternative) Weight(axis StrategyAxis) float64 {
	return a.Weights[axis]
}

// Distance returns the semantic distance, defaulting to medium
func (a Alternative) Distance() SemanticDistance {
	if a.SemanticDistance == "" {
		return DistanceMedium
	}
	return a.SemanticDistance
}

// Dependency declares that changing a line shifts an effect on another line
type Dependency struct {
	AffectsLine int     `json:"affectsLine" yaml:"affectsLine"`
	Delta       float64 `json:"delta" yaml:"delta"`
}

// Choice is the candidate set for one target line
type Choice struct {
	Line         int           `json:"line" yaml:"line"`
	Alternatives []Alternative `json:"alternatives" yaml:"alternatives"`
	Selected     int           `json:"selected" yaml:"selected"`
	Dependencies []Dependency  `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Stakes       string        `json:"stakes,omitempty" yaml:"stakes,omitempty"`
}

// DocumentMeta identifies a document
type DocumentMeta struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
}

// Source holds the source text
type Source struct {
	Lines []SourceLine `json:"lines" yaml:"lines"`
}

// Target holds the default renderings and the per-line candidate sets
type Target struct {
	SurfaceLines []string `json:"surfaceLines" yaml:"surfaceLines"`
	Choices      []Choice `json:"choices" yaml:"choices"`
}

// Document is the immutable source text plus its candidate translations
type Document struct {
	Meta   DocumentMeta `json:"meta" yaml:"meta"`
	Source Source       `json:"source" yaml:"source"`
	Target Target       `json:"target" yaml:"target"`
}

// ChoiceFor returns the choice for a target line
func (d *Document) ChoiceFor(line int) (Choice, bool) {
	for _, c := range d.Target.Choices {
		if c.Line == line {
			return c, true
		}
	}
	return Choice{}, false
}
