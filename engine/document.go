// Package engine holds the alternative-selection and consequence-propagation logic.
//
// Every function here is pure: it reads a loaded models.Document and a
// models.Selection and never performs I/O or takes locks, so it can be called
// repeatedly from request handlers without coordination.
package engine

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"prism-backend/models"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of a document source
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

var validate = validator.New()

// FormatFromFilename picks a Format from a file extension
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ParseDocument decodes a raw document. It does not validate; call Sanitize on the result.
func ParseDocument(data []byte, format Format) (models.Document, error) {
	var doc models.Document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return models.Document{}, fmt.Errorf("decode json document: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return models.Document{}, fmt.Errorf("decode yaml document: %w", err)
		}
	default:
		return models.Document{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return doc, nil
}

// Anomaly describes something wrong in a document that was repaired or skipped
type Anomaly struct {
	Line    int    `json:"line"` // -1 when not tied to a line
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (a Anomaly) String() string {
	if a.Line < 0 {
		return fmt.Sprintf("%s: %s", a.Field, a.Message)
	}
	return fmt.Sprintf("line %d %s: %s", a.Line, a.Field, a.Message)
}

// Sanitize returns a copy of doc that the rest of the engine can trust, plus every
// anomaly found. A choice that cannot be used is dropped so the remaining lines still
// render. Alternatives are never dropped because share tokens address them by index.
func Sanitize(doc models.Document) (models.Document, []Anomaly) {
	var anomalies []Anomaly
	surfaceCount := len(doc.Target.SurfaceLines)

	out := models.Document{
		Meta: doc.Meta,
		Source: models.Source{
			Lines: append([]models.SourceLine(nil), doc.Source.Lines...),
		},
		Target: models.Target{
			SurfaceLines: append([]string(nil), doc.Target.SurfaceLines...),
			Choices:      make([]models.Choice, 0, len(doc.Target.Choices)),
		},
	}

	if doc.Target.Choices == nil {
		anomalies = append(anomalies, Anomaly{Line: -1, Field: "target.choices", Message: "missing"})
		return out, anomalies
	}

	seen := make(map[int]bool, len(doc.Target.Choices))
	for _, c := range doc.Target.Choices {
		if c.Line < 0 || c.Line >= surfaceCount {
			anomalies = append(anomalies, Anomaly{Line: c.Line, Field: "line",
				Message: fmt.Sprintf("references no surface line (have %d)", surfaceCount)})
			continue
		}
		if len(c.Alternatives) == 0 {
			anomalies = append(anomalies, Anomaly{Line: c.Line, Field: "alternatives", Message: "empty"})
			continue
		}
		if seen[c.Line] {
			anomalies = append(anomalies, Anomaly{Line: c.Line, Field: "line", Message: "duplicate choice, later one ignored"})
			continue
		}
		seen[c.Line] = true

		clean := models.Choice{
			Line:         c.Line,
			Selected:     c.Selected,
			Stakes:       c.Stakes,
			Alternatives: make([]models.Alternative, len(c.Alternatives)),
		}
		if c.Selected < 0 || c.Selected >= len(c.Alternatives) {
			anomalies = append(anomalies, Anomaly{Line: c.Line, Field: "selected",
				Message: fmt.Sprintf("index %d out of range, using 0", c.Selected)})
			clean.Selected = 0
		}

		for i, alt := range c.Alternatives {
			fixed, problems := sanitizeAlternative(alt)
			for _, p := range problems {
				anomalies = append(anomalies, Anomaly{Line: c.Line,
					Field: fmt.Sprintf("alternatives[%d].%s", i, p.field), Message: p.message})
			}
			clean.Alternatives[i] = fixed
		}

		for _, dep := range c.Dependencies {
			if dep.AffectsLine < 0 || dep.AffectsLine >= surfaceCount {
				anomalies = append(anomalies, Anomaly{Line: c.Line, Field: "dependencies",
					Message: fmt.Sprintf("affectsLine %d references no surface line", dep.AffectsLine)})
				continue
			}
			clean.Dependencies = append(clean.Dependencies, dep)
		}

		out.Target.Choices = append(out.Target.Choices, clean)
	}

	return out, anomalies
}

type fieldProblem struct {
	field   string
	message string
}

func sanitizeAlternative(alt models.Alternative) (models.Alternative, []fieldProblem) {
	var problems []fieldProblem
	if err := validate.Struct(alt); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fieldProblem{
					field:   fe.Field(),
					message: fmt.Sprintf("failed %q rule (value %v)", fe.Tag(), fe.Value()),
				})
			}
		} else {
			problems = append(problems, fieldProblem{field: "*", message: err.Error()})
		}
	}

	fixed := alt
	fixed.Chips = append([]string(nil), alt.Chips...)
	if alt.Weights != nil {
		fixed.Weights = make(map[models.StrategyAxis]float64, len(alt.Weights))
		for _, axis := range models.StrategyAxes {
			w, ok := alt.Weights[axis]
			if !ok {
				continue
			}
			fixed.Weights[axis] = clamp01(w)
		}
	}
	switch alt.Philosophy {
	case "", models.PhilosophyForeignizing, models.PhilosophyDomesticating:
	default:
		fixed.Philosophy = ""
	}
	switch alt.SemanticDistance {
	case "", models.DistanceLow, models.DistanceMedium, models.DistanceHigh:
	default:
		fixed.SemanticDistance = models.DistanceMedium
	}
	if alt.ReaderCount != nil {
		n := *alt.ReaderCount
		if n < 0 {
			fixed.ReaderCount = nil
		} else {
			fixed.ReaderCount = &n
		}
	}
	return fixed, problems
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Fingerprint hashes the canonical JSON form of a document. Shared tokens and
// persisted selections are only meaningful against the document that produced them.
func Fingerprint(doc models.Document) (string, error) {
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	sum := blake2b.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
