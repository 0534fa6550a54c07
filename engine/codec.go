package engine

import (
	"encoding/json"
	"strconv"
	"strings"

	"prism-backend/models"
)

// TokenSeparator joins the per-choice indices of a share token
const TokenSeparator = "-"

// Encode writes the effective index of every choice in document order.
// Tokens are positional and unversioned: reordering a document's choices
// invalidates tokens shared before the edit.
func Encode(doc models.Document, sel models.Selection) string {
	parts := make([]string, len(doc.Target.Choices))
	for i, c := range doc.Target.Choices {
		parts[i] = strconv.Itoa(Effective(c, sel))
	}
	return strings.Join(parts, TokenSeparator)
}

// Decode reads a token into a selection keyed by segment position.
// Segments that are not integers are skipped; ranges are not checked here.
func Decode(token string) models.Selection {
	sel, _ := DecodeDetailed(token)
	return sel
}

// DecodeDetailed is Decode that also reports the positions it skipped
func DecodeDetailed(token string) (models.Selection, []int) {
	sel := make(models.Selection)
	var skipped []int
	if strings.TrimSpace(token) == "" {
		return sel, nil
	}
	for i, seg := range strings.Split(token, TokenSeparator) {
		idx, err := strconv.Atoi(strings.TrimSpace(seg))
		if err != nil {
			skipped = append(skipped, i)
			continue
		}
		sel[i] = idx
	}
	return sel, skipped
}

// DecodeForDocument decodes a token and rekeys positions onto each choice's line.
// Positions past the document's last choice are dropped.
func DecodeForDocument(doc models.Document, token string) models.Selection {
	byPosition := Decode(token)
	sel := make(models.Selection, len(byPosition))
	for pos, idx := range byPosition {
		if pos < len(doc.Target.Choices) {
			sel[doc.Target.Choices[pos].Line] = idx
		}
	}
	return sel
}

// ParseStored reads a persisted selection. Values written as a JSON line-to-index
// object are read as-is; anything else is treated as a share token.
func ParseStored(doc models.Document, value string) models.Selection {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "{") {
		var sel models.Selection
		if err := json.Unmarshal([]byte(trimmed), &sel); err == nil {
			return sel
		}
		return make(models.Selection)
	}
	return DecodeForDocument(doc, trimmed)
}
