package models

import (
	"database/sql/driver"
	"encoding/json"
	"strconv"
)

// Selection is the reader's sparse override map from target line to alternative index.
// Lines without an entry fall back to the choice's Selected index.
type Selection map[int]int

// Clone returns an independent copy
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Has reports whether the reader picked something for line
func (s Selection) Has(line int) bool {
	_, ok := s[line]
	return ok
}

// Merge returns s overlaid with override; override wins per line
func (s Selection) Merge(override Selection) Selection {
	out := s.Clone()
	for k, v := range override {
		out[k] = v
	}
	return out
}

// MarshalJSON writes the selection as {"line": index}
func (s Selection) MarshalJSON() ([]byte, error) {
	raw := make(map[string]int, len(s))
	for k, v := range s {
		raw[strconv.Itoa(k)] = v
	}
	return json.Marshal(raw)
}

// UnmarshalJSON reads {"line": index}, skipping keys that are not integers
func (s *Selection) UnmarshalJSON(data []byte) error {
	var raw map[string]json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Selection, len(raw))
	for k, v := range raw {
		line, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		idx, err := strconv.Atoi(v.String())
		if err != nil {
			continue
		}
		out[line] = idx
	}
	*s = out
	return nil
}

// Value implements driver.Valuer for JSONB
func (s Selection) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return s.MarshalJSON()
}

// Scan implements sql.Scanner for JSONB
func (s *Selection) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*s = make(Selection)
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*s = make(Selection)
		return nil
	}

	if len(bytes) == 0 {
		*s = make(Selection)
		return nil
	}

	return s.UnmarshalJSON(bytes)
}

// Strategies is the set of active strategy axes used for ranking
type Strategies struct {
	Literal      bool `json:"literal"`
	Natural      bool `json:"natural"`
	Foreignizing bool `json:"foreignizing"`
}

// Enabled reports whether an axis is active
func (s Strategies) Enabled(axis StrategyAxis) bool {
	switch axis {
	case AxisLiteral:
		return s.Literal
	case AxisNatural:
		return s.Natural
	case AxisForeignizing:
		return s.Foreignizing
	default:
		return false
	}
}

// Any reports whether at least one axis is active
func (s Strategies) Any() bool {
	return s.Literal || s.Natural || s.Foreignizing
}
