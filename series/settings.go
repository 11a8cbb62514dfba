package series

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Settings is an immutable mapping from option name to value. A stage's
// output is fully determined by its identity, its settings, and its input
// identities, so the canonical Fingerprint is usable as a cache key
// component.
type Settings struct {
	m map[string]any
}

// NewSettings creates a Settings from a map. The map is copied; later
// mutation of the argument does not affect the Settings.
func NewSettings(m map[string]any) Settings {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Settings{m: cp}
}

// Has reports whether the option is present.
func (s Settings) Has(key string) bool {
	_, ok := s.m[key]
	return ok
}

// Len returns the number of options.
func (s Settings) Len() int {
	return len(s.m)
}

// Map returns a copy of the underlying map.
func (s Settings) Map() map[string]any {
	cp := make(map[string]any, len(s.m))
	for k, v := range s.m {
		cp[k] = v
	}
	return cp
}

// With returns a new Settings with one option added or replaced.
func (s Settings) With(key string, value any) Settings {
	cp := s.Map()
	cp[key] = value
	return Settings{m: cp}
}

// String extracts a string option with a default fallback.
func (s Settings) String(key, defaultValue string) string {
	if v, ok := s.m[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return defaultValue
}

// Int extracts an integer option with a default fallback. JSON decoding
// produces float64, so whole floats are accepted.
func (s Settings) Int(key string, defaultValue int) int {
	if v, ok := s.m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			if !math.IsNaN(n) && !math.IsInf(n, 0) && n == math.Trunc(n) {
				return int(n)
			}
		}
	}
	return defaultValue
}

// Bool extracts a boolean option with a default fallback.
func (s Settings) Bool(key string, defaultValue bool) bool {
	if v, ok := s.m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultValue
}

// Float extracts a float64 option with a default fallback.
func (s Settings) Float(key string, defaultValue float64) float64 {
	if v, ok := s.m[key]; ok {
		switch n := v.(type) {
		case float64:
			if !math.IsNaN(n) && !math.IsInf(n, 0) {
				return n
			}
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return defaultValue
}

// Fingerprint returns a canonical representation of the settings: keys
// sorted, values JSON-encoded. Two Settings with equal contents always
// produce the same fingerprint regardless of construction order.
func (s Settings) Fingerprint() string {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		enc, err := json.Marshal(s.m[k])
		if err != nil {
			b.WriteString(fmt.Sprintf("%v", s.m[k]))
		} else {
			b.Write(enc)
		}
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the settings for job transport.
func (s Settings) MarshalJSON() ([]byte, error) {
	if s.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.m)
}

// UnmarshalJSON decodes settings from job transport.
func (s *Settings) UnmarshalJSON(data []byte) error {
	m := make(map[string]any)
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	s.m = m
	return nil
}
