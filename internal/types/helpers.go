package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// Float64Ptr returns a pointer to the given float64.
func Float64Ptr(f float64) *float64 {
	return &f
}

// FloatFromAny converts a JSON-decoded value to float64. Numeric strings are
// accepted.
func FloatFromAny(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// IntFromAny converts a JSON-decoded numeric value to int.
func IntFromAny(v any) (int, bool) {
	f, ok := FloatFromAny(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// MessageText returns the plain-text content of a chat message, joining the
// text parts of a multimodal content list.
func MessageText(m ChatMessage) string {
	switch c := m.Content.(type) {
	case string:
		return c
	case []any:
		var parts []string
		for _, p := range c {
			pm, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if t, _ := pm["type"].(string); t == "text" {
				if s, _ := pm["text"].(string); s != "" {
					parts = append(parts, s)
				}
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}
