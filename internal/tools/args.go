package tools

import (
	"strconv"
	"strings"

	"github.com/n0madic/stridecoach/internal/types"
)

// stringArg reads a free-text argument. Numbers and booleans are rendered as
// text; JSON null reports present with a nil value.
func stringArg(args map[string]any, key string) (val *string, present bool) {
	raw, ok := args[key]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case nil:
		return nil, true
	case string:
		return &v, true
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return &s, true
	case bool:
		s := strconv.FormatBool(v)
		return &s, true
	}
	return nil, false
}

// numberArg reads a numeric argument, accepting numeric strings.
func numberArg(args map[string]any, key string) (val *float64, present bool) {
	raw, ok := args[key]
	if !ok {
		return nil, false
	}
	if raw == nil {
		return nil, true
	}
	f, ok := types.FloatFromAny(raw)
	if !ok {
		return nil, false
	}
	return &f, true
}

// textArg returns a trimmed non-empty string argument or "".
func textArg(args map[string]any, key string) string {
	if v, ok := stringArg(args, key); ok && v != nil {
		return strings.TrimSpace(*v)
	}
	return ""
}

// optionalText returns a non-empty string argument as a pointer, nil otherwise.
func optionalText(args map[string]any, key string) *string {
	if s := textArg(args, key); s != "" {
		return &s
	}
	return nil
}
