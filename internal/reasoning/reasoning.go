// Package reasoning builds the upstream reasoning control object.
package reasoning

import (
	"strings"

	"github.com/n0madic/stridecoach/internal/types"
)

// DefaultEffort is used when the configured effort is unknown.
const DefaultEffort = "medium"

// Efforts lists the accepted reasoning effort levels.
var Efforts = []string{"minimal", "low", "medium", "high", "xhigh"}

// ValidEffort reports whether effort is one of Efforts.
func ValidEffort(effort string) bool {
	effort = strings.ToLower(strings.TrimSpace(effort))
	for _, e := range Efforts {
		if e == effort {
			return true
		}
	}
	return false
}

// BuildParam returns the reasoning object for a request, or nil when the
// client did not ask for reasoning.
func BuildParam(effort string, enabled bool) *types.ReasoningParam {
	if !enabled {
		return nil
	}
	effort = strings.ToLower(strings.TrimSpace(effort))
	if !ValidEffort(effort) {
		effort = DefaultEffort
	}
	return &types.ReasoningParam{Effort: effort}
}
