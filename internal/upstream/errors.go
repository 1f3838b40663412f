package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Error represents a failed upstream request with error details.
type Error struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

func (e *Error) Error() string {
	return FormatError(e.StatusCode, e.Body, e.Headers)
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}

// FormatError formats an error from the upstream response, including a
// request ID when one was returned.
func FormatError(statusCode int, rawBody []byte, headers http.Header) string {
	status := fmt.Sprintf("%d", statusCode)
	if text := http.StatusText(statusCode); text != "" {
		status = fmt.Sprintf("%d %s", statusCode, text)
	}
	var msg string
	if m := ExtractErrorMessage(rawBody); m != "" {
		msg = fmt.Sprintf("Upstream returned HTTP %s: %s", status, m)
	} else if preview := compactBodyPreview(rawBody, 280); preview != "" {
		msg = fmt.Sprintf("Upstream returned HTTP %s with unparsed body: %s", status, preview)
	} else {
		msg = fmt.Sprintf("Upstream returned HTTP %s with empty error body", status)
	}
	if reqID := upstreamRequestID(headers); reqID != "" {
		msg = fmt.Sprintf("%s (request_id: %s)", msg, reqID)
	}
	return msg
}

// ExtractErrorMessage pulls the human-readable message out of an upstream
// error body. OpenRouter nests it under error.message; other providers use
// a flat message or a string error.
func ExtractErrorMessage(rawBody []byte) string {
	if !gjson.ValidBytes(rawBody) {
		return ""
	}
	for _, path := range []string{"error.message", "message", "detail", "error_description", "error", "errors.0.message", "errors.0"} {
		v := gjson.GetBytes(rawBody, path)
		if v.Type == gjson.String {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

func compactBodyPreview(rawBody []byte, limit int) string {
	s := strings.Join(strings.Fields(string(rawBody)), " ")
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
