package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/n0madic/stridecoach/internal/store"
	"github.com/n0madic/stridecoach/internal/types"
	"github.com/n0madic/stridecoach/internal/upstream"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response.encode.failed", "error", err)
	}
}

// writeError writes a {"error": message} response.
func writeError(w http.ResponseWriter, status int, message string) {
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", message)
	} else {
		slog.Debug("request rejected", "status", status, "error", message)
	}
	writeJSON(w, status, types.ErrorResponse{Error: message})
}

// writeUpstreamError reports a failed upstream call. An upstream HTTP error
// keeps its status and passes its body through as the error text; anything
// else is a 500.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var ue *upstream.Error
	if errors.As(err, &ue) {
		slog.Warn("upstream.failed", "status", ue.StatusCode, "error", ue.Error())
		writeJSON(w, ue.StatusCode, types.ErrorResponse{Error: string(ue.Body)})
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// writeStoreError maps store errors to HTTP statuses. fallback is the
// message sent for unexpected failures.
func writeStoreError(w http.ResponseWriter, err error, notFound, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("store.failed", "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
