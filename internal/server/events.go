package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/n0madic/stridecoach/internal/store"
	"github.com/n0madic/stridecoach/internal/tools"
)

// listRunningEvents returns all events ordered by date, or one month's when
// both year and month are given.
func (s *Server) listRunningEvents(w http.ResponseWriter, r *http.Request) {
	var q store.EventQuery
	year := strings.TrimSpace(r.URL.Query().Get("year"))
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if year != "" && month != "" {
		start, end, err := monthRange(year, month)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		q.StartDate, q.EndDate = start, end
	}

	events, err := s.Store.QueryEvents(r.Context(), q)
	if err != nil {
		writeStoreError(w, err, "", "Error al obtener eventos")
		return
	}
	if events == nil {
		events = []store.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// monthRange returns the inclusive YYYY-MM-01..YYYY-MM-31 bounds. Dates are
// compared as strings, so day 31 covers every month.
func monthRange(year, month string) (string, string, error) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 || y > 9999 {
		return "", "", fmt.Errorf("invalid year %q", year)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", "", fmt.Errorf("invalid month %q", month)
	}
	prefix := fmt.Sprintf("%04d-%02d", y, m)
	return prefix + "-01", prefix + "-31", nil
}

func (s *Server) createRunningEvent(w http.ResponseWriter, r *http.Request) {
	var args map[string]any
	if !decodeBody(w, r, &args) {
		return
	}
	ev := tools.EventFromArgs(args)
	ev.ID = ""
	created, err := s.Store.CreateEvent(r.Context(), ev)
	if err != nil {
		writeStoreError(w, err, "", "Error al crear evento")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) updateRunningEvent(w http.ResponseWriter, r *http.Request) {
	var args map[string]any
	if !decodeBody(w, r, &args) {
		return
	}
	ev := tools.EventFromArgs(args)
	if ev.ID == "" {
		writeError(w, http.StatusBadRequest, "ID requerido")
		return
	}
	updated, err := s.Store.UpdateEvent(r.Context(), ev)
	if err != nil {
		writeStoreError(w, err, "Evento no encontrado", "Error al actualizar evento")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteRunningEvent(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "ID requerido")
		return
	}
	if err := s.Store.DeleteEvent(r.Context(), id); err != nil {
		writeStoreError(w, err, "Evento no encontrado", "Error al eliminar evento")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
