package server

import (
	"net/http"
	"strings"

	"github.com/n0madic/stridecoach/internal/store"
	"github.com/n0madic/stridecoach/internal/tools"
)

// getRunnerProfile returns the profile, creating an empty one on first use.
func (s *Server) getRunnerProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.Store.GetOrCreateRunnerProfile(r.Context())
	if err != nil {
		writeStoreError(w, err, "", "Error al obtener perfil")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// putRunnerProfile overwrites every field present in the body. Unlike the
// save_runner_profile tool, additionalInfo is replaced, not merged.
func (s *Server) putRunnerProfile(w http.ResponseWriter, r *http.Request) {
	var args map[string]any
	if !decodeBody(w, r, &args) {
		return
	}
	upd := tools.ProfileUpdateFromArgs(args)
	if raw, present := args["additionalInfo"]; present {
		info, _ := raw.(map[string]any)
		if info == nil {
			info = map[string]any{}
		}
		upd.MergeInfo = nil
		upd.ReplaceInfo = info
	}

	var (
		p   *store.Profile
		err error
	)
	if upd.Empty() {
		p, err = s.Store.GetOrCreateRunnerProfile(r.Context())
	} else {
		p, err = s.Store.UpsertRunnerProfile(r.Context(), upd)
	}
	if err != nil {
		writeStoreError(w, err, "", "Error al actualizar perfil")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// patchRunnerProfile appends to the coach notes.
func (s *Server) patchRunnerProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CoachNotes string `json:"coachNotes"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.CoachNotes) == "" {
		writeError(w, http.StatusBadRequest, "coachNotes requerido")
		return
	}
	p, err := s.Store.AppendCoachNotes(r.Context(), body.CoachNotes)
	if err != nil {
		writeStoreError(w, err, "", "Error al actualizar notas")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
