package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/n0madic/stridecoach/internal/store"
)

type conversationDetail struct {
	*store.Conversation
	Messages []store.Message `json:"messages"`
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.Store.ListConversations(r.Context())
	if err != nil {
		writeStoreError(w, err, "", "Error al obtener conversaciones")
		return
	}
	if convs == nil {
		convs = []store.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
		Model string `json:"model"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	model := strings.TrimSpace(body.Model)
	if model == "" {
		model = s.Config.DefaultModel
	}
	conv, err := s.Store.CreateConversation(r.Context(), body.Title, model)
	if err != nil {
		writeStoreError(w, err, "", "Error al crear conversación")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "ID requerido")
		return
	}
	if err := s.Store.DeleteConversation(r.Context(), id); err != nil {
		writeStoreError(w, err, "Conversación no encontrada", "Error al eliminar conversación")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	conv, msgs, err := s.Store.GetConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "Conversación no encontrada", "Error al obtener conversación")
		return
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	writeJSON(w, http.StatusOK, conversationDetail{Conversation: conv, Messages: msgs})
}

func (s *Server) renameConversation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	conv, err := s.Store.RenameConversation(r.Context(), chi.URLParam(r, "id"), body.Title)
	if err != nil {
		writeStoreError(w, err, "Conversación no encontrada", "Error al actualizar conversación")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) appendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	switch body.Role {
	case "user", "assistant", "system":
	default:
		writeError(w, http.StatusBadRequest, "role must be user, assistant or system")
		return
	}
	msg, err := s.Store.AppendMessage(r.Context(), chi.URLParam(r, "id"), body.Role, body.Content)
	if err != nil {
		writeStoreError(w, err, "Conversación no encontrada", "Error al agregar mensaje")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := readBody(w, r)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
