package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/n0madic/stridecoach/internal/reasoning"
	"github.com/n0madic/stridecoach/internal/relay"
	"github.com/n0madic/stridecoach/internal/types"
	"github.com/n0madic/stridecoach/internal/upstream"
)

// chatMode configures one streaming endpoint.
type chatMode struct {
	name               string
	tools              bool
	forwardReasoning   bool
	defaultTemperature float64
}

var (
	plainChat = chatMode{name: "chat", forwardReasoning: true, defaultTemperature: 1}
	coachChat = chatMode{name: "running-chat", tools: true, defaultTemperature: 0.7}
)

// handleChat handles POST /api/chat: no tools, reasoning deltas relayed.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.serveChat(w, r, plainChat)
}

// handleRunningChat handles POST /api/running-chat with the coach tools.
func (s *Server) handleRunningChat(w http.ResponseWriter, r *http.Request) {
	s.serveChat(w, r, coachChat)
}

func (s *Server) serveChat(w http.ResponseWriter, r *http.Request, mode chatMode) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req types.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must be a non-empty array")
		return
	}

	upReq := s.upstreamRequest(&req, mode)

	rl := relay.Relay{
		Upstream:         s.upstream,
		ForwardReasoning: mode.forwardReasoning || req.Reasoning,
	}
	if mode.tools {
		rl.Tools = s.tools
	}

	if s.Config.Verbose {
		slog.Info("chat.request",
			"endpoint", mode.name,
			"request_id", middleware.GetReqID(r.Context()),
			"model", upReq.Model,
			"messages", len(upReq.Messages),
			"tools", rl.Tools.Len(),
			"reasoning", upReq.Reasoning != nil,
		)
	}

	ctx := r.Context()
	if s.Config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Config.RequestTimeout)
		defer cancel()
	}

	turn, err := rl.Open(ctx, upReq)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	defer turn.Close()

	turn.Stream(ctx, relay.NewWriter(w))

	if s.Config.Verbose {
		slog.Info("chat.finished", "endpoint", mode.name, "trace", turn.Trace())
	}
}

func (s *Server) upstreamRequest(req *types.ChatRequest, mode chatMode) upstream.Request {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = s.Config.DefaultModel
	}
	temperature := req.Temperature
	if temperature == nil {
		temperature = types.Float64Ptr(mode.defaultTemperature)
	}
	out := upstream.Request{
		Model:       model,
		Messages:    req.Messages,
		Temperature: temperature,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	out.Reasoning = reasoning.BuildParam(s.Config.ReasoningEffort, req.Reasoning)
	return out
}
