package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/n0madic/stridecoach/internal/store"
	"github.com/n0madic/stridecoach/internal/types"
	"github.com/n0madic/stridecoach/internal/upstream"
)

const defaultVisionPrompt = "Describe esta imagen en detalle."

var dataURLPattern = regexp.MustCompile(`data:image/[^;]+;base64,[A-Za-z0-9+/=]+`)

type visionRequest struct {
	ImageURL    string `json:"imageUrl"`
	ImageBase64 string `json:"imageBase64"`
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
}

// handleVision handles POST /api/vision. The upstream completion JSON is
// returned unchanged.
func (s *Server) handleVision(w http.ResponseWriter, r *http.Request) {
	var req visionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	image := strings.TrimSpace(req.ImageURL)
	if b64 := strings.TrimSpace(req.ImageBase64); b64 != "" {
		image = "data:image/jpeg;base64," + b64
	}
	if image == "" {
		writeError(w, http.StatusBadRequest, "imageUrl o imageBase64 requerido")
		return
	}
	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultVisionPrompt
	}

	upReq := &upstream.Request{
		Model: firstModel(req.Model, s.Config.DefaultModel),
		Messages: []types.ChatMessage{{
			Role: "user",
			Content: []types.ContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &types.ImageURL{URL: image}},
			},
		}},
	}
	data, ok := s.complete(w, r, upReq, "Error al procesar la imagen")
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Debug("response.write.failed", "error", err)
	}
}

type imageGenerationRequest struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	SourceImage string `json:"sourceImage"`
}

// handleImageGeneration handles POST /api/image-generation. With a
// sourceImage the model is asked to edit it; otherwise to draw from the
// prompt alone.
func (s *Server) handleImageGeneration(w http.ResponseWriter, r *http.Request) {
	var req imageGenerationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt requerido")
		return
	}

	var content any = req.Prompt
	if src := strings.TrimSpace(req.SourceImage); src != "" {
		content = []types.ContentPart{
			{Type: "image_url", ImageURL: &types.ImageURL{URL: "data:image/jpeg;base64," + src}},
			{Type: "text", Text: req.Prompt},
		}
	}
	upReq := &upstream.Request{
		Model:      firstModel(req.Model, s.Config.ImageModel),
		Messages:   []types.ChatMessage{{Role: "user", Content: content}},
		Modalities: []string{"text", "image"},
	}
	data, ok := s.complete(w, r, upReq, "Error al generar la imagen")
	if !ok {
		return
	}

	url, found := extractImageURL(data)
	if !found {
		message := gjson.GetBytes(data, "choices.0.message")
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "No se generó imagen",
			"debug": map[string]any{
				"images":  rawOrNil(message.Get("images")),
				"content": rawOrNil(message.Get("content")),
			},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]string{{"url": url}}})
}

// complete runs a non-streaming upstream call and writes the error response
// itself on failure.
func (s *Server) complete(w http.ResponseWriter, r *http.Request, req *upstream.Request, fallback string) ([]byte, bool) {
	ctx := r.Context()
	if s.Config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Config.RequestTimeout)
		defer cancel()
	}
	data, err := s.upstream.Complete(ctx, req)
	if err != nil {
		var ue *upstream.Error
		if errors.As(err, &ue) {
			writeUpstreamError(w, err)
			return nil, false
		}
		slog.Error("upstream.complete.failed", "model", req.Model, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
		return nil, false
	}
	if !gjson.ValidBytes(data) {
		slog.Error("upstream.complete.invalid", "model", req.Model, "bytes", len(data))
		writeError(w, http.StatusInternalServerError, fallback)
		return nil, false
	}
	return data, true
}

// extractImageURL finds the first generated image in a completion. It looks
// at message.images, then image parts of an array content, then a data URL
// embedded in text content.
func extractImageURL(completion []byte) (string, bool) {
	message := gjson.GetBytes(completion, "choices.0.message")
	if url := message.Get("images.0.image_url.url").String(); url != "" {
		return url, true
	}

	content := message.Get("content")
	if content.IsArray() {
		var found string
		content.ForEach(func(_, part gjson.Result) bool {
			if part.Get("type").String() == "image_url" {
				if url := part.Get("image_url.url").String(); url != "" {
					found = url
					return false
				}
			}
			if data := part.Get("inline_data.data").String(); data != "" {
				mime := part.Get("inline_data.mime_type").String()
				if mime == "" {
					mime = "image/png"
				}
				found = "data:" + mime + ";base64," + data
				return false
			}
			return true
		})
		return found, found != ""
	}

	if content.Type == gjson.String {
		if m := dataURLPattern.FindString(content.String()); m != "" {
			return m, true
		}
	}
	return "", false
}

func rawOrNil(v gjson.Result) json.RawMessage {
	if !v.Exists() {
		return nil
	}
	return json.RawMessage(v.Raw)
}

func firstModel(requested, fallback string) string {
	if m := strings.TrimSpace(requested); m != "" {
		return m
	}
	return fallback
}

func (s *Server) listGeneratedImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.Store.ListGeneratedImages(r.Context())
	if err != nil {
		writeStoreError(w, err, "", "Error al obtener imágenes")
		return
	}
	writeJSON(w, http.StatusOK, images)
}

func (s *Server) saveGeneratedImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt   string `json:"prompt"`
		Model    string `json:"model"`
		ImageURL string `json:"imageUrl"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	img, err := s.Store.SaveGeneratedImage(r.Context(), store.GeneratedImage{
		Prompt:   body.Prompt,
		Model:    body.Model,
		ImageURL: body.ImageURL,
	})
	if err != nil {
		writeStoreError(w, err, "", "Error al guardar imagen")
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) listVisionAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.Store.ListVisionAnalyses(r.Context())
	if err != nil {
		writeStoreError(w, err, "", "Error al obtener historial")
		return
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (s *Server) saveVisionAnalysis(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ImageURL string  `json:"imageUrl"`
		Prompt   *string `json:"prompt"`
		Model    string  `json:"model"`
		Response string  `json:"response"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	a, err := s.Store.SaveVisionAnalysis(r.Context(), store.VisionAnalysis{
		ImageURL: body.ImageURL,
		Prompt:   body.Prompt,
		Model:    body.Model,
		Response: body.Response,
	})
	if err != nil {
		writeStoreError(w, err, "", "Error al guardar análisis")
		return
	}
	writeJSON(w, http.StatusOK, a)
}
