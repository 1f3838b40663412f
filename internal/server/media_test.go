package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0madic/stridecoach/internal/config"
)

const visionCompletion = `{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"Un corredor en una pista"}}]}`

func TestVisionSendsImagePartsAndReturnsCompletion(t *testing.T) {
	env := newTestEnv(t, fakeResponse{body: visionCompletion})

	resp := env.do(t, http.MethodPost, "/api/vision", map[string]any{"imageBase64": "QUJD"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeResponse[map[string]any](t, resp)
	assert.Equal(t, "gen-1", out["id"])

	req := env.upstream.request(0)
	assert.Equal(t, config.DefaultModel, req["model"])
	assert.Equal(t, false, req["stream"])
	assert.NotContains(t, req, "tools")
	assert.NotContains(t, req, "modalities")
	assert.Empty(t, env.upstream.header(0).Get("Accept"))

	msgs := req["messages"].([]any)
	require.Len(t, msgs, 1)
	parts := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, map[string]any{"type": "text", "text": defaultVisionPrompt}, parts[0])
	assert.Equal(t, map[string]any{"type": "image_url", "image_url": map[string]any{"url": "data:image/jpeg;base64,QUJD"}}, parts[1])
}

func TestVisionUsesImageURLAndRequestedModel(t *testing.T) {
	env := newTestEnv(t, fakeResponse{body: visionCompletion})

	resp := env.do(t, http.MethodPost, "/api/vision", map[string]any{
		"imageUrl": "https://example.com/run.jpg",
		"prompt":   "¿Qué zapatillas lleva?",
		"model":    "anthropic/claude-sonnet-4",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req := env.upstream.request(0)
	assert.Equal(t, "anthropic/claude-sonnet-4", req["model"])
	parts := req["messages"].([]any)[0].(map[string]any)["content"].([]any)
	assert.Equal(t, "¿Qué zapatillas lleva?", parts[0].(map[string]any)["text"])
	assert.Equal(t, "https://example.com/run.jpg", parts[1].(map[string]any)["image_url"].(map[string]any)["url"])
}

func TestVisionRequiresImage(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/vision", map[string]any{"prompt": "hola"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, env.upstream.calls())
}

func TestVisionUpstreamErrorBodyPassesThrough(t *testing.T) {
	const upstreamBody = `{"error":{"message":"Model does not support images","code":400}}`
	env := newTestEnv(t, fakeResponse{status: http.StatusBadRequest, body: upstreamBody})

	resp := env.do(t, http.MethodPost, "/api/vision", map[string]any{"imageUrl": "https://example.com/a.png"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeResponse[map[string]string](t, resp)
	assert.Equal(t, upstreamBody, out["error"])
}

func TestImageGenerationFromPrompt(t *testing.T) {
	env := newTestEnv(t, fakeResponse{body: `{"choices":[{"message":{"content":"Aquí está","images":[{"type":"image_url","image_url":{"url":"data:image/png;base64,iVBOR"}}]}}]}`})

	resp := env.do(t, http.MethodPost, "/api/image-generation", map[string]any{"prompt": "Un corredor al amanecer"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeResponse[map[string][]map[string]string](t, resp)
	assert.Equal(t, "data:image/png;base64,iVBOR", out["data"][0]["url"])

	req := env.upstream.request(0)
	assert.Equal(t, config.ImageModelDefault, req["model"])
	assert.Equal(t, []any{"text", "image"}, req["modalities"])
	msg := req["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "Un corredor al amanecer", msg["content"])
}

func TestImageGenerationEditsSourceImage(t *testing.T) {
	env := newTestEnv(t, fakeResponse{body: `{"choices":[{"message":{"content":[{"type":"image_url","image_url":{"url":"https://cdn.example/edit.png"}}]}}]}`})

	resp := env.do(t, http.MethodPost, "/api/image-generation", map[string]any{"prompt": "Cambia el fondo", "sourceImage": "QUJD"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeResponse[map[string][]map[string]string](t, resp)
	assert.Equal(t, "https://cdn.example/edit.png", out["data"][0]["url"])

	parts := env.upstream.request(0)["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "image_url", parts[0].(map[string]any)["type"])
	assert.Equal(t, "Cambia el fondo", parts[1].(map[string]any)["text"])
}

func TestImageGenerationWithoutImage(t *testing.T) {
	env := newTestEnv(t, fakeResponse{body: `{"choices":[{"message":{"content":"No puedo generar imágenes"}}]}`})

	resp := env.do(t, http.MethodPost, "/api/image-generation", map[string]any{"prompt": "Un corredor"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeResponse[map[string]any](t, resp)
	assert.Equal(t, "No se generó imagen", out["error"])
	debug := out["debug"].(map[string]any)
	assert.Equal(t, "No puedo generar imágenes", debug["content"])
	assert.Nil(t, debug["images"])
}

func TestImageGenerationRequiresPrompt(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/image-generation", map[string]any{"prompt": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, env.upstream.calls())
}

func TestExtractImageURL(t *testing.T) {
	cases := []struct {
		name       string
		completion string
		want       string
	}{
		{"images field", `{"choices":[{"message":{"images":[{"image_url":{"url":"https://a/1.png"}}],"content":"data:image/png;base64,AAAA"}}]}`, "https://a/1.png"},
		{"image part", `{"choices":[{"message":{"content":[{"type":"text","text":"hola"},{"type":"image_url","image_url":{"url":"https://a/2.png"}}]}}]}`, "https://a/2.png"},
		{"inline data", `{"choices":[{"message":{"content":[{"inline_data":{"mime_type":"image/webp","data":"UklGR"}}]}}]}`, "data:image/webp;base64,UklGR"},
		{"inline data default mime", `{"choices":[{"message":{"content":[{"inline_data":{"data":"iVBOR"}}]}}]}`, "data:image/png;base64,iVBOR"},
		{"data url in text", `{"choices":[{"message":{"content":"Listo: data:image/jpeg;base64,/9j/4A== disfruta"}}]}`, "data:image/jpeg;base64,/9j/4A=="},
		{"nothing", `{"choices":[{"message":{"content":"sin imagen"}}]}`, ""},
		{"no choices", `{"choices":[]}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractImageURL([]byte(tc.completion))
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want != "", ok)
		})
	}
}

func TestGeneratedImagesEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/images", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeResponse[[]map[string]any](t, resp))

	resp = env.do(t, http.MethodPost, "/api/images", map[string]any{"prompt": "p1", "model": "m", "imageUrl": "https://a/1.png"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeResponse[map[string]any](t, resp)
	assert.NotEmpty(t, first["id"])
	resp = env.do(t, http.MethodPost, "/api/images", map[string]any{"prompt": "p2", "model": "m", "imageUrl": "https://a/2.png"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/images", nil)
	list := decodeResponse[[]map[string]any](t, resp)
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[0]["prompt"])
	assert.Equal(t, "p1", list[1]["prompt"])

	resp = env.do(t, http.MethodPost, "/api/images", map[string]any{"prompt": "p3"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVisionHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/vision-history", map[string]any{
		"imageUrl": "https://a/run.jpg",
		"prompt":   "¿Qué ves?",
		"model":    "openai/gpt-4o",
		"response": "Un corredor",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	saved := decodeResponse[map[string]any](t, resp)
	assert.Equal(t, "Un corredor", saved["response"])

	resp = env.do(t, http.MethodGet, "/api/vision-history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeResponse[[]map[string]any](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, saved["id"], list[0]["id"])
	assert.Equal(t, "¿Qué ves?", list[0]["prompt"])

	resp = env.do(t, http.MethodPost, "/api/vision-history", map[string]any{"imageUrl": "https://a/run.jpg"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
