package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0madic/stridecoach/internal/config"
	"github.com/n0madic/stridecoach/internal/types"
)

func testConfig(url string) *config.ServerConfig {
	cfg := config.Defaults()
	cfg.UpstreamURL = url
	cfg.APIKey = "sk-or-test"
	cfg.ChunkTimeout = 0
	return cfg
}

func TestOpenSendsHeadersAndPayload(t *testing.T) {
	var gotHeader http.Header
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"choices\":[]}\n\ndata: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	body, err := c.Open(context.Background(), &Request{
		Model:       "openai/gpt-4o",
		Messages:    []types.ChatMessage{{Role: "user", Content: "hola"}},
		Temperature: types.Float64Ptr(0.7),
		MaxTokens:   1024,
		Tools: []openai.FunctionDefinitionParam{{
			Name:        "get_running_events",
			Description: openai.String("Obtiene eventos"),
		}},
		Reasoning: &types.ReasoningParam{Effort: "medium"},
	})
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Contains(t, string(data), "[DONE]")

	assert.Equal(t, "Bearer sk-or-test", gotHeader.Get("Authorization"))
	assert.Equal(t, config.RefererDefault, gotHeader.Get("HTTP-Referer"))
	assert.Equal(t, config.TitleDefault, gotHeader.Get("X-Title"))
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))

	assert.Equal(t, "openai/gpt-4o", gotBody["model"])
	assert.Equal(t, true, gotBody["stream"])
	assert.Equal(t, 0.7, gotBody["temperature"])
	assert.Equal(t, float64(1024), gotBody["max_tokens"])
	assert.Equal(t, "auto", gotBody["tool_choice"])
	assert.Equal(t, map[string]any{"effort": "medium"}, gotBody["reasoning"])

	tools, ok := gotBody["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "function", tool["type"])
	fn := tool["function"].(map[string]any)
	assert.Equal(t, "get_running_events", fn["name"])
	assert.NotNil(t, fn["parameters"])
}

func TestOpenOmitsToolChoiceWithoutTools(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	body, err := NewClient(testConfig(srv.URL)).Open(context.Background(), &Request{Model: "m"})
	require.NoError(t, err)
	body.Close()

	assert.NotContains(t, gotBody, "tools")
	assert.NotContains(t, gotBody, "tool_choice")
	assert.NotContains(t, gotBody, "reasoning")
	assert.NotContains(t, gotBody, "temperature")
}

func TestOpenNon2xxReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-request-id", "req_42")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"Rate limit exceeded","code":429}}`)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).Open(context.Background(), &Request{Model: "m"})
	require.Error(t, err)

	var ue *Error
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, StatusOf(err))
	assert.Contains(t, err.Error(), "Rate limit exceeded")
	assert.Contains(t, err.Error(), "req_42")
}

func TestOpenIdleTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {\"choices\":[]}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.ChunkTimeout = 50 * time.Millisecond
	body, err := NewClient(cfg).Open(context.Background(), &Request{Model: "m"})
	require.NoError(t, err)
	defer body.Close()

	_, err = io.ReadAll(body)
	assert.ErrorIs(t, err, ErrIdleTimeout)
}

func TestIdleBodyCloseIsIdempotent(t *testing.T) {
	src := &countingCloser{}
	cancelled := 0
	b := newIdleBody(src, time.Minute, func() { cancelled++ })
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 1, cancelled)
}

func TestExtractErrorMessage(t *testing.T) {
	cases := map[string]string{
		`{"error":{"message":"bad key"}}`:  "bad key",
		`{"message":"flat"}`:               "flat",
		`{"error":"plain"}`:                "plain",
		`{"errors":[{"message":"first"}]}`: "first",
		`not json`:                         "",
	}
	for body, want := range cases {
		assert.Equal(t, want, ExtractErrorMessage([]byte(body)), body)
	}
}

type countingCloser struct{ closed int }

func (c *countingCloser) Read([]byte) (int, error) { return 0, io.EOF }
func (c *countingCloser) Close() error { c.closed++; return nil }

func TestCompleteReturnsRawJSON(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"content":"hola"}}]}`)
	}))
	defer srv.Close()

	data, err := NewClient(testConfig(srv.URL)).Complete(context.Background(), &Request{
		Model:      "google/gemini-3-pro-image-preview",
		Messages:   []types.ChatMessage{{Role: "user", Content: "dibuja"}},
		Modalities: []string{"text", "image"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"choices":[{"message":{"content":"hola"}}]}`, string(data))
	assert.Equal(t, false, gotBody["stream"])
	assert.Equal(t, []any{"text", "image"}, gotBody["modalities"])
}

func TestErrorBodyIsKeptWhole(t *testing.T) {
	big := `{"error":{"message":"` + strings.Repeat("x", 100<<10) + `"}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, big)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).Complete(context.Background(), &Request{Model: "m"})
	var ue *Error
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusBadGateway, ue.StatusCode)
	assert.Equal(t, big, string(ue.Body))
}
