package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"golang.org/x/oauth2"

	"github.com/n0madic/stridecoach/internal/config"
	"github.com/n0madic/stridecoach/internal/types"
)

// Request holds the parameters for one streaming chat-completion call.
type Request struct {
	Model       string
	Messages    []types.ChatMessage
	Temperature *float64
	MaxTokens   int
	Tools       []openai.FunctionDefinitionParam
	Reasoning   *types.ReasoningParam
	// Modalities requests extra output kinds, e.g. ["text", "image"].
	Modalities []string
}

// payload is the JSON body sent upstream.
type payload struct {
	Model       string                                `json:"model"`
	Messages    []types.ChatMessage                   `json:"messages"`
	Stream      bool                                  `json:"stream"`
	Temperature *float64                              `json:"temperature,omitempty"`
	MaxTokens   int                                   `json:"max_tokens,omitempty"`
	Tools       []openai.ChatCompletionToolUnionParam `json:"tools,omitempty"`
	ToolChoice  string                                `json:"tool_choice,omitempty"`
	Reasoning   *types.ReasoningParam                 `json:"reasoning,omitempty"`
	Modalities  []string                              `json:"modalities,omitempty"`
}

// Client opens streaming chat-completion requests against an
// OpenAI-compatible upstream.
type Client struct {
	URL          string
	Referer      string
	Title        string
	ChunkTimeout time.Duration
	Verbose      bool
	Debug        bool

	httpClient *http.Client
}

// NewClient creates a client that authenticates with cfg.APIKey as a bearer token.
func NewClient(cfg *config.ServerConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.RequestTimeout})
}

// NewClientWithHTTP is NewClient with a caller-supplied base HTTP client. The
// client's transport is wrapped so every request carries the API key.
func NewClientWithHTTP(cfg *config.ServerConfig, base *http.Client) *Client {
	hc := *base
	hc.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"}),
		Base:   base.Transport,
	}
	return &Client{
		URL:          cfg.UpstreamURL,
		Referer:      cfg.Referer,
		Title:        cfg.Title,
		ChunkTimeout: cfg.ChunkTimeout,
		Verbose:      cfg.Verbose,
		Debug:        cfg.Debug,
		httpClient:   &hc,
	}
}

// Open sends req with streaming enabled and returns the response body. The
// caller must close the body. A non-2xx status is returned as *Error.
func (c *Client) Open(ctx context.Context, req *Request) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	resp, err := c.send(ctx, req, true)
	if err != nil {
		cancel()
		return nil, err
	}
	c.dumpUpstreamResponse(resp)
	return newIdleBody(resp.Body, c.ChunkTimeout, cancel), nil
}

// Complete sends req without streaming and returns the raw completion JSON.
// A non-2xx status is returned as *Error.
func (c *Client) Complete(ctx context.Context, req *Request) ([]byte, error) {
	resp, err := c.send(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	if c.Debug {
		DumpBlock(fmt.Sprintf("UPSTREAM RESPONSE BODY status=%d", resp.StatusCode), data)
	}
	return data, nil
}

// send posts the payload and returns a 2xx response.
func (c *Client) send(ctx context.Context, req *Request, stream bool) (*http.Response, error) {
	p := payload{
		Model:       req.Model,
		Messages:    req.Messages,
		Stream:      stream,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Reasoning:   req.Reasoning,
		Modalities:  req.Modalities,
	}
	if len(req.Tools) > 0 {
		p.Tools = toolsToSDK(req.Tools)
		p.ToolChoice = "auto"
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	if c.Verbose {
		effort := ""
		if p.Reasoning != nil {
			effort = p.Reasoning.Effort
		}
		slog.Info("upstream.request",
			"model", p.Model,
			"stream", stream,
			"messages", len(p.Messages),
			"tools", len(p.Tools),
			"max_tokens", p.MaxTokens,
			"reasoning_effort", effort,
		)
	}
	if c.Debug {
		DumpBlock("UPSTREAM REQUEST BODY", body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if c.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.Referer)
	}
	if c.Title != "" {
		httpReq.Header.Set("X-Title", c.Title)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	if c.Verbose {
		attrs := []any{"status", resp.StatusCode}
		if id := upstreamRequestID(resp.Header); id != "" {
			attrs = append(attrs, "request_id", id)
		}
		slog.Info("upstream.response", attrs...)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		ue := &Error{StatusCode: resp.StatusCode, Body: errBody, Headers: resp.Header}
		if readErr != nil {
			slog.Warn("upstream.error_body.read.failed", "status", resp.StatusCode, "error", readErr)
		}
		return nil, ue
	}
	return resp, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func upstreamRequestID(headers http.Header) string {
	if headers == nil {
		return ""
	}
	return firstNonEmpty(
		headers.Get("x-request-id"),
		headers.Get("x-generation-id"),
		headers.Get("request-id"),
		headers.Get("cf-ray"),
	)
}
