// Package relay streams a chat completion from the upstream to a client,
// executing at most one tool call in between two upstream passes.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/n0madic/stridecoach/internal/sse"
	"github.com/n0madic/stridecoach/internal/stream"
	"github.com/n0madic/stridecoach/internal/tools"
	"github.com/n0madic/stridecoach/internal/types"
	"github.com/n0madic/stridecoach/internal/upstream"
)

// Opener opens a streaming upstream completion.
type Opener interface {
	Open(ctx context.Context, req *upstream.Request) (io.ReadCloser, error)
}

// State is a relay's position in its two-pass lifecycle.
type State int

const (
	StateAwaitingFirst State = iota
	StateToolAssembled
	StateToolExecuted
	StateAwaitingSecond
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingFirst:
		return "awaiting_first"
	case StateToolAssembled:
		return "tool_assembled"
	case StateToolExecuted:
		return "tool_executed"
	case StateAwaitingSecond:
		return "awaiting_second"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Relay runs chat turns against an upstream with an optional tool registry.
type Relay struct {
	Upstream Opener
	Tools    *tools.Registry
	// ForwardReasoning relays reasoning deltas to the client.
	ForwardReasoning bool
}

// Turn is one opened relay: the first upstream stream is already connected.
type Turn struct {
	relay *Relay
	req   upstream.Request
	first *onceCloser
	trace []State
}

// Open issues the first upstream call. Errors here happen before any bytes
// are written to the client and carry the upstream status when available.
func (r *Relay) Open(ctx context.Context, req upstream.Request) (*Turn, error) {
	if r.Tools.Len() > 0 {
		req.Tools = r.Tools.Definitions()
	} else {
		req.Tools = nil
	}
	body, err := r.Upstream.Open(ctx, &req)
	if err != nil {
		return nil, err
	}
	t := &Turn{relay: r, req: req, first: newOnceCloser(body)}
	t.enter(StateAwaitingFirst)
	return t, nil
}

func (t *Turn) enter(s State) {
	t.trace = append(t.trace, s)
	slog.Debug("relay.state", "state", s.String())
}

// Trace returns the states the turn went through, in order.
func (t *Turn) Trace() []State { return append([]State(nil), t.trace...) }

// Close releases the first upstream body. It is safe to call after Stream.
func (t *Turn) Close() error { return t.first.Close() }

// Stream relays the turn to sink. It always finishes by calling sink.Done
// exactly once and by closing every upstream body it opened.
func (t *Turn) Stream(ctx context.Context, sink Sink) {
	defer func() {
		t.enter(StateDone)
		if err := sink.Done(); err != nil && !errors.Is(err, ErrClientGone) {
			slog.Warn("relay.done.failed", "error", err)
		}
	}()
	defer t.first.Close()

	detect := t.relay.Tools.Len() > 0
	acc, sig, err := pump(ctx, t.first, stream.FoldOptions{
		Reasoning:   t.relay.ForwardReasoning,
		DetectTools: detect,
	}, sink)
	t.first.Close()
	if err != nil {
		logStreamError("first", err)
		return
	}
	if !detect || !acc.Ready() {
		return
	}
	if sig != stream.SignalToolCall {
		slog.Debug("relay.tool_call.unsignalled", "tool", acc.Call.Name, "finish_reason", acc.FinishReason)
	}

	t.enter(StateToolAssembled)
	args, err := acc.ParseArguments()
	if err != nil {
		slog.Error("relay.tool_args.invalid", "tool", acc.Call.Name, "error", err, "bytes", len(acc.Call.Arguments))
		return
	}
	slog.Debug("relay.tool_call", "tool", acc.Call.Name, "call_id", acc.Call.ID, "args", acc.ArgumentsJSON())

	outcome := t.relay.Tools.Dispatch(ctx, acc.Call.Name, args)
	t.enter(StateToolExecuted)
	if err := sink.Send(stream.ToolExecutedEvent(acc.Call.Name, outcome.Notify)); err != nil {
		return
	}

	next := t.req
	next.Messages = ContinuationMessages(t.req.Messages, acc, outcome.Result)

	t.enter(StateAwaitingSecond)
	body, err := t.relay.Upstream.Open(ctx, &next)
	if err != nil {
		slog.Error("relay.second_pass.failed", "error", err, "status", upstream.StatusOf(err))
		return
	}
	second := newOnceCloser(body)
	defer second.Close()

	// Tool calls requested by the second pass are not honored.
	_, _, err = pump(ctx, second, stream.FoldOptions{Reasoning: t.relay.ForwardReasoning}, sink)
	if err != nil {
		logStreamError("second", err)
	}
}

// ContinuationMessages appends the assistant tool call and the tool result
// to msgs without modifying it.
func ContinuationMessages(msgs []types.ChatMessage, acc stream.Accumulator, result tools.Result) []types.ChatMessage {
	callID := acc.Call.ID
	if callID == "" {
		callID = "call_" + uuid.NewString()
	}
	var content any
	if acc.Content != "" {
		content = acc.Content
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		resultJSON = []byte(`{"success":false}`)
	}

	out := make([]types.ChatMessage, 0, len(msgs)+2)
	out = append(out, msgs...)
	out = append(out,
		types.ChatMessage{
			Role:    "assistant",
			Content: content,
			ToolCalls: []types.ToolCall{{
				ID:   callID,
				Type: "function",
				Function: types.FunctionCall{
					Name:      acc.Call.Name,
					Arguments: acc.ArgumentsJSON(),
				},
			}},
		},
		types.ChatMessage{
			Role:       "tool",
			ToolCallID: callID,
			Content:    string(resultJSON),
		},
	)
	return out
}

// pump decodes body and folds every chunk, forwarding events to sink. It
// returns when the stream ends, a tool call is signalled or an error occurs.
func pump(ctx context.Context, body io.Reader, opts stream.FoldOptions, sink Sink) (stream.Accumulator, stream.Signal, error) {
	dec := sse.NewDecoder(body)
	var acc stream.Accumulator
	for {
		if err := ctx.Err(); err != nil {
			return acc, stream.SignalContinue, err
		}
		frame, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return acc, stream.SignalContinue, nil
		}
		if err != nil {
			return acc, stream.SignalContinue, err
		}
		if frame.Done {
			return acc, stream.SignalContinue, nil
		}
		if msg := gjson.GetBytes(frame.Data, "error.message"); msg.Exists() {
			return acc, stream.SignalContinue, fmt.Errorf("upstream stream error: %s", msg.String())
		}

		chunk, err := stream.DecodeChunk(frame.Data)
		if err != nil {
			slog.Debug("relay.chunk.undecodable", "error", err)
			continue
		}
		var events []stream.Event
		var sig stream.Signal
		acc, events, sig = stream.Fold(acc, chunk, opts)
		for _, ev := range events {
			if err := sink.Send(ev); err != nil {
				return acc, stream.SignalContinue, err
			}
		}
		if sig == stream.SignalToolCall {
			return acc, sig, nil
		}
	}
}

func logStreamError(pass string, err error) {
	switch {
	case errors.Is(err, ErrClientGone), errors.Is(err, context.Canceled):
		slog.Debug("relay.stream.aborted", "pass", pass, "error", err)
	default:
		slog.Error("relay.stream.failed", "pass", pass, "error", err)
	}
}

// onceCloser closes the wrapped body at most once.
type onceCloser struct {
	io.ReadCloser
	once sync.Once
	err  error
}

func newOnceCloser(rc io.ReadCloser) *onceCloser {
	return &onceCloser{ReadCloser: rc}
}

func (c *onceCloser) Close() error {
	c.once.Do(func() { c.err = c.ReadCloser.Close() })
	return c.err
}
