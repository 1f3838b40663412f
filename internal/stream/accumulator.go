package stream

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/n0madic/stridecoach/internal/types"
)

// MaxToolArgBufSize is the upper bound (in bytes) for buffered function-call
// argument deltas.
const MaxToolArgBufSize = 1 << 20 // 1 MB

// FinishToolCalls is the finish_reason an upstream sends when the model
// elected to invoke a function.
const FinishToolCalls = "tool_calls"

// Signal tells the caller what to do after a fold step.
type Signal int

const (
	// SignalContinue means keep reading chunks.
	SignalContinue Signal = iota
	// SignalToolCall means a complete tool call is assembled; stop reading.
	SignalToolCall
)

// FoldOptions controls what a fold step extracts from a chunk.
type FoldOptions struct {
	// Reasoning forwards reasoning deltas to the client.
	Reasoning bool
	// DetectTools assembles tool-call fragments and raises SignalToolCall.
	DetectTools bool
}

// ToolCall is a tool invocation assembled from streamed fragments.
type ToolCall struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Accumulator is the per-pass fold state. It is a plain value: Fold returns
// the next state and never mutates its input.
type Accumulator struct {
	Content      string
	Reasoning    string
	Call         ToolCall
	HasCall      bool
	FinishReason string
}

// Ready reports whether a tool call has been assembled far enough to execute.
func (a Accumulator) Ready() bool {
	return a.HasCall && strings.TrimSpace(a.Call.Name) != ""
}

// ArgumentsJSON returns the accumulated argument text, treating an empty
// buffer as an empty object.
func (a Accumulator) ArgumentsJSON() string {
	if strings.TrimSpace(a.Call.Arguments) == "" {
		return "{}"
	}
	return a.Call.Arguments
}

// ParseArguments decodes the accumulated argument text as a JSON object. It
// must only be called once the finish signal has been observed.
func (a Accumulator) ParseArguments() (map[string]any, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(a.ArgumentsJSON()), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// Fold applies one upstream chunk to acc and returns the new state, the
// client events produced by the chunk (in upstream order) and a signal.
func Fold(acc Accumulator, chunk types.ChatCompletionChunk, opts FoldOptions) (Accumulator, []Event, Signal) {
	if len(chunk.Choices) == 0 {
		return acc, nil, SignalContinue
	}
	choice := chunk.Choices[0]
	delta := choice.Delta

	var events []Event
	if delta.Content != "" {
		acc.Content += delta.Content
		events = append(events, ContentEvent(delta.Content))
	}
	if delta.Reasoning != "" {
		acc.Reasoning += delta.Reasoning
		if opts.Reasoning {
			events = append(events, ReasoningEvent(delta.Reasoning))
		}
	}
	if opts.DetectTools {
		for _, frag := range delta.ToolCalls {
			acc = foldToolFragment(acc, frag)
		}
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		acc.FinishReason = *choice.FinishReason
		if opts.DetectTools && acc.FinishReason == FinishToolCalls && acc.Ready() {
			return acc, events, SignalToolCall
		}
	}
	return acc, events, SignalContinue
}

func foldToolFragment(acc Accumulator, frag types.ToolCall) Accumulator {
	if !acc.HasCall {
		acc.HasCall = true
		acc.Call.Index = frag.Index
	} else if frag.Index != acc.Call.Index {
		slog.Debug("stream.tool_call.ignored", "index", frag.Index, "tracked_index", acc.Call.Index)
		return acc
	}

	if acc.Call.ID == "" && frag.ID != "" {
		acc.Call.ID = frag.ID
	}
	if acc.Call.Name == "" && frag.Function.Name != "" {
		acc.Call.Name = frag.Function.Name
	}
	if args := frag.Function.Arguments; args != "" {
		if len(acc.Call.Arguments)+len(args) > MaxToolArgBufSize {
			slog.Warn("tool argument buffer limit exceeded, dropping delta", "call_id", acc.Call.ID, "buf_len", len(acc.Call.Arguments), "delta_len", len(args))
			return acc
		}
		acc.Call.Arguments += args
	}
	return acc
}

// DecodeChunk decodes a frame payload into a chunk.
func DecodeChunk(data []byte) (types.ChatCompletionChunk, error) {
	var chunk types.ChatCompletionChunk
	err := json.Unmarshal(data, &chunk)
	return chunk, err
}
