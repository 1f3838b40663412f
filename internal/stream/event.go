package stream

import "encoding/json"

// EventKind identifies a client-facing relay event.
type EventKind int

const (
	EventContent EventKind = iota
	EventReasoning
	EventToolExecuted
)

// Event is a single client-facing envelope written by the relay.
type Event struct {
	Kind  EventKind
	Text  string
	Tool  string
	Flags map[string]any
}

// ContentEvent returns a {content} event.
func ContentEvent(text string) Event {
	return Event{Kind: EventContent, Text: text}
}

// ReasoningEvent returns a {reasoning} event.
func ReasoningEvent(text string) Event {
	return Event{Kind: EventReasoning, Text: text}
}

// ToolExecutedEvent returns a {toolExecuted, ...flags} event.
func ToolExecutedEvent(name string, flags map[string]any) Event {
	return Event{Kind: EventToolExecuted, Tool: name, Flags: flags}
}

// MarshalJSON encodes the event in its wire envelope.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EventReasoning:
		return json.Marshal(struct {
			Reasoning string `json:"reasoning"`
		}{e.Text})
	case EventToolExecuted:
		m := make(map[string]any, len(e.Flags)+1)
		for k, v := range e.Flags {
			m[k] = v
		}
		m["toolExecuted"] = e.Tool
		return json.Marshal(m)
	default:
		return json.Marshal(struct {
			Content string `json:"content"`
		}{e.Text})
	}
}
