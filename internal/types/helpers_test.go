package types

import (
	"encoding/json"
	"testing"
)

func TestFloatFromAnyHandlesAllNumericTypes(t *testing.T) {
	tests := []struct {
		name   string
		val    any
		want   float64
		wantOK bool
	}{
		{"float64", float64(42.5), 42.5, true},
		{"int", int(99), 99, true},
		{"int64", int64(1234567890123), 1234567890123, true},
		{"json.Number", json.Number("12.25"), 12.25, true},
		{"numeric string", " 70 ", 70, true},
		{"nil", nil, 0, false},
		{"word", "not a number", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FloatFromAny(tt.val)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("FloatFromAny(%v) = (%v, %v), want (%v, %v)", tt.val, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIntFromAnyTruncates(t *testing.T) {
	got, ok := IntFromAny(float64(20.9))
	if !ok || got != 20 {
		t.Fatalf("IntFromAny(20.9) = (%d, %v), want (20, true)", got, ok)
	}
}

func TestMessageTextJoinsTextParts(t *testing.T) {
	var m ChatMessage
	raw := `{"role":"user","content":[{"type":"text","text":"hola"},{"type":"image_url","image_url":{"url":"x"}},{"type":"text","text":"mundo"}]}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := MessageText(m); got != "hola\nmundo" {
		t.Fatalf("MessageText = %q", got)
	}
}

func TestChatMessageNullContentRoundTrip(t *testing.T) {
	b, err := json.Marshal(ChatMessage{Role: "assistant", ToolCalls: []ToolCall{{ID: "call_1", Type: "function", Function: FunctionCall{Name: "f", Arguments: "{}"}}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"role":"assistant","content":null,"tool_calls":[{"id":"call_1","type":"function","function":{"name":"f","arguments":"{}"}}]}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}
}
