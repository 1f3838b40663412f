// Package sse decodes `data:` framed server-sent-event streams produced by
// chat-completion upstreams.
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/tidwall/gjson"
)

// MaxLineSize bounds a single SSE line. Longer lines surface as
// bufio.ErrTooLong from Next.
const MaxLineSize = 1 << 20 // 1 MB

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// Frame is one logical event payload. Done is set for the `[DONE]` marker, in
// which case Data is nil.
type Frame struct {
	Data json.RawMessage
	Done bool
}

// Decoder reads frames from an io.Reader. Lines are split on raw bytes before
// any text handling, so a multi-byte UTF-8 sequence or the `data: ` prefix
// split across two network reads is reassembled before it is inspected.
type Decoder struct {
	scanner *bufio.Scanner
	dropped int
}

// NewDecoder creates a new SSE decoder.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Decoder{scanner: scanner}
}

// Next returns the next frame. It returns io.EOF when the underlying stream
// ends, and any read error otherwise. Payloads that are not valid JSON are
// treated as keepalives: they are skipped and counted.
func (d *Decoder) Next() (Frame, error) {
	for d.scanner.Scan() {
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 || line[0] == ':' {
			continue
		}
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := bytes.TrimLeft(line[len(dataPrefix):], " ")
		if bytes.Equal(payload, doneMarker) {
			return Frame{Done: true}, nil
		}
		if !gjson.ValidBytes(payload) {
			d.dropped++
			slog.Debug("sse.frame.dropped", "bytes", len(payload), "dropped_total", d.dropped)
			continue
		}
		data := make(json.RawMessage, len(payload))
		copy(data, payload)
		return Frame{Data: data}, nil
	}
	if err := d.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

// Dropped reports how many malformed payloads were skipped so far.
func (d *Decoder) Dropped() int {
	return d.dropped
}
