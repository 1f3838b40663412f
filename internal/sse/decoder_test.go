package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStream = ": OPENROUTER PROCESSING\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"¿Cuál \"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"reasoning\":\"pensando…\"}}]}\n\n" +
	"data: not json\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"es mi marca? 🏃\"}}]}\r\n\r\n" +
	"data: [DONE]\n\n"

// collect drains a decoder and returns the payloads in order, with "[DONE]"
// standing in for the terminal marker.
func collect(t *testing.T, d *Decoder) []string {
	t.Helper()
	var out []string
	for {
		f, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		if f.Done {
			out = append(out, "[DONE]")
			continue
		}
		out = append(out, string(f.Data))
	}
}

// splitReader returns the input in the given chunk sizes, then the remainder.
type splitReader struct {
	data  []byte
	sizes []int
}

func (r *splitReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := len(r.data)
	if len(r.sizes) > 0 {
		n = r.sizes[0]
		r.sizes = r.sizes[1:]
	}
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func TestDecoderYieldsPayloadsAndDone(t *testing.T) {
	d := NewDecoder(strings.NewReader(sampleStream))
	got := collect(t, d)

	require.Len(t, got, 4)
	assert.Equal(t, `{"choices":[{"delta":{"content":"¿Cuál "}}]}`, got[0])
	assert.Equal(t, `{"choices":[{"delta":{"reasoning":"pensando…"}}]}`, got[1])
	assert.Equal(t, `{"choices":[{"delta":{"content":"es mi marca? 🏃"}}]}`, got[2])
	assert.Equal(t, "[DONE]", got[3])
	assert.Equal(t, 1, d.Dropped())
}

func TestDecoderSkipsCommentsBlankAndForeignLines(t *testing.T) {
	stream := "\n\n: keepalive\nevent: message\nid: 7\ndata: {\"ok\":true}\n"
	got := collect(t, NewDecoder(strings.NewReader(stream)))
	assert.Equal(t, []string{`{"ok":true}`}, got)
}

func TestDecoderAcceptsPrefixWithoutSpace(t *testing.T) {
	got := collect(t, NewDecoder(strings.NewReader("data:{\"ok\":1}\n\ndata:[DONE]\n\n")))
	assert.Equal(t, []string{`{"ok":1}`, "[DONE]"}, got)
}

func TestDecoderEOFWithoutDone(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: {\"a\":1}\n"))
	f, err := d.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(f.Data))

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderOneByteReads(t *testing.T) {
	want := collect(t, NewDecoder(strings.NewReader(sampleStream)))
	got := collect(t, NewDecoder(iotest.OneByteReader(strings.NewReader(sampleStream))))
	assert.Equal(t, want, got)
}

func TestDecoderChunkBoundaryInvariance(t *testing.T) {
	want := collect(t, NewDecoder(strings.NewReader(sampleStream)))
	data := []byte(sampleStream)

	for i := 1; i < len(data); i++ {
		r := &splitReader{data: append([]byte(nil), data...), sizes: []int{i}}
		got := collect(t, NewDecoder(r))
		require.Equal(t, want, got, "split at byte %d", i)
	}
}

func TestDecoderDataReturnedIsNotAliased(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: {\"n\":1}\ndata: {\"n\":2}\n"))
	first, err := d.Next()
	require.NoError(t, err)
	_, err = d.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(first.Data))
}

func TestDecoderLineTooLong(t *testing.T) {
	huge := "data: \"" + strings.Repeat("x", MaxLineSize) + "\"\n"
	_, err := NewDecoder(strings.NewReader(huge)).Next()
	assert.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestDecoderPropagatesReadErrors(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("data: {\"a\":1}\n"), iotest.ErrReader(boom))
	d := NewDecoder(r)

	_, err := d.Next()
	require.NoError(t, err)
	_, err = d.Next()
	assert.ErrorIs(t, err, boom)
}
