package upstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// dumpUpstreamResponse writes the response head to stderr and wraps the body
// so stream frames are echoed as they are read. Unless Verbose is also set,
// only frames carrying a finish_reason are echoed.
func (c *Client) dumpUpstreamResponse(resp *http.Response) {
	if c == nil || !c.Debug || resp == nil {
		return
	}

	headerDump, err := httputil.DumpResponse(resp, false)
	if err != nil {
		slog.Error("upstream.response.dump.failed", "error", err)
	} else {
		DumpBlock("UPSTREAM RESPONSE", headerDump)
	}

	if resp.Body != nil {
		title := fmt.Sprintf("UPSTREAM RESPONSE BODY status=%d", resp.StatusCode)
		dumpBoundary(title, true)
		resp.Body = &debugDumpReadCloser{src: resp.Body, verbose: c.Verbose, title: title}
	}
}

var (
	dumpMu  sync.Mutex
	dumpOut io.Writer = os.Stderr
)

// DumpBlock writes data to stderr between BEGIN/END markers. Blocks from
// concurrent requests do not interleave.
func DumpBlock(title string, data []byte) {
	dumpMu.Lock()
	defer dumpMu.Unlock()
	writeDumpBoundary(title, true)
	if len(data) > 0 {
		writeDump(data)
		if data[len(data)-1] != '\n' {
			writeDump([]byte("\n"))
		}
	}
	writeDumpBoundary(title, false)
}

func dumpBoundary(title string, begin bool) {
	dumpMu.Lock()
	defer dumpMu.Unlock()
	writeDumpBoundary(title, begin)
}

func dumpChunk(data []byte) {
	dumpMu.Lock()
	defer dumpMu.Unlock()
	writeDump(data)
}

func writeDumpBoundary(title string, begin bool) {
	kind := "END"
	if begin {
		kind = "BEGIN"
	}
	writeDump([]byte("===== " + strings.TrimSpace(title) + " " + kind + " =====\n"))
}

func writeDump(data []byte) {
	if len(data) == 0 {
		return
	}
	if _, err := dumpOut.Write(data); err != nil {
		slog.Error("upstream.dump.write.failed", "error", err)
	}
}

type debugDumpReadCloser struct {
	src     io.ReadCloser
	verbose bool
	title   string
	buf     []byte
	closed  bool
}

func (d *debugDumpReadCloser) Read(p []byte) (int, error) {
	n, err := d.src.Read(p)
	if n > 0 {
		d.buf = append(d.buf, p[:n]...)
		for {
			idx := bytes.IndexByte(d.buf, '\n')
			if idx < 0 {
				break
			}
			d.echoLine(d.buf[:idx])
			d.buf = d.buf[idx+1:]
		}
	}
	if errors.Is(err, io.EOF) {
		d.finish()
	}
	return n, err
}

func (d *debugDumpReadCloser) Close() error {
	err := d.src.Close()
	d.finish()
	return err
}

func (d *debugDumpReadCloser) finish() {
	if d.closed {
		return
	}
	d.closed = true
	if len(d.buf) > 0 {
		d.echoLine(d.buf)
		d.buf = nil
	}
	dumpBoundary(d.title, false)
}

func (d *debugDumpReadCloser) echoLine(raw []byte) {
	line := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(line, []byte("data:")) {
		return
	}
	payload := bytes.TrimSpace(line[len("data:"):])
	if !d.verbose && !bytes.Equal(payload, doneMarker) &&
		gjson.GetBytes(payload, "choices.0.finish_reason").Type != gjson.String {
		return
	}
	dumpChunk(append(append([]byte("data: "), payload...), '\n'))
}

var doneMarker = []byte("[DONE]")
