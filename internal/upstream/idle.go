package upstream

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrIdleTimeout is returned by a stream body when no bytes arrived within
// the configured chunk timeout.
var ErrIdleTimeout = errors.New("upstream stream idle timeout")

// idleBody cancels the request context when the upstream stays silent for
// longer than timeout. Close is idempotent.
type idleBody struct {
	src     io.ReadCloser
	cancel  context.CancelFunc
	timeout time.Duration
	timer   *time.Timer

	mu       sync.Mutex
	timedOut bool
	once     sync.Once
}

func newIdleBody(src io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleBody {
	b := &idleBody{src: src, cancel: cancel, timeout: timeout}
	if timeout > 0 {
		b.timer = time.AfterFunc(timeout, b.expire)
	}
	return b
}

func (b *idleBody) expire() {
	b.mu.Lock()
	b.timedOut = true
	b.mu.Unlock()
	b.cancel()
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.src.Read(p)
	if n > 0 && b.timer != nil {
		b.timer.Reset(b.timeout)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		b.mu.Lock()
		timedOut := b.timedOut
		b.mu.Unlock()
		if timedOut {
			return n, ErrIdleTimeout
		}
	}
	return n, err
}

func (b *idleBody) Close() error {
	var err error
	b.once.Do(func() {
		if b.timer != nil {
			b.timer.Stop()
		}
		err = b.src.Close()
		b.cancel()
	})
	return err
}
