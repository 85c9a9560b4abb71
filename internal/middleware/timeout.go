package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const bodyChunkSize = 32 << 10

// NewTimeoutMiddleware bounds the whole request, including reads of the body:
// a client that stops sending gets its read cut off at the deadline instead
// of pinning the handler.
func NewTimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			deadline, _ := ctx.Deadline()
			// Only net/http connections support this; others rely on the body wrapper.
			_ = http.NewResponseController(w).SetReadDeadline(deadline)

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = newDeadlineBody(ctx, r.Body)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type bodyChunk struct {
	data []byte
	err  error
}

// deadlineBody reads the underlying body on its own goroutine so that Read
// can give up when ctx is done even while the source is blocked.
type deadlineBody struct {
	ctx     context.Context
	body    io.ReadCloser
	start   sync.Once
	chunks  chan bodyChunk
	pending []byte
	err     error
}

func newDeadlineBody(ctx context.Context, body io.ReadCloser) *deadlineBody {
	return &deadlineBody{ctx: ctx, body: body, chunks: make(chan bodyChunk)}
}

func (b *deadlineBody) Read(p []byte) (int, error) {
	if len(b.pending) > 0 {
		n := copy(p, b.pending)
		b.pending = b.pending[n:]
		return n, nil
	}
	if b.err != nil {
		return 0, b.err
	}
	b.start.Do(func() { go b.pump() })

	select {
	case chunk := <-b.chunks:
		n := copy(p, chunk.data)
		b.pending = chunk.data[n:]
		if chunk.err != nil {
			b.err = chunk.err
			if n == 0 {
				return 0, b.err
			}
		}
		return n, nil
	case <-b.ctx.Done():
		b.err = fmt.Errorf("read request body: %w", b.ctx.Err())
		return 0, b.err
	}
}

func (b *deadlineBody) pump() {
	for {
		buf := make([]byte, bodyChunkSize)
		n, err := b.body.Read(buf)
		select {
		case b.chunks <- bodyChunk{data: buf[:n], err: err}:
		case <-b.ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (b *deadlineBody) Close() error {
	return b.body.Close()
}
