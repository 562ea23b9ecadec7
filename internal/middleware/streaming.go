package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrDownloadStalled is the context cause when a pack stream stops moving.
	ErrDownloadStalled = errors.New("pack download stalled")
	// ErrDownloadTooLong is the context cause when a pack stream exceeds its budget.
	ErrDownloadTooLong = errors.New("pack download exceeded maximum duration")
)

// StreamingTimeout guards POST /api/v1/download. Packs are copied straight
// from storage to the client, so http.TimeoutHandler (which buffers) cannot be
// used. maxDuration caps the transfer and idleTimeout aborts a client or
// storage backend that stops moving bytes. Either way the request context is
// cancelled with a cause, which also stops the upstream storage fetch.
func StreamingTimeout(maxDuration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancelMax := context.WithTimeoutCause(r.Context(), maxDuration, ErrDownloadTooLong)
			defer cancelMax()
			ctx, cancel := context.WithCancelCause(ctx)
			defer cancel(nil)

			rc := http.NewResponseController(w)
			deadline := time.Now().Add(maxDuration)
			_ = rc.SetWriteDeadline(deadline)
			_ = rc.SetReadDeadline(deadline)

			sw := &packStreamWriter{
				ResponseWriter: w,
				rc:             rc,
				idleTimeout:    idleTimeout,
				cancel:         cancel,
			}
			sw.resetIdle()

			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.stopIdle()

			if cause := context.Cause(ctx); errors.Is(cause, ErrDownloadStalled) || errors.Is(cause, ErrDownloadTooLong) {
				slog.Warn("pack download aborted",
					"reason", cause.Error(),
					"bytes_written", sw.written.Load(),
					"client_ip", ClientIP(r))
			}
		})
	}
}

type packStreamWriter struct {
	http.ResponseWriter
	rc          *http.ResponseController
	idleTimeout time.Duration
	cancel      context.CancelCauseFunc
	written     atomic.Int64

	mu        sync.Mutex
	idleTimer *time.Timer
}

func (sw *packStreamWriter) resetIdle() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.idleTimer != nil {
		sw.idleTimer.Stop()
	}

	sw.idleTimer = time.AfterFunc(sw.idleTimeout, func() {
		// Unblock a Write stuck on a slow client.
		_ = sw.rc.SetWriteDeadline(time.Now())
		sw.cancel(ErrDownloadStalled)
	})
}

func (sw *packStreamWriter) stopIdle() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.idleTimer != nil {
		sw.idleTimer.Stop()
	}
}

func (sw *packStreamWriter) Write(b []byte) (int, error) {
	sw.resetIdle()
	n, err := sw.ResponseWriter.Write(b)
	sw.written.Add(int64(n))
	return n, err
}

func (sw *packStreamWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

func (sw *packStreamWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
