// Package streaming guards artifact downloads against stalled clients.
//
// The API server runs without a global WriteTimeout so large artifacts can
// be sent. ResponseWriter bounds each write, the idle time between writes,
// and optionally the whole transfer instead. It wraps an
// http.ResponseWriter, so http.ServeContent and its Range handling keep
// working on top of it.
package streaming

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"corpus-manager/internal/logging"
)

var (
	// ErrWriteTimeout means a write, the idle gap between writes or the
	// whole transfer exceeded its limit.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone means the request context ended before the transfer did.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamClosed means the writer was closed.
	ErrStreamClosed = errors.New("stream closed")
)

// Config holds the transfer limits.
type Config struct {
	// WriteTimeout bounds a single write to the client
	WriteTimeout time.Duration
	// IdleTimeout bounds the time between successful writes (0 = no limit)
	IdleTimeout time.Duration
	// MaxDuration bounds the whole transfer (0 = no limit)
	MaxDuration time.Duration
	// ChunkSize splits large writes and flushes after each chunk (0 = off)
	ChunkSize int
}

// DefaultConfig returns the limits used for artifact downloads.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// ResponseWriter is an http.ResponseWriter whose writes time out.
type ResponseWriter struct {
	http.ResponseWriter

	ctx     context.Context
	cancel  context.CancelFunc
	config  Config
	flusher http.Flusher
	start   time.Time

	mu           sync.Mutex
	lastWrite    time.Time
	bytesWritten int64
	closed       bool
	timedOut     bool
}

// NewResponseWriter wraps w. The transfer ends when ctx (normally the
// request context) is done. Call Close when the handler returns.
func NewResponseWriter(ctx context.Context, w http.ResponseWriter, config Config) *ResponseWriter {
	writerCtx, cancel := context.WithCancel(ctx)
	now := time.Now()

	rw := &ResponseWriter{
		ResponseWriter: w,
		ctx:            writerCtx,
		cancel:         cancel,
		config:         config,
		start:          now,
		lastWrite:      now,
	}
	if f, ok := w.(http.Flusher); ok {
		rw.flusher = f
	}

	if config.IdleTimeout > 0 {
		go rw.idleChecker()
	}
	return rw
}

// Write sends p, in chunks when configured, failing once a limit is hit.
func (rw *ResponseWriter) Write(p []byte) (int, error) {
	if err := rw.check(); err != nil {
		return 0, err
	}

	if rw.config.ChunkSize <= 0 || len(p) <= rw.config.ChunkSize {
		return rw.writeWithTimeout(p)
	}

	total := 0
	for len(p) > 0 {
		if err := rw.check(); err != nil {
			return total, err
		}
		size := min(len(p), rw.config.ChunkSize)
		n, err := rw.writeWithTimeout(p[:size])
		total += n
		if err != nil {
			return total, err
		}
		p = p[size:]
		rw.Flush()
	}
	return total, nil
}

// check reports why no further write may happen, if any.
func (rw *ResponseWriter) check() error {
	rw.mu.Lock()
	closed := rw.closed
	rw.mu.Unlock()
	if closed {
		return ErrStreamClosed
	}

	select {
	case <-rw.ctx.Done():
		return rw.contextError()
	default:
	}

	if rw.config.MaxDuration > 0 && time.Since(rw.start) > rw.config.MaxDuration {
		rw.expire()
		return ErrWriteTimeout
	}
	return nil
}

func (rw *ResponseWriter) writeWithTimeout(p []byte) (int, error) {
	type writeResult struct {
		n   int
		err error
	}
	resultCh := make(chan writeResult, 1)

	go func() {
		n, err := rw.ResponseWriter.Write(p)
		resultCh <- writeResult{n, err}
	}()

	timer := time.NewTimer(rw.config.WriteTimeout)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		if result.err == nil {
			rw.mu.Lock()
			rw.lastWrite = time.Now()
			rw.bytesWritten += int64(result.n)
			rw.mu.Unlock()
		}
		return result.n, result.err

	case <-timer.C:
		rw.expire()
		return 0, ErrWriteTimeout

	case <-rw.ctx.Done():
		return 0, rw.contextError()
	}
}

// expire ends the transfer because a limit was exceeded.
func (rw *ResponseWriter) expire() {
	rw.mu.Lock()
	rw.timedOut = true
	rw.mu.Unlock()
	rw.cancel()
}

func (rw *ResponseWriter) idleChecker() {
	ticker := time.NewTicker(rw.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rw.mu.Lock()
			idle := time.Since(rw.lastWrite)
			rw.mu.Unlock()

			if idle > rw.config.IdleTimeout {
				logging.Warn("Download idle for %v, closing stream", idle.Round(time.Millisecond))
				rw.expire()
				return
			}

		case <-rw.ctx.Done():
			return
		}
	}
}

func (rw *ResponseWriter) contextError() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	switch {
	case rw.timedOut:
		return ErrWriteTimeout
	case rw.closed:
		return ErrStreamClosed
	default:
		return ErrClientGone
	}
}

// Flush forwards to the underlying writer when it supports flushing.
func (rw *ResponseWriter) Flush() {
	if rw.flusher != nil {
		rw.flusher.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Close stops the idle checker. Further writes fail with ErrStreamClosed.
func (rw *ResponseWriter) Close() error {
	rw.mu.Lock()
	if rw.closed {
		rw.mu.Unlock()
		return nil
	}
	rw.closed = true
	rw.mu.Unlock()

	rw.cancel()
	return nil
}

// Stats returns the bytes written so far and the elapsed time.
func (rw *ResponseWriter) Stats() (bytesWritten int64, duration time.Duration) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.bytesWritten, time.Since(rw.start)
}
