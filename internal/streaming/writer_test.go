package streaming

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// countingRecorder counts Write calls on top of a recorder.
type countingRecorder struct {
	*httptest.ResponseRecorder
	writes int
}

func (c *countingRecorder) Write(p []byte) (int, error) {
	c.writes++
	return c.ResponseRecorder.Write(p)
}

// stalledWriter never completes a write until released.
type stalledWriter struct {
	*httptest.ResponseRecorder
	release chan struct{}
}

func (s *stalledWriter) Write(p []byte) (int, error) {
	<-s.release
	return len(p), nil
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.WriteTimeout != 30*time.Second {
		t.Errorf("Expected WriteTimeout=30s, got %v", config.WriteTimeout)
	}
	if config.IdleTimeout != 60*time.Second {
		t.Errorf("Expected IdleTimeout=60s, got %v", config.IdleTimeout)
	}
	if config.MaxDuration != 0 {
		t.Errorf("Expected unlimited MaxDuration, got %v", config.MaxDuration)
	}
	if config.ChunkSize != 64*1024 {
		t.Errorf("Expected ChunkSize=64KB, got %d", config.ChunkSize)
	}
}

func TestWriteAndStats(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(context.Background(), rec, DefaultConfig())
	defer rw.Close()

	data := []byte("# Board pack\n")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
	}
	if written, _ := rw.Stats(); written != int64(len(data)) {
		t.Errorf("Expected %d bytes written, got %d", len(data), written)
	}
	if rec.Body.String() != string(data) {
		t.Errorf("Body = %q", rec.Body.String())
	}
}

func TestChunkedWrites(t *testing.T) {
	rec := &countingRecorder{ResponseRecorder: httptest.NewRecorder()}
	config := DefaultConfig()
	config.ChunkSize = 4

	rw := NewResponseWriter(context.Background(), rec, config)
	defer rw.Close()

	n, err := rw.Write([]byte("0123456789"))
	if err != nil || n != 10 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if rec.writes != 3 {
		t.Errorf("Expected 3 chunk writes, got %d", rec.writes)
	}
	if !rec.Flushed {
		t.Error("Expected chunks to be flushed")
	}
}

func TestWriteAfterClose(t *testing.T) {
	rw := NewResponseWriter(context.Background(), httptest.NewRecorder(), DefaultConfig())
	if err := rw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := rw.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}

	if _, err := rw.Write([]byte("x")); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Expected ErrStreamClosed, got %v", err)
	}
}

func TestClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rw := NewResponseWriter(ctx, httptest.NewRecorder(), DefaultConfig())
	defer rw.Close()

	cancel()
	if _, err := rw.Write([]byte("x")); !errors.Is(err, ErrClientGone) {
		t.Errorf("Expected ErrClientGone, got %v", err)
	}
}

func TestWriteTimeout(t *testing.T) {
	stalled := &stalledWriter{ResponseRecorder: httptest.NewRecorder(), release: make(chan struct{})}
	defer close(stalled.release)

	config := DefaultConfig()
	config.WriteTimeout = 20 * time.Millisecond
	rw := NewResponseWriter(context.Background(), stalled, config)
	defer rw.Close()

	if _, err := rw.Write([]byte("x")); !errors.Is(err, ErrWriteTimeout) {
		t.Fatalf("Expected ErrWriteTimeout, got %v", err)
	}
	if _, err := rw.Write([]byte("y")); !errors.Is(err, ErrWriteTimeout) {
		t.Errorf("Expected later writes to keep failing with ErrWriteTimeout, got %v", err)
	}
}

func TestIdleTimeout(t *testing.T) {
	config := DefaultConfig()
	config.IdleTimeout = 20 * time.Millisecond
	rw := NewResponseWriter(context.Background(), httptest.NewRecorder(), config)
	defer rw.Close()

	time.Sleep(100 * time.Millisecond)

	if _, err := rw.Write([]byte("x")); !errors.Is(err, ErrWriteTimeout) {
		t.Errorf("Expected ErrWriteTimeout after idling, got %v", err)
	}
}

func TestMaxDuration(t *testing.T) {
	config := DefaultConfig()
	config.MaxDuration = 10 * time.Millisecond
	rw := NewResponseWriter(context.Background(), httptest.NewRecorder(), config)
	defer rw.Close()

	time.Sleep(20 * time.Millisecond)

	if _, err := rw.Write([]byte("x")); !errors.Is(err, ErrWriteTimeout) {
		t.Errorf("Expected ErrWriteTimeout, got %v", err)
	}
}

func TestServeContentRange(t *testing.T) {
	content := strings.Repeat("0123456789", 10)
	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	req.Header.Set("Range", "bytes=10-19")
	rec := httptest.NewRecorder()

	rw := NewResponseWriter(req.Context(), rec, DefaultConfig())
	http.ServeContent(rw, req, "export.txt", time.Time{}, bytes.NewReader([]byte(content)))
	rw.Close()

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("Expected 206, got %d", rec.Code)
	}
	if rec.Body.String() != "0123456789" {
		t.Errorf("Body = %q", rec.Body.String())
	}
	if rec.Header().Get("Content-Range") != "bytes 10-19/100" {
		t.Errorf("Content-Range = %q", rec.Header().Get("Content-Range"))
	}
}
