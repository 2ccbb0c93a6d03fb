package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"sync"
	"time"

	"corpus-manager/internal/filesystem"
	"corpus-manager/internal/metrics"
)

const hashBufferSize = 64 * 1024

// Fingerprinter computes a content digest for a file.
type Fingerprinter interface {
	Fingerprint(absPath string) (string, error)
}

// Hasher fingerprints files with SHA-256 using fixed-size reads.
type Hasher struct {
	retry filesystem.RetryConfig
	bufs  sync.Pool
}

// NewHasher returns a Hasher that opens files with stale-handle retries.
func NewHasher(retry filesystem.RetryConfig) *Hasher {
	return &Hasher{
		retry: retry,
		bufs: sync.Pool{New: func() any {
			b := make([]byte, hashBufferSize)
			return &b
		}},
	}
}

// Fingerprint reads the file once and returns its hex SHA-256 digest.
// Failures are returned as *ReadError.
func (h *Hasher) Fingerprint(absPath string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.IndexerHashDuration.Observe(time.Since(start).Seconds())
	}()

	f, err := filesystem.OpenWithRetry(absPath, h.retry)
	if err != nil {
		return "", &ReadError{Path: absPath, Err: err}
	}
	defer f.Close()

	bp := h.bufs.Get().(*[]byte)
	defer h.bufs.Put(bp)
	buf := *bp

	sum := sha256.New()
	for {
		n, err := f.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", &ReadError{Path: absPath, Err: err}
		}
	}

	metrics.IndexerFilesHashed.Inc()
	return hex.EncodeToString(sum.Sum(nil)), nil
}
