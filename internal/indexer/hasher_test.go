package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"corpus-manager/internal/filesystem"
)

func fastRetry() filesystem.RetryConfig {
	return filesystem.RetryConfig{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Volume:         "test",
	}
}

func TestFingerprintStable(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, root, "a.txt", "hello corpus", fixtureTime)
	b := writeFile(t, root, "b.txt", "hello corpus", fixtureTime.Add(time.Hour))

	h := NewHasher(fastRetry())
	da, err := h.Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	db, err := h.Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if da != db {
		t.Errorf("identical bytes gave different digests: %s vs %s", da, db)
	}

	want := sha256.Sum256([]byte("hello corpus"))
	if da != hex.EncodeToString(want[:]) {
		t.Errorf("digest = %s, want SHA-256 %x", da, want)
	}
}

func TestFingerprintLargeFile(t *testing.T) {
	root := t.TempDir()
	content := strings.Repeat("0123456789abcdef", 3*hashBufferSize/16+7)
	p := writeFile(t, root, "big.txt", content, fixtureTime)

	got, err := NewHasher(fastRetry()).Fingerprint(p)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	want := sha256.Sum256([]byte(content))
	if got != hex.EncodeToString(want[:]) {
		t.Error("digest of multi-buffer file is wrong")
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	root := t.TempDir()
	p := writeFile(t, root, "a.txt", "version-1", fixtureTime)
	h := NewHasher(fastRetry())
	before, _ := h.Fingerprint(p)

	writeFile(t, root, "a.txt", "version-2", fixtureTime)
	after, _ := h.Fingerprint(p)

	if before == after {
		t.Error("single byte change not reflected in digest")
	}
}

func TestFingerprintMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.txt")

	_, err := NewHasher(fastRetry()).Fingerprint(missing)
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected *ReadError, got %T: %v", err, err)
	}
	if readErr.Path != missing {
		t.Errorf("ReadError.Path = %s, want %s", readErr.Path, missing)
	}
}
