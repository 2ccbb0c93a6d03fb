package indexer

import (
	"fmt"
	"sync"

	"corpus-manager/internal/filelock"
	"corpus-manager/internal/logging"
	"corpus-manager/internal/metrics"
)

// RunLock guarantees a single active run. It combines an in-process mutex
// with an advisory lock file so a CLI run and a server run against the same
// database also exclude each other.
type RunLock struct {
	mu   sync.Mutex
	file *filelock.FileLock
}

// NewRunLock returns a lock backed by lockPath. An empty lockPath gives an
// in-process lock only.
func NewRunLock(lockPath string) *RunLock {
	l := &RunLock{}
	if lockPath != "" {
		l.file = filelock.NewFileLock(lockPath)
	}
	return l
}

// TryAcquire takes the lock without waiting. It returns ErrRunInProgress
// when another run holds it. The returned release func must be called once.
func (l *RunLock) TryAcquire() (release func(), err error) {
	if !l.mu.TryLock() {
		metrics.IndexerLockRejections.Inc()
		return nil, ErrRunInProgress
	}

	if l.file != nil {
		ok, err := l.file.TryLock()
		if err != nil {
			l.mu.Unlock()
			return nil, fmt.Errorf("acquire run lock %s: %w", l.file.Path(), err)
		}
		if !ok {
			l.mu.Unlock()
			metrics.IndexerLockRejections.Inc()
			return nil, ErrRunInProgress
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if l.file != nil {
				if err := l.file.Unlock(); err != nil {
					logging.Warn("Failed to release run lock %s: %v", l.file.Path(), err)
				}
			}
			l.mu.Unlock()
		})
	}, nil
}
