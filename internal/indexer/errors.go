package indexer

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when a run is requested while another run
// holds the run lock. The request is rejected, not queued.
var ErrRunInProgress = errors.New("index run already in progress")

// ErrInvalidRun wraps rejected run arguments: an unknown mode, subpaths on a
// full run, or a subpath outside the corpus root.
var ErrInvalidRun = errors.New("invalid index run")

// ScanError reports an entry the scanner could not stat or list. The entry
// is skipped and the walk continues.
type ScanError struct {
	Path  string
	IsDir bool
	Err   error
}

func (e *ScanError) Error() string {
	kind := "file"
	if e.IsDir {
		kind = "directory"
	}
	return fmt.Sprintf("scan %s %q: %v", kind, e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ReadError reports a file whose bytes could not be fingerprinted. The file
// is skipped for the current run and its stored record is left as it was.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %q: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// StoreError aborts a run after a batch failed to commit MaxBatchAttempts
// times. Stats holds the counts of the batches that did commit.
type StoreError struct {
	Batch    int
	Attempts int
	Stats    RunStats
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("batch %d failed after %d attempts: %v", e.Batch, e.Attempts, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
