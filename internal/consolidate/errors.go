package consolidate

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest wraps every rejection of a Request before a job exists.
var ErrInvalidRequest = errors.New("invalid consolidation request")

// ExportError reports an artifact that could not be written. The job has
// been marked failed and no artifact exists at Path.
type ExportError struct {
	JobID string
	Path  string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export job %s to %s: %v", e.JobID, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
