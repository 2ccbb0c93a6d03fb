package database

import "time"

// FileStatus is the lifecycle state of an indexed file.
type FileStatus string

const (
	StatusActive  FileStatus = "active"
	StatusDeleted FileStatus = "deleted"
)

// FileRecord is one indexed file. Path is relative to the corpus root,
// slash-separated, and unique.
type FileRecord struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Name        string     `json:"name"`
	ParentDir   string     `json:"parentDir"`
	Extension   string     `json:"extension"`
	Section     string     `json:"section"`
	Size        int64      `json:"size"`
	ModTime     time.Time  `json:"modTime"`
	Fingerprint string     `json:"fingerprint"`
	FirstSeen   time.Time  `json:"firstSeen"`
	LastSeen    time.Time  `json:"lastSeen"`
	Status      FileStatus `json:"status"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// ChangeKind classifies a file against the previous index state.
type ChangeKind string

const (
	ChangeNew       ChangeKind = "new"
	ChangeUpdated   ChangeKind = "updated"
	ChangeUnchanged ChangeKind = "unchanged"
	ChangeDeleted   ChangeKind = "deleted"
)

// Change is one write in a batch. Deleted changes only need Record.Path.
type Change struct {
	Kind   ChangeKind
	Record FileRecord
	// At is the observation time; used as last_seen or deleted_at.
	At time.Time
}

// SortKey selects the primary ordering of a file query.
type SortKey string

// SortDir is the direction of the primary ordering.
type SortDir string

const (
	SortByName    SortKey = "name"
	SortByDate    SortKey = "date"
	SortBySize    SortKey = "size"
	SortBySection SortKey = "section"

	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// FileQuery is a conjunction of optional predicates plus ordering and paging.
// Zero-valued predicates impose no constraint.
type FileQuery struct {
	NameContains   string
	Extension      string
	Section        *string
	PathPrefix     string
	ModifiedAfter  *time.Time
	ModifiedBefore *time.Time
	SizeMin        *int64
	SizeMax        *int64
	IncludeDeleted bool

	Sort   SortKey
	Dir    SortDir
	Offset int
	// Limit <= 0 returns every match.
	Limit int
}

// FilePage is one page of a query plus the total match count.
type FilePage struct {
	Items []FileRecord `json:"items"`
	Total int          `json:"total"`
}

// JobStatus is the state of a consolidation job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobSource records how a job's selection was produced.
type JobSource string

const (
	SourceFilter JobSource = "filter"
	SourceManual JobSource = "manual"
)

// ConsolidationJob records one export. Criteria is an immutable JSON
// snapshot of the filter or manual selection that produced it.
type ConsolidationJob struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Source     JobSource  `json:"source"`
	Criteria   string     `json:"criteria"`
	Format     string     `json:"format"`
	FileCount  int        `json:"fileCount"`
	OutputPath string     `json:"outputPath,omitempty"`
	Status     JobStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Tag is a label attached to files.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ItemCount int       `json:"itemCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// DirectoryEntry is a child directory in a browse listing.
type DirectoryEntry struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	FileCount int    `json:"fileCount"`
}

// DirectoryListing is the browse view of one directory.
type DirectoryListing struct {
	Path        string           `json:"path"`
	Breadcrumb  []PathPart       `json:"breadcrumb"`
	Directories []DirectoryEntry `json:"directories"`
	Files       []FileRecord     `json:"files"`
}

// PathPart is one breadcrumb element.
type PathPart struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// IndexStats summarizes the corpus.
type IndexStats struct {
	ActiveFiles   int64            `json:"activeFiles"`
	DeletedFiles  int64            `json:"deletedFiles"`
	TotalBytes    int64            `json:"totalBytes"`
	ByExtension   map[string]int64 `json:"byExtension"`
	BySection     map[string]int64 `json:"bySection"`
	Tags          int              `json:"tags"`
	Jobs          int              `json:"jobs"`
	LastFullIndex time.Time        `json:"lastFullIndex,omitzero"`
	LastIndex     time.Time        `json:"lastIndex,omitzero"`
}
