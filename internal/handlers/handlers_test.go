package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"corpus-manager/internal/consolidate"
	"corpus-manager/internal/database"
	"corpus-manager/internal/indexer"
	"corpus-manager/internal/search"

	"github.com/gorilla/mux"
)

var fixtureTime = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

type testServer struct {
	root     string
	lockPath string
	db       *database.Database
	idx      *indexer.Indexer
	h        *Handlers
	router   *mux.Router
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(abs, fixtureTime, fixtureTime); err != nil {
		t.Fatal(err)
	}
}

// newTestServer builds the full handler stack over notes/a.md,
// reports/b.xlsx and reports/c.pdf. The tree is not indexed yet.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "notes/a.md", "# alpha")
	writeFile(t, root, "reports/b.xlsx", "sheet")
	writeFile(t, root, "reports/c.pdf", "%PDF-1.7")

	dbPath := filepath.Join(t.TempDir(), "corpus.db")
	db, err := database.New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("database.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	lockPath := dbPath + ".index.lock"
	idx, err := indexer.New(db, indexer.Config{
		Scan: indexer.ScanConfig{
			Root:       root,
			SkipHidden: true,
			Extensions: []string{".md", ".xlsx", ".pdf"},
		},
		HashWorkers: 2,
		LockPath:    lockPath,
	})
	if err != nil {
		t.Fatalf("indexer.New failed: %v", err)
	}
	t.Cleanup(idx.Stop)

	searchEngine := search.NewEngine(db)
	consolidator := consolidate.NewEngine(db, searchEngine, filepath.Join(t.TempDir(), "exports"))
	h := New(db, idx, searchEngine, consolidator)

	return &testServer{
		root:     root,
		lockPath: lockPath,
		db:       db,
		idx:      idx,
		h:        h,
		router:   NewRouter(h),
	}
}

func (s *testServer) index(t *testing.T) {
	t.Helper()
	if _, err := s.idx.RunFull(context.Background(), indexer.RunOptions{}); err != nil {
		t.Fatalf("RunFull failed: %v", err)
	}
}

func (s *testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestListFiles(t *testing.T) {
	s := newTestServer(t)
	s.index(t)

	tests := []struct {
		name      string
		query     string
		wantTotal int
		wantFirst string
		wantMore  bool
	}{
		{"everything", "", 3, "notes/a.md", false},
		{"by extension", "?ext=xlsx", 1, "reports/b.xlsx", false},
		{"by section", "?section=reports&sort=size&dir=desc", 2, "reports/c.pdf", false},
		{"paged", "?limit=2", 3, "notes/a.md", true},
		{"name fold", "?name=A.MD", 1, "notes/a.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/files"+tt.query, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			page := decode[struct {
				Items   []database.FileRecord `json:"items"`
				Total   int                   `json:"total"`
				HasMore bool                  `json:"hasMore"`
			}](t, rec)
			if page.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", page.Total, tt.wantTotal)
			}
			if len(page.Items) == 0 || page.Items[0].Path != tt.wantFirst {
				t.Errorf("first item = %+v, want %s", page.Items, tt.wantFirst)
			}
			if page.HasMore != tt.wantMore {
				t.Errorf("hasMore = %v, want %v", page.HasMore, tt.wantMore)
			}
		})
	}
}

func TestListFilesInvalidParams(t *testing.T) {
	s := newTestServer(t)

	for _, query := range []string{"?sort=owner", "?dir=up", "?limit=5000", "?after=yesterday", "?min_size=lots"} {
		rec := s.do(t, http.MethodGet, "/api/files"+query, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestGetFile(t *testing.T) {
	s := newTestServer(t)
	s.index(t)
	if err := s.db.AddTagToFile(context.Background(), "reports/b.xlsx", "finance"); err != nil {
		t.Fatal(err)
	}

	rec := s.do(t, http.MethodGet, "/api/files/reports/b.xlsx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	detail := decode[FileDetail](t, rec)
	if detail.Path != "reports/b.xlsx" || detail.Section != "reports" {
		t.Errorf("unexpected record %+v", detail.FileRecord)
	}
	if detail.Kind != "spreadsheet" {
		t.Errorf("kind = %q, want spreadsheet", detail.Kind)
	}
	if len(detail.Tags) != 1 || detail.Tags[0] != "finance" {
		t.Errorf("tags = %v, want [finance]", detail.Tags)
	}

	if rec := s.do(t, http.MethodGet, "/api/files/reports/missing.pdf", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing file: status = %d, want 404", rec.Code)
	}
}

func TestBrowse(t *testing.T) {
	s := newTestServer(t)
	s.index(t)

	rec := s.do(t, http.MethodGet, "/api/browse", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	root := decode[database.DirectoryListing](t, rec)
	if len(root.Directories) != 2 {
		t.Fatalf("directories = %+v, want notes and reports", root.Directories)
	}
	if root.Directories[0].Name != "notes" || root.Directories[1].FileCount != 2 {
		t.Errorf("unexpected directories %+v", root.Directories)
	}

	rec = s.do(t, http.MethodGet, "/api/browse?path=reports", nil)
	listing := decode[database.DirectoryListing](t, rec)
	if len(listing.Files) != 2 {
		t.Errorf("files = %d, want 2", len(listing.Files))
	}
	if len(listing.Breadcrumb) == 0 || listing.Breadcrumb[len(listing.Breadcrumb)-1].Path != "reports" {
		t.Errorf("breadcrumb = %+v", listing.Breadcrumb)
	}

	if rec := s.do(t, http.MethodGet, "/api/browse?path=nowhere", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown directory: status = %d, want 404", rec.Code)
	}
}

func TestListSections(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/sections", nil)
	if got := decode[[]string](t, rec); len(got) != 0 {
		t.Errorf("empty index sections = %v", got)
	}

	s.index(t)
	rec = s.do(t, http.MethodGet, "/api/sections", nil)
	got := decode[[]string](t, rec)
	if len(got) != 2 || got[0] != "notes" || got[1] != "reports" {
		t.Errorf("sections = %v, want [notes reports]", got)
	}
}

func TestGetStats(t *testing.T) {
	s := newTestServer(t)
	s.index(t)

	rec := s.do(t, http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	stats := decode[StatsResponse](t, rec)
	if stats.IndexStats == nil || stats.ActiveFiles != 3 {
		t.Fatalf("stats = %+v", stats.IndexStats)
	}
	if stats.BySection["reports"] != 2 || stats.ByExtension[".md"] != 1 {
		t.Errorf("breakdowns: section=%v extension=%v", stats.BySection, stats.ByExtension)
	}
	if stats.LastRun == nil || stats.LastRun.New != 3 {
		t.Errorf("lastRun = %+v", stats.LastRun)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", database.ErrNotFound, http.StatusNotFound},
		{"run in progress", indexer.ErrRunInProgress, http.StatusConflict},
		{"finalized", database.ErrJobFinalized, http.StatusConflict},
		{"validation", &search.ValidationError{Field: "sort", Message: "bad"}, http.StatusBadRequest},
		{"bad request", consolidate.ErrInvalidRequest, http.StatusBadRequest},
		{"bad run", indexer.ErrInvalidRun, http.StatusBadRequest},
		{"other", os.ErrPermission, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("%s: statusFor = %d, want %d", tt.name, got, tt.want)
		}
	}
}
