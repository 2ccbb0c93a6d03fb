package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"corpus-manager/internal/doctypes"
	"corpus-manager/internal/filesystem"
)

// ScanConfig is the fixed configuration a run is started with.
type ScanConfig struct {
	// Root is the corpus directory
	Root string

	// SkipHidden excludes entries whose name starts with "."
	SkipHidden bool

	// SkipPatterns are globs matched against entry names (path.Match syntax)
	SkipPatterns []string

	// Extensions is the allow-list; empty admits every extension
	Extensions []string
}

// Validate checks that the root is an existing directory and every skip
// pattern is a valid glob.
func (c ScanConfig) Validate() error {
	if c.Root == "" {
		return errors.New("scan root is required")
	}
	info, err := os.Stat(c.Root)
	if err != nil {
		return fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("scan root %s is not a directory", c.Root)
	}
	for _, p := range c.SkipPatterns {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid skip pattern %q: %w", p, err)
		}
	}
	return nil
}

// Candidate is one eligible file observed by a scan.
type Candidate struct {
	Path      string // relative to the root, slash-separated
	AbsPath   string
	Name      string
	ParentDir string
	Extension string
	Section   string
	Size      int64
	ModTime   time.Time
}

// Scanner walks the corpus root applying skip rules.
type Scanner struct {
	root       string
	skipHidden bool
	patterns   []string
	extensions map[string]bool
	retry      filesystem.RetryConfig
}

// NewScanner validates config and returns a Scanner for it.
func NewScanner(config ScanConfig) (*Scanner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	return &Scanner{
		root:       root,
		skipHidden: config.SkipHidden,
		patterns:   append([]string(nil), config.SkipPatterns...),
		extensions: doctypes.ExtensionSet(config.Extensions),
		retry:      filesystem.DefaultRetryConfig(),
	}, nil
}

// Root returns the absolute corpus root.
func (s *Scanner) Root() string {
	return s.root
}

// CleanSubpath converts a user-supplied subpath into a root-relative slash
// path. It rejects paths that leave the root.
func (s *Scanner) CleanSubpath(sub string) (string, error) {
	if filepath.IsAbs(sub) {
		rel, err := filepath.Rel(s.root, sub)
		if err != nil {
			return "", fmt.Errorf("%w: subpath %s: %w", ErrInvalidRun, sub, err)
		}
		sub = rel
	}
	cleaned := path.Clean(filepath.ToSlash(sub))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.HasPrefix(cleaned, "/") {
		return "", fmt.Errorf("%w: subpath %s is outside the corpus root", ErrInvalidRun, sub)
	}
	if cleaned == "." {
		return "", nil
	}
	return cleaned, nil
}

// Scan returns a lazy sequence of candidates. Each iteration starts a fresh
// walk, so the sequence can be ranged over more than once. Entries are
// visited in lexical order within each directory.
//
// With subpaths, only those subtrees (or single files) are walked. Errors
// yielded are *ScanError values, or the context error when ctx is done.
func (s *Scanner) Scan(ctx context.Context, subpaths ...string) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		starts := []string{""}
		if len(subpaths) > 0 {
			starts = subpaths
		}
		for _, start := range starts {
			if !s.walk(ctx, start, yield) {
				return
			}
		}
	}
}

// walk reports false when iteration must stop.
func (s *Scanner) walk(ctx context.Context, start string, yield func(Candidate, error) bool) bool {
	if s.skipSubpath(start) {
		return true
	}
	stopped := false
	startAbs := filepath.Join(s.root, filepath.FromSlash(start))

	err := filepath.WalkDir(startAbs, func(abs string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			stopped = true
			yield(Candidate{}, err)
			return fs.SkipAll
		}

		rel, err := filepath.Rel(s.root, abs)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			rel = ""
		}

		if walkErr != nil {
			isDir := d == nil || d.IsDir()
			if !yield(Candidate{}, &ScanError{Path: rel, IsDir: isDir, Err: walkErr}) {
				stopped = true
				return fs.SkipAll
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if abs != startAbs && s.skipName(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		c, ok, err := s.candidate(abs, rel, d)
		if err != nil {
			if !yield(Candidate{}, &ScanError{Path: rel, Err: err}) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		}
		if !ok {
			return nil
		}
		if !yield(c, nil) {
			stopped = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !stopped {
		stopped = !yield(Candidate{}, &ScanError{Path: start, IsDir: true, Err: err})
	}
	return !stopped
}

// skipSubpath reports whether any segment of a cleaned subpath is excluded
// by the skip rules, so a subpath run never sees what a full walk would not.
func (s *Scanner) skipSubpath(sub string) bool {
	if sub == "" {
		return false
	}
	for seg := range strings.SplitSeq(sub, "/") {
		if s.skipName(seg) {
			return true
		}
	}
	return false
}

func (s *Scanner) skipName(name string) bool {
	if s.skipHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, p := range s.patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

// candidate builds the observation for a non-directory entry. Symlinks are
// followed; a link to a directory or any other non-regular target is skipped.
func (s *Scanner) candidate(abs, rel string, d fs.DirEntry) (Candidate, bool, error) {
	name := d.Name()
	ext := doctypes.ExtensionOf(name)
	if len(s.extensions) > 0 && !s.extensions[ext] {
		return Candidate{}, false, nil
	}

	var info fs.FileInfo
	var err error
	if d.Type()&fs.ModeSymlink != 0 {
		info, err = filesystem.StatWithRetry(abs, s.retry)
	} else {
		info, err = d.Info()
	}
	if err != nil {
		return Candidate{}, false, err
	}
	if !info.Mode().IsRegular() {
		return Candidate{}, false, nil
	}

	parent := path.Dir(rel)
	if parent == "." {
		parent = ""
	}
	section := ""
	if first, _, nested := strings.Cut(rel, "/"); nested {
		section = first
	}

	return Candidate{
		Path:      rel,
		AbsPath:   abs,
		Name:      name,
		ParentDir: parent,
		Extension: ext,
		Section:   section,
		Size:      info.Size(),
		ModTime:   info.ModTime().UTC(),
	}, true, nil
}
