package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"corpus-manager/internal/database"
	"corpus-manager/internal/doctypes"

	"github.com/dustin/go-humanize"
)

const (
	DefaultLimit = 25
	MaxLimit     = 1000

	// RootSection selects files directly under the corpus root, whose
	// section is empty.
	RootSection = "(root)"
)

// ValidationError reports an invalid search parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Params is a validated filter, sort and page request. Zero-valued filters
// impose no constraint; all supplied filters must hold.
type Params struct {
	Name           string           `json:"name,omitempty"`
	Extension      string           `json:"extension,omitempty"`
	Section        string           `json:"section,omitempty"`
	PathPrefix     string           `json:"pathPrefix,omitempty"`
	DateAfter      *time.Time       `json:"dateAfter,omitempty"`
	DateBefore     *time.Time       `json:"dateBefore,omitempty"`
	SizeMin        *int64           `json:"sizeMin,omitempty"`
	SizeMax        *int64           `json:"sizeMax,omitempty"`
	SortKey        database.SortKey `json:"sortKey"`
	SortDir        database.SortDir `json:"sortDir"`
	Offset         int              `json:"offset,omitempty"`
	Limit          int              `json:"limit,omitempty"`
	IncludeDeleted bool             `json:"includeDeleted,omitempty"`
}

// Validate normalizes p in place and rejects unknown or inconsistent
// values. A zero Limit becomes DefaultLimit.
func (p *Params) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Section = strings.TrimSpace(p.Section)
	p.PathPrefix = strings.TrimPrefix(strings.TrimSpace(p.PathPrefix), "/")
	p.Extension = doctypes.NormalizeExtension(p.Extension)

	if p.SortKey == "" {
		p.SortKey = database.SortByName
	}
	switch p.SortKey {
	case database.SortByName, database.SortByDate, database.SortBySize, database.SortBySection:
	default:
		return invalid("sort", "unknown sort key %q (want name, date, size or section)", p.SortKey)
	}

	if p.SortDir == "" {
		p.SortDir = database.SortAsc
	}
	if p.SortDir != database.SortAsc && p.SortDir != database.SortDesc {
		return invalid("dir", "unknown sort direction %q (want asc or desc)", p.SortDir)
	}

	if p.Offset < 0 {
		return invalid("offset", "must not be negative")
	}
	switch {
	case p.Limit < 0:
		return invalid("limit", "must not be negative")
	case p.Limit == 0:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		return invalid("limit", "must be at most %d", MaxLimit)
	}

	if p.SizeMin != nil && *p.SizeMin < 0 {
		return invalid("min_size", "must not be negative")
	}
	if p.SizeMax != nil && *p.SizeMax < 0 {
		return invalid("max_size", "must not be negative")
	}
	if p.SizeMin != nil && p.SizeMax != nil && *p.SizeMin > *p.SizeMax {
		return invalid("min_size", "greater than max_size")
	}
	if p.DateAfter != nil && p.DateBefore != nil && p.DateAfter.After(*p.DateBefore) {
		return invalid("after", "later than before")
	}
	return nil
}

// Query converts p into a store query. Call Validate first.
func (p Params) Query() database.FileQuery {
	q := database.FileQuery{
		NameContains:   p.Name,
		Extension:      p.Extension,
		PathPrefix:     p.PathPrefix,
		ModifiedAfter:  p.DateAfter,
		ModifiedBefore: p.DateBefore,
		SizeMin:        p.SizeMin,
		SizeMax:        p.SizeMax,
		IncludeDeleted: p.IncludeDeleted,
		Sort:           p.SortKey,
		Dir:            p.SortDir,
		Offset:         p.Offset,
		Limit:          p.Limit,
	}
	if p.Section != "" {
		section := p.Section
		if section == RootSection {
			section = ""
		}
		q.Section = &section
	}
	return q
}

// Matches reports whether rec satisfies every filter in p. It applies the
// same rules as the store: ASCII case folding for names, case-sensitive
// path prefixes, inclusive ranges.
func (p Params) Matches(rec database.FileRecord) bool {
	if !p.IncludeDeleted && rec.Status != database.StatusActive {
		return false
	}
	if p.Name != "" && !strings.Contains(asciiLower(rec.Name), asciiLower(p.Name)) {
		return false
	}
	if p.Extension != "" && rec.Extension != p.Extension {
		return false
	}
	if p.Section != "" {
		want := p.Section
		if want == RootSection {
			want = ""
		}
		if rec.Section != want {
			return false
		}
	}
	if p.PathPrefix != "" && !strings.HasPrefix(rec.Path, p.PathPrefix) {
		return false
	}
	if p.DateAfter != nil && rec.ModTime.Before(*p.DateAfter) {
		return false
	}
	if p.DateBefore != nil && rec.ModTime.After(*p.DateBefore) {
		return false
	}
	if p.SizeMin != nil && rec.Size < *p.SizeMin {
		return false
	}
	if p.SizeMax != nil && rec.Size > *p.SizeMax {
		return false
	}
	return true
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

const dateOnly = "2006-01-02"

// ParseParams builds Params from string inputs such as a query string or
// CLI flags, then validates them. Recognized keys: name, ext, section,
// path, after, before, min_size, max_size, sort, dir, offset, limit,
// deleted. Dates are RFC 3339 or YYYY-MM-DD; a date-only "before" covers
// the whole day. Sizes accept units ("10KB", "2 MiB").
func ParseParams(values url.Values) (Params, error) {
	var p Params
	var err error

	p.Name = values.Get("name")
	p.Extension = firstOf(values, "ext", "extension")
	p.Section = values.Get("section")
	p.PathPrefix = firstOf(values, "path", "prefix")
	p.SortKey = database.SortKey(strings.ToLower(values.Get("sort")))
	p.SortDir = database.SortDir(strings.ToLower(values.Get("dir")))

	if p.DateAfter, err = parseDate("after", values.Get("after"), false); err != nil {
		return Params{}, err
	}
	if p.DateBefore, err = parseDate("before", values.Get("before"), true); err != nil {
		return Params{}, err
	}
	if p.SizeMin, err = parseSize("min_size", values.Get("min_size")); err != nil {
		return Params{}, err
	}
	if p.SizeMax, err = parseSize("max_size", values.Get("max_size")); err != nil {
		return Params{}, err
	}
	if p.Offset, err = parseInt("offset", values.Get("offset")); err != nil {
		return Params{}, err
	}
	if p.Limit, err = parseInt("limit", values.Get("limit")); err != nil {
		return Params{}, err
	}
	if v := values.Get("deleted"); v != "" {
		if p.IncludeDeleted, err = strconv.ParseBool(v); err != nil {
			return Params{}, invalid("deleted", "not a boolean: %q", v)
		}
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func firstOf(values url.Values, keys ...string) string {
	for _, k := range keys {
		if v := values.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func parseDate(field, s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return nil, invalid(field, "not a date: %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseSize(field, s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return nil, invalid(field, "not a size: %q", s)
	}
	if n > uint64(1<<63-1) {
		return nil, invalid(field, "too large: %q", s)
	}
	size := int64(n)
	return &size, nil
}

func parseInt(field, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, invalid(field, "not an integer: %q", s)
	}
	return n, nil
}
