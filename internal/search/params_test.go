package search

import (
	"net/url"
	"testing"
	"time"

	"corpus-manager/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestValidateDefaults(t *testing.T) {
	p := Params{Extension: "XLSX", PathPrefix: "/reports/"}
	require.NoError(t, p.Validate())

	assert.Equal(t, ".xlsx", p.Extension)
	assert.Equal(t, "reports/", p.PathPrefix)
	assert.Equal(t, database.SortByName, p.SortKey)
	assert.Equal(t, database.SortAsc, p.SortDir)
	assert.Equal(t, DefaultLimit, p.Limit)
}

func TestValidateRejects(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		p     Params
		field string
	}{
		{"unknown sort", Params{SortKey: "relevance"}, "sort"},
		{"unknown dir", Params{SortDir: "up"}, "dir"},
		{"negative offset", Params{Offset: -1}, "offset"},
		{"negative limit", Params{Limit: -5}, "limit"},
		{"limit too large", Params{Limit: MaxLimit + 1}, "limit"},
		{"negative size", Params{SizeMin: ptr(int64(-1))}, "min_size"},
		{"inverted sizes", Params{SizeMin: ptr(int64(10)), SizeMax: ptr(int64(5))}, "min_size"},
		{"inverted dates", Params{DateAfter: ptr(now), DateBefore: ptr(now.Add(-time.Hour))}, "after"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestParseParams(t *testing.T) {
	values := url.Values{
		"name":     {"Plan"},
		"ext":      {"pdf"},
		"section":  {"reports"},
		"after":    {"2024-01-01"},
		"before":   {"2024-01-31"},
		"min_size": {"1KB"},
		"max_size": {"2048"},
		"sort":     {"Date"},
		"dir":      {"desc"},
		"offset":   {"50"},
		"limit":    {"10"},
		"deleted":  {"true"},
	}

	p, err := ParseParams(values)
	require.NoError(t, err)

	assert.Equal(t, "Plan", p.Name)
	assert.Equal(t, ".pdf", p.Extension)
	assert.Equal(t, "reports", p.Section)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *p.DateAfter)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), *p.DateBefore)
	assert.Equal(t, int64(1000), *p.SizeMin)
	assert.Equal(t, int64(2048), *p.SizeMax)
	assert.Equal(t, database.SortByDate, p.SortKey)
	assert.Equal(t, database.SortDesc, p.SortDir)
	assert.Equal(t, 50, p.Offset)
	assert.Equal(t, 10, p.Limit)
	assert.True(t, p.IncludeDeleted)
}

func TestParseParamsErrors(t *testing.T) {
	tests := []struct {
		key, value, field string
	}{
		{"after", "yesterday", "after"},
		{"min_size", "lots", "min_size"},
		{"offset", "ten", "offset"},
		{"deleted", "maybe", "deleted"},
		{"sort", "random", "sort"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, err := ParseParams(url.Values{tt.key: {tt.value}})
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestMatches(t *testing.T) {
	rec := database.FileRecord{
		Path:      "Reports/Q1 Plan.xlsx",
		Name:      "Q1 Plan.xlsx",
		Extension: ".xlsx",
		Section:   "Reports",
		Size:      500,
		ModTime:   time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
		Status:    database.StatusActive,
	}

	tests := []struct {
		name string
		p    Params
		want bool
	}{
		{"empty", Params{}, true},
		{"name case-insensitive", Params{Name: "q1 PLAN"}, true},
		{"name miss", Params{Name: "budget"}, false},
		{"extension", Params{Extension: ".xlsx"}, true},
		{"extension miss", Params{Extension: ".pdf"}, false},
		{"section", Params{Section: "Reports"}, true},
		{"root section", Params{Section: RootSection}, false},
		{"prefix", Params{PathPrefix: "Reports/"}, true},
		{"prefix case-sensitive", Params{PathPrefix: "reports/"}, false},
		{"date bounds inclusive", Params{DateAfter: ptr(rec.ModTime), DateBefore: ptr(rec.ModTime)}, true},
		{"date after miss", Params{DateAfter: ptr(rec.ModTime.Add(time.Second))}, false},
		{"size bounds inclusive", Params{SizeMin: ptr(int64(500)), SizeMax: ptr(int64(500))}, true},
		{"size max miss", Params{SizeMax: ptr(int64(499))}, false},
		{"conjunction one fails", Params{Extension: ".xlsx", Section: "Notes"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Matches(rec))
		})
	}

	deleted := rec
	deleted.Status = database.StatusDeleted
	assert.False(t, Params{}.Matches(deleted))
	assert.True(t, Params{IncludeDeleted: true}.Matches(deleted))
}

func TestQueryRootSection(t *testing.T) {
	p := Params{Section: RootSection}
	require.NoError(t, p.Validate())
	q := p.Query()
	require.NotNil(t, q.Section)
	assert.Equal(t, "", *q.Section)

	none := Params{}
	require.NoError(t, none.Validate())
	assert.Nil(t, none.Query().Section)
}
