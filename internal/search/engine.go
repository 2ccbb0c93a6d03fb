package search

import (
	"context"
	"errors"

	"corpus-manager/internal/database"
	"corpus-manager/internal/logging"
	"corpus-manager/internal/metrics"
)

// Store is the read side of the index the engine queries.
type Store interface {
	QueryFiles(ctx context.Context, q database.FileQuery) (*database.FilePage, error)
}

// Page is one slice of an ordered result plus the total match count.
type Page struct {
	Items  []database.FileRecord `json:"items"`
	Total  int                   `json:"total"`
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
}

// HasMore reports whether records follow this page.
func (p *Page) HasMore() bool {
	return p.Offset+len(p.Items) < p.Total
}

// Engine runs validated queries against the index.
type Engine struct {
	store Store
}

// NewEngine returns an Engine over store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Query validates params and returns the requested page.
func (e *Engine) Query(ctx context.Context, params Params) (_ *Page, err error) {
	defer func() {
		var vErr *ValidationError
		switch {
		case errors.As(err, &vErr):
			metrics.QueriesTotal.WithLabelValues("invalid").Inc()
		case err != nil:
			metrics.QueriesTotal.WithLabelValues("error").Inc()
		default:
			metrics.QueriesTotal.WithLabelValues("ok").Inc()
		}
	}()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	result, err := e.store.QueryFiles(ctx, params.Query())
	if err != nil {
		return nil, err
	}
	metrics.QueryResultSize.Observe(float64(result.Total))

	logging.Debug("Query %+v matched %d (returned %d)", params.Query(), result.Total, len(result.Items))
	return &Page{
		Items:  result.Items,
		Total:  result.Total,
		Offset: params.Offset,
		Limit:  params.Limit,
	}, nil
}

// All pages through the complete result of params in order, ignoring its
// Offset and Limit. Records that stop matching between pages because a
// reindex committed meanwhile are dropped by the Matches check.
func (e *Engine) All(ctx context.Context, params Params) ([]database.FileRecord, error) {
	params.Offset = 0
	params.Limit = MaxLimit
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var all []database.FileRecord
	seen := make(map[string]bool)
	for {
		page, err := e.Query(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Items {
			if seen[rec.Path] || !params.Matches(rec) {
				continue
			}
			seen[rec.Path] = true
			all = append(all, rec)
		}
		if len(page.Items) == 0 || !page.HasMore() {
			return all, nil
		}
		params.Offset += len(page.Items)
	}
}
