package handlers

import (
	"corpus-manager/internal/consolidate"
	"corpus-manager/internal/database"
	"corpus-manager/internal/indexer"
	"corpus-manager/internal/search"
)

// Handlers serves the HTTP API over one index database.
type Handlers struct {
	db          *database.Database
	indexer     *indexer.Indexer
	search      *search.Engine
	consolidate *consolidate.Engine
}

// New wires the handlers to the core engines.
func New(db *database.Database, idx *indexer.Indexer, searchEngine *search.Engine, consolidator *consolidate.Engine) *Handlers {
	return &Handlers{
		db:          db,
		indexer:     idx,
		search:      searchEngine,
		consolidate: consolidator,
	}
}
