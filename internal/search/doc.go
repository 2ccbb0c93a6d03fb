// Package search turns loosely typed filter input into validated Params and
// runs them against the index.
//
// Filters combine with AND. Results are totally ordered: the chosen sort key
// first, then path ascending, so consecutive pages never overlap or skip a
// record against a fixed snapshot.
package search
