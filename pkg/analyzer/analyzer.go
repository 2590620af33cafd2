// Package analyzer defines the full-text analyzer contract FullTextScan
// consumes (§4.6.3: "the underlying index is an external collaborator; this
// operator only consumes its iterator contract"). The stdlib-only
// memanalyzer subpackage is a reference stand-in, not the production engine.
package analyzer

import (
	"context"

	"github.com/forbearing/surrealkv-core/types"
)

// Hit is one full-text match: the matched record id and its relevance score.
type Hit struct {
	RecordID *types.RecordId
	Score    float64
}

// Index is a named full-text index over one table column. Query tokenizes
// and scores query against the index per the configured analyzer, returning
// hits ordered by descending score.
type Index interface {
	Query(ctx context.Context, query string, operator string) (HitIterator, error)
}

// HitIterator is a lazy sequence of Hit, mirroring kvs.KeyValueIterator's
// pull shape so FullTextScan can suspend on it the same way it suspends on
// a key-range scan (§5 "Suspension points").
type HitIterator interface {
	Next(ctx context.Context) bool
	Hit() Hit
	Err() error
	Close()
}

// Registry resolves a table/column's configured analyzer name to a live
// Index handle, refreshing it when the catalog's index definition changes.
type Registry interface {
	Index(ctx context.Context, ns, db, tb, indexName string) (Index, error)
}
