// Package hnsw defines the vector-index contract KnnScan consumes (§4.6.4):
// HNSW itself is an external collaborator out of core scope per §1, so this
// package ships only the contract plus a brute-force reference
// implementation, never a production HNSW engine.
package hnsw

import (
	"context"

	"github.com/forbearing/surrealkv-core/types"
)

// ConditionChecker lets KnnScan push residual WHERE predicates into the
// search itself (§4.6.4: "rows violating them do not consume top-K slots").
// It returns whether the candidate record id is allowed to count toward k.
type ConditionChecker func(candidate *types.RecordId) (bool, error)

// Neighbor is one KNN search result: the matched record id and its distance
// from the query vector, cached downstream for vector::distance::knn().
type Neighbor struct {
	RecordID *types.RecordId
	Distance float64
}

// Index is a live handle to one HNSW-indexed column. Search executes a
// top-k query, applying checker (if non-nil) to skip disallowed candidates
// without consuming a result slot.
type Index interface {
	Search(ctx context.Context, query []float64, k, ef int, checker ConditionChecker) ([]Neighbor, error)
	Upsert(id *types.RecordId, vector []float64) error
	Remove(id *types.RecordId) error
	// Version reports the index's current generation, bumped on every
	// Upsert/Remove; callers refresh their handle when the catalog's
	// cache-version stamp advances past the one they last observed.
	Version() uint64
}

// Registry resolves a table/column's HNSW index to a live, current handle,
// refreshing it when the catalog's index cache timestamp advances — per
// §4.6.4's "ensures it is current (refreshing if catalog state advanced)".
type Registry interface {
	Index(ctx context.Context, ns, db, tb, indexName string) (Index, error)
}
