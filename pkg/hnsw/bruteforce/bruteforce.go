// Package bruteforce is a reference hnsw.Index: linear-scan exact KNN over
// Euclidean distance. Good enough to exercise KnnScan's condition-checker
// push-down (§4.6.4) in tests; never claims HNSW's sublinear search.
package bruteforce

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/forbearing/surrealkv-core/pkg/hnsw"
	"github.com/forbearing/surrealkv-core/types"
)

type entry struct {
	id     *types.RecordId
	vector []float64
}

type Index struct {
	mu      sync.RWMutex
	entries []entry
	version uint64
}

func New() *Index { return &Index{} }

func (ix *Index) Upsert(id *types.RecordId, vector []float64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, e := range ix.entries {
		if e.id.Equal(id) {
			ix.entries[i].vector = vector
			ix.version++
			return nil
		}
	}
	ix.entries = append(ix.entries, entry{id: id, vector: vector})
	ix.version++
	return nil
}

func (ix *Index) Remove(id *types.RecordId) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, e := range ix.entries {
		if e.id.Equal(id) {
			ix.entries = append(ix.entries[:i], ix.entries[i+1:]...)
			ix.version++
			return nil
		}
	}
	return nil
}

func (ix *Index) Version() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.version
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func (ix *Index) Search(ctx context.Context, query []float64, k, ef int, checker hnsw.ConditionChecker) ([]hnsw.Neighbor, error) {
	ix.mu.RLock()
	snapshot := make([]entry, len(ix.entries))
	copy(snapshot, ix.entries)
	ix.mu.RUnlock()

	var candidates []hnsw.Neighbor
	for _, e := range snapshot {
		if checker != nil {
			ok, err := checker(e.id)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		candidates = append(candidates, hnsw.Neighbor{RecordID: e.id, Distance: euclidean(query, e.vector)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Distance < candidates[j].Distance })
	if k > 0 && k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates, nil
}
