package operators

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/exec"
	"github.com/forbearing/surrealkv-core/pkg/hnsw"
	"github.com/forbearing/surrealkv-core/plan"
	"github.com/forbearing/surrealkv-core/types"
)

// KnnScan implements §4.6.4: resolves an AccessKnnSearch AccessPath against a
// live hnsw.Index, pushing any residual predicate down as a ConditionChecker
// so denied/filtered rows never consume a top-K slot, then runs survivors
// through the shared row pipeline.
type KnnScan struct {
	Ns, Db, Tb string
	TbDef      *catalog.TableDefinition
	View       *catalog.View
	Pipeline   *exec.RowPipeline
	Registry   hnsw.Registry
	Path       plan.AccessPath

	// Residual is an optional extra filter evaluated on the candidate record
	// id before it is allowed to consume a result slot (e.g. a WHERE clause
	// conjoined with the KNN predicate).
	Residual hnsw.ConditionChecker
}

func (s *KnnScan) Execute(ctx context.Context) (exec.BatchIterator, error) {
	if s.Path.Index == nil {
		return nil, errors.New("knn scan requires a resolved index")
	}
	idx, err := s.Registry.Index(ctx, s.Ns, s.Db, s.Tb, s.Path.Index.Name)
	if err != nil {
		return nil, err
	}

	checker := s.Residual
	if checker != nil {
		inner := checker
		checker = func(candidate *types.RecordId) (bool, error) {
			ok, err := inner(candidate)
			if err != nil || !ok {
				return ok, err
			}
			return s.permitted(ctx, candidate)
		}
	} else {
		checker = s.permitted
	}

	neighbors, err := idx.Search(ctx, s.Path.Vector, s.Path.K, s.Path.Ef, checker)
	if err != nil {
		return nil, err
	}

	var rows []types.Value
	for _, n := range neighbors {
		rec, err := s.View.GetRecord(ctx, s.Ns, s.Db, s.Tb, n.RecordID.Key)
		if errors.Is(err, types.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		row, ok, err := s.Pipeline.Process(ctx, s.Ns, s.Db, s.TbDef, rec)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		// §4.6.4's "KNN distance context" side channel: the neighbor's
		// distance rides along on the row so a vector::distance::knn()
		// projection can read it back without re-running the search.
		rows = append(rows, row.WithField("__knn_distance", types.FloatValue(n.Distance)))
	}
	return exec.SingleBatchIterator(rows), nil
}

// permitted re-checks the candidate against the table's select permission
// before it can consume a top-K slot, so permission-denied rows are skipped
// the same way a WHERE-pushed residual predicate would be.
func (s *KnnScan) permitted(candidate *types.RecordId) (bool, error) {
	ctx := context.Background()
	rec, err := s.View.GetRecord(ctx, s.Ns, s.Db, s.Tb, candidate.Key)
	if errors.Is(err, types.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, ok, err := s.Pipeline.Process(ctx, s.Ns, s.Db, s.TbDef, rec)
	return ok, err
}
