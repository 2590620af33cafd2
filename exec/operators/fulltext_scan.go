package operators

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/exec"
	"github.com/forbearing/surrealkv-core/pkg/analyzer"
	"github.com/forbearing/surrealkv-core/plan"
	"github.com/forbearing/surrealkv-core/types"
)

// FullTextScan implements §4.6.3: resolves an AccessFullTextSearch AccessPath
// against a live analyzer.Index, fetches the backing record for each hit in
// descending-score order, and runs it through the shared row pipeline.
type FullTextScan struct {
	Ns, Db, Tb string
	TbDef      *catalog.TableDefinition
	View       *catalog.View
	Pipeline   *exec.RowPipeline
	Registry   analyzer.Registry
	Path       plan.AccessPath
}

func (s *FullTextScan) Execute(ctx context.Context) (exec.BatchIterator, error) {
	if s.Path.Index == nil {
		return nil, errors.New("full-text scan requires a resolved index")
	}
	idx, err := s.Registry.Index(ctx, s.Ns, s.Db, s.Tb, s.Path.Index.Name)
	if err != nil {
		return nil, err
	}
	hits, err := idx.Query(ctx, s.Path.Query, s.Path.Operator)
	if err != nil {
		return nil, err
	}
	defer hits.Close()

	var rows []types.Value
	for hits.Next(ctx) {
		hit := hits.Hit()
		rec, err := s.View.GetRecord(ctx, s.Ns, s.Db, s.Tb, hit.RecordID.Key)
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
		rows = append(rows, row.WithField("__fulltext_score", types.FloatValue(hit.Score)))
	}
	if err := hits.Err(); err != nil {
		return nil, err
	}
	return exec.SingleBatchIterator(rows), nil
}
