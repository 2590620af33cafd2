package operators

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/exec"
	"github.com/forbearing/surrealkv-core/kvs"
	"github.com/forbearing/surrealkv-core/plan"
	"github.com/forbearing/surrealkv-core/types"
)

// IndexScan implements §4.6.2: resolves an AccessBTreeScan AccessPath
// (Equality/Range/Compound) against one catalog.IndexDefinition, fetches the
// backing record for each index entry, and runs it through the same
// exec.RowPipeline Scan uses.
type IndexScan struct {
	Ns, Db, Tb string
	TbDef      *catalog.TableDefinition
	View       *catalog.View
	Pipeline   *exec.RowPipeline
	Path       plan.AccessPath
}

func (s *IndexScan) Execute(ctx context.Context) (exec.BatchIterator, error) {
	if s.Path.Index == nil {
		return nil, errors.New("index scan requires a resolved index")
	}
	ix := s.Path.Index

	it, err := s.open(ctx, ix)
	if err != nil {
		return nil, err
	}

	stream := exec.NewStreamBatchIterator(it, func(ctx context.Context, kv exec.RawKV) (types.Value, bool, error) {
		return s.fetchAndProcess(ctx, kv.Value)
	})

	if !ix.Unique() {
		return stream, nil
	}

	// §4.6.2: "a unique index access yields at most one row" — drain the
	// single match eagerly rather than exposing a streaming iterator that
	// could mislead a caller into expecting more than one batch.
	var rows []types.Value
	for stream.Next(ctx) {
		rows = append(rows, stream.Batch().Rows...)
		if len(rows) > 1 {
			break
		}
	}
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, err
	}
	stream.Close()
	if len(rows) > 1 {
		return nil, errors.New("unique index returned more than one match")
	}
	return exec.SingleBatchIterator(rows), nil
}

func (s *IndexScan) open(ctx context.Context, ix *catalog.IndexDefinition) (kvs.KeyValueIterator, error) {
	acc := s.Path.Access
	switch acc.Kind {
	case plan.IndexEquality:
		return s.View.StreamIndexEquality(ctx, s.Ns, s.Db, s.Tb, ix.Name, []types.Value{acc.Equality}, s.Path.Direction)
	case plan.IndexRange:
		return s.View.StreamIndexRange(ctx, s.Ns, s.Db, s.Tb, ix.Name, nil, acc.From, acc.To, acc.HasFrom, acc.HasTo, s.Path.Direction)
	case plan.IndexCompound:
		if !acc.HasFrom && !acc.HasTo {
			return s.View.StreamIndexEquality(ctx, s.Ns, s.Db, s.Tb, ix.Name, acc.Prefix, s.Path.Direction)
		}
		return s.View.StreamIndexRange(ctx, s.Ns, s.Db, s.Tb, ix.Name, acc.Prefix, acc.From, acc.To, acc.HasFrom, acc.HasTo, s.Path.Direction)
	default:
		return nil, errors.Newf("unsupported index access kind %v", acc.Kind)
	}
}

func (s *IndexScan) fetchAndProcess(ctx context.Context, indexEntryValue []byte) (types.Value, bool, error) {
	rid, err := catalog.DecodeIndexValue(indexEntryValue)
	if err != nil {
		return types.None(), false, err
	}
	rec, err := s.View.GetRecord(ctx, s.Ns, s.Db, s.Tb, rid.Key)
	if errors.Is(err, types.ErrRecordNotFound) {
		return types.None(), false, nil
	}
	if err != nil {
		return types.None(), false, err
	}
	return s.Pipeline.Process(ctx, s.Ns, s.Db, s.TbDef, rec)
}
