// Package operators implements the physical operators of C6 (§4.6): Scan,
// IndexScan, FullTextScan, KnnScan, BroadcastSource, Create, Delete, Info.
// Each operator is an exec.ExecOperator; Scan ties the access-path planner
// (plan.Plan) to the shared exec.RowPipeline so every operator applies
// identical permission/redaction/computed-field semantics regardless of
// which AccessPath it runs (§3.14).
package operators

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/exec"
	"github.com/forbearing/surrealkv-core/logger"
	"github.com/forbearing/surrealkv-core/metrics"
	"github.com/forbearing/surrealkv-core/plan"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// Scan is the Scan operator of §4.6.1: resolves a FROM target (table name or
// literal RecordId) to a stream of rows, dispatching to the appropriate
// physical sub-operator for non-trivial AccessPaths.
type Scan struct {
	Ns, Db, Tb string
	TbDef      *catalog.TableDefinition // nil when the table is schemaless
	View       *catalog.View
	Pipeline   *exec.RowPipeline

	Indexes []catalog.IndexDefinition
	Preds   []plan.Predicate
	Source  *types.RecordId // non-nil when FROM names a literal record id/range
	Order   *plan.OrderSpec
	Hint    plan.Hint

	// CountOnly marks a bare count() aggregate with no other projected
	// columns, letting the planner rewrite to AccessCountIndex (§4.5).
	CountOnly bool
}

func (s *Scan) Execute(ctx context.Context) (exec.BatchIterator, error) {
	path := plan.Plan(s.Indexes, s.Preds, s.Source, s.Order, s.Hint, s.CountOnly)
	kind := accessPathName(path.Kind)
	logger.Plan.WithPlanContext(&types.PlanContext{Ns: s.Ns, Db: s.Db, Tb: s.Tb, AccessPath: kind}, consts.PhasePlan).
		Debugw("access path chosen")
	if metrics.AccessPathChosen != nil {
		metrics.AccessPathChosen.WithLabelValues(kind).Inc()
	}

	switch path.Kind {
	case plan.AccessPointLookup:
		return s.pointLookup(ctx, path)
	case plan.AccessTableScan:
		return s.tableScan(ctx, path.Direction)
	case plan.AccessBTreeScan:
		return (&IndexScan{Ns: s.Ns, Db: s.Db, Tb: s.Tb, TbDef: s.TbDef, View: s.View, Pipeline: s.Pipeline, Path: path}).Execute(ctx)
	case plan.AccessIndexUnion:
		return s.indexUnion(ctx, path)
	case plan.AccessFullTextSearch:
		return nil, errors.New("full-text access paths are executed via FullTextScan, not Scan")
	case plan.AccessKnnSearch:
		return nil, errors.New("knn access paths are executed via KnnScan, not Scan")
	case plan.AccessCountIndex:
		return s.countIndex(ctx, path.Direction)
	default:
		return s.tableScan(ctx, path.Direction)
	}
}

// countIndex implements the AccessCountIndex rewrite: when table-level
// permission is unconditionally Allow and no computed/field-permission work
// applies to any row, every row in the RowPipeline fast path would survive
// unchanged, so the count can be taken straight off the key stream without
// decoding a single record value. Otherwise it falls back to a normal table
// scan and counts the rows the pipeline actually lets through.
func (s *Scan) countIndex(ctx context.Context, dir consts.Direction) (exec.BatchIterator, error) {
	resolved := catalog.ResolveTable(s.Pipeline.AuthDisabled, s.Pipeline.Actor, consts.ActionSelect, s.Ns, s.Db, s.TbDef)
	fastPath := resolved.Allowed()
	if fastPath && s.TbDef != nil {
		fields, err := s.View.AllTbFields(ctx, s.Ns, s.Db, s.TbDef)
		if err != nil {
			return nil, err
		}
		for _, fd := range fields {
			if fd.Computed != nil || fd.SelectPermission.Kind != catalog.PermissionFull {
				fastPath = false
				break
			}
		}
	}
	if !fastPath {
		return s.countViaPipeline(ctx, dir)
	}

	it, err := s.View.StreamRecords(ctx, s.Ns, s.Db, s.Tb, dir)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var n int64
	for it.Next(ctx) {
		n++
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return exec.SingleBatchIterator([]types.Value{types.IntValue(n)}), nil
}

func (s *Scan) countViaPipeline(ctx context.Context, dir consts.Direction) (exec.BatchIterator, error) {
	it, err := s.View.StreamRecords(ctx, s.Ns, s.Db, s.Tb, dir)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var n int64
	for it.Next(ctx) {
		kv := it.KeyValue()
		_, ok, err := s.decodeAndProcess(ctx, exec.RawKV{Key: kv.Key, Value: kv.Value})
		if err != nil {
			return nil, err
		}
		if ok {
			n++
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return exec.SingleBatchIterator([]types.Value{types.IntValue(n)}), nil
}

func (s *Scan) pointLookup(ctx context.Context, path plan.AccessPath) (exec.BatchIterator, error) {
	rec, err := s.View.GetRecord(ctx, s.Ns, s.Db, s.Tb, path.RecordID.Key)
	if errors.Is(err, types.ErrRecordNotFound) {
		return exec.EmptyIterator(), nil
	}
	if err != nil {
		return nil, err
	}
	row, ok, err := s.Pipeline.Process(ctx, s.Ns, s.Db, s.TbDef, rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return exec.EmptyIterator(), nil
	}
	return exec.SingleBatchIterator([]types.Value{row}), nil
}

func (s *Scan) tableScan(ctx context.Context, dir consts.Direction) (exec.BatchIterator, error) {
	it, err := s.View.StreamRecords(ctx, s.Ns, s.Db, s.Tb, dir)
	if err != nil {
		return nil, err
	}
	return exec.NewStreamBatchIterator(it, func(ctx context.Context, kv exec.RawKV) (types.Value, bool, error) {
		return s.decodeAndProcess(ctx, kv)
	}), nil
}

func (s *Scan) decodeAndProcess(ctx context.Context, kv exec.RawKV) (types.Value, bool, error) {
	id, err := catalog.RecordIDFromKey(s.Ns, s.Db, s.Tb, kv.Key)
	if err != nil {
		return types.None(), false, err
	}
	val, err := catalog.DecodeRecordValue(kv.Value)
	if err != nil {
		return types.None(), false, err
	}
	rec := types.NewRecord(id, val)
	return s.Pipeline.Process(ctx, s.Ns, s.Db, s.TbDef, rec)
}

// indexUnion executes every disjunct of an AccessIndexUnion as a nested
// BTreeScan and merges rows, deduplicating by record id, per §4.6.2's
// "IndexUnion: one sub-iterator per OR branch, deduplicated by record id".
func (s *Scan) indexUnion(ctx context.Context, path plan.AccessPath) (exec.BatchIterator, error) {
	seen := make(map[string]bool)
	var rows []types.Value
	for _, part := range path.Parts {
		sub := &IndexScan{Ns: s.Ns, Db: s.Db, Tb: s.Tb, TbDef: s.TbDef, View: s.View, Pipeline: s.Pipeline, Path: part}
		it, err := sub.Execute(ctx)
		if err != nil {
			return nil, err
		}
		for it.Next(ctx) {
			for _, row := range it.Batch().Rows {
				key := row.Field("id").ToSQLLiteral()
				if seen[key] {
					continue
				}
				seen[key] = true
				rows = append(rows, row)
			}
		}
		err = it.Err()
		it.Close()
		if err != nil {
			return nil, err
		}
	}
	return exec.SingleBatchIterator(rows), nil
}

func accessPathName(kind plan.AccessKind) string {
	switch kind {
	case plan.AccessTableScan:
		return "table_scan"
	case plan.AccessPointLookup:
		return "point_lookup"
	case plan.AccessBTreeScan:
		return "btree_scan"
	case plan.AccessIndexUnion:
		return "index_union"
	case plan.AccessFullTextSearch:
		return "fulltext_search"
	case plan.AccessKnnSearch:
		return "knn_search"
	case plan.AccessCountIndex:
		return "count_index"
	default:
		return "unknown"
	}
}
