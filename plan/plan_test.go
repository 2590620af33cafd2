package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/expr"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

func uniqueEmailIndex() catalog.IndexDefinition {
	return catalog.IndexDefinition{
		Table: "user", Name: "user_email_uniq", Columns: []string{"email"},
		Variant: catalog.IndexVariant{Kind: consts.IndexKindUniq},
	}
}

func TestPlanChoosesPointLookupForLiteralRecordId(t *testing.T) {
	rid := types.NewRecordId("user", types.StringValue("alice"))
	path := Plan(nil, nil, rid, nil, Hint{}, false)
	require.Equal(t, AccessPointLookup, path.Kind)
	assert.Equal(t, rid, path.RecordID)
}

func TestPlanEqualityOnUniqueIndex(t *testing.T) {
	indexes := []catalog.IndexDefinition{uniqueEmailIndex()}
	preds := []Predicate{{Column: "email", Op: expr.OpEq, Value: types.StringValue("a@x")}}

	path := Plan(indexes, preds, nil, nil, Hint{}, false)
	require.Equal(t, AccessBTreeScan, path.Kind)
	assert.Equal(t, "user_email_uniq", path.Index.Name)
	assert.Equal(t, IndexEquality, path.Access.Kind)
}

func TestPlanNoIndexHintForcesTableScan(t *testing.T) {
	indexes := []catalog.IndexDefinition{uniqueEmailIndex()}
	preds := []Predicate{{Column: "email", Op: expr.OpEq, Value: types.StringValue("a@x")}}

	path := Plan(indexes, preds, nil, nil, Hint{NoIndex: true}, false)
	assert.Equal(t, AccessTableScan, path.Kind)
}

func TestPlanWithIndexHintFallsBackWhenNoMatch(t *testing.T) {
	indexes := []catalog.IndexDefinition{uniqueEmailIndex()}
	preds := []Predicate{{Column: "status", Op: expr.OpEq, Value: types.StringValue("active")}}

	path := Plan(indexes, preds, nil, nil, Hint{Only: []string{"user_email_uniq"}}, false)
	assert.Equal(t, AccessTableScan, path.Kind)
}

func TestPlanEqualityBeatsRangeOnDifferentIndexes(t *testing.T) {
	indexes := []catalog.IndexDefinition{
		{Table: "t", Name: "idx_age", Columns: []string{"age"}},
		uniqueEmailIndex(),
	}
	preds := []Predicate{
		{Column: "age", Op: expr.OpGt, ValueLo: types.IntValue(18)},
		{Column: "email", Op: expr.OpEq, Value: types.StringValue("a@x")},
	}

	path := Plan(indexes, preds, nil, nil, Hint{}, false)
	require.Equal(t, AccessBTreeScan, path.Kind)
	assert.Equal(t, "user_email_uniq", path.Index.Name)
	assert.Equal(t, IndexEquality, path.Access.Kind)
}

func TestPlanDirectionBackwardOnIdDescendingOrder(t *testing.T) {
	path := Plan(nil, nil, nil, &OrderSpec{Column: "id", Descending: true}, Hint{}, false)
	assert.Equal(t, consts.Backward, path.Direction)
	assert.Equal(t, AccessTableScan, path.Kind)
}

func TestPlanFullTextMatch(t *testing.T) {
	indexes := []catalog.IndexDefinition{
		{Table: "post", Name: "post_body_fts", Columns: []string{"body"}, Variant: catalog.IndexVariant{Kind: consts.IndexKindFullText}},
	}
	preds := []Predicate{{Column: "body", Op: expr.OpMatch, FullText: true, Value: types.StringValue("hello world")}}

	path := Plan(indexes, preds, nil, nil, Hint{}, false)
	require.Equal(t, AccessFullTextSearch, path.Kind)
	assert.Equal(t, "hello world", path.Query)
}

func TestPlanKnnSearch(t *testing.T) {
	indexes := []catalog.IndexDefinition{
		{Table: "doc", Name: "doc_vec_hnsw", Columns: []string{"embedding"}, Variant: catalog.IndexVariant{Kind: consts.IndexKindHnsw}},
	}
	preds := []Predicate{{Column: "embedding", Knn: true, KnnK: 5, KnnVec: []float64{0.1, 0.2}}}

	path := Plan(indexes, preds, nil, nil, Hint{}, false)
	require.Equal(t, AccessKnnSearch, path.Kind)
	assert.Equal(t, 5, path.K)
	assert.Equal(t, consts.DefaultKnnEf, path.Ef)
}

func TestPlanIndexUnionOnDisjunction(t *testing.T) {
	indexes := []catalog.IndexDefinition{
		{Table: "t", Name: "idx_status", Columns: []string{"status"}},
	}
	preds := []Predicate{
		{Column: "status", Op: expr.OpEq, Value: types.StringValue("a"), IsOr: true},
		{Column: "status", Op: expr.OpEq, Value: types.StringValue("b"), IsOr: true},
	}

	path := Plan(indexes, preds, nil, nil, Hint{}, false)
	require.Equal(t, AccessIndexUnion, path.Kind)
	assert.Len(t, path.Parts, 2)
}

func TestPlanCountOnlyRewritesToCountIndex(t *testing.T) {
	path := Plan(nil, nil, nil, nil, Hint{}, true)
	require.Equal(t, AccessCountIndex, path.Kind)
}

func TestPlanCountOnlyWithPredicatesStillPlansNormally(t *testing.T) {
	indexes := []catalog.IndexDefinition{uniqueEmailIndex()}
	preds := []Predicate{{Column: "email", Op: expr.OpEq, Value: types.StringValue("a@x")}}

	path := Plan(indexes, preds, nil, nil, Hint{}, true)
	require.Equal(t, AccessBTreeScan, path.Kind)
}

func TestPlanCountOnlyIgnoredWithNoIndexHint(t *testing.T) {
	path := Plan(nil, nil, nil, nil, Hint{NoIndex: true}, true)
	require.Equal(t, AccessTableScan, path.Kind)
}
