package live

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/kvs/memkv"
	"github.com/forbearing/surrealkv-core/types/consts"
)

func newTestView(t *testing.T) *catalog.View {
	t.Helper()
	store := memkv.New()
	tx, err := store.Begin(context.Background(), consts.TxWriteOptimistic)
	require.NoError(t, err)
	return catalog.NewView(tx)
}

func TestSubscribeThenKill(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()

	lqID, err := Subscribe(ctx, view, "node-1", "test", "test", "person", catalog.SubscriptionDefinition{})
	require.NoError(t, err)
	assert.NotEmpty(t, lqID)

	_, err = view.GetTbLiveQuery(ctx, "test", "test", "person", lqID)
	require.NoError(t, err)

	require.NoError(t, Kill(ctx, view, nil, "node-1", "test", "test", "person", lqID))

	_, err = view.GetTbLiveQuery(ctx, "test", "test", "person", lqID)
	assert.Error(t, err)
}

func TestBootstrapIsIdempotentOnCleanState(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	clock := NewFakeClock(time.Unix(1000, 0))

	require.NoError(t, Bootstrap(ctx, view, clock, "node-1", DefaultHeartbeatExpiry))
	nodes, err := view.StreamNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	clock.Advance(5 * time.Second)
	require.NoError(t, Bootstrap(ctx, view, clock, "node-1", DefaultHeartbeatExpiry))

	nodesAgain, err := view.StreamNodes(ctx)
	require.NoError(t, err)
	assert.Len(t, nodesAgain, 1) // no duplicate node record
}

func TestBootstrapReapsDeadNodeLiveQueries(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	clock := NewFakeClock(time.Unix(1000, 0))

	require.NoError(t, Bootstrap(ctx, view, clock, "node-dead", DefaultHeartbeatExpiry))
	lqID, err := Subscribe(ctx, view, "node-dead", "test", "test", "person", catalog.SubscriptionDefinition{})
	require.NoError(t, err)

	clock.Advance(DefaultHeartbeatExpiry + time.Second)
	require.NoError(t, Bootstrap(ctx, view, clock, "node-live", DefaultHeartbeatExpiry))

	_, err = view.GetTbLiveQuery(ctx, "test", "test", "person", lqID)
	assert.Error(t, err)

	nodes, err := view.StreamNodes(ctx)
	require.NoError(t, err)
	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	assert.Contains(t, ids, "node-live")
	assert.NotContains(t, ids, "node-dead")
}

func TestBootstrapOrphanedTableKeyedEntryIsSilentlyCleaned(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()
	clock := NewFakeClock(time.Unix(1000, 0))

	require.NoError(t, Bootstrap(ctx, view, clock, "node-dead", DefaultHeartbeatExpiry))
	lqID, err := Subscribe(ctx, view, "node-dead", "test", "test", "person", catalog.SubscriptionDefinition{})
	require.NoError(t, err)
	// Simulate an earlier crash that removed the table-keyed mirror but left
	// the node-keyed entry behind.
	require.NoError(t, view.Tx().Del(ctx, []byte(catalog.TablePrefix("test", "test", "person")+"/lq/"+lqID)))
	_, err = view.GetTbLiveQuery(ctx, "test", "test", "person", lqID)
	require.Error(t, err)

	clock.Advance(DefaultHeartbeatExpiry + time.Second)
	err = Bootstrap(ctx, view, clock, "node-live", DefaultHeartbeatExpiry)
	assert.NoError(t, err)

	nlqs, err := view.StreamNodeLiveQueries(ctx, "node-dead")
	require.NoError(t, err)
	assert.Empty(t, nlqs)
}
