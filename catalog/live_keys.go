package catalog

import (
	"context"
	"encoding/json"

	"github.com/forbearing/surrealkv-core/kvs"
	"github.com/forbearing/surrealkv-core/types"
)

// NodeRecord is the per-node heartbeat/registration entry of §4.9's bootstrap
// protocol, stored both under its own node key and (implicitly) discoverable
// by the heartbeat prefix scan.
type NodeRecord struct {
	ID        string
	Heartbeat int64 // unix seconds, written by the Clock the live package is given
}

// NodeLiveQuery is the node-keyed half of a live query, per §4.9: "stored
// twice: once under the node key ... and once under the table key".
type NodeLiveQuery struct {
	Ns, Db, Tb string
	LqID       string
}

func (v *View) PutNode(ctx context.Context, rec NodeRecord) error {
	return put(ctx, v.tx, nodeKey(rec.ID), rec)
}

func (v *View) DelNode(ctx context.Context, node string) error {
	return v.tx.Del(ctx, []byte(nodeKey(node)))
}

// StreamNodes lists every registered node record, regardless of heartbeat
// freshness — the bootstrap protocol's dead-node detection compares each
// entry's Heartbeat field against the expiry threshold itself.
func (v *View) StreamNodes(ctx context.Context) ([]NodeRecord, error) {
	return listPrefix[NodeRecord](ctx, v.tx, nodePrefix())
}

func (v *View) PutHeartbeat(ctx context.Context, node string, ts int64) error {
	return put(ctx, v.tx, heartbeatKey(node), ts)
}

func (v *View) DelHeartbeat(ctx context.Context, node string) error {
	return v.tx.Del(ctx, []byte(heartbeatKey(node)))
}

// StreamHeartbeats returns every heartbeat timestamp, keyed by the entry's
// full storage key ("/hb/<node>"), not by the bare node id.
func (v *View) StreamHeartbeats(ctx context.Context) (map[string]int64, error) {
	it, err := v.tx.StreamKeysVals(ctx, kvs.PrefixRange([]byte(heartbeatPrefix())), kvs.CacheReadOnly, 0)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	out := make(map[string]int64)
	for it.Next(ctx) {
		kv := it.KeyValue()
		var ts int64
		if err := json.Unmarshal(kv.Value, &ts); err != nil {
			return nil, err
		}
		out[string(kv.Key)] = ts
	}
	return out, it.Err()
}

// PutLiveQuery writes both halves of a live query registration, per §4.9.
func (v *View) PutLiveQuery(ctx context.Context, node string, nlq NodeLiveQuery, def SubscriptionDefinition) error {
	if err := put(ctx, v.tx, lqNodeKey(node, nlq.LqID), nlq); err != nil {
		return err
	}
	return put(ctx, v.tx, lqTableKey(nlq.Ns, nlq.Db, nlq.Tb, nlq.LqID), def)
}

// DelLiveQuery removes both halves of a live query. A missing table-keyed
// entry (orphaned by an earlier crash, per §4.9 step 2) is swallowed.
func (v *View) DelLiveQuery(ctx context.Context, node string, nlq NodeLiveQuery) error {
	if err := v.tx.Del(ctx, []byte(lqNodeKey(node, nlq.LqID))); err != nil {
		return err
	}
	return v.tx.Del(ctx, []byte(lqTableKey(nlq.Ns, nlq.Db, nlq.Tb, nlq.LqID)))
}

// StreamNodeLiveQueries lists every live query registered under node.
func (v *View) StreamNodeLiveQueries(ctx context.Context, node string) ([]NodeLiveQuery, error) {
	return listPrefix[NodeLiveQuery](ctx, v.tx, lqNodePrefix(node))
}

// GetTbLiveQuery fetches one table-keyed live query definition, used when
// cleaning up a node-keyed entry to confirm whether its mirror still exists.
func (v *View) GetTbLiveQuery(ctx context.Context, ns, db, tb, lqID string) (*SubscriptionDefinition, error) {
	def, ok, err := get[SubscriptionDefinition](ctx, v.tx, lqTableKey(ns, db, tb, lqID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrSubscriptionNF
	}
	return &def, nil
}
