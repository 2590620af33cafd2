package live

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/logger"
	"github.com/forbearing/surrealkv-core/metrics"
)

// DefaultHeartbeatExpiry is how stale a node's heartbeat must be before
// bootstrap treats it as dead, per §4.9 step 1.
const DefaultHeartbeatExpiry = 30 * time.Second

// Notifier delivers a live-query event tuple, per §6.6. lqID identifies which
// subscription the event belongs to — the "id" of the {id, action, record,
// result} tuple. The live package only needs this narrow shape — it never
// imports pkg/notify's transport details, the same dependency-inversion
// pattern exec.ComputedEvaluator and ddl.KillNotifier use.
type Notifier interface {
	Notify(ctx context.Context, sessionID, lqID, action string, recordID, result any) error
}

const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionKilled = "KILLED"
)

// Subscribe registers a live query under both the node and table keys, per
// §4.9's "stored twice". Returns the generated live-query id.
func Subscribe(ctx context.Context, view *catalog.View, node, ns, db, tb string, def catalog.SubscriptionDefinition) (string, error) {
	lqID := uuid.NewString()
	def.ID = lqID
	def.Node = node
	def.Table = tb

	nlq := catalog.NodeLiveQuery{Ns: ns, Db: db, Tb: tb, LqID: lqID}
	if err := view.PutLiveQuery(ctx, node, nlq, def); err != nil {
		return "", err
	}
	logger.Live.Infow("live query registered", "ns", ns, "db", db, "tb", tb, "lq_id", lqID, "node", node)
	if metrics.LiveQueriesActive != nil {
		metrics.LiveQueriesActive.Inc()
	}
	return lqID, nil
}

// Kill removes one live query and, if notify is non-nil, sends a Killed
// event to its owning session, per §6.6.
func Kill(ctx context.Context, view *catalog.View, notify Notifier, node, ns, db, tb, lqID string) error {
	def, err := view.GetTbLiveQuery(ctx, ns, db, tb, lqID)
	if err != nil {
		return err
	}
	if err := view.DelLiveQuery(ctx, node, catalog.NodeLiveQuery{Ns: ns, Db: db, Tb: tb, LqID: lqID}); err != nil {
		return err
	}
	logger.Live.Infow("live query killed", "ns", ns, "db", db, "tb", tb, "lq_id", lqID, "node", node)
	if metrics.LiveQueriesActive != nil {
		metrics.LiveQueriesActive.Dec()
	}
	if notify != nil && def.Session != nil {
		return notify.Notify(ctx, *def.Session, lqID, ActionKilled, nil, nil)
	}
	return nil
}

// Bootstrap implements §4.9's startup protocol: reap every dead node's live
// queries, remove the dead node records, then register the local node.
// Running it twice against a clean state (no dead nodes, local node already
// current) makes no further changes, satisfying the idempotence requirement.
func Bootstrap(ctx context.Context, view *catalog.View, clock Clock, localNode string, expiry time.Duration) error {
	now := clock.Now().Unix()

	heartbeats, err := view.StreamHeartbeats(ctx)
	if err != nil {
		return err
	}

	for nodeKeyRaw, ts := range heartbeats {
		node := nodeIDFromHeartbeatKey(nodeKeyRaw)
		if node == localNode {
			continue
		}
		age := time.Duration(now-ts) * time.Second
		if age < expiry {
			continue
		}
		if err := reapNode(ctx, view, node); err != nil {
			return err
		}
	}

	if err := view.PutNode(ctx, catalog.NodeRecord{ID: localNode, Heartbeat: now}); err != nil {
		return err
	}
	logger.Live.Infow("node bootstrapped", "node", localNode)
	return view.PutHeartbeat(ctx, localNode, now)
}

// reapNode implements §4.9 steps 2-3 for one dead node: clean up every live
// query it owned (tolerating an already-missing table-keyed mirror, per "must
// not raise errors — they are silently cleaned"), then remove its record.
func reapNode(ctx context.Context, view *catalog.View, node string) error {
	lqs, err := view.StreamNodeLiveQueries(ctx, node)
	if err != nil {
		return err
	}
	for _, nlq := range lqs {
		if err := view.DelLiveQuery(ctx, node, nlq); err != nil {
			return err
		}
		if metrics.LiveQueriesActive != nil {
			metrics.LiveQueriesActive.Dec()
		}
	}
	if err := view.DelNode(ctx, node); err != nil {
		return err
	}
	return view.DelHeartbeat(ctx, node)
}

// nodeIDFromHeartbeatKey strips the "/hb/" prefix StreamHeartbeats' raw keys
// carry, since the heartbeat map is keyed by the full storage key rather
// than the bare node id.
func nodeIDFromHeartbeatKey(key string) string {
	const prefix = "/hb/"
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}
