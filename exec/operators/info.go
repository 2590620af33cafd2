package operators

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/exec"
	"github.com/forbearing/surrealkv-core/types"
)

// InfoTarget tags which catalog level Info snapshots, per §4.6.7.
type InfoTarget int

const (
	InfoNamespace InfoTarget = iota
	InfoDatabase
	InfoTable
	InfoUser
)

// Info implements §4.6.7: a strictly read-only snapshot of one catalog
// entity (and, for a table, its children) at the
// transaction's visible version. It never mutates the transaction and never
// applies row-level permission filtering — it reports schema, not data.
type Info struct {
	Target   InfoTarget
	View     *catalog.View
	Ns, Db   string
	Tb, User string
	UserLvl  string // "root" | "ns" | "db", meaningful only for InfoUser
}

func (i *Info) Execute(ctx context.Context) (exec.BatchIterator, error) {
	var snapshot types.Value
	var err error
	switch i.Target {
	case InfoNamespace:
		snapshot, err = i.namespaceInfo(ctx)
	case InfoDatabase:
		snapshot, err = i.databaseInfo(ctx)
	case InfoTable:
		snapshot, err = i.tableInfo(ctx)
	case InfoUser:
		snapshot, err = i.userInfo(ctx)
	default:
		return nil, errors.New("unknown info target")
	}
	if err != nil {
		return nil, err
	}
	return exec.SingleBatchIterator([]types.Value{snapshot}), nil
}

func (i *Info) namespaceInfo(ctx context.Context) (types.Value, error) {
	if _, err := i.View.GetNs(ctx, i.Ns); err != nil {
		return types.None(), err
	}
	// Database enumeration would require a catalog-wide prefix listing the
	// View type doesn't expose (it only lists children of a known table);
	// a real implementation would add that accessor to catalog.View.
	return types.ObjectValue(map[string]types.Value{
		"namespace": types.StringValue(i.Ns),
	}), nil
}

func (i *Info) databaseInfo(ctx context.Context) (types.Value, error) {
	if _, err := i.View.GetDb(ctx, i.Ns, i.Db); err != nil {
		return types.None(), err
	}
	return types.ObjectValue(map[string]types.Value{
		"namespace": types.StringValue(i.Ns),
		"database":  types.StringValue(i.Db),
	}), nil
}

func (i *Info) tableInfo(ctx context.Context) (types.Value, error) {
	tbDef, err := i.View.GetTb(ctx, i.Ns, i.Db, i.Tb)
	if err != nil {
		return types.None(), err
	}
	fields, err := i.View.AllTbFields(ctx, i.Ns, i.Db, tbDef)
	if err != nil {
		return types.None(), err
	}
	indexes, err := i.View.AllTbIndexes(ctx, i.Ns, i.Db, tbDef)
	if err != nil {
		return types.None(), err
	}
	events, err := i.View.AllTbEvents(ctx, i.Ns, i.Db, tbDef)
	if err != nil {
		return types.None(), err
	}

	fieldNames := make([]types.Value, len(fields))
	for idx, fd := range fields {
		fieldNames[idx] = types.StringValue(fd.Name)
	}
	indexNames := make([]types.Value, len(indexes))
	for idx, ix := range indexes {
		indexNames[idx] = types.StringValue(ix.Name)
	}
	eventNames := make([]types.Value, len(events))
	for idx, ev := range events {
		eventNames[idx] = types.StringValue(ev.Name)
	}

	return types.ObjectValue(map[string]types.Value{
		"table":       types.StringValue(tbDef.Name),
		"schemafull":  types.BoolValue(tbDef.SchemaFull),
		"fields":      types.ArrayValue(fieldNames),
		"indexes":     types.ArrayValue(indexNames),
		"events":      types.ArrayValue(eventNames),
		"cache_ts_fd": types.IntValue(int64(tbDef.CacheFieldsTs)),
		"cache_ts_ix": types.IntValue(int64(tbDef.CacheIndexesTs)),
		"cache_ts_ev": types.IntValue(int64(tbDef.CacheEventsTs)),
	}), nil
}

func (i *Info) userInfo(ctx context.Context) (types.Value, error) {
	user, err := i.View.GetUser(ctx, i.UserLvl, i.Ns, i.Db, i.User)
	if err != nil {
		return types.None(), err
	}
	roles := make([]types.Value, len(user.Roles))
	for idx, r := range user.Roles {
		roles[idx] = types.StringValue(r.String())
	}
	return types.ObjectValue(map[string]types.Value{
		"name":  types.StringValue(user.Name),
		"level": types.StringValue(user.Level.String()),
		"roles": types.ArrayValue(roles),
	}), nil
}
