package catalog

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/kvs"
	"github.com/forbearing/surrealkv-core/logger"
	"github.com/forbearing/surrealkv-core/types"
)

// View is the transaction view of §4.1: a kvs.Transaction plus a schema cache
// keyed by (ns,db,kind,version). Per §4.2's invariant, the operator layer must
// reload table definitions on the first batch of each execution and cache
// only for the life of that statement — View is created once per statement
// and discarded afterward, never shared across statements, which is what
// makes that invariant hold for free.
type View struct {
	tx kvs.Transaction

	mu    sync.RWMutex
	cache map[cacheKey]any
}

type cacheKind int

const (
	cacheFields cacheKind = iota
	cacheIndexes
	cacheEvents
	cacheViews
	cacheLives
)

type cacheKey struct {
	ns, db, tb string
	kind       cacheKind
	version    uint64
}

func NewView(tx kvs.Transaction) *View {
	return &View{tx: tx, cache: make(map[cacheKey]any)}
}

func (v *View) Tx() kvs.Transaction { return v.tx }

func (v *View) Commit(ctx context.Context) error { return v.tx.Commit(ctx) }
func (v *View) Cancel(ctx context.Context) error { return v.tx.Cancel(ctx) }

func get[T any](ctx context.Context, tx kvs.Transaction, key string) (T, bool, error) {
	var zero T
	raw, err := tx.Get(ctx, []byte(key))
	if err != nil {
		return zero, false, err
	}
	if raw == nil {
		return zero, false, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Catalog.Errorw("corrupt catalog entry", "key", key, "error", err)
		return zero, false, errors.Wrap(err, "corrupt catalog entry")
	}
	return out, true, nil
}

func put[T any](ctx context.Context, tx kvs.Transaction, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode catalog entry")
	}
	return tx.Put(ctx, []byte(key), raw)
}

// GetNs resolves a namespace by name. Missing -> types.ErrNsNotFound.
func (v *View) GetNs(ctx context.Context, ns string) (*NamespaceDefinition, error) {
	def, ok, err := get[NamespaceDefinition](ctx, v.tx, nsKey(ns))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrNsNotFound
	}
	return &def, nil
}

func (v *View) GetDb(ctx context.Context, ns, db string) (*DatabaseDefinition, error) {
	def, ok, err := get[DatabaseDefinition](ctx, v.tx, dbKey(ns, db))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrDbNotFound
	}
	return &def, nil
}

// GetTb resolves a table definition. Per §4.2's invariant, this is always
// read fresh from the transaction — it is never itself cached, since it is
// the source of the per-table cache-version stamps that drive every other
// cache entry below.
func (v *View) GetTb(ctx context.Context, ns, db, tb string) (*TableDefinition, error) {
	def, ok, err := get[TableDefinition](ctx, v.tx, tbKey(ns, db, tb))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrTbNotFound
	}
	return &def, nil
}

func (v *View) GetFd(ctx context.Context, ns, db, tb, fd string) (*FieldDefinition, error) {
	def, ok, err := get[FieldDefinition](ctx, v.tx, fdKey(ns, db, tb, fd))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrFcNotFound
	}
	return &def, nil
}

func (v *View) GetIx(ctx context.Context, ns, db, tb, ix string) (*IndexDefinition, error) {
	def, ok, err := get[IndexDefinition](ctx, v.tx, ixKey(ns, db, tb, ix))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrIxNotFound
	}
	return &def, nil
}

// fetchCached loads a composite view ("all X on T at version V") either from
// cache or by listing the prefix, keyed by the current table cache-version
// stamp. This guarantees that DDL concurrent with a long read is either
// fully visible or fully invisible to *this* View's reads of the composite,
// per §4.1's cache invariant.
func fetchCached[T any](ctx context.Context, v *View, ns, db, tb string, kind cacheKind, version uint64, prefix string) ([]T, error) {
	key := cacheKey{ns: ns, db: db, tb: tb, kind: kind, version: version}

	v.mu.RLock()
	if cached, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return cached.([]T), nil
	}
	v.mu.RUnlock()

	items, err := listPrefix[T](ctx, v.tx, prefix)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.cache[key] = items
	v.mu.Unlock()
	return items, nil
}

func listPrefix[T any](ctx context.Context, tx kvs.Transaction, prefix string) ([]T, error) {
	it, err := tx.StreamKeysVals(ctx, kvs.PrefixRange([]byte(prefix)), kvs.CacheReadOnly, 0)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []T
	for it.Next(ctx) {
		var item T
		if err := json.Unmarshal(it.KeyValue().Value, &item); err != nil {
			return nil, errors.Wrap(err, "corrupt catalog entry")
		}
		out = append(out, item)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AllTbFields returns every field defined on table tb, using the table's
// CacheFieldsTs as the cache-version key (§4.1, §3 TableDefinition invariant).
func (v *View) AllTbFields(ctx context.Context, ns, db string, tbDef *TableDefinition) ([]FieldDefinition, error) {
	return fetchCached[FieldDefinition](ctx, v, ns, db, tbDef.Name, cacheFields, tbDef.CacheFieldsTs, tbKey(ns, db, tbDef.Name)+"/fd/")
}

func (v *View) AllTbIndexes(ctx context.Context, ns, db string, tbDef *TableDefinition) ([]IndexDefinition, error) {
	return fetchCached[IndexDefinition](ctx, v, ns, db, tbDef.Name, cacheIndexes, tbDef.CacheIndexesTs, tbKey(ns, db, tbDef.Name)+"/ix/")
}

func (v *View) AllTbEvents(ctx context.Context, ns, db string, tbDef *TableDefinition) ([]EventDefinition, error) {
	return fetchCached[EventDefinition](ctx, v, ns, db, tbDef.Name, cacheEvents, tbDef.CacheEventsTs, tbKey(ns, db, tbDef.Name)+"/ev/")
}

func (v *View) AllTbLives(ctx context.Context, ns, db, tb string) ([]SubscriptionDefinition, error) {
	return listPrefix[SubscriptionDefinition](ctx, v.tx, lqTablePrefix(ns, db, tb))
}

// --- write path, consumed by the ddl package (C8) ---

func (v *View) PutNs(ctx context.Context, def NamespaceDefinition) error {
	return put(ctx, v.tx, nsKey(def.Name), def)
}
func (v *View) PutDb(ctx context.Context, ns string, def DatabaseDefinition) error {
	return put(ctx, v.tx, dbKey(ns, def.Name), def)
}
func (v *View) PutTb(ctx context.Context, ns, db string, def TableDefinition) error {
	return put(ctx, v.tx, tbKey(ns, db, def.Name), def)
}
func (v *View) PutFd(ctx context.Context, ns, db, tb string, def FieldDefinition) error {
	return put(ctx, v.tx, fdKey(ns, db, tb, def.Name), def)
}
func (v *View) PutIx(ctx context.Context, ns, db, tb string, def IndexDefinition) error {
	return put(ctx, v.tx, ixKey(ns, db, tb, def.Name), def)
}
func (v *View) PutEv(ctx context.Context, ns, db, tb string, def EventDefinition) error {
	return put(ctx, v.tx, evKey(ns, db, tb, def.Name), def)
}

func (v *View) DelNs(ctx context.Context, ns string) error { return v.tx.Del(ctx, []byte(nsKey(ns))) }
func (v *View) DelDb(ctx context.Context, ns, db string) error {
	return v.tx.Del(ctx, []byte(dbKey(ns, db)))
}
func (v *View) DelTb(ctx context.Context, ns, db, tb string) error {
	return v.tx.Del(ctx, []byte(tbKey(ns, db, tb)))
}
func (v *View) DelFd(ctx context.Context, ns, db, tb, fd string) error {
	return v.tx.Del(ctx, []byte(fdKey(ns, db, tb, fd)))
}
func (v *View) DelIx(ctx context.Context, ns, db, tb, ix string) error {
	return v.tx.Del(ctx, []byte(ixKey(ns, db, tb, ix)))
}
func (v *View) DelEv(ctx context.Context, ns, db, tb, ev string) error {
	return v.tx.Del(ctx, []byte(evKey(ns, db, tb, ev)))
}

// ClrChildren deletes every child entry under the parent prefix, per §4.8
// step 6's cascade-removal contract.
func (v *View) ClrChildren(ctx context.Context, prefix string) error {
	return v.tx.Clr(ctx, []byte(prefix))
}

// GetAccess resolves an access method definition at the given level.
func (v *View) GetAccess(ctx context.Context, level any, ns, db, name string) (*AccessMethodDefinition, error) {
	key, err := accessKeyFor(level, ns, db, name)
	if err != nil {
		return nil, err
	}
	def, ok, err := get[AccessMethodDefinition](ctx, v.tx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrAccessNotFound
	}
	return &def, nil
}

func accessKeyFor(level any, ns, db, name string) (string, error) {
	switch level {
	case "root":
		return accessKeyRoot(name), nil
	case "ns":
		return accessKeyNs(ns, name), nil
	case "db":
		return accessKeyDb(ns, db, name), nil
	default:
		return "", errors.New("unknown access level")
	}
}

// GetAccessGen returns the current access-method generation counter for the
// given scope, the cheap probe a caller checks before trusting a previously
// cached AccessMethodDefinition (§3.3 supplement). A never-bumped scope
// reads as generation 0; cached entries are keyed by generation, so a bump
// invalidates every entry cached under the previous one.
func (v *View) GetAccessGen(ctx context.Context, level any, ns, db string) (uint64, error) {
	key, err := accessGenKeyFor(level, ns, db)
	if err != nil {
		return 0, err
	}
	gen, ok, err := get[uint64](ctx, v.tx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return gen, nil
}

func accessGenKeyFor(level any, ns, db string) (string, error) {
	switch level {
	case "root":
		return accessGenKeyRoot(), nil
	case "ns":
		return accessGenKeyNs(ns), nil
	case "db":
		return accessGenKeyDb(ns, db), nil
	default:
		return "", errors.New("unknown access level")
	}
}

func (v *View) PutAccess(ctx context.Context, ns, db string, def AccessMethodDefinition) error {
	var key, genKey string
	switch def.Level {
	case 0: // consts.LevelRoot
		key, genKey = accessKeyRoot(def.Name), accessGenKeyRoot()
	case 1: // consts.LevelNamespace
		key, genKey = accessKeyNs(ns, def.Name), accessGenKeyNs(ns)
	default:
		key, genKey = accessKeyDb(ns, db, def.Name), accessGenKeyDb(ns, db)
	}
	if err := put(ctx, v.tx, key, def); err != nil {
		return err
	}
	gen, _, err := get[uint64](ctx, v.tx, genKey)
	if err != nil {
		return err
	}
	return put(ctx, v.tx, genKey, gen+1)
}

func (v *View) GetUser(ctx context.Context, level any, ns, db, name string) (*UserDefinition, error) {
	var key string
	switch level {
	case "root":
		key = userKeyRoot(name)
	case "ns":
		key = userKeyNs(ns, name)
	case "db":
		key = userKeyDb(ns, db, name)
	default:
		return nil, errors.New("unknown user level")
	}
	def, ok, err := get[UserDefinition](ctx, v.tx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return &def, nil
}

func (v *View) PutUser(ctx context.Context, ns, db string, def UserDefinition) error {
	var key string
	switch def.Level {
	case 0:
		key = userKeyRoot(def.Name)
	case 1:
		key = userKeyNs(ns, def.Name)
	default:
		key = userKeyDb(ns, db, def.Name)
	}
	return put(ctx, v.tx, key, def)
}

func (v *View) DelAccess(ctx context.Context, level any, ns, db, name string) error {
	key, err := accessKeyFor(level, ns, db, name)
	if err != nil {
		return err
	}
	return v.tx.Del(ctx, []byte(key))
}

func (v *View) DelUser(ctx context.Context, level any, ns, db, name string) error {
	var key string
	switch level {
	case "root":
		key = userKeyRoot(name)
	case "ns":
		key = userKeyNs(ns, name)
	case "db":
		key = userKeyDb(ns, db, name)
	default:
		return errors.New("unknown user level")
	}
	return v.tx.Del(ctx, []byte(key))
}

// GetParam resolves a database-scoped $param definition.
func (v *View) GetParam(ctx context.Context, ns, db, name string) (*ParamDefinition, error) {
	def, ok, err := get[ParamDefinition](ctx, v.tx, paramKey(ns, db, name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrParamNotFound
	}
	return &def, nil
}

func (v *View) PutParam(ctx context.Context, ns, db string, def ParamDefinition) error {
	return put(ctx, v.tx, paramKey(ns, db, def.Name), def)
}

func (v *View) DelParam(ctx context.Context, ns, db, name string) error {
	return v.tx.Del(ctx, []byte(paramKey(ns, db, name)))
}

// GetAnalyzer resolves a database-scoped analyzer definition.
func (v *View) GetAnalyzer(ctx context.Context, ns, db, name string) (*AnalyzerDefinition, error) {
	def, ok, err := get[AnalyzerDefinition](ctx, v.tx, analyzerKey(ns, db, name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrAnalyzerNF
	}
	return &def, nil
}

func (v *View) PutAnalyzer(ctx context.Context, ns, db string, def AnalyzerDefinition) error {
	return put(ctx, v.tx, analyzerKey(ns, db, def.Name), def)
}

func (v *View) DelAnalyzer(ctx context.Context, ns, db, name string) error {
	return v.tx.Del(ctx, []byte(analyzerKey(ns, db, name)))
}
