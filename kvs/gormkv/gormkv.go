// Package gormkv is a GORM-backed implementation of kvs.Store, grounded on
// forbearing-gst/database/{postgres,sqlite}'s New/buildDSN pattern: every
// catalog entry is stored as a length-prefixed-free BLOB row (key, value) in
// a single kv_entries table, giving §6.5's persisted catalog layout a
// concrete, swappable backend alongside memkv. Unlike memkv's in-process
// optimistic versioning, gormkv leans on the underlying database's own
// transaction isolation: a serializable kvs.Transaction opens a real SQL
// transaction at LevelSerializable, and a conflicting commit surfaces as the
// database's serialization-failure error, which Commit maps back to
// types.ErrTxRetryable.
package gormkv

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	glogger "gorm.io/gorm/logger"

	"github.com/forbearing/surrealkv-core/kvs"
	"github.com/forbearing/surrealkv-core/metrics"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// kvEntry is the single table gormkv needs: a key/value BLOB pair. TableName
// pins the table name to "kv_entries" explicitly.
type kvEntry struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value []byte `gorm:"column:value"`
}

func (kvEntry) TableName() string { return "kv_entries" }

// Store opens transactions against a GORM connection. New accepts "sqlite"
// or "postgres" as driver, mirroring config.Kv.Driver (§SPEC_FULL.md §2).
type Store struct {
	db *gorm.DB
}

// New dials the configured SQL backend and migrates the kv_entries table,
// grounded on forbearing-gst/database/sqlite.New and
// forbearing-gst/database/postgres.New's gorm.Open(dialector, ...) shape.
func New(driver, dsn string, gormLogger glogger.Interface) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.Newf("gormkv: unsupported driver %q, only \"sqlite\" and \"postgres\" are supported", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, errors.Wrap(err, "gormkv: failed to open database")
	}
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, errors.Wrap(err, "gormkv: failed to migrate kv_entries")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "gormkv: failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}

// Begin opens a real SQL transaction. Serializable modes request
// sql.LevelSerializable explicitly; optimistic modes take whatever the
// driver's default read-committed level gives them, since the engine never
// relies on snapshot isolation for optimistic transactions (§4.1).
// Read-only enforcement is left to Put/Del's own mode check rather than
// sql.TxOptions.ReadOnly, since not every database/sql driver in the pack
// supports read-only transactions.
func (s *Store) Begin(ctx context.Context, mode consts.TxMode) (kvs.Transaction, error) {
	var opts *sql.TxOptions
	if mode.Serializable() {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	gtx := s.db.WithContext(ctx).Begin(opts)
	if gtx.Error != nil {
		return nil, errors.Wrap(gtx.Error, "gormkv: failed to begin transaction")
	}
	return &tx{gtx: gtx, mode: mode}, nil
}

type tx struct {
	gtx      *gorm.DB
	mode     consts.TxMode
	finished bool
}

func (t *tx) Mode() consts.TxMode { return t.mode }

func (t *tx) checkFinished() error {
	if t.finished {
		return types.ErrTxFinished
	}
	return nil
}

func (t *tx) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := t.checkFinished(); err != nil {
		return nil, err
	}
	var row kvEntry
	err := t.gtx.WithContext(ctx).Where("key = ?", string(key)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "gormkv: get failed")
	}
	return row.Value, nil
}

func (t *tx) Put(ctx context.Context, key, value []byte) error {
	if err := t.checkFinished(); err != nil {
		return err
	}
	if !t.mode.Writable() {
		return types.ErrTxReadonly
	}
	row := kvEntry{Key: string(key), Value: value}
	err := t.gtx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	return errors.Wrap(err, "gormkv: put failed")
}

func (t *tx) PutConditional(ctx context.Context, key, value, expected []byte) error {
	if err := t.checkFinished(); err != nil {
		return err
	}
	cur, err := t.Get(ctx, key)
	if err != nil {
		return err
	}
	if expected == nil {
		if cur != nil {
			return types.ErrTxConditionNotMet
		}
	} else if string(cur) != string(expected) {
		return types.ErrTxConditionNotMet
	}
	return t.Put(ctx, key, value)
}

func (t *tx) Del(ctx context.Context, key []byte) error {
	if err := t.checkFinished(); err != nil {
		return err
	}
	if !t.mode.Writable() {
		return types.ErrTxReadonly
	}
	err := t.gtx.WithContext(ctx).Where("key = ?", string(key)).Delete(&kvEntry{}).Error
	return errors.Wrap(err, "gormkv: delete failed")
}

func (t *tx) Clr(ctx context.Context, prefix []byte) error {
	if err := t.checkFinished(); err != nil {
		return err
	}
	if !t.mode.Writable() {
		return types.ErrTxReadonly
	}
	r := kvs.PrefixRange(prefix)
	q := t.gtx.WithContext(ctx).Where("key >= ?", string(r.From))
	if r.To != nil {
		q = q.Where("key < ?", string(r.To))
	}
	return errors.Wrap(q.Delete(&kvEntry{}).Error, "gormkv: prefix delete failed")
}

func (t *tx) StreamKeysVals(ctx context.Context, r kvs.KeyRange, _ kvs.CachePolicy, dir consts.Direction) (kvs.KeyValueIterator, error) {
	if err := t.checkFinished(); err != nil {
		return nil, err
	}

	q := t.gtx.WithContext(ctx).Model(&kvEntry{})
	if r.From != nil {
		q = q.Where("key >= ?", string(r.From))
	}
	if r.To != nil {
		q = q.Where("key < ?", string(r.To))
	}
	if dir == consts.Backward {
		q = q.Order("key DESC")
	} else {
		q = q.Order("key ASC")
	}

	var rows []kvEntry
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "gormkv: range scan failed")
	}
	// Find already orders by key; sort defensively for drivers that ignore
	// ORDER BY inside FOR UPDATE style reads.
	sort.SliceStable(rows, func(i, j int) bool {
		if dir == consts.Backward {
			return rows[i].Key > rows[j].Key
		}
		return rows[i].Key < rows[j].Key
	})

	items := make([]kvs.KeyValue, len(rows))
	for i, row := range rows {
		items[i] = kvs.KeyValue{Key: []byte(row.Key), Value: row.Value}
	}
	return &sliceIterator{items: items, pos: -1}, nil
}

// commitSerializationFailure recognizes the database-specific text both
// Postgres ("could not serialize access due to concurrent update", SQLSTATE
// 40001) and SQLite ("database is locked") use to report that a
// serializable transaction lost a write race, per §4.1's retry contract.
func commitSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func (t *tx) Commit(_ context.Context) error {
	if err := t.checkFinished(); err != nil {
		return err
	}
	t.finished = true
	err := t.gtx.Commit().Error
	if err == nil {
		return nil
	}
	if commitSerializationFailure(err) {
		if metrics.TxRetries != nil {
			metrics.TxRetries.Inc()
		}
		return types.ErrTxRetryable
	}
	return errors.Wrap(err, "gormkv: commit failed")
}

func (t *tx) Cancel(_ context.Context) error {
	if t.finished {
		return types.ErrTxFinished
	}
	t.finished = true
	return errors.Wrap(t.gtx.Rollback().Error, "gormkv: rollback failed")
}

type sliceIterator struct {
	items []kvs.KeyValue
	pos   int
	err   error
}

func (it *sliceIterator) Next(ctx context.Context) bool {
	if ctx.Err() != nil {
		it.err = errors.Wrap(ctx.Err(), "iterator cancelled")
		return false
	}
	it.pos++
	return it.pos < len(it.items)
}

func (it *sliceIterator) KeyValue() kvs.KeyValue { return it.items[it.pos] }
func (it *sliceIterator) Err() error             { return it.err }
func (it *sliceIterator) Close()                 {}
