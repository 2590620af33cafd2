package zap

import (
	"context"
	"time"

	"go.uber.org/zap"
	gorml "gorm.io/gorm/logger"

	"github.com/forbearing/surrealkv-core/types"
)

// slowQueryThreshold flags a kvs/gormkv query as slow in the Kv logger.
const slowQueryThreshold = 200 * time.Millisecond

// GormLogger implements gorm's logger.Interface over types.Logger, for
// kvs/gormkv's backing store per SPEC_FULL.md §2's gorm/driver rows.
type GormLogger struct{ l types.Logger }

var _ gorml.Interface = (*GormLogger)(nil)

func (g *GormLogger) LogMode(gorml.LogLevel) gorml.Interface           { return g }
func (g *GormLogger) Info(_ context.Context, str string, args ...any)  { g.l.Infow(str, args) }
func (g *GormLogger) Warn(_ context.Context, str string, args ...any)  { g.l.Warnw(str, args) }
func (g *GormLogger) Error(_ context.Context, str string, args ...any) { g.l.Errorw(str, args) }

func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil {
		g.l.Errorz("gormkv query failed", zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	if elapsed > slowQueryThreshold {
		g.l.Warnz("slow gormkv query", zap.String("sql", sql), zap.Duration("elapsed", elapsed), zap.Int64("rows", rows))
		return
	}
	g.l.Infoz("gormkv query executed", zap.String("sql", sql), zap.Duration("elapsed", elapsed), zap.Int64("rows", rows))
}
