// Package logger declares the package-level logger handles every other
// package in this module logs through. logger/zap populates them at
// startup from config.App.Logger; until then (and in any test that never
// calls zap.Init) they fall back to a bare console logger so a call site
// never has to nil-check before logging.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

var (
	// Engine logs exec-layer operator activity (batch emission, scan/create/delete), §4.6.
	Engine types.Logger
	// Plan logs access-path planning decisions, §4.5.
	Plan types.Logger
	// DDL logs DEFINE/ALTER/REMOVE execution, §4.8.
	DDL types.Logger
	// IAM logs permission resolution and authentication, §4.3/§4.7.
	IAM types.Logger
	// Live logs live-query registration, teardown, and bootstrap, §4.9.
	Live types.Logger
	// Notify logs notification fan-out delivery, §6.6.
	Notify types.Logger
	// Catalog logs schema-catalog reads/writes, §4.2.
	Catalog types.Logger
	// Kv logs the transaction/storage layer, §4.1.
	Kv types.Logger
)

func init() {
	fallback := &fallbackLogger{zlog: zap.NewExample()}
	Engine, Plan, DDL, IAM, Live, Notify, Catalog, Kv = fallback, fallback, fallback, fallback, fallback, fallback, fallback, fallback
}

// fallbackLogger is the bare zap-backed types.Logger every handle starts
// with, replaced by logger/zap.Init's rotation-aware loggers once config is
// available. It never gets a caller-skip/rotation setup — no process should
// ship running on it, but nothing panics if one does.
type fallbackLogger struct{ zlog *zap.Logger }

var _ types.Logger = (*fallbackLogger)(nil)

func (l *fallbackLogger) Debug(args ...any) { l.zlog.Sugar().Debug(args...) }
func (l *fallbackLogger) Info(args ...any)  { l.zlog.Sugar().Info(args...) }
func (l *fallbackLogger) Warn(args ...any)  { l.zlog.Sugar().Warn(args...) }
func (l *fallbackLogger) Error(args ...any) { l.zlog.Sugar().Error(args...) }
func (l *fallbackLogger) Fatal(args ...any) { l.zlog.Sugar().Fatal(args...) }

func (l *fallbackLogger) Debugf(format string, args ...any) { l.zlog.Sugar().Debugf(format, args...) }
func (l *fallbackLogger) Infof(format string, args ...any)  { l.zlog.Sugar().Infof(format, args...) }
func (l *fallbackLogger) Warnf(format string, args ...any)  { l.zlog.Sugar().Warnf(format, args...) }
func (l *fallbackLogger) Errorf(format string, args ...any) { l.zlog.Sugar().Errorf(format, args...) }
func (l *fallbackLogger) Fatalf(format string, args ...any) { l.zlog.Sugar().Fatalf(format, args...) }

func (l *fallbackLogger) Debugw(msg string, kv ...any) { l.zlog.Sugar().Debugw(msg, kv...) }
func (l *fallbackLogger) Infow(msg string, kv ...any)  { l.zlog.Sugar().Infow(msg, kv...) }
func (l *fallbackLogger) Warnw(msg string, kv ...any)  { l.zlog.Sugar().Warnw(msg, kv...) }
func (l *fallbackLogger) Errorw(msg string, kv ...any) { l.zlog.Sugar().Errorw(msg, kv...) }
func (l *fallbackLogger) Fatalw(msg string, kv ...any) { l.zlog.Sugar().Fatalw(msg, kv...) }

func (l *fallbackLogger) Debugz(msg string, fields ...zap.Field) { l.zlog.Debug(msg, fields...) }
func (l *fallbackLogger) Infoz(msg string, fields ...zap.Field)  { l.zlog.Info(msg, fields...) }
func (l *fallbackLogger) Warnz(msg string, fields ...zap.Field)  { l.zlog.Warn(msg, fields...) }
func (l *fallbackLogger) Errorz(msg string, fields ...zap.Field) { l.zlog.Error(msg, fields...) }
func (l *fallbackLogger) Fatalz(msg string, fields ...zap.Field) { l.zlog.Fatal(msg, fields...) }

func (l *fallbackLogger) With(fields ...string) types.Logger {
	if len(fields) == 0 {
		return l
	}
	if len(fields)%2 != 0 {
		fields = append(fields, "")
	}
	zapFields := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		zapFields = append(zapFields, zap.String(fields[i], fields[i+1]))
	}
	return &fallbackLogger{zlog: l.zlog.With(zapFields...)}
}

func (l *fallbackLogger) WithObject(name string, obj zapcore.ObjectMarshaler) types.Logger {
	return &fallbackLogger{zlog: l.zlog.With(zap.Object(name, obj))}
}

func (l *fallbackLogger) WithArray(name string, arr zapcore.ArrayMarshaler) types.Logger {
	return &fallbackLogger{zlog: l.zlog.With(zap.Array(name, arr))}
}

func (l *fallbackLogger) WithExecContext(ctx *types.ExecContext, phase consts.Phase) types.Logger {
	return l.With("phase", string(phase), "ns", ctx.Ns, "db", ctx.Db, "tb", ctx.Tb, "actor", ctx.Actor, "trace_id", ctx.TraceID)
}

func (l *fallbackLogger) WithPlanContext(ctx *types.PlanContext, phase consts.Phase) types.Logger {
	return l.With("phase", string(phase), "ns", ctx.Ns, "db", ctx.Db, "tb", ctx.Tb, "access_path", ctx.AccessPath, "trace_id", ctx.TraceID)
}

func (l *fallbackLogger) WithDDLContext(ctx *types.DDLContext, phase consts.Phase) types.Logger {
	return l.With("phase", string(phase), "ns", ctx.Ns, "db", ctx.Db, "tb", ctx.Tb, "statement", ctx.Statement, "trace_id", ctx.TraceID)
}
