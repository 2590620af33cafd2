package types

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/forbearing/surrealkv-core/types/consts"
)

// StandardLogger provides traditional simple/formatted logging methods.
type StandardLogger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// StructuredLogger provides key-value structured logging methods.
type StructuredLogger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
	Fatalw(msg string, keysAndValues ...any)
}

// ZapLogger provides zap.Field-based structured logging methods.
type ZapLogger interface {
	Debugz(msg string, fields ...zap.Field)
	Infoz(msg string, fields ...zap.Field)
	Warnz(msg string, fields ...zap.Field)
	Errorz(msg string, fields ...zap.Field)
	Fatalz(msg string, fields ...zap.Field)
}

// ExecContext carries the fields an exec-layer log line attaches, per §4.6.
type ExecContext struct {
	Ns, Db, Tb string
	Actor      string
	TraceID    string
}

// PlanContext carries the fields a planner log line attaches, per §4.5.
type PlanContext struct {
	Ns, Db, Tb string
	AccessPath string
	TraceID    string
}

// DDLContext carries the fields a DDL-execution log line attaches, per §4.8.
type DDLContext struct {
	Ns, Db, Tb string
	Statement  string
	TraceID    string
}

// Logger combines standard, structured, and zap-field logging with
// domain-context builders, the shape every logger.* package-level value in
// this engine satisfies.
type Logger interface {
	With(fields ...string) Logger
	WithObject(name string, obj zapcore.ObjectMarshaler) Logger
	WithArray(name string, arr zapcore.ArrayMarshaler) Logger

	WithExecContext(*ExecContext, consts.Phase) Logger
	WithPlanContext(*PlanContext, consts.Phase) Logger
	WithDDLContext(*DDLContext, consts.Phase) Logger

	StandardLogger
	StructuredLogger
	ZapLogger
}
