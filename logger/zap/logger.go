package zap

import (
	casbinl "github.com/casbin/casbin/v2/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// Logger implements types.Logger.
type Logger struct {
	zlog *zap.Logger
}

var _ types.Logger = (*Logger)(nil)

func (l *Logger) Debug(args ...any) { l.zlog.Sugar().Debug(args...) }
func (l *Logger) Info(args ...any)  { l.zlog.Sugar().Info(args...) }
func (l *Logger) Warn(args ...any)  { l.zlog.Sugar().Warn(args...) }
func (l *Logger) Error(args ...any) { l.zlog.Sugar().Error(args...) }
func (l *Logger) Fatal(args ...any) { l.zlog.Sugar().Fatal(args...) }

func (l *Logger) Debugf(format string, args ...any) { l.zlog.Sugar().Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.zlog.Sugar().Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.zlog.Sugar().Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.zlog.Sugar().Errorf(format, args...) }
func (l *Logger) Fatalf(format string, args ...any) { l.zlog.Sugar().Fatalf(format, args...) }

func (l *Logger) Debugw(msg string, keysValues ...any) { l.zlog.Sugar().Debugw(msg, keysValues...) }
func (l *Logger) Infow(msg string, keysValues ...any)  { l.zlog.Sugar().Infow(msg, keysValues...) }
func (l *Logger) Warnw(msg string, keysValues ...any)  { l.zlog.Sugar().Warnw(msg, keysValues...) }
func (l *Logger) Errorw(msg string, keysValues ...any) { l.zlog.Sugar().Errorw(msg, keysValues...) }
func (l *Logger) Fatalw(msg string, keysValues ...any) { l.zlog.Sugar().Fatalw(msg, keysValues...) }

func (l *Logger) Debugz(msg string, fields ...zap.Field) { l.zlog.Debug(msg, fields...) }
func (l *Logger) Infoz(msg string, fields ...zap.Field)  { l.zlog.Info(msg, fields...) }
func (l *Logger) Warnz(msg string, fields ...zap.Field)  { l.zlog.Warn(msg, fields...) }
func (l *Logger) Errorz(msg string, fields ...zap.Field) { l.zlog.Error(msg, fields...) }
func (l *Logger) Fatalz(msg string, fields ...zap.Field) { l.zlog.Fatal(msg, fields...) }

func (l *Logger) ZapLogger() *zap.Logger { return l.zlog }

func (l *Logger) WithObject(name string, obj zapcore.ObjectMarshaler) types.Logger {
	return &Logger{zlog: l.zlog.With(zap.Object(name, obj))}
}

func (l *Logger) WithArray(name string, arr zapcore.ArrayMarshaler) types.Logger {
	return &Logger{zlog: l.zlog.With(zap.Array(name, arr))}
}

// With creates a new logger with additional string key-value pairs. An odd
// number of arguments gets an empty string appended as the last value.
func (l *Logger) With(fields ...string) types.Logger {
	if len(fields) == 0 {
		return l
	}
	if len(fields) == 1 && len(fields[0]) == 0 {
		return l
	}
	if len(fields)%2 != 0 {
		fields = append(fields, "")
	}

	zapFields := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		if len(fields[i]) == 0 {
			continue
		}
		zapFields = append(zapFields, zap.String(fields[i], fields[i+1]))
	}
	return &Logger{zlog: l.zlog.With(zapFields...)}
}

// WithExecContext attaches an operator's ns/db/tb/actor/trace fields, per §4.6.
func (l *Logger) WithExecContext(ctx *types.ExecContext, phase consts.Phase) types.Logger {
	return l.With(
		"phase", string(phase),
		"ns", ctx.Ns, "db", ctx.Db, "tb", ctx.Tb,
		"actor", ctx.Actor, "trace_id", ctx.TraceID,
	)
}

// WithPlanContext attaches a planner decision's ns/db/tb/access-path fields, per §4.5.
func (l *Logger) WithPlanContext(ctx *types.PlanContext, phase consts.Phase) types.Logger {
	return l.With(
		"phase", string(phase),
		"ns", ctx.Ns, "db", ctx.Db, "tb", ctx.Tb,
		"access_path", ctx.AccessPath, "trace_id", ctx.TraceID,
	)
}

// WithDDLContext attaches a DDL statement's ns/db/tb/statement fields, per §4.8.
func (l *Logger) WithDDLContext(ctx *types.DDLContext, phase consts.Phase) types.Logger {
	return l.With(
		"phase", string(phase),
		"ns", ctx.Ns, "db", ctx.Db, "tb", ctx.Tb,
		"statement", ctx.Statement, "trace_id", ctx.TraceID,
	)
}

// CasbinLogger adapts types.Logger to casbin's log.Logger interface, used by
// iam/rbac.go's enforcer per SPEC_FULL.md §2's RBAC row.
type CasbinLogger struct {
	l       types.Logger
	enabled bool
}

var _ casbinl.Logger = (*CasbinLogger)(nil)

func (c *CasbinLogger) EnableLog(enabled bool) { c.enabled = enabled }
func (c *CasbinLogger) IsEnabled() bool        { return c.enabled }

func (c *CasbinLogger) LogModel(model [][]string) {
	if !c.enabled {
		return
	}
	c.l.Infow("", "model", model)
}

func (c *CasbinLogger) LogEnforce(matcher string, request []any, result bool, explains [][]string) {
	if !c.enabled {
		return
	}
	c.l.Infow("", "result", result, "request", request, "explains", explains, "matcher", matcher)
}

func (c *CasbinLogger) LogPolicy(policy map[string][][]string) {
	if !c.enabled {
		return
	}
	for k, vl := range policy {
		for _, v := range vl {
			c.l.Infow("policy", k, v)
		}
	}
}

func (c *CasbinLogger) LogRole(roles []string) {
	if !c.enabled {
		return
	}
	c.l.Infow("", "roles", roles)
}

func (c *CasbinLogger) LogError(err error, msg ...string) {
	c.l.Errorw(err.Error(), "msg", msg)
}
