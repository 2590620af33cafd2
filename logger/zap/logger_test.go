package zap_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/surrealkv-core/config"
	"github.com/forbearing/surrealkv-core/logger/zap"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

func newTestLogger(t *testing.T) types.Logger {
	t.Helper()
	os.Setenv("LOGGER_FILE", "/dev/stdout")
	os.Setenv("LOGGER_DIR", t.TempDir())
	require.NoError(t, config.Init())
	t.Cleanup(config.Clean)
	return zap.New("")
}

func TestLoggerWithAttachesKeyValues(t *testing.T) {
	l := newTestLogger(t)
	assert.NotPanics(t, func() {
		l.With("key1", "value1", "key2", "value2").Info("hello world")
	})
}

func TestLoggerWithOddFieldsPadsEmptyValue(t *testing.T) {
	l := newTestLogger(t)
	assert.NotPanics(t, func() {
		l.With("key1").Info("hello world")
	})
}

func TestLoggerWithExecContext(t *testing.T) {
	l := newTestLogger(t)
	ctx := &types.ExecContext{Ns: "test", Db: "test", Tb: "person", Actor: "root", TraceID: "trace-1"}
	assert.NotPanics(t, func() {
		l.WithExecContext(ctx, consts.PhaseExec).Infow("scanned table")
	})
}

func TestLoggerWithPlanContext(t *testing.T) {
	l := newTestLogger(t)
	ctx := &types.PlanContext{Ns: "test", Db: "test", Tb: "person", AccessPath: "index:name_idx", TraceID: "trace-2"}
	assert.NotPanics(t, func() {
		l.WithPlanContext(ctx, consts.PhasePlan).Infow("chose access path")
	})
}

func TestLoggerWithDDLContext(t *testing.T) {
	l := newTestLogger(t)
	ctx := &types.DDLContext{Ns: "test", Db: "test", Tb: "person", Statement: "DEFINE FIELD name ON person", TraceID: "trace-3"}
	assert.NotPanics(t, func() {
		l.WithDDLContext(ctx, consts.PhaseDDL).Infow("applied definition")
	})
}

func TestLoggerLevelsDoNotPanic(t *testing.T) {
	l := newTestLogger(t)
	assert.NotPanics(t, func() {
		l.Debug("debug"); l.Info("info"); l.Warn("warn"); l.Error("error")
		l.Debugf("debug %d", 1); l.Infof("info %d", 1)
		l.Debugw("debugw", "k", "v"); l.Infow("infow", "k", "v")
		l.Debugz("debugz"); l.Infoz("infoz")
	})
}
