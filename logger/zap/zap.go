// Package zap implements the ambient logging layer over go.uber.org/zap,
// grounded on forbearing-gst/logger/zap/zap.go: one rolling/console sink
// per logger.* handle, selected and leveled from config.App.Logger.
package zap

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	casbinl "github.com/casbin/casbin/v2/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	gorml "gorm.io/gorm/logger"

	"github.com/forbearing/surrealkv-core/config"
	"github.com/forbearing/surrealkv-core/logger"
	"github.com/forbearing/surrealkv-core/types"
)

var (
	logDir        string
	logFile       string
	logLevel      string
	logFormat     string
	logMaxAge     int
	logMaxSize    int
	logMaxBackups int
)

// Option configures encoder behavior for constructors. DisableMsg/
// DisableLevel hide the "msg"/"level" fields; TSLayout overrides the time
// format.
type Option struct {
	DisableMsg   bool
	DisableLevel bool
	TSLayout     string
}

// Init initializes the global zap logger and every logger.* package-level
// handle from config.App.Logger.
func Init() error {
	readConf()
	zap.ReplaceGlobals(zap.New(
		zapcore.NewCore(newLogEncoder(), newLogWriter(), newLogLevel()),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.FatalLevel),
	))

	logger.Engine = New("engine.log")
	logger.Plan = New("plan.log")
	logger.DDL = New("ddl.log")
	logger.IAM = New("iam.log")
	logger.Live = New("live.log")
	logger.Notify = New("notify.log")
	logger.Catalog = New("catalog.log")
	logger.Kv = New("kv.log")

	return nil
}

// Clean flushes every logger.* handle's buffered output.
func Clean() {
	_ = zap.L().Sync()
	logs := []types.Logger{
		logger.Engine, logger.Plan, logger.DDL, logger.IAM,
		logger.Live, logger.Notify, logger.Catalog, logger.Kv,
	}
	for _, l := range logs {
		if zl, ok := l.(*Logger); ok && zl != nil {
			_ = zl.zlog.Sync()
		}
	}
}

// New builds a types.Logger backed by *zap.Logger.
// filename: target log file name ("/dev/stdout" for console)
func New(filename string, opts ...Option) *Logger {
	readConf()
	if len(filename) > 0 {
		logFile = filename
	}
	l := zap.New(
		zapcore.NewCore(newLogEncoder(opts...), newLogWriter(opts...), newLogLevel(opts...)),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.FatalLevel),
	)
	return &Logger{zlog: l}
}

// NewGorm builds a gorm logger.Interface, for kvs/gormkv's backing store.
func NewGorm(filename string) gorml.Interface {
	readConf()
	if len(filename) > 0 {
		logFile = filename
	}
	l := zap.New(
		zapcore.NewCore(newLogEncoder(), newLogWriter(), newLogLevel()),
		zap.AddCaller(),
		zap.AddCallerSkip(5),
		zap.AddStacktrace(zapcore.FatalLevel),
	)
	return &GormLogger{l: &Logger{zlog: l}}
}

// NewCasbin builds a casbin Logger (no caller field), for iam/rbac.go's enforcer.
func NewCasbin(filename string) casbinl.Logger {
	readConf()
	if len(filename) > 0 {
		logFile = filename
	}
	l := zap.New(
		zapcore.NewCore(newLogEncoder(Option{DisableMsg: true}), newLogWriter(), newLogLevel()),
		zap.AddStacktrace(zapcore.FatalLevel),
	)
	return &CasbinLogger{l: &Logger{zlog: l}}
}

// NewStdLog builds a *log.Logger backed by *zap.Logger, for dependencies
// that only accept the standard library's Logger type.
func NewStdLog() *log.Logger {
	return zap.NewStdLog(NewZap(""))
}

// NewZap builds a *zap.Logger with optional filename and options.
func NewZap(filename string, opts ...Option) *zap.Logger {
	readConf()
	if len(filename) > 0 {
		logFile = filename
	}
	return zap.New(
		zapcore.NewCore(newLogEncoder(opts...), newLogWriter(opts...), newLogLevel(opts...)),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.FatalLevel))
}

// NewSugared builds a *zap.SugaredLogger with optional filename and options.
func NewSugared(filename string, opts ...Option) *zap.SugaredLogger {
	return NewZap(filename, opts...).Sugar()
}

func newLogWriter(_ ...Option) zapcore.WriteSyncer {
	switch strings.TrimSpace(logFile) {
	case "/dev/stdout":
		return zapcore.AddSync(os.Stdout)
	case "/dev/stderr":
		return zapcore.AddSync(os.Stderr)
	case "":
		return zapcore.AddSync(os.Stdout)
	default:
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(logDir, logFile),
			MaxAge:     logMaxAge,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackups,
			LocalTime:  true,
		})
	}
}

func newLogLevel(_ ...Option) zapcore.Level {
	if len(logLevel) == 0 {
		return zapcore.InfoLevel
	}
	level := new(zapcore.Level)
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return zapcore.InfoLevel
	}
	return *level
}

func newLogEncoder(opt ...Option) zapcore.Encoder {
	encConfig := zap.NewProductionEncoderConfig()
	encConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if len(opt) > 0 {
		o := opt[0]
		if o.DisableMsg {
			encConfig.MessageKey = ""
		}
		if o.DisableLevel {
			encConfig.LevelKey = ""
		}
		if len(o.TSLayout) > 0 {
			encConfig.EncodeTime = zapcore.TimeEncoderOfLayout(o.TSLayout)
		}
	}
	switch strings.ToLower(logFormat) {
	case "json":
		return zapcore.NewJSONEncoder(encConfig)
	case "text", "console":
		return zapcore.NewConsoleEncoder(encConfig)
	default:
		return zapcore.NewJSONEncoder(encConfig)
	}
}

func readConf() {
	logDir = config.App.Logger.Dir
	logFile = config.App.Logger.File
	logLevel = config.App.Logger.Level
	logFormat = config.App.Logger.Format
	logMaxAge = config.App.Logger.MaxAge
	logMaxSize = config.App.Logger.MaxSize
	logMaxBackups = config.App.Logger.MaxBackups
}
