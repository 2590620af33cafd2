// Package config implements the ambient configuration layer: a single
// package-level App populated from environment, file, and defaults, with a
// generic Register/Get extension point for ad hoc sections a caller adds at
// startup. Grounded on forbearing-gst/config/config.go's viper/defaults/ini
// wiring, trimmed to the sections this engine actually reads.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-viper/encoding/ini"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/forbearing/surrealkv-core/types/consts"
)

var (
	App = new(Config)

	configPaths = []string{}
	configFile  = ""
	configName  = "config"
	configType  = "ini"

	registeredConfigs = make(map[string]any)
	registeredTypes   = make(map[string]reflect.Type)

	inited  bool
	tempdir string
	mu      sync.RWMutex
	cv      *viper.Viper
)

// Config is the top-level application configuration, one section per
// ambient/domain concern this engine has. Unlike the teacher's Config
// (one section per supported backend), every section here backs a concrete
// SPEC_FULL.md component.
type Config struct {
	AppInfo   `json:"app" mapstructure:"app" ini:"app" yaml:"app"`
	Server    `json:"server" mapstructure:"server" ini:"server" yaml:"server"`
	Engine    `json:"engine" mapstructure:"engine" ini:"engine" yaml:"engine"`
	Auth      `json:"auth" mapstructure:"auth" ini:"auth" yaml:"auth"`
	Heartbeat `json:"heartbeat" mapstructure:"heartbeat" ini:"heartbeat" yaml:"heartbeat"`
	Cache     `json:"cache" mapstructure:"cache" ini:"cache" yaml:"cache"`
	Logger    `json:"logger" mapstructure:"logger" ini:"logger" yaml:"logger"`
	Nats      `json:"nats" mapstructure:"nats" ini:"nats" yaml:"nats"`
	Redis     `json:"redis" mapstructure:"redis" ini:"redis" yaml:"redis"`
	Kv        `json:"kv" mapstructure:"kv" ini:"kv" yaml:"kv"`
}

// AppInfo identifies the running binary (name and version).
type AppInfo struct {
	Name    string `json:"name" mapstructure:"name" ini:"name" yaml:"name" default:"surrealkv-core"`
	Version string `json:"version" mapstructure:"version" ini:"version" yaml:"version" default:"dev"`
}

func (c *AppInfo) setDefault() { setIfZero(c) }

// Server holds this node's identity and bind address for §4.9's bootstrap
// protocol and the cmd/ serve entrypoint.
type Server struct {
	NodeID   string `json:"node_id" mapstructure:"node_id" ini:"node_id" yaml:"node_id"`
	BindAddr string `json:"bind_addr" mapstructure:"bind_addr" ini:"bind_addr" yaml:"bind_addr" default:":8000"`
}

func (c *Server) setDefault() { setIfZero(c) }

// Engine controls the streaming executor's batch size (§4.6) and the
// default KNN search breadth (§4.6.4) when a statement omits EF.
type Engine struct {
	BatchSize int `json:"batch_size" mapstructure:"batch_size" ini:"batch_size" yaml:"batch_size" default:"1000"`
	KnnEf     int `json:"knn_ef" mapstructure:"knn_ef" ini:"knn_ef" yaml:"knn_ef" default:"100"`
}

func (c *Engine) setDefault() {
	setIfZero(c)
	if c.BatchSize <= 0 {
		c.BatchSize = consts.DefaultBatchSize
	}
	if c.KnnEf <= 0 {
		c.KnnEf = consts.DefaultKnnEf
	}
}

// Auth controls authentication behavior, including the
// INSECURE_FORWARD_ACCESS_ERRORS-equivalent global from spec §9's Open
// Question decisions (see DESIGN.md).
type Auth struct {
	ServerAuthEnabled           bool          `json:"server_auth_enabled" mapstructure:"server_auth_enabled" ini:"server_auth_enabled" yaml:"server_auth_enabled" default:"true"`
	TokenDuration               time.Duration `json:"token_duration" mapstructure:"token_duration" ini:"token_duration" yaml:"token_duration" default:"1h"`
	SessionDuration             time.Duration `json:"session_duration" mapstructure:"session_duration" ini:"session_duration" yaml:"session_duration" default:"24h"`
	InsecureForwardAccessErrors bool          `json:"insecure_forward_access_errors" mapstructure:"insecure_forward_access_errors" ini:"insecure_forward_access_errors" yaml:"insecure_forward_access_errors"`
	TotpEnabled                 bool          `json:"totp_enabled" mapstructure:"totp_enabled" ini:"totp_enabled" yaml:"totp_enabled"`
}

func (c *Auth) setDefault() { setIfZero(c) }

// Heartbeat controls §4.9 bootstrap's dead-node detection threshold.
type Heartbeat struct {
	Expiry time.Duration `json:"expiry" mapstructure:"expiry" ini:"expiry" yaml:"expiry" default:"30s"`
}

func (c *Heartbeat) setDefault() { setIfZero(c) }

// Cache controls the catalog.View in-transaction schema cache and, at a
// higher level, how aggressively definitions are re-fetched.
type Cache struct {
	TTL  time.Duration `json:"ttl" mapstructure:"ttl" ini:"ttl" yaml:"ttl" default:"5m"`
	Size int           `json:"size" mapstructure:"size" ini:"size" yaml:"size" default:"4096"`
}

func (c *Cache) setDefault() { setIfZero(c) }

// Logger controls zap's sink, level, and encoding, consumed by
// logger/zap.Init. File is a bare filename under Dir, or "/dev/stdout"/
// "/dev/stderr"/"" for console output; a named file rotates through
// gopkg.in/natefinch/lumberjack.v2.
type Logger struct {
	Dir        string `json:"dir" mapstructure:"dir" ini:"dir" yaml:"dir" default:"./logs"`
	File       string `json:"file" mapstructure:"file" ini:"file" yaml:"file" default:"/dev/stdout"`
	Level      string `json:"level" mapstructure:"level" ini:"level" yaml:"level" default:"info"`
	Format     string `json:"format" mapstructure:"format" ini:"format" yaml:"format" default:"console"`
	MaxAge     int    `json:"max_age" mapstructure:"max_age" ini:"max_age" yaml:"max_age" default:"7"`
	MaxSize    int    `json:"max_size" mapstructure:"max_size" ini:"max_size" yaml:"max_size" default:"100"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups" ini:"max_backups" yaml:"max_backups" default:"10"`
}

func (c *Logger) setDefault() { setIfZero(c) }

// Nats controls pkg/notify's NatsPublisher connection, per §6.6.
type Nats struct {
	URL     string `json:"url" mapstructure:"url" ini:"url" yaml:"url" default:"nats://127.0.0.1:4222"`
	Enabled bool   `json:"enabled" mapstructure:"enabled" ini:"enabled" yaml:"enabled"`
}

func (c *Nats) setDefault() { setIfZero(c) }

// Redis controls iam's refresh-token single-use store (§4.7).
type Redis struct {
	Addr     string `json:"addr" mapstructure:"addr" ini:"addr" yaml:"addr" default:"127.0.0.1:6379"`
	Password string `json:"password" mapstructure:"password" ini:"password" yaml:"password"`
	DB       int    `json:"db" mapstructure:"db" ini:"db" yaml:"db"`
	Enabled  bool   `json:"enabled" mapstructure:"enabled" ini:"enabled" yaml:"enabled"`
}

func (c *Redis) setDefault() { setIfZero(c) }

// Kv selects and configures the kvs.Store backend: "memory" (kvs/memkv) or
// "gorm" (kvs/gormkv, dialed through Postgres/SQLite per §6.5).
type Kv struct {
	Backend string `json:"backend" mapstructure:"backend" ini:"backend" yaml:"backend" default:"memory"`
	DSN     string `json:"dsn" mapstructure:"dsn" ini:"dsn" yaml:"dsn" default:"file:surrealkv.db?cache=shared"`
	Driver  string `json:"driver" mapstructure:"driver" ini:"driver" yaml:"driver" default:"sqlite"`
}

func (c *Kv) setDefault() { setIfZero(c) }

func setIfZero(dst any) {
	if err := defaults.Set(dst); err != nil {
		zap.S().Warnw("failed to set default value", "type", reflect.TypeOf(dst), "error", err)
	}
}

// setDefault sets every section's default value before unmarshaling.
func (c *Config) setDefault() {
	c.AppInfo.setDefault()
	c.Server.setDefault()
	c.Engine.setDefault()
	c.Auth.setDefault()
	c.Heartbeat.setDefault()
	c.Cache.setDefault()
	c.Logger.setDefault()
	c.Nats.setDefault()
	c.Redis.setDefault()
	c.Kv.setDefault()
}

// Init initializes the application configuration.
//
// Configuration priority (from highest to lowest):
// 1. Environment variables
// 2. Configuration file
// 3. Default values
func Init() (err error) {
	if flag.Lookup("test.v") == nil {
		if tempdir, err = os.MkdirTemp("", "surrealkv_"); err != nil {
			return errors.Wrap(err, "failed to create temp dir")
		}
		fmt.Fprintf(os.Stdout, "create temp dir: %s\n", tempdir)
	}

	codecRegistry := viper.NewCodecRegistry()
	if err = codecRegistry.RegisterCodec("ini", ini.Codec{}); err != nil {
		return err
	}
	cv = viper.NewWithOptions(viper.WithCodecRegistry(codecRegistry))
	cv.AutomaticEnv()
	cv.AllowEmptyEnv(true)
	cv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	App = new(Config)
	App.setDefault()

	if len(configFile) > 0 {
		cv.SetConfigFile(configFile)
	} else {
		cv.SetConfigName(configName)
		cv.SetConfigType(configType)
	}
	cv.AddConfigPath(".")
	cv.AddConfigPath("/etc/")
	for _, path := range configPaths {
		cv.AddConfigPath(path)
	}

	if err = cv.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			if flag.Lookup("test.v") == nil {
				if err = os.WriteFile(filepath.Join(tempdir, fmt.Sprintf("%s.%s", configName, configType)), nil, 0o600); err != nil {
					return errors.Wrap(err, "failed to create config file")
				}
			}
		} else {
			return errors.Wrap(err, "failed to read config file")
		}
	}
	if err = cv.Unmarshal(App); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}

	for name, typ := range registeredTypes {
		registerType(name, typ)
	}
	inited = true

	return nil
}

func Clean() {
	if err := os.RemoveAll(tempdir); err != nil {
		zap.S().Errorw("failed to remove temp dir", "error", err, "dir", tempdir)
	} else {
		zap.S().Infow("successfully remove temp dir", "dir", tempdir)
	}
}

func Tempdir() string {
	return tempdir
}

// Register registers a custom configuration section into the config system,
// for components outside this package that need their own viper-backed
// section (e.g. a caller embedding this engine with an extra backend).
// T can be a struct type or pointer to a struct type; anything else is
// skipped silently.
func Register[T any]() {
	mu.Lock()
	defer mu.Unlock()

	var t T
	typ := reflect.TypeOf(t)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return
	}

	cfgName := strings.ToLower(typ.Name())
	if inited {
		registerType(cfgName, typ)
	} else {
		registeredTypes[cfgName] = typ
	}
}

func registerType(name string, typ reflect.Type) {
	name = strings.ToLower(name)

	cfg := reflect.New(typ).Interface()
	if err := defaults.Set(cfg); err != nil {
		zap.S().Warnw("failed to set default value", "name", name, "type", typ, "error", err)
	}
	setDefaultDurationFields(typ, reflect.ValueOf(cfg).Elem())

	if err := cv.UnmarshalKey(name, cfg); err != nil {
		zap.S().Warnw("failed to unmarshal config", "name", name, "type", typ, "error", err)
	}

	envCfg := reflect.New(typ).Interface()
	envPrefix := strings.ToUpper(name) + "_"
	v := reflect.ValueOf(envCfg).Elem()
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		mapstructureTag := field.Tag.Get("mapstructure")
		if len(mapstructureTag) == 0 {
			continue
		}
		envKey := envPrefix + strings.ToUpper(mapstructureTag)
		envVal, exists := os.LookupEnv(envKey)
		if !exists {
			continue
		}
		fieldVal := v.Field(i)
		switch fieldVal.Kind() {
		case reflect.String:
			fieldVal.SetString(envVal)
		case reflect.Bool:
			if boolVal, err := strconv.ParseBool(envVal); err == nil {
				fieldVal.SetBool(boolVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if field.Type == reflect.TypeFor[time.Duration]() {
				if duration, err := time.ParseDuration(envVal); err == nil {
					fieldVal.SetInt(int64(duration))
				}
			} else if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
				fieldVal.SetInt(intVal)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if uintVal, err := strconv.ParseUint(envVal, 10, 64); err == nil {
				fieldVal.SetUint(uintVal)
			}
		case reflect.Float32, reflect.Float64:
			if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
				fieldVal.SetFloat(floatVal)
			}
		}
	}
	mergeNonZeroFields(reflect.ValueOf(cfg).Elem(), v)

	registeredConfigs[name] = cfg
}

func setDefaultDurationFields(typ reflect.Type, val reflect.Value) {
	if typ.Kind() != reflect.Struct {
		return
	}
	for i := range typ.NumField() {
		fieldTyp := typ.Field(i)
		fieldVal := val.Field(i)

		if fieldTyp.Anonymous && fieldTyp.Type.Kind() == reflect.Struct {
			setDefaultDurationFields(fieldTyp.Type, fieldVal)
			continue
		}

		if fieldTyp.Type == reflect.TypeFor[time.Duration]() {
			if defaultValue, ok := fieldTyp.Tag.Lookup("default"); ok && fieldVal.Interface().(time.Duration) == 0 { //nolint:errcheck
				if duration, err := time.ParseDuration(defaultValue); err == nil {
					fieldVal.Set(reflect.ValueOf(duration))
				} else {
					zap.S().Warnw("failed to parse duration default value",
						"field", fieldTyp.Name, "default", defaultValue, "error", err)
				}
			}
		}

		if fieldTyp.Type.Kind() == reflect.Struct && !fieldTyp.Anonymous {
			setDefaultDurationFields(fieldTyp.Type, fieldVal)
		}

		if fieldTyp.Type.Kind() == reflect.Pointer && fieldTyp.Type.Elem().Kind() == reflect.Struct {
			if fieldVal.IsNil() {
				fieldVal.Set(reflect.New(fieldTyp.Type.Elem()))
			}
			setDefaultDurationFields(fieldTyp.Type.Elem(), fieldVal.Elem())
		}
	}
}

func mergeNonZeroFields(dst, src reflect.Value) {
	for i := range src.NumField() {
		srcField := src.Field(i)
		if !isZeroValue(srcField) {
			dst.Field(i).Set(srcField)
		}
	}
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

// Get returns a registered custom configuration section. T must match the
// type passed to Register, or be a pointer to it.
func Get[T any]() (t T) {
	mu.RLock()
	defer mu.RUnlock()

	var temp T
	typ := reflect.TypeOf(temp)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return t
	}
	cfgName := strings.ToLower(typ.Name())

	config, exists := registeredConfigs[cfgName]
	if !exists {
		zap.S().Warnw("config not found", "name", cfgName)
		return t
	}

	storedVal := reflect.ValueOf(config)
	storedTyp := storedVal.Elem().Type()
	destTyp := reflect.TypeOf(t)

	if storedTyp == destTyp {
		return storedVal.Elem().Interface().(T) //nolint:errcheck
	}
	if destTyp.Kind() == reflect.Pointer && storedTyp == destTyp.Elem() {
		return storedVal.Interface().(T) //nolint:errcheck
	}

	zap.S().Warnw("config type mismatch", "name", cfgName, "stored", storedTyp.Name(), "dest", destTyp.Name())
	return t
}

// SetConfigFile sets the config file path. Call before Init.
func SetConfigFile(file string) {
	mu.Lock()
	defer mu.Unlock()
	configFile = file
}

// SetConfigName sets the config file name, default "config". Call before Init.
func SetConfigName(name string) {
	mu.Lock()
	defer mu.Unlock()
	configName = name
}

// SetConfigType sets the config file type, default "ini". Call before Init.
func SetConfigType(typ string) {
	mu.Lock()
	defer mu.Unlock()
	configType = typ
}

// AddPath adds a custom config search path. Default: ".", "/etc/". Call before Init.
func AddPath(paths ...string) {
	mu.Lock()
	defer mu.Unlock()
	configPaths = append(configPaths, paths...)
}

// Save writes the current config instance to out.
func Save(out io.Writer) error {
	return cv.WriteConfigTo(out)
}
