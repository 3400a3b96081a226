package zap

import (
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment picks between zap's development and production presets.
type Environment string

const (
	EnvironmentProduction  Environment = "production"
	EnvironmentStaging     Environment = "staging"
	EnvironmentDevelopment Environment = "development"
	EnvironmentLocal       Environment = "local"
)

// verbose reports whether the environment logs at debug with the development preset.
func (e Environment) verbose() bool {
	return e == EnvironmentDevelopment || e == EnvironmentLocal
}

// Encoding is the zap encoder name.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingConsole Encoding = "console"
)

// ErrMissingLibraryName is returned by New without Config.OTelLibraryName.
var ErrMissingLibraryName = errors.New("OTelLibraryName is required")

// Config holds what New needs to build a logger.
type Config struct {
	Environment Environment
	// Level overrides the environment default when set ("debug", "info", ...).
	Level    string
	Encoding Encoding
	// OTelLibraryName names the instrumentation scope of the OTel log bridge.
	OTelLibraryName string
}

// ParseEnvironment maps ENV_NAME onto an Environment. Unknown names are production.
func ParseEnvironment(value string) Environment {
	env := Environment(strings.ToLower(strings.TrimSpace(value)))

	switch env {
	case EnvironmentStaging, EnvironmentDevelopment, EnvironmentLocal:
		return env
	}

	return EnvironmentProduction
}

// New builds a zap logger that also feeds the OTel log bridge. The returned
// level can be changed while the process runs.
func New(cfg Config) (*Logger, zap.AtomicLevel, error) {
	level, err := cfg.atomicLevel()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("invalid zap config: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Environment.verbose() {
		zc = zap.NewDevelopmentConfig()
	}

	zc.Level = level
	zc.Encoding = string(cfg.Encoding)
	zc.DisableStacktrace = true
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	bridge := otelzap.NewCore(cfg.OTelLibraryName)

	base, err := zc.Build(
		zap.AddCallerSkip(1),
		zap.WrapCore(func(core zapcore.Core) zapcore.Core { return zapcore.NewTee(core, bridge) }),
	)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("build zap logger: %w", err)
	}

	return &Logger{base: base, level: level}, level, nil
}

// atomicLevel validates cfg, defaulting Encoding to JSON, and resolves the level.
func (cfg *Config) atomicLevel() (zap.AtomicLevel, error) {
	if strings.TrimSpace(cfg.OTelLibraryName) == "" {
		return zap.AtomicLevel{}, ErrMissingLibraryName
	}

	switch cfg.Environment {
	case EnvironmentProduction, EnvironmentStaging, EnvironmentDevelopment, EnvironmentLocal:
	default:
		return zap.AtomicLevel{}, fmt.Errorf("invalid environment %q", cfg.Environment)
	}

	switch cfg.Encoding {
	case "":
		cfg.Encoding = EncodingJSON
	case EncodingJSON, EncodingConsole:
	default:
		return zap.AtomicLevel{}, fmt.Errorf("invalid encoding %q", cfg.Encoding)
	}

	if strings.TrimSpace(cfg.Level) == "" {
		if cfg.Environment.verbose() {
			return zap.NewAtomicLevelAt(zapcore.DebugLevel), nil
		}

		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}

	var parsed zapcore.Level
	if err := parsed.Set(cfg.Level); err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid level %q: %w", cfg.Level, err)
	}

	return zap.NewAtomicLevelAt(parsed), nil
}
