package zap

import (
	"context"
	"strings"

	logpkg "github.com/LerianStudio/lib-gated/gated/log"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger adapts a zap.Logger to log.Logger.
type Logger struct {
	base  *zap.Logger
	level zap.AtomicLevel
}

var _ logpkg.Logger = (*Logger)(nil)

// NewFromZap wraps base without touching its core. Tests use it with observer cores.
func NewFromZap(base *zap.Logger) *Logger {
	return &Logger{base: base, level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

var zapLevels = map[logpkg.Level]zapcore.Level{
	logpkg.LevelError: zapcore.ErrorLevel,
	logpkg.LevelWarn:  zapcore.WarnLevel,
	logpkg.LevelInfo:  zapcore.InfoLevel,
	logpkg.LevelDebug: zapcore.DebugLevel,
}

func toZapLevel(level logpkg.Level) zapcore.Level {
	if zl, ok := zapLevels[level]; ok {
		return zl
	}

	return zapcore.InfoLevel
}

// escaper keeps request-supplied text such as identities on one output line.
var escaper = strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`)

func (l *Logger) zap() *zap.Logger {
	if l == nil || l.base == nil {
		return zap.NewNop()
	}

	return l.base
}

// Log writes the entry when the level is enabled. A valid span in ctx adds
// trace_id and span_id.
func (l *Logger) Log(ctx context.Context, level logpkg.Level, msg string, fields ...logpkg.Field) {
	entry := l.zap().Check(toZapLevel(level), escaper.Replace(msg))
	if entry == nil {
		return
	}

	out := convert(fields)

	if ctx != nil {
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			out = append(out, zap.Stringer("trace_id", sc.TraceID()), zap.Stringer("span_id", sc.SpanID()))
		}
	}

	entry.Write(out...)
}

//nolint:ireturn
func (l *Logger) With(fields ...logpkg.Field) logpkg.Logger {
	return &Logger{base: l.zap().With(convert(fields)...), level: l.level}
}

func (l *Logger) Enabled(level logpkg.Level) bool {
	return l.zap().Core().Enabled(toZapLevel(level))
}

// Sync flushes the core. It gives up when ctx ends first.
func (l *Logger) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- l.zap().Sync() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Level is the handle that changes the level at runtime.
func (l *Logger) Level() zap.AtomicLevel { return l.level }

func convert(fields []logpkg.Field) []zap.Field {
	out := make([]zap.Field, len(fields))

	for i, f := range fields {
		switch v := f.Value.(type) {
		case string:
			out[i] = zap.String(f.Key, escaper.Replace(v))
		case error:
			out[i] = zap.NamedError(f.Key, v)
		default:
			out[i] = zap.Any(f.Key, v)
		}
	}

	return out
}
