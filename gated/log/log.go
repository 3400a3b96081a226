package log

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is implemented by every backend the gateway can log through.
type Logger interface {
	Log(ctx context.Context, level Level, msg string, fields ...Field)
	With(fields ...Field) Logger
	Enabled(level Level) bool
	Sync(ctx context.Context) error
}

// Level orders entries by severity. Smaller is more severe, so a logger set
// to LevelInfo emits errors, warnings and info.
type Level uint8

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelNames = [...]string{
	LevelError: "error",
	LevelWarn:  "warn",
	LevelInfo:  "info",
	LevelDebug: "debug",
}

func (level Level) String() string {
	if int(level) < len(levelNames) {
		return levelNames[level]
	}

	return "unknown"
}

// ParseLevel accepts the level names case-insensitively, plus "warning".
func ParseLevel(name string) (Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		return LevelWarn, nil
	}

	for level, known := range levelNames {
		if name == known {
			return Level(level), nil
		}
	}

	return LevelError, fmt.Errorf("unknown log level %q", name)
}

// Field is one key/value pair attached to an entry.
type Field struct {
	Key   string
	Value any
}

func Any(key string, value any) Field { return Field{Key: key, Value: value} }

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Stringer renders value eagerly, so amounts and identities log as text.
func Stringer(key string, value fmt.Stringer) Field {
	if value == nil {
		return Field{Key: key, Value: "<nil>"}
	}

	return Field{Key: key, Value: value.String()}
}

// Err stores err under the "error" key.
func Err(err error) Field { return Field{Key: "error", Value: err} }

// Nop discards everything.
type Nop struct{}

// NewNop returns a Logger that discards everything.
//
//nolint:ireturn
func NewNop() Logger { return Nop{} }

func (Nop) Log(context.Context, Level, string, ...Field) {}

//nolint:ireturn
func (n Nop) With(...Field) Logger { return n }

func (Nop) Enabled(Level) bool { return false }

func (Nop) Sync(context.Context) error { return nil }
