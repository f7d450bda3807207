// Package log is the structured logger used by the ledger, the event
// handlers and the tpke command. The cryptographic core never logs.
package log

import (
	"context"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// log is the implementation of Logger
type log struct {
	*zap.SugaredLogger
}

// Logger is an interface that can log to different levels.
type Logger interface {
	Info(keyvals ...interface{})
	Debug(keyvals ...interface{})
	Warn(keyvals ...interface{})
	Error(keyvals ...interface{})
	Infow(msg string, keyvals ...interface{})
	Debugw(msg string, keyvals ...interface{})
	Warnw(msg string, keyvals ...interface{})
	Errorw(msg string, keyvals ...interface{})
	With(args ...interface{}) Logger
	Named(s string) Logger
	Sync() error
}

func (l *log) With(args ...interface{}) Logger {
	return &log{l.SugaredLogger.With(args...)}
}

func (l *log) Named(s string) Logger {
	return &log{l.SugaredLogger.Named(s)}
}

const (
	DebugLevel = int(zapcore.DebugLevel)
	InfoLevel  = int(zapcore.InfoLevel)
	WarnLevel  = int(zapcore.WarnLevel)
	ErrorLevel = int(zapcore.ErrorLevel)
)

// DefaultLevel is the level of the default logger. TPKE_LOG_LEVEL=debug
// lowers it at start up.
var DefaultLevel = InfoLevel

func init() {
	if lvl, ok := os.LookupEnv("TPKE_LOG_LEVEL"); ok {
		if parsed, err := ParseLevel(lvl); err == nil {
			DefaultLevel = parsed
		}
	}
}

// ParseLevel maps a level name (debug, info, warn, error) to its value.
func ParseLevel(s string) (int, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return 0, err
	}
	return int(lvl), nil
}

var (
	defaultOnce   sync.Once
	defaultLogger Logger
)

// DefaultLogger is the process wide logger writing JSON to stdout at
// DefaultLevel.
func DefaultLogger() Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(nil, DefaultLevel, true)
	})
	return defaultLogger
}

// New returns a logger that prints statements at the given level.
func New(output zapcore.WriteSyncer, level int, isJSON bool) Logger {
	encoder := getConsoleEncoder()
	if isJSON {
		encoder = getJSONEncoder()
	}
	if output == nil {
		output = os.Stdout
	}

	core := zapcore.NewCore(encoder, output, zapcore.Level(level))
	return &log{zap.New(core, zap.WithCaller(true)).Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &log{zap.NewNop().Sugar()}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func getJSONEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(encoderConfig())
}

func getConsoleEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(encoderConfig())
}

type ctxLoggerKey struct{}

// ToContext stores l on the context.
func ToContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

// FromContextOrDefault returns the logger stored by ToContext, or the
// default logger.
func FromContextOrDefault(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxLoggerKey{}).(Logger); ok {
		return l
	}
	return DefaultLogger()
}
