// Package daqlog wraps zap's SugaredLogger to provide the six-level,
// structured logging contract every layer of the core runtime depends on
// (design §6): trace, debug, info, warning, error, critical. Logging never
// throws and never terminates the process — a concrete consequence of that
// is that Critical never calls zap's Fatal/DPanic.
package daqlog

import (
	"sync"

	"go.uber.org/zap"
)

// Level is one of the six levels the logger contract recognizes.
type Level int

// The six levels required by the logger contract.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

var (
	atomicLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	base        *zap.Logger
	baseOnce    sync.Once
	components  = make(map[string]*Logger)
	componentMu sync.Mutex
)

func baseLogger() *zap.Logger {
	baseOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = atomicLevel
		l, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		base = l
	})
	return base
}

// SetLevel adjusts the minimum level emitted by every Logger returned from
// GetOrAddComponent, matching the module-manager/logger contract's "logger
// never throws" promise by never failing this call.
func SetLevel(l Level) {
	switch l {
	case LevelTrace, LevelDebug:
		atomicLevel.SetLevel(zap.DebugLevel)
	case LevelInfo:
		atomicLevel.SetLevel(zap.InfoLevel)
	case LevelWarning:
		atomicLevel.SetLevel(zap.WarnLevel)
	default:
		atomicLevel.SetLevel(zap.ErrorLevel)
	}
}

// Logger is a named, structured logger exposing the six levels of the
// logger contract. It is safe for concurrent use.
type Logger struct {
	name string
	slog *zap.SugaredLogger
}

// GetOrAddComponent returns the named logger, creating it on first use. It
// mirrors the logger contract's getOrAddComponent(name) and
// aputil.GetThrottledLogger's "persistent and unique to the name" behavior.
func GetOrAddComponent(name string) *Logger {
	componentMu.Lock()
	defer componentMu.Unlock()
	if l, ok := components[name]; ok {
		return l
	}
	l := &Logger{
		name: name,
		slog: baseLogger().Sugar().Named(name),
	}
	components[name] = l
	return l
}

func kv(args []interface{}) []interface{} { return args }

// Trace logs at trace level (mapped onto zap's Debug level with an explicit
// trace=true field, since zap has no native Trace level).
func (l *Logger) Trace(msg string, args ...interface{}) {
	l.slog.Debugw(msg, append(kv(args), "trace", true)...)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.slog.Debugw(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.slog.Infow(msg, args...)
}

// Warning logs at warning level.
func (l *Logger) Warning(msg string, args ...interface{}) {
	l.slog.Warnw(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.slog.Errorw(msg, args...)
}

// Critical logs at critical level (mapped onto zap's Error level with an
// explicit critical=true field; it deliberately never calls zap's
// Fatal/DPanic, since a fatal runtime error must abort the *operation*, not
// the process — see design §7).
func (l *Logger) Critical(msg string, args ...interface{}) {
	l.slog.Errorw(msg, append(kv(args), "critical", true)...)
}

// Name returns the logger's component name.
func (l *Logger) Name() string { return l.name }
