package reactorcore

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// LogifaceLogger adapts a github.com/joeycumines/logiface Logger, writing
// through github.com/joeycumines/stumpy's zero-allocation JSON encoder, to
// the Logger interface. Reaches for it instead of DefaultLogger when a
// caller wants the same structured-JSON story the rest of the pack's
// services use.
type LogifaceLogger struct {
	logger *logiface.Logger[*stumpy.Event]
	level  LogLevel
}

// NewLogifaceLogger builds a LogifaceLogger writing to w (os.Stderr if nil),
// filtering out entries below level before they reach the stumpy encoder.
func NewLogifaceLogger(level LogLevel, w io.Writer) *LogifaceLogger {
	if w == nil {
		w = os.Stderr
	}
	return &LogifaceLogger{
		logger: logiface.New(stumpy.L.WithStumpy(stumpy.WithWriter(w))),
		level:  level,
	}
}

func toLogifaceLevel(l LogLevel) logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

func (l *LogifaceLogger) IsEnabled(level LogLevel) bool {
	return level >= l.level
}

func (l *LogifaceLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	b := l.logger.Build(toLogifaceLevel(entry.Level))
	if b == nil {
		return
	}
	b = b.Str("component", entry.Component)
	for k, v := range entry.Fields {
		b = b.Any(k, v)
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	b.Log(entry.Message)
}
