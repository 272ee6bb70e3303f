package log

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// logrusHandler is the default EntryHandler. It forwards entries into a
// github.com/sirupsen/logrus logger, which owns formatting and color
// decisions. Colors are disabled when stderr is not a terminal.
type logrusHandler struct {
	std *logrus.Logger
}

func newLogrusHandler() *logrusHandler {
	std := logrus.New()
	std.SetOutput(os.Stderr)
	std.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   !isatty.IsTerminal(os.Stderr.Fd()),
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return &logrusHandler{std: std}
}

func (h *logrusHandler) Fire(e *Entry) {
	fields := make(logrus.Fields, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	entry := h.std.WithFields(fields).WithTime(e.Time)
	switch e.Level {
	case DebugLevel:
		entry.Debug(e.Message)
	case InfoLevel:
		entry.Info(e.Message)
	case WarnLevel:
		entry.Warn(e.Message)
	case ErrorLevel:
		entry.Error(e.Message)
	case FatalLevel:
		entry.Error(e.Message)
	case PanicLevel:
		entry.Error(e.Message)
	default:
		entry.Info(e.Message)
	}
}

// StdLogger is the package-level default logger, used by the free
// functions below and as the fallback when a *Logger isn't threaded
// through explicitly.
var StdLogger = &Logger{
	EntryHandler: newLogrusHandler(),
	Level:        InfoLevel,
}

func WithFields(fields Fields) *Logger          { return StdLogger.WithFields(fields) }
func Debug(args ...interface{})                 { StdLogger.Debug(args...) }
func Debugf(format string, args ...interface{}) { StdLogger.Debugf(format, args...) }
func Info(args ...interface{})                  { StdLogger.Info(args...) }
func Infof(format string, args ...interface{})  { StdLogger.Infof(format, args...) }
func Warn(args ...interface{})                  { StdLogger.Warn(args...) }
func Warnf(format string, args ...interface{})  { StdLogger.Warnf(format, args...) }
func Error(args ...interface{})                 { StdLogger.Error(args...) }
func Errorf(format string, args ...interface{}) { StdLogger.Errorf(format, args...) }
