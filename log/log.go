// Package log provides structured logging for the server.
//
// The API (Logger, Fields, EntryHandler) follows the shape of the teacher
// project's own log package, but the default EntryHandler fires into
// logrus rather than reimplementing level/color handling from scratch.
package log

import (
	"fmt"
	"time"
)

type Logger struct {
	EntryHandler
	Level Level

	fields Fields
}

type Entry struct {
	Fields  Fields
	Time    time.Time
	Level   Level
	Message string
}

// EntryHandler is the sink an Entry is delivered to. The default handler
// (see logrus.go) forwards to github.com/sirupsen/logrus.
type EntryHandler interface {
	Fire(*Entry)
}

type Fields map[string]interface{}

func New(handler EntryHandler) *Logger {
	return &Logger{
		EntryHandler: handler,
		Level:        DebugLevel,
	}
}

func (l *Logger) Clone() *Logger {
	return &Logger{
		EntryHandler: l.EntryHandler,
		Level:        l.Level,
		fields:       l.fields,
	}
}

func (l *Logger) WithFields(fields Fields) *Logger {
	ll := &Logger{
		EntryHandler: l.EntryHandler,
		Level:        l.Level,
		fields:       make(Fields, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		ll.fields[k] = v
	}
	for k, v := range fields {
		ll.fields[k] = v
	}
	return ll
}

func (l *Logger) fire(level Level, msg string) {
	l.Fire(&Entry{
		Fields:  l.fields,
		Time:    time.Now(),
		Level:   level,
		Message: msg,
	})
}

func (l *Logger) log(level Level, args ...interface{}) {
	if l.Level >= level {
		l.fire(level, fmt.Sprint(args...))
	}
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if l.Level >= level {
		l.fire(level, fmt.Sprintf(format, args...))
	}
}

func (l *Logger) Debug(args ...interface{})                  { l.log(DebugLevel, args...) }
func (l *Logger) Debugf(format string, args ...interface{})  { l.logf(DebugLevel, format, args...) }
func (l *Logger) Info(args ...interface{})                   { l.log(InfoLevel, args...) }
func (l *Logger) Infof(format string, args ...interface{})   { l.logf(InfoLevel, format, args...) }
func (l *Logger) Warn(args ...interface{})                   { l.log(WarnLevel, args...) }
func (l *Logger) Warnf(format string, args ...interface{})   { l.logf(WarnLevel, format, args...) }
func (l *Logger) Error(args ...interface{})                  { l.log(ErrorLevel, args...) }
func (l *Logger) Errorf(format string, args ...interface{})  { l.logf(ErrorLevel, format, args...) }
