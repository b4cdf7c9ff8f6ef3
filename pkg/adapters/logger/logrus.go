package logger

import (
	"io"

	"github.com/ideamans/go-l10n"
	"github.com/sirupsen/logrus"
	"github.com/user/supervideo/pkg/ports"
)

// LogrusLogger writes structured log entries through logrus.
// The component name is attached as a field.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus creates a logrus-backed logger writing to out.
// When json is true entries are JSON encoded.
func NewLogrus(out io.Writer, level ports.LogLevel, json bool) *LogrusLogger {
	base := logrus.New()
	base.SetOutput(out)
	if json {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	base.SetLevel(toLogrusLevel(level))
	return &LogrusLogger{entry: logrus.NewEntry(base)}
}

func toLogrusLevel(level ports.LogLevel) logrus.Level {
	switch level {
	case ports.LevelDebug:
		return logrus.DebugLevel
	case ports.LevelInfo:
		return logrus.InfoLevel
	case ports.LevelWarn:
		return logrus.WarnLevel
	case ports.LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.PanicLevel
	}
}

// Debug logs a debug message.
func (l *LogrusLogger) Debug(msg string, args ...interface{}) {
	l.entry.Debug(format(msg, args...))
}

// Info logs an informational message.
func (l *LogrusLogger) Info(msg string, args ...interface{}) {
	l.entry.Info(format(msg, args...))
}

// Warn logs a warning message.
func (l *LogrusLogger) Warn(msg string, args ...interface{}) {
	l.entry.Warn(format(msg, args...))
}

// Error logs an error message.
func (l *LogrusLogger) Error(msg string, args ...interface{}) {
	l.entry.Error(format(msg, args...))
}

// WithComponent returns a logger that tags entries with the component name.
func (l *LogrusLogger) WithComponent(component string) ports.Logger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

func format(msg string, args ...interface{}) string {
	return l10n.F(msg, args...)
}

var _ ports.Logger = (*LogrusLogger)(nil)
