package observability

import "github.com/sirupsen/logrus"

// logrusLogger adapts a logrus entry to the Logger interface so the server
// and pipeline emit structured records through one backend.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus wraps a configured logrus logger.
func NewLogrus(logger *logrus.Logger) Logger {
	return &logrusLogger{entry: logrus.NewEntry(logger)}
}

func (l *logrusLogger) resolve(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	converted := make(logrus.Fields, len(fields))
	for _, f := range fields {
		converted[f.Key()] = f.Value()
	}
	return l.entry.WithFields(converted)
}

func (l *logrusLogger) Debug(msg string, fields ...Field) { l.resolve(fields).Debug(msg) }
func (l *logrusLogger) Info(msg string, fields ...Field)  { l.resolve(fields).Info(msg) }
func (l *logrusLogger) Warn(msg string, fields ...Field)  { l.resolve(fields).Warn(msg) }
func (l *logrusLogger) Error(msg string, fields ...Field) { l.resolve(fields).Error(msg) }

func (l *logrusLogger) With(fields ...Field) Logger {
	return &logrusLogger{entry: l.resolve(fields)}
}
