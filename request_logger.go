package transport

import "github.com/sirupsen/logrus"

// RequestLogger is the interface used by executors for logging requests and
// retried failures. It is a superset of the resty logger, so the blocking
// executor hands it to resty as well. Supply an implementation via
// [WithRequestLogger].
type RequestLogger interface {
	Errorf(format string, v ...any)
	Warnf(format string, v ...any)
	Infof(format string, v ...any)
	Debugf(format string, v ...any)
}

// NoopLogger is a [RequestLogger] that silently discards all log messages.
// It is the default logger.
type NoopLogger struct{}

func (l *NoopLogger) Errorf(_ string, _ ...any) {}
func (l *NoopLogger) Warnf(_ string, _ ...any)  {}
func (l *NoopLogger) Infof(_ string, _ ...any)  {}
func (l *NoopLogger) Debugf(_ string, _ ...any) {}

// NewLogrusLogger adapts a logrus logger, tagging every entry with the
// executor kind.
func NewLogrusLogger(l logrus.FieldLogger, executor string) RequestLogger {
	return l.WithField("executor", executor)
}
