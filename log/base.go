// Package log defines standard logging for taior.
package log

import "github.com/inconshreveable/log15"

// Logger is the logging interface used throughout taior. It insulates call
// sites from the concrete log15 dependency.
type Logger interface {
	With(ctx ...interface{}) Logger

	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Notice(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
}

type log15Adaptor struct {
	log15.Logger
}

func (l log15Adaptor) With(ctx ...interface{}) Logger {
	return log15Adaptor{
		Logger: l.New(ctx...),
	}
}

func (l log15Adaptor) Notice(msg string, ctx ...interface{}) {
	l.Info(msg, ctx...)
}

// NewLog15 wraps an existing log15.Logger.
func NewLog15(l log15.Logger) Logger {
	return log15Adaptor{Logger: l}
}

// NewDebug builds a Logger suitable for interactive/debug use, writing
// through log15's root handler (stdout by default).
func NewDebug() Logger {
	return log15Adaptor{
		Logger: log15.New(),
	}
}

// Discard is a Logger that drops everything. Useful in tests.
func Discard() Logger {
	l := log15.New()
	l.SetHandler(log15.DiscardHandler())
	return log15Adaptor{Logger: l}
}
